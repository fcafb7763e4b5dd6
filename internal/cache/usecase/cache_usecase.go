package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	cacheDomain "github.com/msiav/vehicle-cache/internal/cache/domain"
	cacheService "github.com/msiav/vehicle-cache/internal/cache/service"
	"github.com/msiav/vehicle-cache/internal/database"
	apperrors "github.com/msiav/vehicle-cache/internal/errors"
)

// cacheUseCase implements the CacheUseCase interface.
type cacheUseCase struct {
	txManager         database.TxManager
	vehicleRepo       VehicleRepository
	gate              *cacheService.CryptoGate
	logger            *slog.Logger
	maxHistoricalDays int
	now               func() time.Time
}

// NewCacheUseCase creates a cache use case instance with the provided dependencies.
func NewCacheUseCase(
	txManager database.TxManager,
	vehicleRepo VehicleRepository,
	gate *cacheService.CryptoGate,
	logger *slog.Logger,
	maxHistoricalDays int,
) CacheUseCase {
	return &cacheUseCase{
		txManager:         txManager,
		vehicleRepo:       vehicleRepo,
		gate:              gate,
		logger:            logger,
		maxHistoricalDays: maxHistoricalDays,
		now:               time.Now,
	}
}

// UpdateCache merges a batch of encrypted vehicles into the cache inside a
// single transaction. Vehicles are matched to existing rows by their
// contract+plate lookup hash; matches are updated field by field, the rest
// are inserted as new rows.
func (c *cacheUseCase) UpdateCache(
	ctx context.Context,
	vehicles []*cacheDomain.CachedVehicle,
) (*UpdateResult, error) {
	result := &UpdateResult{}
	if len(vehicles) == 0 {
		return result, nil
	}

	err := c.txManager.WithTx(ctx, func(txCtx context.Context) error {
		for _, incoming := range vehicles {
			if incoming.ContractPlateHash == "" {
				// Without a lookup hash the row cannot be matched later,
				// so it is always treated as new.
				if err := c.insertVehicle(txCtx, incoming); err != nil {
					return err
				}
				result.Created++
				continue
			}

			existing, err := c.vehicleRepo.GetByContractPlateHash(txCtx, incoming.ContractPlateHash)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					if err := c.insertVehicle(txCtx, incoming); err != nil {
						return err
					}
					result.Created++
					continue
				}
				return err
			}

			c.mergeVehicle(existing, incoming)
			if err := c.vehicleRepo.Update(txCtx, existing); err != nil {
				return err
			}
			result.Updated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("cache update applied",
		"created", result.Created,
		"updated", result.Updated,
	)

	return result, nil
}

func (c *cacheUseCase) insertVehicle(ctx context.Context, v *cacheDomain.CachedVehicle) error {
	now := c.now().UTC()
	v.SyncedAt = now
	v.Active = true
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	return c.vehicleRepo.Create(ctx, v)
}

// mergeVehicle folds incoming data into an existing row. Sensitive fields
// are only replaced when the incoming value carries real data, so an
// upstream response with gaps never erases known values.
func (c *cacheUseCase) mergeVehicle(existing, incoming *cacheDomain.CachedVehicle) {
	encrypted := []struct {
		dst *string
		src string
	}{
		{&existing.Contract, incoming.Contract},
		{&existing.Plate, incoming.Plate},
		{&existing.DebtorTaxID, incoming.DebtorTaxID},
		{&existing.Protocol, incoming.Protocol},
		{&existing.City, incoming.City},
		{&existing.Chassis, incoming.Chassis},
		{&existing.Renavam, incoming.Renavam},
		{&existing.Gravame, incoming.Gravame},
	}
	for _, f := range encrypted {
		if !cacheDomain.IsBlank(f.src) {
			*f.dst = f.src
		}
	}

	plain := []struct {
		dst *string
		src string
	}{
		{&existing.CreditorName, incoming.CreditorName},
		{&existing.Stage, incoming.Stage},
		{&existing.ApprehensionStatus, incoming.ApprehensionStatus},
	}
	for _, f := range plain {
		if f.src != "" {
			*f.dst = f.src
		}
	}

	// Model and state code arrive sparsely; the sentinel placeholder must
	// never erase a previously known value.
	if !cacheDomain.IsBlank(incoming.Model) {
		existing.Model = incoming.Model
	}
	if !cacheDomain.IsBlank(incoming.StateCode) {
		existing.StateCode = incoming.StateCode
	}

	hashes := []struct {
		dst *string
		src string
	}{
		{&existing.ContractHash, incoming.ContractHash},
		{&existing.PlateHash, incoming.PlateHash},
		{&existing.DebtorTaxIDHash, incoming.DebtorTaxIDHash},
		{&existing.ProtocolHash, incoming.ProtocolHash},
	}
	for _, f := range hashes {
		if f.src != "" {
			*f.dst = f.src
		}
	}

	if incoming.ExternalID != nil {
		existing.ExternalID = incoming.ExternalID
	}
	if !incoming.LastMovementAt.IsZero() {
		existing.LastMovementAt = incoming.LastMovementAt
	}

	now := c.now().UTC()
	existing.SyncedAt = now
	existing.UpdatedAt = now
	existing.Active = true
}

// CleanupOld retires vehicles whose last movement predates the retention window.
func (c *cacheUseCase) CleanupOld(ctx context.Context) (int64, error) {
	cutoff := c.now().UTC().AddDate(0, 0, -c.maxHistoricalDays)
	retired, err := c.vehicleRepo.RetireOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if retired > 0 {
		c.logger.Info("retired stale cached vehicles", "count", retired, "cutoff", cutoff)
	}
	return retired, nil
}

// Deduplicate removes duplicate rows sharing a contract+plate hash, keeping
// the most recently synced row of each group.
func (c *cacheUseCase) Deduplicate(ctx context.Context) (int64, error) {
	hashes, err := c.vehicleRepo.ListDuplicateHashes(ctx)
	if err != nil {
		return 0, err
	}

	var removed int64
	for _, hash := range hashes {
		err := c.txManager.WithTx(ctx, func(txCtx context.Context) error {
			group, err := c.vehicleRepo.ListByContractPlateHash(txCtx, hash)
			if err != nil {
				return err
			}
			// First row is the newest; everything behind it goes.
			for _, dup := range group[1:] {
				if err := c.vehicleRepo.Delete(txCtx, dup.ID); err != nil {
					return err
				}
				removed++
			}
			return nil
		})
		if err != nil {
			return removed, err
		}
	}

	if removed > 0 {
		c.logger.Info("removed duplicate cached vehicles", "count", removed)
	}

	return removed, nil
}

// DeactivateByHashes retires cached vehicles whose contract was reported
// as cancelled upstream. Hashes with no matching row are ignored.
func (c *cacheUseCase) DeactivateByHashes(ctx context.Context, hashes []string) (int64, error) {
	var retired int64
	for _, hash := range hashes {
		vehicle, err := c.vehicleRepo.GetByContractPlateHash(ctx, hash)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return retired, err
		}
		if !vehicle.Active {
			continue
		}

		vehicle.Active = false
		vehicle.UpdatedAt = c.now().UTC()
		if err := c.vehicleRepo.Update(ctx, vehicle); err != nil {
			return retired, err
		}
		retired++
	}

	if retired > 0 {
		c.logger.Info("retired cancelled cached vehicles", "count", retired)
	}

	return retired, nil
}

// Status reports cache totals and sync freshness.
func (c *cacheUseCase) Status(ctx context.Context) (*CacheStatus, error) {
	total, err := c.vehicleRepo.CountActive(ctx)
	if err != nil {
		return nil, err
	}

	incomplete, err := c.vehicleRepo.CountIncomplete(ctx)
	if err != nil {
		return nil, err
	}

	lastSynced, err := c.vehicleRepo.LastSyncedAt(ctx)
	if err != nil {
		return nil, err
	}

	status := &CacheStatus{
		TotalVehicles:      total,
		IncompleteVehicles: incomplete,
		LastSyncedAt:       lastSynced,
	}
	if lastSynced != nil {
		minutes := c.now().UTC().Sub(*lastSynced).Minutes()
		status.MinutesSinceSync = &minutes
	}

	return status, nil
}

// BackfillHashes computes lookup hashes for rows persisted before the hash
// columns existed, decrypting the stored fields to recover the plaintexts.
func (c *cacheUseCase) BackfillHashes(ctx context.Context, limit int) (int64, error) {
	vehicles, err := c.vehicleRepo.ListMissingHashes(ctx, limit)
	if err != nil {
		return 0, err
	}

	var updated int64
	for _, v := range vehicles {
		contract := c.gate.DecryptField(v.Contract)
		plate := c.gate.DecryptField(v.Plate)
		debtorTaxID := c.gate.DecryptField(v.DebtorTaxID)
		protocol := c.gate.DecryptField(v.Protocol)

		if !cacheDomain.IsBlank(contract) {
			v.ContractHash = c.gate.LookupHash(contract)
		}
		if !cacheDomain.IsBlank(plate) {
			v.PlateHash = c.gate.LookupHash(cacheDomain.NormalizePlate(plate))
		}
		if !cacheDomain.IsBlank(debtorTaxID) {
			v.DebtorTaxIDHash = c.gate.LookupHash(debtorTaxID)
		}
		if !cacheDomain.IsBlank(protocol) {
			v.ProtocolHash = c.gate.LookupHash(protocol)
		}
		if !cacheDomain.IsBlank(contract) && !cacheDomain.IsBlank(plate) {
			v.ContractPlateHash = c.gate.ContractPlateHash(contract, plate)
		}

		v.UpdatedAt = c.now().UTC()
		if err := c.vehicleRepo.Update(ctx, v); err != nil {
			return updated, err
		}
		updated++
	}

	if updated > 0 {
		c.logger.Info("backfilled vehicle lookup hashes", "count", updated)
	}

	return updated, nil
}
