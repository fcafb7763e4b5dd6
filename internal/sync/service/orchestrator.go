package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	cacheDomain "github.com/msiav/vehicle-cache/internal/cache/domain"
	cacheService "github.com/msiav/vehicle-cache/internal/cache/service"
	upstreamDomain "github.com/msiav/vehicle-cache/internal/upstream/domain"
	upstreamService "github.com/msiav/vehicle-cache/internal/upstream/service"
)

const (
	// detailBatchSize is how many records have their details fetched
	// before the orchestrator joins and moves to the next slice.
	detailBatchSize = 50
	// detailPoolSize bounds concurrent detail requests within a batch.
	detailPoolSize = 10
)

// BatchFetchOrchestrator turns a period search into complete, encrypted
// cache records: it deduplicates the basic listing, fans out per-plate
// detail fetches in bounded batches, and runs every record through the
// crypto gate before handing it to persistence.
type BatchFetchOrchestrator struct {
	client    upstreamService.Client
	gate      *cacheService.CryptoGate
	logger    *slog.Logger
	batchSize int
	poolSize  int
}

// NewBatchFetchOrchestrator creates an orchestrator with the default batch
// and pool sizes.
func NewBatchFetchOrchestrator(
	client upstreamService.Client,
	gate *cacheService.CryptoGate,
	logger *slog.Logger,
) *BatchFetchOrchestrator {
	return &BatchFetchOrchestrator{
		client:    client,
		gate:      gate,
		logger:    logger,
		batchSize: detailBatchSize,
		poolSize:  detailPoolSize,
	}
}

// FetchCompleteVehicleData fetches the basic listing for the window,
// enriches it with per-plate details, and returns encrypted records ready
// for the cache. Individual detail failures are logged and leave the
// affected fields at their prior value; an encryption failure aborts the
// whole fetch.
func (o *BatchFetchOrchestrator) FetchCompleteVehicleData(
	ctx context.Context,
	start, end time.Time,
) ([]*cacheDomain.CachedVehicle, error) {
	notifications, err := o.client.SearchPeriod(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if len(notifications) == 0 {
		return nil, nil
	}

	records, order := o.foldNotifications(notifications)
	o.fetchDetails(ctx, records, order)

	vehicles := make([]*cacheDomain.CachedVehicle, 0, len(order))
	for _, key := range order {
		v := records[key]
		if err := o.gate.EncryptVehicle(v); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}

	return vehicles, nil
}

// FetchCancelledHashes returns the contract+plate lookup hashes of
// notifications cancelled in the window, for retiring cached rows.
func (o *BatchFetchOrchestrator) FetchCancelledHashes(
	ctx context.Context,
	start, end time.Time,
) ([]string, error) {
	notifications, err := o.client.SearchCancelledPeriod(ctx, start, end)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(notifications))
	hashes := make([]string, 0, len(notifications))
	for _, n := range notifications {
		plate := cacheDomain.NormalizePlate(n.Plate)
		if n.Contract == "" || plate == "" {
			continue
		}
		hash := o.gate.ContractPlateHash(n.Contract, plate)
		if _, ok := seen[hash]; ok {
			continue
		}
		seen[hash] = struct{}{}
		hashes = append(hashes, hash)
	}

	return hashes, nil
}

// foldNotifications collapses the listing into one record per contract and
// plate. Later entries for the same key overwrite the basic fields, so a
// repeated listing is idempotent. Insertion order is preserved for stable
// downstream batching.
func (o *BatchFetchOrchestrator) foldNotifications(
	notifications []upstreamDomain.Notification,
) (map[string]*cacheDomain.CachedVehicle, []string) {
	records := make(map[string]*cacheDomain.CachedVehicle, len(notifications))
	order := make([]string, 0, len(notifications))

	for _, n := range notifications {
		key := cacheDomain.DedupKey(n.Contract, n.Plate)
		existing, ok := records[key]
		if !ok {
			records[key] = o.newRecord(n)
			order = append(order, key)
			continue
		}
		o.applyBasicFields(existing, n)
	}

	return records, order
}

func (o *BatchFetchOrchestrator) newRecord(n upstreamDomain.Notification) *cacheDomain.CachedVehicle {
	v := &cacheDomain.CachedVehicle{
		ID:                 uuid.Must(uuid.NewV7()),
		ExternalID:         n.ExternalID,
		Contract:           n.Contract,
		Plate:              cacheDomain.NormalizePlate(n.Plate),
		DebtorTaxID:        cacheDomain.Sentinel,
		Protocol:           cacheDomain.Sentinel,
		City:               cacheDomain.Sentinel,
		Chassis:            cacheDomain.Sentinel,
		Renavam:            cacheDomain.Sentinel,
		Gravame:            cacheDomain.Sentinel,
		CreditorName:       n.CreditorName,
		Model:              cacheDomain.Sentinel,
		StateCode:          cacheDomain.Sentinel,
		Stage:              cacheDomain.StageInitial,
		ApprehensionStatus: cacheDomain.StatusAwaitingScheduling,
		LastMovementAt:     n.LastMovementAt,
		Active:             true,
	}
	o.applyBasicFields(v, n)
	return v
}

// applyBasicFields copies listing-level data onto a record. Only non-empty
// values land, so a sparser duplicate never erases data from an earlier one.
func (o *BatchFetchOrchestrator) applyBasicFields(
	v *cacheDomain.CachedVehicle,
	n upstreamDomain.Notification,
) {
	if n.ExternalID != nil {
		v.ExternalID = n.ExternalID
	}
	if n.CreditorName != "" {
		v.CreditorName = n.CreditorName
	}
	if n.Model != "" {
		v.Model = n.Model
	}
	if n.StateCode != "" {
		v.StateCode = n.StateCode
	}
	if n.DebtorTaxID != "" {
		v.DebtorTaxID = n.DebtorTaxID
	}
	if n.Protocol != "" {
		v.Protocol = n.Protocol
	}
	if n.Stage != "" {
		v.Stage = n.Stage
	}
	if n.ApprehensionStatus != "" {
		v.ApprehensionStatus = n.ApprehensionStatus
	}
	if n.DebtorAddress != "" {
		v.City = ExtractCity(n.DebtorAddress)
	}
	if !n.LastMovementAt.IsZero() {
		v.LastMovementAt = n.LastMovementAt
	}
}

// fetchDetails walks the deduplicated records in fixed-size batches and
// fills protocol, city and debtor tax id from the per-plate detail
// endpoint. Records without a usable plate are skipped. Each batch joins
// before the next starts, capping concurrent upstream load.
func (o *BatchFetchOrchestrator) fetchDetails(
	ctx context.Context,
	records map[string]*cacheDomain.CachedVehicle,
	order []string,
) {
	eligible := make([]*cacheDomain.CachedVehicle, 0, len(order))
	for _, key := range order {
		v := records[key]
		if cacheDomain.IsBlank(v.Plate) {
			continue
		}
		eligible = append(eligible, v)
	}

	for offset := 0; offset < len(eligible); offset += o.batchSize {
		limit := min(offset+o.batchSize, len(eligible))
		batch := eligible[offset:limit]

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.poolSize)
		for _, v := range batch {
			g.Go(func() error {
				o.enrichFromDetail(gctx, v)
				return nil
			})
		}
		// Workers never return errors; Wait is a join point.
		_ = g.Wait()
	}
}

// enrichFromDetail applies one detail response to a record. Failures are
// logged and leave the record untouched, so one bad plate never sinks the
// batch.
func (o *BatchFetchOrchestrator) enrichFromDetail(ctx context.Context, v *cacheDomain.CachedVehicle) {
	detail, err := o.client.FetchDetail(ctx, v.Plate)
	if err != nil {
		o.logger.Warn("detail fetch failed, keeping listing data",
			"contract", v.Contract,
			"error", err,
		)
		return
	}

	applyDetail(v, detail)
}

// applyDetail merges a detail payload field by field. Only fields present
// in the response overwrite, and never with a blank value.
func applyDetail(v *cacheDomain.CachedVehicle, detail *upstreamDomain.VehicleDetail) {
	if detail == nil {
		return
	}
	if detail.Protocol != nil && *detail.Protocol != "" {
		v.Protocol = *detail.Protocol
	}
	if detail.DebtorTaxID != nil && *detail.DebtorTaxID != "" {
		v.DebtorTaxID = *detail.DebtorTaxID
	}
	if detail.Address != nil && *detail.Address != "" {
		if city := ExtractCity(*detail.Address); city != cacheDomain.Sentinel {
			v.City = city
		}
	}
	if detail.Chassis != nil && *detail.Chassis != "" {
		v.Chassis = *detail.Chassis
	}
	if detail.Renavam != nil && *detail.Renavam != "" {
		v.Renavam = *detail.Renavam
	}
	if detail.Gravame != nil && *detail.Gravame != "" {
		v.Gravame = *detail.Gravame
	}
}
