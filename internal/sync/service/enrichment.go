package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	cacheDomain "github.com/msiav/vehicle-cache/internal/cache/domain"
	cacheService "github.com/msiav/vehicle-cache/internal/cache/service"
	cacheUseCase "github.com/msiav/vehicle-cache/internal/cache/usecase"
	upstreamService "github.com/msiav/vehicle-cache/internal/upstream/service"
)

const (
	// maxEnrichmentIterations caps EnrichAll batch loops. Rows whose
	// addresses never parse stay incomplete forever, so the remaining
	// count is not guaranteed to reach zero.
	maxEnrichmentIterations = 100

	defaultItemPause  = 500 * time.Millisecond
	defaultBatchPause = 2 * time.Second
)

// EnrichmentConfig tunes the enrichment pacing and fan-out.
type EnrichmentConfig struct {
	// Concurrency bounds the async worker pool.
	Concurrency int
	// ItemTimeout scales the async wait deadline: the pool gets
	// ItemTimeout per submitted id.
	ItemTimeout time.Duration
	// ItemPause is the delay between consecutive single-row enrichments.
	ItemPause time.Duration
	// BatchPause is the delay between EnrichAll batches.
	BatchPause time.Duration
}

func (c EnrichmentConfig) withDefaults() EnrichmentConfig {
	if c.Concurrency <= 0 {
		c.Concurrency = 5
	}
	if c.ItemTimeout <= 0 {
		c.ItemTimeout = 10 * time.Second
	}
	if c.ItemPause <= 0 {
		c.ItemPause = defaultItemPause
	}
	if c.BatchPause <= 0 {
		c.BatchPause = defaultBatchPause
	}
	return c
}

// EnrichmentReport summarizes an EnrichAll pass.
type EnrichmentReport struct {
	Batches int `json:"batches"`
	Success int `json:"success"`
	Errors  int `json:"errors"`
}

// EnrichmentService fills sentinel fields on cached vehicles from the
// per-plate detail endpoint. Enrichment is strictly forward-only: a field
// already holding data is never replaced by a sentinel or blank, so its
// writes are safe to race with a concurrent refresh.
type EnrichmentService struct {
	client      upstreamService.Client
	vehicleRepo cacheUseCase.VehicleRepository
	gate        *cacheService.CryptoGate
	logger      *slog.Logger
	config      EnrichmentConfig
}

// NewEnrichmentService creates an enrichment service.
func NewEnrichmentService(
	client upstreamService.Client,
	vehicleRepo cacheUseCase.VehicleRepository,
	gate *cacheService.CryptoGate,
	logger *slog.Logger,
	config EnrichmentConfig,
) *EnrichmentService {
	return &EnrichmentService{
		client:      client,
		vehicleRepo: vehicleRepo,
		gate:        gate,
		logger:      logger,
		config:      config.withDefaults(),
	}
}

// EnrichVehicle enriches a single cached vehicle. Returns true when the row
// changed and was persisted. A row whose plate cannot be recovered is
// skipped without error, since there is nothing to look up.
func (e *EnrichmentService) EnrichVehicle(ctx context.Context, id uuid.UUID) (bool, error) {
	vehicle, err := e.vehicleRepo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}

	e.gate.DecryptVehicle(vehicle)
	if cacheDomain.IsBlank(vehicle.Plate) || cacheService.LooksEncrypted(vehicle.Plate) {
		e.logger.Debug("skipping enrichment, plate not recoverable", "id", id)
		return false, nil
	}

	detail, err := e.client.FetchDetail(ctx, vehicle.Plate)
	if err != nil {
		return false, err
	}

	before := *vehicle
	applyDetail(vehicle, detail)
	if vehicle.Protocol == before.Protocol &&
		vehicle.City == before.City &&
		vehicle.DebtorTaxID == before.DebtorTaxID &&
		vehicle.Chassis == before.Chassis &&
		vehicle.Renavam == before.Renavam &&
		vehicle.Gravame == before.Gravame {
		return false, nil
	}

	if err := e.gate.EncryptVehicle(vehicle); err != nil {
		return false, err
	}
	vehicle.UpdatedAt = time.Now().UTC()
	if err := e.vehicleRepo.Update(ctx, vehicle); err != nil {
		return false, err
	}

	return true, nil
}

// EnrichIncomplete enriches up to limit incomplete rows one at a time,
// pausing between items to spread upstream load. Per-item failures are
// logged and skipped. Returns the number of rows updated.
func (e *EnrichmentService) EnrichIncomplete(ctx context.Context, limit int) (int, error) {
	vehicles, err := e.vehicleRepo.ListIncomplete(ctx, limit)
	if err != nil {
		return 0, err
	}

	updated := 0
	for i, vehicle := range vehicles {
		if i > 0 {
			if err := sleepCtx(ctx, e.config.ItemPause); err != nil {
				return updated, err
			}
		}

		changed, err := e.EnrichVehicle(ctx, vehicle.ID)
		if err != nil {
			e.logger.Warn("enrichment failed for vehicle", "id", vehicle.ID, "error", err)
			continue
		}
		if changed {
			updated++
		}
	}

	return updated, nil
}

// EnrichAll repeatedly enriches incomplete rows in batches until none
// remain or the iteration cap is reached.
func (e *EnrichmentService) EnrichAll(ctx context.Context, batchSize int) (*EnrichmentReport, error) {
	report := &EnrichmentReport{}

	for i := 0; i < maxEnrichmentIterations; i++ {
		remaining, err := e.vehicleRepo.CountIncomplete(ctx)
		if err != nil {
			return report, err
		}
		if remaining == 0 {
			break
		}

		if i > 0 {
			if err := sleepCtx(ctx, e.config.BatchPause); err != nil {
				return report, err
			}
		}

		updated, err := e.EnrichIncomplete(ctx, batchSize)
		report.Batches++
		report.Success += updated
		if err != nil {
			report.Errors++
			return report, err
		}
		if updated == 0 {
			// Nothing in this batch could be enriched; further passes over
			// the same rows would spin until the iteration cap.
			break
		}
	}

	return report, nil
}

// EnrichAsync enriches the given vehicles in the background over a bounded
// worker pool and returns immediately. The pool waits at most ItemTimeout
// per submitted id; on timeout, stragglers already in flight still complete
// and persist, but no new work starts. Nothing propagates to the caller.
func (e *EnrichmentService) EnrichAsync(ids []uuid.UUID) {
	if len(ids) == 0 {
		return
	}

	go func() {
		deadline := time.Duration(len(ids)) * e.config.ItemTimeout
		ctx, cancel := context.WithTimeout(context.Background(), deadline)
		defer cancel()

		sem := semaphore.NewWeighted(int64(e.config.Concurrency))
		var wg sync.WaitGroup
		for _, id := range ids {
			if err := sem.Acquire(ctx, 1); err != nil {
				e.logger.Error("async enrichment timed out before draining", "pending", len(ids), "error", err)
				break
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)
				// Detached from the deadline so a started item always
				// finishes its persistence.
				if _, err := e.EnrichVehicle(context.Background(), id); err != nil {
					e.logger.Warn("async enrichment failed for vehicle", "id", id, "error", err)
				}
			}()
		}
		wg.Wait()
	}()
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
