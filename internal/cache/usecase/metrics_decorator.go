package usecase

import (
	"context"
	"time"

	cacheDomain "github.com/msiav/vehicle-cache/internal/cache/domain"
	"github.com/msiav/vehicle-cache/internal/metrics"
)

// cacheUseCaseWithMetrics decorates CacheUseCase with metrics instrumentation.
type cacheUseCaseWithMetrics struct {
	next    CacheUseCase
	metrics metrics.BusinessMetrics
}

// NewCacheUseCaseWithMetrics wraps a CacheUseCase with metrics recording.
func NewCacheUseCaseWithMetrics(useCase CacheUseCase, m metrics.BusinessMetrics) CacheUseCase {
	return &cacheUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// UpdateCache records metrics for cache merge operations.
func (c *cacheUseCaseWithMetrics) UpdateCache(
	ctx context.Context,
	vehicles []*cacheDomain.CachedVehicle,
) (*UpdateResult, error) {
	start := time.Now()
	result, err := c.next.UpdateCache(ctx, vehicles)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "cache", "cache_update", status)
	c.metrics.RecordDuration(ctx, "cache", "cache_update", time.Since(start), status)

	return result, err
}

// CleanupOld records metrics for retention cleanup operations.
func (c *cacheUseCaseWithMetrics) CleanupOld(ctx context.Context) (int64, error) {
	start := time.Now()
	retired, err := c.next.CleanupOld(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "cache", "cache_cleanup", status)
	c.metrics.RecordDuration(ctx, "cache", "cache_cleanup", time.Since(start), status)

	return retired, err
}

// Deduplicate records metrics for deduplication operations.
func (c *cacheUseCaseWithMetrics) Deduplicate(ctx context.Context) (int64, error) {
	start := time.Now()
	removed, err := c.next.Deduplicate(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "cache", "cache_dedup", status)
	c.metrics.RecordDuration(ctx, "cache", "cache_dedup", time.Since(start), status)

	return removed, err
}

// DeactivateByHashes records metrics for cancelled-contract retirement.
func (c *cacheUseCaseWithMetrics) DeactivateByHashes(ctx context.Context, hashes []string) (int64, error) {
	start := time.Now()
	retired, err := c.next.DeactivateByHashes(ctx, hashes)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "cache", "cache_deactivate_cancelled", status)
	c.metrics.RecordDuration(ctx, "cache", "cache_deactivate_cancelled", time.Since(start), status)

	return retired, err
}

// Status records metrics for cache status reads.
func (c *cacheUseCaseWithMetrics) Status(ctx context.Context) (*CacheStatus, error) {
	start := time.Now()
	cacheStatus, err := c.next.Status(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "cache", "cache_status", status)
	c.metrics.RecordDuration(ctx, "cache", "cache_status", time.Since(start), status)

	return cacheStatus, err
}

// BackfillHashes records metrics for hash backfill operations.
func (c *cacheUseCaseWithMetrics) BackfillHashes(ctx context.Context, limit int) (int64, error) {
	start := time.Now()
	updated, err := c.next.BackfillHashes(ctx, limit)

	status := "success"
	if err != nil {
		status = "error"
	}

	c.metrics.RecordOperation(ctx, "cache", "cache_backfill_hashes", status)
	c.metrics.RecordDuration(ctx, "cache", "cache_backfill_hashes", time.Since(start), status)

	return updated, err
}
