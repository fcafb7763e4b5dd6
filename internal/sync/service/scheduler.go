package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	cacheDomain "github.com/msiav/vehicle-cache/internal/cache/domain"
	cacheUseCase "github.com/msiav/vehicle-cache/internal/cache/usecase"
	apperrors "github.com/msiav/vehicle-cache/internal/errors"
	"github.com/msiav/vehicle-cache/internal/metrics"
	syncDomain "github.com/msiav/vehicle-cache/internal/sync/domain"
)

const (
	// lockAcquireTimeout bounds how long a refresh trigger waits for the
	// shared job lock before skipping.
	lockAcquireTimeout = 30 * time.Second
	// refreshDebounce skips a refresh trigger that fires right after a
	// completed run.
	refreshDebounce = 5 * time.Minute
)

// Fetcher is the upstream side of a refresh run.
type Fetcher interface {
	// FetchCompleteVehicleData returns encrypted cache records for the window.
	FetchCompleteVehicleData(ctx context.Context, start, end time.Time) ([]*cacheDomain.CachedVehicle, error)

	// FetchCancelledHashes returns lookup hashes of contracts cancelled in
	// the window.
	FetchCancelledHashes(ctx context.Context, start, end time.Time) ([]string, error)
}

// SchedulerConfig tunes the scheduled jobs.
type SchedulerConfig struct {
	// Enabled gates the periodic refresh entirely.
	Enabled bool
	// DaysToFetch is the primary refresh window size.
	DaysToFetch int
	// FallbackDays widens the window for the one retry after a failed
	// fetch. No retry happens unless it is wider than DaysToFetch.
	FallbackDays int
	// MaxExecution is the stuck-job threshold: a run older than this with
	// no recorded end is force-reset.
	MaxExecution time.Duration
	// RefreshInterval, CleanupInterval and DedupInterval drive the Start loop.
	RefreshInterval time.Duration
	CleanupInterval time.Duration
	DedupInterval   time.Duration
}

// SchedulerStatus is the externally visible job state.
type SchedulerStatus struct {
	Enabled   bool       `json:"enabled"`
	IsRunning bool       `json:"is_running"`
	LastStart *time.Time `json:"last_start"`
	LastEnd   *time.Time `json:"last_end"`
}

// SyncScheduler coordinates the periodic cache refresh and the two
// maintenance jobs. One shared lock keeps the three jobs mutually
// exclusive process-wide; maintenance jobs never wait for it, they skip.
type SyncScheduler struct {
	fetcher Fetcher
	cache   cacheUseCase.CacheUseCase
	state   *syncDomain.JobState
	lock    *syncDomain.JobLock
	logger  *slog.Logger
	metrics metrics.BusinessMetrics
	config  SchedulerConfig
	now     func() time.Time
}

// NewSyncScheduler creates a scheduler with idle job state.
func NewSyncScheduler(
	fetcher Fetcher,
	cache cacheUseCase.CacheUseCase,
	logger *slog.Logger,
	m metrics.BusinessMetrics,
	config SchedulerConfig,
) *SyncScheduler {
	return &SyncScheduler{
		fetcher: fetcher,
		cache:   cache,
		state:   syncDomain.NewJobState(),
		lock:    syncDomain.NewJobLock(),
		logger:  logger,
		metrics: m,
		config:  config,
		now:     time.Now,
	}
}

// Status reports the current job state.
func (s *SyncScheduler) Status() SchedulerStatus {
	isRunning, lastStart, lastEnd := s.state.Snapshot()
	return SchedulerStatus{
		Enabled:   s.config.Enabled,
		IsRunning: isRunning,
		LastStart: lastStart,
		LastEnd:   lastEnd,
	}
}

// RunRefresh executes one refresh trigger. Skips are silent successes:
// disabled configuration, a run already in progress, a recently completed
// run, or a contended lock all leave the cache untouched and return nil.
func (s *SyncScheduler) RunRefresh(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Debug("cache refresh disabled, skipping trigger")
		return nil
	}

	now := s.now().UTC()
	if s.state.Stuck(now, s.config.MaxExecution) {
		// A run that started and never ended would otherwise block every
		// future trigger. Reset and proceed.
		s.logger.Error("previous refresh exceeded max execution, force-resetting job state",
			"max_execution", s.config.MaxExecution,
		)
		s.state.ForceReset()
	}

	if s.state.EndedWithin(now, refreshDebounce) {
		s.logger.Debug("refresh finished recently, skipping trigger")
		return nil
	}

	if !s.lock.Acquire(lockAcquireTimeout) {
		s.logger.Warn("could not acquire job lock, skipping refresh trigger")
		return nil
	}
	defer s.lock.Release()

	if !s.state.TryBegin(now) {
		s.logger.Debug("refresh already running, skipping trigger")
		return nil
	}
	defer func() {
		s.state.MarkEnded(s.now().UTC())
	}()

	err := s.refresh(ctx, now)

	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "sync", "refresh", status)
	s.metrics.RecordDuration(ctx, "sync", "refresh", s.now().UTC().Sub(now), status)

	return err
}

// refresh performs the fetch-and-persist pass. A failed primary fetch gets
// one retry over the wider fallback window; encryption failures are fatal
// immediately, since widening the window cannot make inconsistent
// ciphertext safe to persist.
func (s *SyncScheduler) refresh(ctx context.Context, today time.Time) error {
	start := today.AddDate(0, 0, -s.config.DaysToFetch)
	vehicles, err := s.fetcher.FetchCompleteVehicleData(ctx, start, today)
	if err != nil {
		if errors.Is(err, apperrors.ErrEncryptionIntegrity) {
			s.logger.Error("refresh aborted on encryption failure", "error", err)
			return err
		}
		if s.config.FallbackDays <= s.config.DaysToFetch {
			s.logger.Error("refresh fetch failed, cache left unchanged", "error", err)
			return err
		}

		s.logger.Warn("refresh fetch failed, retrying with fallback window",
			"days_to_fetch", s.config.DaysToFetch,
			"fallback_days", s.config.FallbackDays,
			"error", err,
		)
		start = today.AddDate(0, 0, -s.config.FallbackDays)
		vehicles, err = s.fetcher.FetchCompleteVehicleData(ctx, start, today)
		if err != nil {
			s.logger.Error("fallback fetch failed, cache left unchanged", "error", err)
			return err
		}
	}

	if len(vehicles) == 0 {
		s.logger.Info("refresh found no notifications, cache left as-is")
		return nil
	}

	before, err := s.cache.Status(ctx)
	if err != nil {
		return err
	}

	result, err := s.cache.UpdateCache(ctx, vehicles)
	if err != nil {
		return err
	}

	s.retireCancelled(ctx, start, today)

	after, err := s.cache.Status(ctx)
	if err != nil {
		return err
	}

	s.logger.Info("cache refresh completed",
		"fetched", len(vehicles),
		"created", result.Created,
		"updated", result.Updated,
		"records_before", before.TotalVehicles,
		"records_after", after.TotalVehicles,
	)

	return nil
}

// retireCancelled deactivates rows whose contract was cancelled in the
// window. Best effort: a failure here never fails the refresh that just
// persisted good data.
func (s *SyncScheduler) retireCancelled(ctx context.Context, start, end time.Time) {
	hashes, err := s.fetcher.FetchCancelledHashes(ctx, start, end)
	if err != nil {
		s.logger.Warn("cancelled-contract search failed", "error", err)
		return
	}
	if len(hashes) == 0 {
		return
	}

	retired, err := s.cache.DeactivateByHashes(ctx, hashes)
	if err != nil {
		s.logger.Warn("failed to retire cancelled contracts", "error", err)
		return
	}
	s.logger.Info("retired cancelled contracts", "count", retired)
}

// RunCleanup retires rows past the retention window. Skips when any job
// holds the shared lock.
func (s *SyncScheduler) RunCleanup(ctx context.Context) error {
	if !s.lock.TryAcquire() {
		s.logger.Debug("job lock held, skipping cleanup trigger")
		return nil
	}
	defer s.lock.Release()

	retired, err := s.cache.CleanupOld(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "sync", "cleanup", status)

	if err != nil {
		s.logger.Error("cleanup job failed", "error", err)
		return err
	}
	s.logger.Info("cleanup job completed", "retired", retired)
	return nil
}

// RunDeduplicate collapses duplicate cache rows. Skips when any job holds
// the shared lock.
func (s *SyncScheduler) RunDeduplicate(ctx context.Context) error {
	if !s.lock.TryAcquire() {
		s.logger.Debug("job lock held, skipping dedup trigger")
		return nil
	}
	defer s.lock.Release()

	removed, err := s.cache.Deduplicate(ctx)

	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "sync", "dedup", status)

	if err != nil {
		s.logger.Error("dedup job failed", "error", err)
		return err
	}
	s.logger.Info("dedup job completed", "removed", removed)
	return nil
}

// Start runs the three jobs on their configured intervals until the
// context is cancelled. Job errors are logged, never propagated; a failed
// run leaves the cache in its last good state.
func (s *SyncScheduler) Start(ctx context.Context) {
	refresh := time.NewTicker(s.config.RefreshInterval)
	cleanup := time.NewTicker(s.config.CleanupInterval)
	dedup := time.NewTicker(s.config.DedupInterval)
	defer refresh.Stop()
	defer cleanup.Stop()
	defer dedup.Stop()

	s.logger.Info("sync scheduler started",
		"refresh_interval", s.config.RefreshInterval,
		"cleanup_interval", s.config.CleanupInterval,
		"dedup_interval", s.config.DedupInterval,
		"enabled", s.config.Enabled,
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sync scheduler stopped")
			return
		case <-refresh.C:
			if err := s.RunRefresh(ctx); err != nil {
				s.logger.Error("scheduled refresh failed", "error", err)
			}
		case <-cleanup.C:
			if err := s.RunCleanup(ctx); err != nil {
				s.logger.Error("scheduled cleanup failed", "error", err)
			}
		case <-dedup.C:
			if err := s.RunDeduplicate(ctx); err != nil {
				s.logger.Error("scheduled dedup failed", "error", err)
			}
		}
	}
}
