package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cacheDomain "github.com/msiav/vehicle-cache/internal/cache/domain"
	cacheUseCase "github.com/msiav/vehicle-cache/internal/cache/usecase"
	apperrors "github.com/msiav/vehicle-cache/internal/errors"
	"github.com/msiav/vehicle-cache/internal/metrics"
)

func newTestScheduler(
	fetcher *mockFetcher,
	cache *mockCacheUseCase,
	config SchedulerConfig,
) (*SyncScheduler, time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewSyncScheduler(fetcher, cache, slog.New(slog.DiscardHandler), metrics.NewNoOpBusinessMetrics(), config)
	s.now = func() time.Time { return now }
	return s, now
}

func defaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:      true,
		DaysToFetch:  30,
		FallbackDays: 60,
		MaxExecution: 30 * time.Minute,
	}
}

func expectStatus(cache *mockCacheUseCase, total int64) {
	cache.On("Status", mock.Anything).Return(&cacheUseCase.CacheStatus{TotalVehicles: total}, nil)
}

func TestSyncSchedulerRunRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("persists fetched vehicles", func(t *testing.T) {
		fetcher := &mockFetcher{}
		cache := &mockCacheUseCase{}
		s, now := newTestScheduler(fetcher, cache, defaultSchedulerConfig())

		start := now.AddDate(0, 0, -30)
		vehicles := []*cacheDomain.CachedVehicle{{}}
		fetcher.On("FetchCompleteVehicleData", ctx, start, now).Return(vehicles, nil)
		fetcher.On("FetchCancelledHashes", ctx, start, now).Return([]string{}, nil)
		expectStatus(cache, 10)
		cache.On("UpdateCache", ctx, vehicles).Return(&cacheUseCase.UpdateResult{Created: 1}, nil)

		require.NoError(t, s.RunRefresh(ctx))

		cache.AssertExpectations(t)
		status := s.Status()
		assert.False(t, status.IsRunning)
		assert.NotNil(t, status.LastEnd)
	})

	t.Run("disabled configuration skips entirely", func(t *testing.T) {
		fetcher := &mockFetcher{}
		cache := &mockCacheUseCase{}
		config := defaultSchedulerConfig()
		config.Enabled = false
		s, _ := newTestScheduler(fetcher, cache, config)

		require.NoError(t, s.RunRefresh(ctx))

		fetcher.AssertNotCalled(t, "FetchCompleteVehicleData", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty fetch leaves the cache untouched", func(t *testing.T) {
		fetcher := &mockFetcher{}
		cache := &mockCacheUseCase{}
		s, now := newTestScheduler(fetcher, cache, defaultSchedulerConfig())

		fetcher.On("FetchCompleteVehicleData", ctx, now.AddDate(0, 0, -30), now).
			Return([]*cacheDomain.CachedVehicle{}, nil)

		require.NoError(t, s.RunRefresh(ctx))

		cache.AssertNotCalled(t, "UpdateCache", mock.Anything, mock.Anything)
	})

	t.Run("failed fetch retries once with the fallback window", func(t *testing.T) {
		fetcher := &mockFetcher{}
		cache := &mockCacheUseCase{}
		s, now := newTestScheduler(fetcher, cache, defaultSchedulerConfig())

		primary := now.AddDate(0, 0, -30)
		fallback := now.AddDate(0, 0, -60)
		vehicles := []*cacheDomain.CachedVehicle{{}}
		fetcher.On("FetchCompleteVehicleData", ctx, primary, now).
			Return(nil, apperrors.ErrUpstreamUnavailable)
		fetcher.On("FetchCompleteVehicleData", ctx, fallback, now).Return(vehicles, nil)
		fetcher.On("FetchCancelledHashes", ctx, fallback, now).Return([]string{}, nil)
		expectStatus(cache, 10)
		cache.On("UpdateCache", ctx, vehicles).Return(&cacheUseCase.UpdateResult{Created: 1}, nil)

		require.NoError(t, s.RunRefresh(ctx))

		fetcher.AssertExpectations(t)
	})

	t.Run("encryption failure is fatal with no widening", func(t *testing.T) {
		fetcher := &mockFetcher{}
		cache := &mockCacheUseCase{}
		s, now := newTestScheduler(fetcher, cache, defaultSchedulerConfig())

		fetcher.On("FetchCompleteVehicleData", ctx, now.AddDate(0, 0, -30), now).
			Return(nil, apperrors.ErrEncryptionIntegrity)

		err := s.RunRefresh(ctx)

		require.ErrorIs(t, err, apperrors.ErrEncryptionIntegrity)
		fetcher.AssertNumberOfCalls(t, "FetchCompleteVehicleData", 1)
		cache.AssertNotCalled(t, "UpdateCache", mock.Anything, mock.Anything)
	})

	t.Run("no retry when fallback window is not wider", func(t *testing.T) {
		fetcher := &mockFetcher{}
		cache := &mockCacheUseCase{}
		config := defaultSchedulerConfig()
		config.FallbackDays = 30
		s, now := newTestScheduler(fetcher, cache, config)

		fetcher.On("FetchCompleteVehicleData", ctx, now.AddDate(0, 0, -30), now).
			Return(nil, apperrors.ErrUpstreamUnavailable)

		err := s.RunRefresh(ctx)

		require.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
		fetcher.AssertNumberOfCalls(t, "FetchCompleteVehicleData", 1)
	})

	t.Run("debounce skips a trigger right after a completed run", func(t *testing.T) {
		fetcher := &mockFetcher{}
		cache := &mockCacheUseCase{}
		s, now := newTestScheduler(fetcher, cache, defaultSchedulerConfig())

		s.state.TryBegin(now.Add(-10 * time.Minute))
		s.state.MarkEnded(now.Add(-time.Minute))

		require.NoError(t, s.RunRefresh(ctx))

		fetcher.AssertNotCalled(t, "FetchCompleteVehicleData", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stuck run is force-reset and the trigger proceeds", func(t *testing.T) {
		fetcher := &mockFetcher{}
		cache := &mockCacheUseCase{}
		s, now := newTestScheduler(fetcher, cache, defaultSchedulerConfig())

		// Started 45 minutes ago, never ended, threshold 30 minutes.
		s.state.TryBegin(now.Add(-45 * time.Minute))

		fetcher.On("FetchCompleteVehicleData", ctx, now.AddDate(0, 0, -30), now).
			Return([]*cacheDomain.CachedVehicle{}, nil)

		require.NoError(t, s.RunRefresh(ctx))

		fetcher.AssertNumberOfCalls(t, "FetchCompleteVehicleData", 1)
	})

	t.Run("running state within threshold skips the trigger", func(t *testing.T) {
		fetcher := &mockFetcher{}
		cache := &mockCacheUseCase{}
		s, now := newTestScheduler(fetcher, cache, defaultSchedulerConfig())

		s.state.TryBegin(now.Add(-5 * time.Minute))

		require.NoError(t, s.RunRefresh(ctx))

		fetcher.AssertNotCalled(t, "FetchCompleteVehicleData", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancelled contracts are retired best effort", func(t *testing.T) {
		fetcher := &mockFetcher{}
		cache := &mockCacheUseCase{}
		s, now := newTestScheduler(fetcher, cache, defaultSchedulerConfig())

		start := now.AddDate(0, 0, -30)
		vehicles := []*cacheDomain.CachedVehicle{{}}
		hashes := []string{"hash-1"}
		fetcher.On("FetchCompleteVehicleData", ctx, start, now).Return(vehicles, nil)
		fetcher.On("FetchCancelledHashes", ctx, start, now).Return(hashes, nil)
		expectStatus(cache, 10)
		cache.On("UpdateCache", ctx, vehicles).Return(&cacheUseCase.UpdateResult{Created: 1}, nil)
		cache.On("DeactivateByHashes", ctx, hashes).Return(int64(1), nil)

		require.NoError(t, s.RunRefresh(ctx))

		cache.AssertExpectations(t)
	})
}

func TestSyncSchedulerMaintenanceJobs(t *testing.T) {
	ctx := context.Background()

	t.Run("cleanup runs when the lock is free", func(t *testing.T) {
		fetcher := &mockFetcher{}
		cache := &mockCacheUseCase{}
		s, _ := newTestScheduler(fetcher, cache, defaultSchedulerConfig())

		cache.On("CleanupOld", ctx).Return(int64(3), nil)

		require.NoError(t, s.RunCleanup(ctx))
		cache.AssertExpectations(t)
	})

	t.Run("cleanup skips while the lock is held", func(t *testing.T) {
		fetcher := &mockFetcher{}
		cache := &mockCacheUseCase{}
		s, _ := newTestScheduler(fetcher, cache, defaultSchedulerConfig())

		require.True(t, s.lock.TryAcquire())
		defer s.lock.Release()

		require.NoError(t, s.RunCleanup(ctx))
		require.NoError(t, s.RunDeduplicate(ctx))

		cache.AssertNotCalled(t, "CleanupOld", mock.Anything)
		cache.AssertNotCalled(t, "Deduplicate", mock.Anything)
	})

	t.Run("dedup runs when the lock is free", func(t *testing.T) {
		fetcher := &mockFetcher{}
		cache := &mockCacheUseCase{}
		s, _ := newTestScheduler(fetcher, cache, defaultSchedulerConfig())

		cache.On("Deduplicate", ctx).Return(int64(2), nil)

		require.NoError(t, s.RunDeduplicate(ctx))
		cache.AssertExpectations(t)
	})
}

func TestSyncSchedulerStart(t *testing.T) {
	fetcher := &mockFetcher{}
	cache := &mockCacheUseCase{}
	config := defaultSchedulerConfig()
	config.Enabled = false
	config.RefreshInterval = 5 * time.Millisecond
	config.CleanupInterval = time.Hour
	config.DedupInterval = time.Hour
	s, _ := newTestScheduler(fetcher, cache, config)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancellation")
	}
}
