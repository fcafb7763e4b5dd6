package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/msiav/vehicle-cache/internal/app"
	"github.com/msiav/vehicle-cache/internal/config"
)

// dateLayout is the window boundary format for the sync-once command.
const dateLayout = "2006-01-02"

// RunSyncOnce performs a single cache refresh over an explicit date window.
// Empty boundaries default to the configured lookback window ending today.
func RunSyncOnce(ctx context.Context, startStr, endStr string) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	end := time.Now().UTC().Truncate(24 * time.Hour)
	if endStr != "" {
		parsed, err := time.Parse(dateLayout, endStr)
		if err != nil {
			return fmt.Errorf("invalid --end date %q: %w", endStr, err)
		}
		end = parsed
	}

	start := end.AddDate(0, 0, -cfg.CacheUpdateDaysToFetch)
	if startStr != "" {
		parsed, err := time.Parse(dateLayout, startStr)
		if err != nil {
			return fmt.Errorf("invalid --start date %q: %w", startStr, err)
		}
		start = parsed
	}

	if start.After(end) {
		return fmt.Errorf("start date %s is after end date %s", start.Format(dateLayout), end.Format(dateLayout))
	}

	orchestrator, err := container.BatchFetchOrchestrator()
	if err != nil {
		return fmt.Errorf("failed to initialize orchestrator: %w", err)
	}

	cache, err := container.CacheUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize cache use case: %w", err)
	}

	logger.Info("fetching vehicle data",
		slog.String("start", start.Format(dateLayout)),
		slog.String("end", end.Format(dateLayout)),
	)

	vehicles, err := orchestrator.FetchCompleteVehicleData(ctx, start, end)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	if len(vehicles) == 0 {
		logger.Info("no vehicles found in window")
		return nil
	}

	result, err := cache.UpdateCache(ctx, vehicles)
	if err != nil {
		return fmt.Errorf("cache update failed: %w", err)
	}

	logger.Info("sync completed",
		slog.Int("fetched", len(vehicles)),
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
	)
	return nil
}

// RunBackfillHashes computes lookup hashes for rows persisted before the
// hash columns existed. A zero limit processes all pending rows.
func RunBackfillHashes(ctx context.Context, limit int) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	cache, err := container.CacheUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize cache use case: %w", err)
	}

	updated, err := cache.BackfillHashes(ctx, limit)
	if err != nil {
		return fmt.Errorf("hash backfill failed: %w", err)
	}

	logger.Info("hash backfill completed", slog.Int64("updated", updated))
	return nil
}
