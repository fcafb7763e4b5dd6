package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/msiav/vehicle-cache/internal/app"
	"github.com/msiav/vehicle-cache/internal/config"
)

// RunEnrich performs one enrichment pass over incomplete cached vehicles.
// A zero limit processes every incomplete row.
func RunEnrich(ctx context.Context, limit int) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	enrichment, err := container.EnrichmentService()
	if err != nil {
		return fmt.Errorf("failed to initialize enrichment service: %w", err)
	}

	enriched, err := enrichment.EnrichIncomplete(ctx, limit)
	if err != nil {
		return fmt.Errorf("enrichment failed: %w", err)
	}

	logger.Info("enrichment completed", slog.Int("enriched", enriched))
	return nil
}

// RunEnrichAll drains the incomplete backlog in batches until nothing is
// left to enrich, then logs the per-batch totals.
func RunEnrichAll(ctx context.Context, batchSize int) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	enrichment, err := container.EnrichmentService()
	if err != nil {
		return fmt.Errorf("failed to initialize enrichment service: %w", err)
	}

	report, err := enrichment.EnrichAll(ctx, batchSize)
	if err != nil {
		logger.Error("enrichment stopped early",
			slog.Int("batches", report.Batches),
			slog.Int("enriched", report.Success),
			slog.Any("error", err))
		return fmt.Errorf("enrichment failed: %w", err)
	}

	logger.Info("enrichment completed",
		slog.Int("batches", report.Batches),
		slog.Int("enriched", report.Success))
	return nil
}
