package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/msiav/vehicle-cache/internal/app"
	"github.com/msiav/vehicle-cache/internal/config"
)

// RunTestConnection verifies database connectivity and upstream API access.
// The upstream check authenticates and lists notifications for today, so it
// exercises the whole credential and request path without writing anything.
func RunTestConnection(ctx context.Context) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	var failures []error

	db, err := container.DB()
	if err != nil {
		failures = append(failures, fmt.Errorf("database: %w", err))
		logger.Error("database connection failed", slog.Any("error", err))
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := db.PingContext(pingCtx); err != nil {
			failures = append(failures, fmt.Errorf("database ping: %w", err))
			logger.Error("database ping failed", slog.Any("error", err))
		} else {
			logger.Info("database connection ok")
		}
		cancel()
	}

	client, err := container.UpstreamClient()
	if err != nil {
		failures = append(failures, fmt.Errorf("upstream client: %w", err))
		logger.Error("upstream client initialization failed", slog.Any("error", err))
	} else {
		today := time.Now().UTC().Truncate(24 * time.Hour)
		notifications, err := client.SearchPeriod(ctx, today, today)
		if err != nil {
			failures = append(failures, fmt.Errorf("upstream search: %w", err))
			logger.Error("upstream search failed", slog.Any("error", err))
		} else {
			logger.Info("upstream connection ok", slog.Int("notifications_today", len(notifications)))
		}
	}

	if len(failures) > 0 {
		return errors.Join(failures...)
	}

	logger.Info("all connections ok")
	return nil
}
