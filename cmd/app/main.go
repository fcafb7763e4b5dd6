// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/msiav/vehicle-cache/cmd/app/commands"
	"github.com/msiav/vehicle-cache/internal/config"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "vehicle-cache",
		Usage:   "Vehicle data cache synchronization engine",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server, metrics server and sync scheduler",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg := config.Load()
					logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
					return commands.RunMigrations(logger, cfg.DBDriver, cfg.DBConnectionString)
				},
			},
			{
				Name:  "sync-once",
				Usage: "Perform a single cache refresh over a date window",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "start",
						Usage: "Window start date (YYYY-MM-DD, default: end minus configured lookback)",
					},
					&cli.StringFlag{
						Name:  "end",
						Usage: "Window end date (YYYY-MM-DD, default: today)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunSyncOnce(ctx, cmd.String("start"), cmd.String("end"))
				},
			},
			{
				Name:  "enrich",
				Usage: "Run one enrichment pass over incomplete cached vehicles",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Value:   0,
						Usage:   "Maximum number of vehicles to enrich (0 = all)",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Keep running batches until no incomplete vehicles remain",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Value: 100,
						Usage: "Vehicles per batch when --all is set",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Bool("all") {
						return commands.RunEnrichAll(ctx, int(cmd.Int("batch-size")))
					}
					return commands.RunEnrich(ctx, int(cmd.Int("limit")))
				},
			},
			{
				Name:  "backfill-hashes",
				Usage: "Compute lookup hashes for rows that predate the hash columns",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Value:   0,
						Usage:   "Maximum number of rows to backfill (0 = all)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunBackfillHashes(ctx, int(cmd.Int("limit")))
				},
			},
			{
				Name:  "token-status",
				Usage: "Authenticate against the upstream provider and print the token state",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunTokenStatus(ctx, commands.DefaultIO())
				},
			},
			{
				Name:  "test-connection",
				Usage: "Verify database and upstream API connectivity",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunTestConnection(ctx)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
