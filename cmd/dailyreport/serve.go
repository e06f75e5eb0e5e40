package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dailyreport/infrastructure/audit"
	"dailyreport/infrastructure/cache"
	"dailyreport/infrastructure/config"
	httpserver "dailyreport/infrastructure/http"
	"dailyreport/infrastructure/reportapi"
	"dailyreport/infrastructure/sqlite"
)

const sweepInterval = 10 * time.Minute

type configLoader func() (config.Config, error)

func newServeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the report web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	server := httpserver.NewServer(cfg.Addr, db, cache.NewViewSessionCache(), newAPIClient(cfg), audit.NewService(db), cfg.Expand.Concurrency)
	if err := server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	slog.Info("dailyreport listening", slog.String("addr", cfg.Addr), slog.String("api", cfg.API.BaseURL))

	go server.SweepSessions(ctx, sweepInterval)
	<-ctx.Done()

	if err := server.Stop(); err != nil {
		slog.Error("graceful shutdown error", slog.Any("err", err))
		return err
	}
	return nil
}

// openStore opens the export journal and brings its schema up to date.
func openStore(ctx context.Context, cfg config.Config) (*sqlite.DB, error) {
	db, err := sqlite.OpenDB(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := sqlite.ApplyEmbeddedMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return db, nil
}

func newAPIClient(cfg config.Config) *reportapi.Client {
	return reportapi.New(reportapi.Options{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		LookupTTL: cfg.API.LookupTTL,
		FanOut:    cfg.Expand.Concurrency,
	})
}
