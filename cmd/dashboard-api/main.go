package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/xnome/dashboard/config"
	"github.com/xnome/dashboard/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	bootstrap.ApplyLogLevel(&cfg)
	logStartupInfo(ctx, logger, &cfg)

	store, err := bootstrap.OpenStore(ctx, &cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close store failed", "error", cerr)
		}
	}()

	services, err := bootstrap.NewServices(bootstrap.ServiceDeps{
		Config: &cfg,
		Store:  store,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	return bootstrap.RunWithShutdown(ctx, bootstrap.RunConfig{
		Config:   &cfg,
		Services: services,
		Logger:   logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting dashboard api",
		"env", cfg.Env,
		"addr", cfg.HTTP.Addr,
		"store_backend", cfg.Store.Backend,
		"google_configured", cfg.Auth.GoogleConfigured(),
		"dev_headers", cfg.Auth.DevHeaders(),
		"metrics_enabled", cfg.Observability.MetricsEnabled,
	)
	if cfg.IsProduction() && cfg.Auth.DevHeaders() {
		logger.WarnContext(ctx, "dev headers are trusted in production")
	}
}
