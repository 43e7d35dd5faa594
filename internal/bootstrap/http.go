package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/xnome/dashboard/config"
	httpx "github.com/xnome/dashboard/internal/http"
)

const shutdownTimeout = 10 * time.Second

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// BuildHTTPHandler assembles the router from the service container.
func BuildHTTPHandler(cfg *HTTPServerConfig) http.Handler {
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}
	svc := cfg.Services

	services := httpx.RouterServices{
		Identity:         svc.Identity,
		Auth:             svc.Auth,
		Users:            svc.Users,
		Allowlist:        svc.Allowlist,
		Views:            svc.Views,
		Origins:          svc.Origins,
		Metrics:          svc.Metrics,
		GoogleConfigured: appCfg.Auth.GoogleConfigured(),
		CookieDomain:     appCfg.HTTP.CookieDomain,
		IsDev:            !appCfg.IsProduction(),
		Logger:           cfg.Logger,
	}
	if svc.Prom != nil {
		services.MetricsHandler = svc.Prom.Handler()
		services.MetricsPath = appCfg.Observability.MetricsPath
	}
	return httpx.NewRouter(services)
}

// StartHTTPServer creates the server and starts serving in the background.
// The returned channel receives the error if ListenAndServe fails.
func StartHTTPServer(cfg *HTTPServerConfig) (*http.Server, <-chan error) {
	errCh := make(chan error, 1)
	if cfg == nil {
		errCh <- errors.New("http server config is required")
		return nil, errCh
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Logger = logger

	addr := ":8787"
	if cfg.Config != nil && cfg.Config.HTTP.Addr != "" {
		addr = cfg.Config.HTTP.Addr
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           BuildHTTPHandler(cfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	return server, errCh
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Logger  *slog.Logger
}

// ShutdownHTTPServer drains in-flight requests for up to ten seconds.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}
