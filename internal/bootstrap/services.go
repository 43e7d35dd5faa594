package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/xnome/dashboard/config"
	"github.com/xnome/dashboard/internal/adapters/authroles"
	"github.com/xnome/dashboard/internal/adapters/devauth"
	"github.com/xnome/dashboard/internal/adapters/oidc"
	"github.com/xnome/dashboard/internal/adapters/sessiontoken"
	"github.com/xnome/dashboard/internal/data"
	"github.com/xnome/dashboard/internal/observability/metrics"
	"github.com/xnome/dashboard/internal/ports"
	"github.com/xnome/dashboard/internal/service"
)

// MetricsNamespace prefixes every exported Prometheus series.
const MetricsNamespace = "xnome"

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Identity  *service.IdentityService
	Auth      *service.AuthService
	Users     *service.UsersService
	Allowlist *service.AllowlistService
	Views     *service.ViewsService
	Origins   *service.OriginPolicy
	Codec     *sessiontoken.Codec
	UserRepo  *data.UserRepo

	Metrics metrics.Recorder
	// Prom is nil when metrics are disabled.
	Prom *metrics.Prom
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config *config.AppConfig
	Store  *Store
	// Provider overrides the Google provider built from config. Tests inject mocks here.
	Provider ports.AuthProvider
	Logger   *slog.Logger
}

// NewServices wires the domain services over the opened store.
func NewServices(deps ServiceDeps) (ServiceContainer, error) {
	cfg := deps.Config
	if cfg == nil || deps.Store == nil {
		return ServiceContainer{}, errors.New("config and store are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clock := &data.RealTimeProvider{}
	users := data.NewUserRepo(deps.Store.KV, clock)
	allowlist := service.NewAllowlistService(service.AllowlistServiceOptions{
		Repo:            data.NewAllowlistRepo(deps.Store.KV),
		SuperadminEmail: cfg.Auth.SuperadminEmail,
		SeedCSV:         cfg.Auth.GoogleAllowlist,
		Clock:           clock,
		Logger:          logger,
	})
	resolver := authroles.NewResolver(users, allowlist, cfg.Auth.SuperadminEmail)
	codec := sessiontoken.NewCodec(cfg.Auth.JWTSecret)
	if !codec.Enabled() {
		logger.Warn("JWT_SECRET not configured; session tokens cannot be issued")
	}

	origins := service.NewOriginPolicy(cfg.HTTP.CORSAllowedDomains)
	if broad := origins.PublicSuffixDomains(); len(broad) > 0 {
		logger.Warn("CORS allows every subdomain of a public suffix", "domains", broad)
	}

	provider, err := authProvider(deps)
	if err != nil {
		return ServiceContainer{}, err
	}

	var (
		rec  metrics.Recorder = metrics.Noop{}
		prom *metrics.Prom
	)
	if cfg.Observability.MetricsEnabled {
		prom = metrics.NewProm(MetricsNamespace)
		rec = prom
	}

	googleConfigured := cfg.Auth.GoogleConfigured()
	return ServiceContainer{
		Identity: service.NewIdentityService(service.IdentityServiceOptions{
			Codec:       codec,
			Revocations: deps.Store.Revocations,
			Resolver:    resolver,
			Users:       users,
			Dev: devauth.NewSource(devauth.Config{
				HeadersEnabled:  cfg.Auth.DevHeaders(),
				SuperadminEmail: cfg.Auth.SuperadminEmail,
			}),
			GoogleConfigured: googleConfigured,
			Logger:           logger,
		}),
		Auth: service.NewAuthService(service.AuthServiceOptions{
			Provider:    provider,
			Codec:       codec,
			Revocations: deps.Store.Revocations,
			Resolver:    resolver,
			Users:       users,
			Allowlist:   allowlist,
			Origins:     origins,
			Settings: service.AuthSettings{
				GoogleConfigured: googleConfigured,
				ClientSecretSet:  cfg.Auth.ClientSecretConfigured(),
				RedirectURI:      cfg.Auth.GoogleRedirectURI,
				SigningEnabled:   codec.Enabled(),
				SessionTTL:       cfg.Auth.SessionTTL,
				DefaultReturnTo:  cfg.Auth.DefaultReturnTo,
			},
			Logger: logger,
		}),
		Users: service.NewUsersService(service.UsersServiceOptions{
			Repo:      users,
			Allowlist: allowlist,
			Logger:    logger,
		}),
		Allowlist: allowlist,
		Views: service.NewViewsService(service.ViewsServiceOptions{
			Cache:     deps.Store.Cache,
			CacheTTL:  cfg.HTTP.ViewCacheTTL,
			Allowlist: allowlist,
			Users:     users,
			Logger:    logger,
		}),
		Origins:  origins,
		Codec:    codec,
		UserRepo: users,
		Metrics:  rec,
		Prom:     prom,
	}, nil
}

// authProvider returns the injected provider, or a Google provider when the
// client id is configured. A missing redirect URI only disables login.
//
//nolint:ireturn // the provider is consumed through its port.
func authProvider(deps ServiceDeps) (ports.AuthProvider, error) {
	if deps.Provider != nil {
		return deps.Provider, nil
	}
	auth := deps.Config.Auth
	if !auth.GoogleConfigured() {
		return nil, nil
	}
	if auth.GoogleRedirectURI == "" && deps.Logger != nil {
		deps.Logger.Warn("GOOGLE_REDIRECT_URI is not set; Google login will be rejected")
	}
	provider, err := oidc.NewProvider(oidc.ProviderConfig{
		ClientID:     auth.GoogleClientID,
		ClientSecret: auth.GoogleClientSecret,
		RedirectURL:  auth.GoogleRedirectURI,
		IssuerURL:    auth.GoogleIssuerURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create google provider: %w", err)
	}
	return provider, nil
}

// RunConfig contains what RunWithShutdown needs to serve until a signal arrives.
type RunConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunWithShutdown starts the HTTP server and blocks until SIGINT/SIGTERM,
// context cancellation, or a server failure, then shuts down gracefully.
func RunWithShutdown(ctx context.Context, cfg RunConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server, serveErr := StartHTTPServer(&HTTPServerConfig{
		Config:   cfg.Config,
		Services: cfg.Services,
		Logger:   logger,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	case err := <-serveErr:
		runErr = err
	}

	if err := ShutdownHTTPServer(ShutdownConfig{Context: context.WithoutCancel(ctx), Server: server, Logger: logger}); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("shutdown http server: %w", err))
	}
	return runErr
}
