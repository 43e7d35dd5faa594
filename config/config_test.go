package config

import (
	"log/slog"
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestAppConfig_ParseEnv(t *testing.T) {
	t.Setenv("SUPERADMIN_EMAIL", " CEO@X.com ")
	t.Setenv("GOOGLE_CLIENT_ID", "client-123")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("GOOGLE_REDIRECT_URI", "https://api.xnome.xyz/auth/google/callback")
	t.Setenv("GOOGLE_ALLOWLIST", "ops@x.com, fin@x.com")
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("REDIS_SENTINEL_NODES", "a:26379,b:26379")
	t.Setenv("CORS_ALLOWED_DOMAINS", "Pages.dev, xnome.xyz ,")
	t.Setenv("VIEW_CACHE_TTL", "30s")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("env.Parse returned error: %v", err)
	}
	cfg.Sanitize()

	if cfg.Auth.SuperadminEmail != "ceo@x.com" {
		t.Errorf("SuperadminEmail = %q", cfg.Auth.SuperadminEmail)
	}
	if !cfg.Auth.GoogleConfigured() || !cfg.Auth.ClientSecretConfigured() {
		t.Errorf("expected google to be configured")
	}
	if cfg.Auth.GoogleIssuerURL != "https://accounts.google.com" {
		t.Errorf("GoogleIssuerURL = %q", cfg.Auth.GoogleIssuerURL)
	}
	if cfg.Auth.SessionTTL != 168*time.Hour {
		t.Errorf("SessionTTL = %v", cfg.Auth.SessionTTL)
	}
	if !cfg.Auth.DevHeaders() {
		t.Errorf("dev headers should default on in development")
	}
	if cfg.Store.Backend != StoreBackendRedis {
		t.Errorf("Backend = %q", cfg.Store.Backend)
	}
	if cfg.Store.RedisNamespace != "xnome:" {
		t.Errorf("RedisNamespace = %q", cfg.Store.RedisNamespace)
	}
	if want := []string{"a:26379", "b:26379"}; !reflect.DeepEqual(cfg.Redis.SentinelNodes, want) {
		t.Errorf("SentinelNodes = %v", cfg.Redis.SentinelNodes)
	}
	if want := []string{"pages.dev", "xnome.xyz"}; !reflect.DeepEqual(cfg.HTTP.CORSAllowedDomains, want) {
		t.Errorf("CORSAllowedDomains = %v", cfg.HTTP.CORSAllowedDomains)
	}
	if cfg.HTTP.Addr != ":8787" {
		t.Errorf("Addr = %q", cfg.HTTP.Addr)
	}
	if cfg.HTTP.ViewCacheTTL != 30*time.Second {
		t.Errorf("ViewCacheTTL = %v", cfg.HTTP.ViewCacheTTL)
	}
}

func TestAppConfig_RequiresSuperadmin(t *testing.T) {
	t.Setenv("SUPERADMIN_EMAIL", "")

	var cfg AppConfig
	if err := env.Parse(&cfg); err == nil {
		t.Fatalf("expected error when SUPERADMIN_EMAIL is unset")
	}
}

func TestAppConfig_InvalidStoreBackend(t *testing.T) {
	t.Setenv("SUPERADMIN_EMAIL", "ceo@x.com")
	t.Setenv("STORE_BACKEND", "sqlite")

	var cfg AppConfig
	if err := env.Parse(&cfg); err == nil {
		t.Fatalf("expected error for unknown store backend")
	}
}

func TestAuthConfig_GoogleConfigured(t *testing.T) {
	tests := []struct {
		clientID string
		want     bool
	}{
		{"", false},
		{"replace-me", false},
		{"  ", false},
		{"abc.apps.googleusercontent.com", true},
	}
	for _, tt := range tests {
		a := AuthConfig{GoogleClientID: tt.clientID}
		if got := a.GoogleConfigured(); got != tt.want {
			t.Errorf("GoogleConfigured(%q) = %v, want %v", tt.clientID, got, tt.want)
		}
	}
}

func TestAuthConfig_DevHeadersDefault(t *testing.T) {
	cfg := AppConfig{Env: "Production"}
	cfg.Sanitize()
	if cfg.Auth.DevHeaders() {
		t.Errorf("dev headers must default off in production")
	}

	enabled := true
	cfg = AppConfig{Env: "production", Auth: AuthConfig{DevHeadersEnabled: &enabled}}
	cfg.Sanitize()
	if !cfg.Auth.DevHeaders() {
		t.Errorf("explicit DEV_HEADERS_ENABLED must win")
	}

	cfg = AppConfig{}
	cfg.Sanitize()
	if cfg.Env != EnvDevelopment || cfg.Auth.SessionTTL != DefaultSessionTTL {
		t.Errorf("unexpected defaults: env=%q ttl=%v", cfg.Env, cfg.Auth.SessionTTL)
	}
}

func TestHTTPConfig_Sanitize(t *testing.T) {
	h := HTTPConfig{ViewCacheTTL: -time.Second}
	h.Sanitize()
	if h.ViewCacheTTL != 0 || h.ViewCacheSize != 512 {
		t.Errorf("unexpected sanitized values: %+v", h)
	}

	h = HTTPConfig{ViewCacheTTL: 48 * time.Hour}
	h.Sanitize()
	if h.ViewCacheTTL != MaxViewCacheTTL {
		t.Errorf("ViewCacheTTL = %v, want %v", h.ViewCacheTTL, MaxViewCacheTTL)
	}
}

func TestObservabilityConfig(t *testing.T) {
	c := ObservabilityConfig{LogLevel: " DEBUG ", MetricsPath: "prom"}
	c.Sanitize()
	if c.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v", c.SlogLevel())
	}
	if c.MetricsPath != "/prom" {
		t.Errorf("MetricsPath = %q", c.MetricsPath)
	}

	c = ObservabilityConfig{LogLevel: "verbose"}
	c.Sanitize()
	if c.SlogLevel() != slog.LevelInfo || c.MetricsPath != "/metrics" {
		t.Errorf("unexpected defaults: %+v", c)
	}
}
