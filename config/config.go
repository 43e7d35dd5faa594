package config

import "strings"

// Environment names recognised by APP_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Google OAuth, session token and role configuration
//   - database.go: KV store backend, PostgreSQL and Redis configuration
//   - http.go: HTTP server, CORS and view cache configuration
//   - observability.go: logging and metrics configuration
type AppConfig struct {
	// Env is the deployment environment. Dev headers default on outside production.
	Env string `env:"APP_ENV" envDefault:"development"`

	// Authentication configuration
	Auth AuthConfig

	// KV store configuration
	Store    StoreConfig
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env == "" {
		c.Env = EnvDevelopment
	}

	c.Auth.Sanitize(c.IsProduction())
	c.Store.Sanitize()
	c.HTTP.Sanitize()
	c.Observability.Sanitize()
}

// IsProduction reports whether APP_ENV is production.
func (c *AppConfig) IsProduction() bool {
	return c.Env == EnvProduction
}
