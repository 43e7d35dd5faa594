package config

import (
	"strings"
	"time"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8787"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// CORSAllowedDomains lists domains whose origins (and subdomains) may call the API with credentials.
	CORSAllowedDomains []string `env:"CORS_ALLOWED_DOMAINS" envDefault:"pages.dev,xnome.xyz"`

	// ViewCacheTTL is how long computed view payloads are cached. Zero disables caching.
	ViewCacheTTL time.Duration `env:"VIEW_CACHE_TTL" envDefault:"60s"`

	// ViewCacheSize bounds the in-process view cache.
	ViewCacheSize int `env:"VIEW_CACHE_SIZE" envDefault:"512"`
}

// MaxViewCacheTTL caps VIEW_CACHE_TTL.
const MaxViewCacheTTL = time.Hour

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.CookieDomain = strings.TrimSpace(h.CookieDomain)

	domains := h.CORSAllowedDomains[:0]
	for _, d := range h.CORSAllowedDomains {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			domains = append(domains, d)
		}
	}
	h.CORSAllowedDomains = domains

	if h.ViewCacheTTL < 0 {
		h.ViewCacheTTL = 0
	}
	if h.ViewCacheTTL > MaxViewCacheTTL {
		h.ViewCacheTTL = MaxViewCacheTTL
	}
	if h.ViewCacheSize <= 0 {
		h.ViewCacheSize = 512
	}
}
