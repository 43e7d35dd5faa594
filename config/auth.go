package config

import (
	"strings"
	"time"
)

// PlaceholderValue marks a secret or client id that was never filled in.
const PlaceholderValue = "replace-me"

// DefaultSessionTTL is the lifetime of issued session tokens.
const DefaultSessionTTL = 7 * 24 * time.Hour

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// SuperadminEmail is the single account that always resolves to superadmin.
	SuperadminEmail string `env:"SUPERADMIN_EMAIL,required,notEmpty"`

	// Google OAuth client. An empty or placeholder client id runs the API in preview mode.
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `env:"GOOGLE_REDIRECT_URI"`
	GoogleIssuerURL    string `env:"GOOGLE_ISSUER_URL"    envDefault:"https://accounts.google.com"`

	// GoogleAllowlist is a comma-separated list of emails seeded into an empty allowlist.
	GoogleAllowlist string `env:"GOOGLE_ALLOWLIST"`

	// JWTSecret signs session tokens (HS256).
	JWTSecret  string        `env:"JWT_SECRET"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"168h"`

	// DevHeadersEnabled trusts x-dev-user-* headers. Unset means "enabled outside production".
	DevHeadersEnabled *bool `env:"DEV_HEADERS_ENABLED"`

	// DefaultReturnTo is where a completed login lands when no safe returnTo was given.
	DefaultReturnTo string `env:"APP_DEFAULT_RETURN_TO" envDefault:"https://anome-one-dashboard.pages.dev/"`
}

// Sanitize normalises emails and secrets and resolves the dev header default.
func (a *AuthConfig) Sanitize(production bool) {
	a.SuperadminEmail = strings.ToLower(strings.TrimSpace(a.SuperadminEmail))
	a.GoogleClientID = strings.TrimSpace(a.GoogleClientID)
	a.GoogleClientSecret = strings.TrimSpace(a.GoogleClientSecret)
	a.GoogleRedirectURI = strings.TrimSpace(a.GoogleRedirectURI)
	a.GoogleIssuerURL = strings.TrimRight(strings.TrimSpace(a.GoogleIssuerURL), "/")
	a.GoogleAllowlist = strings.TrimSpace(a.GoogleAllowlist)
	a.DefaultReturnTo = strings.TrimSpace(a.DefaultReturnTo)

	if a.SessionTTL <= 0 {
		a.SessionTTL = DefaultSessionTTL
	}
	if a.DevHeadersEnabled == nil {
		enabled := !production
		a.DevHeadersEnabled = &enabled
	}
}

// GoogleConfigured reports whether the real OAuth flow is active.
func (a *AuthConfig) GoogleConfigured() bool {
	return configured(a.GoogleClientID)
}

// ClientSecretConfigured reports whether the OAuth client secret is usable.
func (a *AuthConfig) ClientSecretConfigured() bool {
	return configured(a.GoogleClientSecret)
}

// DevHeaders reports whether dev headers are trusted after sanitisation.
func (a *AuthConfig) DevHeaders() bool {
	return a.DevHeadersEnabled != nil && *a.DevHeadersEnabled
}

func configured(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != PlaceholderValue
}
