package devauth

// Package devauth provides the non-production identity sources: trusted
// developer headers and the preview identity used while OAuth is unconfigured.

import (
	"net/http"
	"strings"

	domainauth "github.com/xnome/dashboard/internal/domain/auth"
)

const (
	HeaderEmail = "X-Dev-User-Email"
	HeaderRole  = "X-Dev-User-Role"
)

// Config controls which dev sources are honored.
type Config struct {
	// HeadersEnabled trusts the dev headers as-is. Never enable in production.
	HeadersEnabled bool
	// SuperadminEmail is the account the preview identity is bound to.
	SuperadminEmail string
}

// Source reads developer credentials from a request.
type Source struct {
	headersEnabled  bool
	superadminEmail string
}

// NewSource constructs a Source from Config.
func NewSource(cfg Config) *Source {
	return &Source{
		headersEnabled:  cfg.HeadersEnabled,
		superadminEmail: domainauth.NormalizeEmail(cfg.SuperadminEmail),
	}
}

// HeadersEnabled reports whether dev headers are trusted.
func (s *Source) HeadersEnabled() bool { return s.headersEnabled }

// DevHeaderCredential is what the dev headers claim about the caller.
type DevHeaderCredential struct {
	Email string
	// Hint is the header role, zero when absent or not a known role.
	Hint domainauth.Role
}

// FromHeaders returns the dev-header credential. ok is false when the headers
// are disabled or no email header is present.
func (s *Source) FromHeaders(h http.Header) (DevHeaderCredential, bool) {
	if !s.headersEnabled {
		return DevHeaderCredential{}, false
	}
	email := domainauth.NormalizeEmail(h.Get(HeaderEmail))
	if email == "" || !strings.Contains(email, "@") {
		return DevHeaderCredential{}, false
	}
	cred := DevHeaderCredential{Email: email}
	if role, ok := domainauth.ParseRole(h.Get(HeaderRole)); ok {
		cred.Hint = role
	}
	return cred, true
}

// Preview returns the synthetic superadmin identity. ok is false when no
// superadmin email is configured.
func (s *Source) Preview() (domainauth.Identity, bool) {
	if s.superadminEmail == "" {
		return domainauth.Identity{}, false
	}
	return domainauth.Identity{
		ID:     domainauth.IdentityID(domainauth.SourcePreview, s.superadminEmail),
		Email:  s.superadminEmail,
		Name:   "Preview Superadmin",
		Role:   domainauth.RoleSuperadmin,
		Source: domainauth.SourcePreview,
	}, true
}
