package auth

// Package auth contains domain-level types for identities, roles and the
// allowlist. It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and token claims.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// ParseRole returns the Role for s and whether it is one of the known roles.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r.level() > 0
}

func (r Role) level() int {
	switch r {
	case RoleUser:
		return 1
	case RoleAdmin:
		return 2
	case RoleSuperadmin:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether r ranks at or above min in user < admin < superadmin.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r.level() >= min.level()
}

// CanGrant reports whether an actor holding r may assign target to someone else.
// superadmin grants user or admin, admin grants only user, user grants nothing.
// superadmin itself is never grantable.
func (r Role) CanGrant(target Role) bool {
	switch r {
	case RoleSuperadmin:
		return target == RoleUser || target == RoleAdmin
	case RoleAdmin:
		return target == RoleUser
	default:
		return false
	}
}

// Source names where an identity came from.
type Source string

const (
	SourceBearer    Source = "bearer"
	SourceCookie    Source = "cookie"
	SourceDevHeader Source = "dev_header"
	SourcePreview   Source = "preview"
)

// Identity is the authenticated caller attached to a request.
type Identity struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	Role    Role   `json:"role"`
	Source  Source `json:"source"`
}

// Claims is the payload carried by a session token.
type Claims struct {
	Email     string    `json:"email"`
	Role      Role      `json:"role,omitempty"`
	Name      string    `json:"name,omitempty"`
	Picture   string    `json:"picture,omitempty"`
	ID        string    `json:"jti,omitempty"`
	IssuedAt  time.Time `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// ProviderIdentity is the validated profile returned by the identity provider.
type ProviderIdentity struct {
	Email   string
	Name    string
	Picture string
}

// AllowlistEntry grants an email permission to log in, with its default role.
type AllowlistEntry struct {
	Email   string    `json:"email"`
	Role    Role      `json:"role"`
	AddedAt time.Time `json:"addedAt"`
}

// StoredUser is the persisted record created on first login.
type StoredUser struct {
	Email       string     `json:"email"`
	Name        string     `json:"name,omitempty"`
	Picture     string     `json:"picture,omitempty"`
	Role        Role       `json:"role"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// NormalizeEmail trims and lowercases an email for use as a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IdentityID derives the stable identity id for email as seen through src.
func IdentityID(src Source, email string) string {
	email = NormalizeEmail(email)
	switch src {
	case SourceDevHeader:
		return "u_dev_" + email
	case SourcePreview:
		return "u_preview_" + email
	default:
		return "u_" + email
	}
}
