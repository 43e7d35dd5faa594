package authroles

// Package authroles gathers role inputs from persistence and applies the
// domain precedence chain.

import (
	"context"
	"fmt"

	domainauth "github.com/xnome/dashboard/internal/domain/auth"
)

// UserLookup reads persisted user records. Get returns (nil, nil) when absent.
type UserLookup interface {
	Get(ctx context.Context, email string) (*domainauth.StoredUser, error)
}

// AllowlistLookup returns the allowlist role for an email, seeding on demand.
type AllowlistLookup interface {
	RoleFor(ctx context.Context, email string) (domainauth.Role, bool, error)
}

// Resolver decides the effective role for an email.
type Resolver struct {
	users           UserLookup
	allowlist       AllowlistLookup
	superadminEmail string
}

// NewResolver constructs a Resolver.
func NewResolver(users UserLookup, allowlist AllowlistLookup, superadminEmail string) *Resolver {
	return &Resolver{
		users:           users,
		allowlist:       allowlist,
		superadminEmail: domainauth.NormalizeEmail(superadminEmail),
	}
}

// SuperadminEmail returns the configured superadmin, lowercased.
func (r *Resolver) SuperadminEmail() string { return r.superadminEmail }

// Resolve returns the role for email. hint is the token or dev-header role and
// may be empty. The superadmin email short-circuits without touching the store.
func (r *Resolver) Resolve(ctx context.Context, email string, hint domainauth.Role) (domainauth.Role, error) {
	in := domainauth.RoleInputs{
		Email:           email,
		SuperadminEmail: r.superadminEmail,
		HintRole:        hint,
	}
	if r.superadminEmail != "" && domainauth.NormalizeEmail(email) == r.superadminEmail {
		return domainauth.ResolveRole(in), nil
	}

	user, err := r.users.Get(ctx, email)
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if user != nil {
		in.StoredRole = user.Role
	}

	if !in.StoredRole.Valid() && !hint.Valid() {
		role, ok, err := r.allowlist.RoleFor(ctx, email)
		if err != nil {
			return "", fmt.Errorf("lookup allowlist: %w", err)
		}
		if ok {
			in.AllowlistRole = role
		}
	}
	return domainauth.ResolveRole(in), nil
}
