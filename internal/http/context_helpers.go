package httpx

import (
	"context"

	domainauth "github.com/xnome/dashboard/internal/domain/auth"
)

// identityKey is an unexported context key type to avoid collisions across packages.
type identityKey struct{}

// SetIdentityInContext returns a child context that carries the given identity.
// If id is nil, the original ctx is returned unchanged.
func SetIdentityInContext(ctx context.Context, id *domainauth.Identity) context.Context {
	if id == nil {
		return ctx
	}
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller identity and whether one is present.
func IdentityFromContext(ctx context.Context) (*domainauth.Identity, bool) {
	if id, ok := ctx.Value(identityKey{}).(*domainauth.Identity); ok && id != nil {
		return id, true
	}
	return nil, false
}

// callerRole returns the identity role, or the zero Role for anonymous callers.
func callerRole(ctx context.Context) domainauth.Role {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.Role
	}
	return ""
}
