package ports

// Package ports defines interfaces (hexagonal ports) for auth and storage behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/xnome/dashboard/internal/domain/auth"
)

// BeginInput carries inputs for initiating an auth flow.
type BeginInput struct {
	// State is the opaque anti-forgery value echoed back on the callback.
	State string
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code string
}

// AuthProvider initiates and completes an authentication flow against an IdP.
type AuthProvider interface {
	// Begin returns the provider authorization URL carrying the given state.
	Begin(ctx context.Context, in BeginInput) (authURL string, err error)

	// Exchange trades the authorization code for a validated identity.
	// The ID token's audience must match this application's client id.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.ProviderIdentity, error)
}

// TokenCodec signs and verifies session tokens.
type TokenCodec interface {
	Sign(claims domainauth.Claims, ttl time.Duration) (string, error)
	// Verify never returns an error; every failure is reported as ok=false.
	Verify(token string) (claims domainauth.Claims, ok bool)
}

// RevocationStore tracks session token ids invalidated before their expiry.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
