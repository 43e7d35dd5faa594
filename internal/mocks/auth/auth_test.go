package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/xnome/dashboard/internal/domain/auth"
	"github.com/xnome/dashboard/internal/ports"
)

func TestMockAuthProvider_Defaults(t *testing.T) {
	provider := NewMockAuthProvider()
	ctx := context.Background()

	authURL, err := provider.Begin(ctx, ports.BeginInput{State: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth?state=abc", authURL)
	assert.Equal(t, "abc", provider.LastState())

	id, err := provider.Exchange(ctx, ports.ExchangeInput{Code: "code-1"})
	require.NoError(t, err)
	assert.Equal(t, "mock.user@example.com", id.Email)
	assert.Equal(t, "code-1", provider.LastCode())
}

func TestMockAuthProvider_CustomFuncs(t *testing.T) {
	wantErr := errors.New("exchange failed")
	provider := &MockAuthProvider{
		BeginFunc: func(context.Context, ports.BeginInput) (string, error) { return "custom-url", nil },
		ExchangeFunc: func(context.Context, ports.ExchangeInput) (domainauth.ProviderIdentity, error) {
			return domainauth.ProviderIdentity{}, wantErr
		},
	}

	authURL, err := provider.Begin(context.Background(), ports.BeginInput{State: "s"})
	require.NoError(t, err)
	assert.Equal(t, "custom-url", authURL)

	_, err = provider.Exchange(context.Background(), ports.ExchangeInput{Code: "c"})
	assert.ErrorIs(t, err, wantErr)
}

func TestMemoryRevocationStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryRevocationStore()

	require.NoError(t, store.Revoke(ctx, "jti", time.Now().Add(time.Hour)))
	revoked, err := store.IsRevoked(ctx, "jti")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.IsRevoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, revoked)

	store.Err = errors.New("down")
	_, err = store.IsRevoked(ctx, "jti")
	assert.Error(t, err)
}
