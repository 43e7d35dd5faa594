package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"net/url"
	"sync"
	"time"

	domainauth "github.com/xnome/dashboard/internal/domain/auth"
	"github.com/xnome/dashboard/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthProvider    = (*MockAuthProvider)(nil)
	_ ports.RevocationStore = (*MemoryRevocationStore)(nil)
)

// MockAuthProvider simulates an IdP for tests.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (string, error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.ProviderIdentity, error)

	// AuthURL is the base authorization endpoint; state is appended as a query parameter.
	AuthURL     string
	DefaultUser domainauth.ProviderIdentity

	mu        sync.Mutex
	lastState string
	lastCode  string
}

// NewMockAuthProvider creates a MockAuthProvider with sensible defaults.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		AuthURL: "https://mock-idp/auth",
		DefaultUser: domainauth.ProviderIdentity{
			Email:   "mock.user@example.com",
			Name:    "Mock User",
			Picture: "https://mock-idp/avatar.png",
		},
	}
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, error) {
	m.mu.Lock()
	m.lastState = in.State
	m.mu.Unlock()
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}
	base := m.AuthURL
	if base == "" {
		base = "https://mock-idp/auth"
	}
	return base + "?state=" + url.QueryEscape(in.State), nil
}

func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.ProviderIdentity, error) {
	m.mu.Lock()
	m.lastCode = in.Code
	m.mu.Unlock()
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	return m.DefaultUser, nil
}

// LastState returns the state passed to the most recent Begin call.
func (m *MockAuthProvider) LastState() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastState
}

// LastCode returns the code passed to the most recent Exchange call.
func (m *MockAuthProvider) LastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCode
}

// MemoryRevocationStore is an in-memory revocation list for unit tests.
// It ignores expiry; Err, when set, is returned from every call.
type MemoryRevocationStore struct {
	Err error

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewMemoryRevocationStore creates an empty revocation list.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{revoked: make(map[string]time.Time)}
}

func (m *MemoryRevocationStore) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revoked == nil {
		m.revoked = make(map[string]time.Time)
	}
	m.revoked[tokenID] = until
	return nil
}

func (m *MemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[tokenID]
	return ok, nil
}
