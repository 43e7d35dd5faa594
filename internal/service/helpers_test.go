package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xnome/dashboard/internal/adapters/authroles"
	"github.com/xnome/dashboard/internal/adapters/memory"
	"github.com/xnome/dashboard/internal/adapters/sessiontoken"
	"github.com/xnome/dashboard/internal/data"
	domainauth "github.com/xnome/dashboard/internal/domain/auth"
	mocks "github.com/xnome/dashboard/internal/mocks/auth"
	"github.com/xnome/dashboard/internal/testutil"
)

const (
	testSuperadmin = "ceo@x.com"
	testSecret     = "test-secret"
)

// fixture wires the auth services over an in-memory KV store.
type fixture struct {
	store       *memory.KVStore
	clock       *data.FixedTimeProvider
	users       *data.UserRepo
	allowlist   *AllowlistService
	resolver    *authroles.Resolver
	codec       *sessiontoken.Codec
	revocations *mocks.MemoryRevocationStore
}

func newFixture(t *testing.T, seedCSV string) *fixture {
	t.Helper()
	store := memory.NewKVStore()
	clock := data.NewFixedTimeProvider(testutil.TestTime())
	users := data.NewUserRepo(store, clock)
	allowlist := NewAllowlistService(AllowlistServiceOptions{
		Repo:            data.NewAllowlistRepo(store),
		SuperadminEmail: testSuperadmin,
		SeedCSV:         seedCSV,
		Clock:           clock,
	})
	return &fixture{
		store:       store,
		clock:       clock,
		users:       users,
		allowlist:   allowlist,
		resolver:    authroles.NewResolver(users, allowlist, testSuperadmin),
		codec:       sessiontoken.NewCodec(testSecret, sessiontoken.WithClock(clock.Now)),
		revocations: mocks.NewMemoryRevocationStore(),
	}
}

func (f *fixture) seedUser(t *testing.T, email string, role domainauth.Role) {
	t.Helper()
	_, err := f.users.UpsertFromLogin(context.Background(), data.UpsertUserInput{Email: email, Name: "Seeded", Role: role})
	require.NoError(t, err)
}

func (f *fixture) token(t *testing.T, email string, role domainauth.Role) string {
	t.Helper()
	tok, err := f.codec.Sign(domainauth.Claims{Email: email, Role: role, Name: "Token User"}, time.Hour)
	require.NoError(t, err)
	return tok
}

func identity(email string, role domainauth.Role) domainauth.Identity {
	return domainauth.Identity{
		ID:     domainauth.IdentityID(domainauth.SourceBearer, email),
		Email:  email,
		Role:   role,
		Source: domainauth.SourceBearer,
	}
}

func emailsOf(entries []domainauth.AllowlistEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Email
	}
	return out
}
