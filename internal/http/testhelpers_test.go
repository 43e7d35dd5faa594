package httpx

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xnome/dashboard/internal/adapters/authroles"
	"github.com/xnome/dashboard/internal/adapters/devauth"
	"github.com/xnome/dashboard/internal/adapters/memory"
	"github.com/xnome/dashboard/internal/adapters/sessiontoken"
	"github.com/xnome/dashboard/internal/data"
	domainauth "github.com/xnome/dashboard/internal/domain/auth"
	mocks "github.com/xnome/dashboard/internal/mocks/auth"
	"github.com/xnome/dashboard/internal/observability/metrics"
	"github.com/xnome/dashboard/internal/service"
	"github.com/xnome/dashboard/internal/testutil"
)

const (
	testSuperadmin  = "ceo@x.com"
	testReturnTo    = "https://dash.xnome.xyz/"
	testSessionTTL  = 7 * 24 * time.Hour
	testRedirectURI = "https://api.xnome.xyz/auth/google/callback"
)

type harnessOptions struct {
	GoogleConfigured bool
	DevHeaders       bool
	Dev              bool // plain-http cookies
	SeedCSV          string
}

// harness is the full router over an in-memory store.
type harness struct {
	handler     http.Handler
	provider    *mocks.MockAuthProvider
	codec       *sessiontoken.Codec
	users       *data.UserRepo
	revocations *mocks.MemoryRevocationStore
	prom        *metrics.Prom
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	store := memory.NewKVStore()
	clock := data.NewFixedTimeProvider(testutil.TestTime())
	users := data.NewUserRepo(store, clock)
	allowlist := service.NewAllowlistService(service.AllowlistServiceOptions{
		Repo:            data.NewAllowlistRepo(store),
		SuperadminEmail: testSuperadmin,
		SeedCSV:         opts.SeedCSV,
		Clock:           clock,
	})
	resolver := authroles.NewResolver(users, allowlist, testSuperadmin)
	codec := sessiontoken.NewCodec("test-secret", sessiontoken.WithClock(clock.Now))
	revocations := mocks.NewMemoryRevocationStore()
	provider := mocks.NewMockAuthProvider()
	origins := service.NewOriginPolicy([]string{"pages.dev", "xnome.xyz"})
	prom := metrics.NewProm("xnome")

	identity := service.NewIdentityService(service.IdentityServiceOptions{
		Codec:       codec,
		Revocations: revocations,
		Resolver:    resolver,
		Users:       users,
		Dev: devauth.NewSource(devauth.Config{
			HeadersEnabled:  opts.DevHeaders,
			SuperadminEmail: testSuperadmin,
		}),
		GoogleConfigured: opts.GoogleConfigured,
	})
	auth := service.NewAuthService(service.AuthServiceOptions{
		Provider:    provider,
		Codec:       codec,
		Revocations: revocations,
		Resolver:    resolver,
		Users:       users,
		Allowlist:   allowlist,
		Origins:     origins,
		Settings: service.AuthSettings{
			GoogleConfigured: opts.GoogleConfigured,
			ClientSecretSet:  true,
			RedirectURI:      testRedirectURI,
			SigningEnabled:   true,
			SessionTTL:       testSessionTTL,
			DefaultReturnTo:  testReturnTo,
		},
	})

	handler := NewRouter(RouterServices{
		Identity:         identity,
		Auth:             auth,
		Users:            service.NewUsersService(service.UsersServiceOptions{Repo: users, Allowlist: allowlist}),
		Allowlist:        allowlist,
		Views:            service.NewViewsService(service.ViewsServiceOptions{Allowlist: allowlist, Users: users}),
		Origins:          origins,
		Metrics:          prom,
		MetricsHandler:   prom.Handler(),
		GoogleConfigured: opts.GoogleConfigured,
		IsDev:            opts.Dev,
		Logger:           testutil.NewTestLogger(t),
	})

	return &harness{
		handler:     handler,
		provider:    provider,
		codec:       codec,
		users:       users,
		revocations: revocations,
		prom:        prom,
	}
}

// token signs a one-hour session for email.
func (h *harness) token(t *testing.T, email string, role domainauth.Role) string {
	t.Helper()
	tok, err := h.codec.Sign(domainauth.Claims{Email: email, Role: role}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (h *harness) seedUser(t *testing.T, email string, role domainauth.Role) {
	t.Helper()
	_, err := h.users.UpsertFromLogin(context.Background(), data.UpsertUserInput{Email: email, Name: "Seeded", Role: role})
	require.NoError(t, err)
}

type requestOption func(*http.Request)

func withBearer(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withDevUser(email string, role domainauth.Role) requestOption {
	return func(r *http.Request) {
		r.Header.Set(devauth.HeaderEmail, email)
		r.Header.Set(devauth.HeaderRole, string(role))
	}
}

func withHeader(key, value string) requestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func (h *harness) do(method, target, body string, opts ...requestOption) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
