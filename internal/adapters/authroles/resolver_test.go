package authroles

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xnome/dashboard/internal/adapters/memory"
	"github.com/xnome/dashboard/internal/data"
	domainauth "github.com/xnome/dashboard/internal/domain/auth"
)

type stubAllowlist struct {
	roles map[string]domainauth.Role
	err   error
	calls int
}

func (s *stubAllowlist) RoleFor(_ context.Context, email string) (domainauth.Role, bool, error) {
	s.calls++
	if s.err != nil {
		return "", false, s.err
	}
	r, ok := s.roles[email]
	return r, ok, nil
}

func TestResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	users := data.NewUserRepo(memory.NewKVStore(), nil)
	_, err := users.UpsertFromLogin(ctx, data.UpsertUserInput{Email: "stored@x.com", Role: domainauth.RoleAdmin})
	require.NoError(t, err)

	allow := &stubAllowlist{roles: map[string]domainauth.Role{
		"listed@x.com":  domainauth.RoleAdmin,
		"stored@x.com":  domainauth.RoleUser,
		"claimer@x.com": domainauth.RoleSuperadmin,
	}}
	r := NewResolver(users, allow, "CEO@x.com")

	tests := []struct {
		name  string
		email string
		hint  domainauth.Role
		want  domainauth.Role
	}{
		{name: "superadmin email wins", email: "ceo@X.com", hint: domainauth.RoleUser, want: domainauth.RoleSuperadmin},
		{name: "stored role beats hint", email: "stored@x.com", hint: domainauth.RoleUser, want: domainauth.RoleAdmin},
		{name: "hint beats allowlist", email: "listed@x.com", hint: domainauth.RoleUser, want: domainauth.RoleUser},
		{name: "allowlist without hint", email: "listed@x.com", want: domainauth.RoleAdmin},
		{name: "superadmin elsewhere reduced", email: "claimer@x.com", want: domainauth.RoleAdmin},
		{name: "default user", email: "nobody@x.com", want: domainauth.RoleUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(ctx, tt.email, tt.hint)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_SuperadminSkipsStore(t *testing.T) {
	allow := &stubAllowlist{err: errors.New("must not be called")}
	r := NewResolver(data.NewUserRepo(memory.NewKVStore(), nil), allow, "ceo@x.com")

	role, err := r.Resolve(context.Background(), "ceo@x.com", "")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleSuperadmin, role)
	assert.Zero(t, allow.calls)
	assert.Equal(t, "ceo@x.com", r.SuperadminEmail())
}

func TestResolver_AllowlistError(t *testing.T) {
	boom := errors.New("store down")
	r := NewResolver(data.NewUserRepo(memory.NewKVStore(), nil), &stubAllowlist{err: boom}, "ceo@x.com")

	_, err := r.Resolve(context.Background(), "a@x.com", "")
	assert.ErrorIs(t, err, boom)
}
