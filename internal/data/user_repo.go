package data

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	domainauth "github.com/xnome/dashboard/internal/domain/auth"
	"github.com/xnome/dashboard/internal/ports"
)

// UserKeyPrefix namespaces persisted user records in the KV store.
const UserKeyPrefix = "users:"

// UserRepo persists StoredUser records keyed by lowercased email.
type UserRepo struct {
	store ports.KVStore
	clock TimeProvider
}

// NewUserRepo creates a user repository. A nil clock uses system time.
func NewUserRepo(store ports.KVStore, clock TimeProvider) *UserRepo {
	if clock == nil {
		clock = &RealTimeProvider{}
	}
	return &UserRepo{store: store, clock: clock}
}

func userKey(email string) string {
	return UserKeyPrefix + domainauth.NormalizeEmail(email)
}

// Get returns the user for email, or (nil, nil) when no record exists.
// A record that does not decode is treated as absent.
func (r *UserRepo) Get(ctx context.Context, email string) (*domainauth.StoredUser, error) {
	if domainauth.NormalizeEmail(email) == "" {
		return nil, ErrEmailRequired
	}
	raw, err := r.store.Get(ctx, userKey(email))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var u domainauth.StoredUser
	if json.Unmarshal(raw, &u) != nil {
		return nil, nil
	}
	return &u, nil
}

// List returns every persisted user sorted by email.
func (r *UserRepo) List(ctx context.Context) ([]domainauth.StoredUser, error) {
	keys, err := r.store.List(ctx, UserKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]domainauth.StoredUser, 0, len(keys))
	for _, k := range keys {
		raw, getErr := r.store.Get(ctx, k)
		if getErr != nil {
			return nil, fmt.Errorf("get user %s: %w", k, getErr)
		}
		if raw == nil {
			continue
		}
		var u domainauth.StoredUser
		if json.Unmarshal(raw, &u) != nil {
			continue
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

// UpsertUserInput carries the profile observed at login.
type UpsertUserInput struct {
	Email   string
	Name    string
	Picture string
	Role    domainauth.Role
}

// UpsertFromLogin creates the user on first login, otherwise refreshes profile and role.
// createdAt is preserved; lastLoginAt is always set to now.
func (r *UserRepo) UpsertFromLogin(ctx context.Context, in UpsertUserInput) (*domainauth.StoredUser, error) {
	email := domainauth.NormalizeEmail(in.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	existing, err := r.Get(ctx, email)
	if err != nil {
		return nil, err
	}

	now := r.clock.Now()
	u := domainauth.StoredUser{Email: email, CreatedAt: now}
	if existing != nil {
		u = *existing
		u.Email = email
	}
	if in.Name != "" {
		u.Name = in.Name
	}
	if in.Picture != "" {
		u.Picture = in.Picture
	}
	if in.Role.Valid() {
		u.Role = in.Role
	}
	if !u.Role.Valid() {
		u.Role = domainauth.RoleUser
	}
	u.LastLoginAt = &now

	if err := r.put(ctx, u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SetRole updates only the role field. Returns ErrUserNotFound when absent.
func (r *UserRepo) SetRole(ctx context.Context, email string, role domainauth.Role) (*domainauth.StoredUser, error) {
	u, err := r.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	u.Role = role
	if err := r.put(ctx, *u); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) put(ctx context.Context, u domainauth.StoredUser) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := r.store.Put(ctx, userKey(u.Email), raw); err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}
