package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xnome/dashboard/internal/data"
	domainauth "github.com/xnome/dashboard/internal/domain/auth"
	apperrors "github.com/xnome/dashboard/internal/errors"
)

// UserStore persists user records.
type UserStore interface {
	Get(ctx context.Context, email string) (*domainauth.StoredUser, error)
	List(ctx context.Context) ([]domainauth.StoredUser, error)
	UpsertFromLogin(ctx context.Context, in data.UpsertUserInput) (*domainauth.StoredUser, error)
	SetRole(ctx context.Context, email string, role domainauth.Role) (*domainauth.StoredUser, error)
}

// UsersServiceOptions groups dependencies for UsersService.
type UsersServiceOptions struct {
	Repo      UserStore         // Required
	Allowlist *AllowlistService // Required: kept in sync on role changes
	Logger    *slog.Logger      // Optional
}

// UsersService lists persisted users and changes their roles.
type UsersService struct {
	repo      UserStore
	allowlist *AllowlistService
	logger    *slog.Logger
}

// NewUsersService constructs a new UsersService.
func NewUsersService(opts UsersServiceOptions) *UsersService {
	if opts.Repo == nil || opts.Allowlist == nil {
		//nolint:forbidigo // Service construction must fail fast during wiring when dependencies are missing
		panic("UserStore and AllowlistService are required")
	}
	return &UsersService{repo: opts.Repo, allowlist: opts.Allowlist, logger: opts.Logger}
}

// List returns every persisted user sorted by email.
func (s *UsersService) List(ctx context.Context) ([]domainauth.StoredUser, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SetRole assigns role to the user identified by email on behalf of actor.
// The superadmin role is never assignable, and the allowlist entry for the
// user, if any, is updated to match.
func (s *UsersService) SetRole(
	ctx context.Context,
	actor domainauth.Identity,
	email, role string,
) (*domainauth.StoredUser, error) {
	target, ok := domainauth.ParseRole(role)
	if !ok {
		return nil, apperrors.ValidationField("role", "Invalid role")
	}
	if target == domainauth.RoleSuperadmin {
		return nil, apperrors.Forbidden("superadmin assignment is bootstrap/env-managed via env")
	}
	email = domainauth.NormalizeEmail(email)
	if email != "" && email == s.allowlist.SuperadminEmail() {
		return nil, apperrors.Forbidden("superadmin role cannot be changed")
	}
	if !actor.Role.CanGrant(target) {
		return nil, apperrors.Forbidden("Insufficient role")
	}

	updated, err := s.repo.SetRole(ctx, email, target)
	if errors.Is(err, data.ErrUserNotFound) || errors.Is(err, data.ErrEmailRequired) {
		return nil, apperrors.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("set user role: %w", err)
	}

	if err := s.allowlist.SyncRole(ctx, email, target); err != nil {
		return nil, fmt.Errorf("sync allowlist role: %w", err)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "user role changed", "email", email, "role", target, "actor", actor.Email)
	}
	return updated, nil
}
