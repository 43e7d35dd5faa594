package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/xnome/dashboard/internal/data"
	domainauth "github.com/xnome/dashboard/internal/domain/auth"
	apperrors "github.com/xnome/dashboard/internal/errors"
)

// AllowlistStore loads and saves the allowlist document.
type AllowlistStore interface {
	Load(ctx context.Context) ([]domainauth.AllowlistEntry, error)
	Save(ctx context.Context, entries []domainauth.AllowlistEntry) error
}

// AllowlistServiceOptions groups dependencies for AllowlistService.
type AllowlistServiceOptions struct {
	Repo            AllowlistStore    // Required
	SuperadminEmail string            // Seeded as superadmin and protected from removal
	SeedCSV         string            // Comma-separated emails seeded when the allowlist is empty
	Clock           data.TimeProvider // Optional, defaults to system time
	Logger          *slog.Logger      // Optional
}

// AllowlistService manages who may log in and with which default role.
type AllowlistService struct {
	repo            AllowlistStore
	superadminEmail string
	seed            []string
	clock           data.TimeProvider
	logger          *slog.Logger

	openWarnOnce sync.Once
}

// NewAllowlistService constructs a new AllowlistService.
func NewAllowlistService(opts AllowlistServiceOptions) *AllowlistService {
	if opts.Repo == nil {
		//nolint:forbidigo // Service construction must fail fast during wiring when dependencies are missing
		panic("AllowlistStore is required")
	}
	clock := opts.Clock
	if clock == nil {
		clock = &data.RealTimeProvider{}
	}
	return &AllowlistService{
		repo:            opts.Repo,
		superadminEmail: domainauth.NormalizeEmail(opts.SuperadminEmail),
		seed:            ParseEmailCSV(opts.SeedCSV),
		clock:           clock,
		logger:          opts.Logger,
	}
}

// ParseEmailCSV splits a comma-separated list into trimmed, lowercased,
// de-duplicated emails, keeping first-seen order.
func ParseEmailCSV(raw string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(raw, ",") {
		email := domainauth.NormalizeEmail(part)
		if email == "" {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

// SuperadminEmail returns the configured superadmin email, lowercased.
func (s *AllowlistService) SuperadminEmail() string { return s.superadminEmail }

// EnsureSeeded returns the stored entries, seeding them first when the
// allowlist is empty. Seeding is CSV order with the superadmin appended when
// the CSV does not already name it.
func (s *AllowlistService) EnsureSeeded(ctx context.Context) ([]domainauth.AllowlistEntry, error) {
	entries, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load allowlist: %w", err)
	}
	if len(entries) > 0 {
		return entries, nil
	}

	emails := s.seed
	if s.superadminEmail != "" && !containsString(emails, s.superadminEmail) {
		emails = append(append([]string(nil), emails...), s.superadminEmail)
	}
	if len(emails) == 0 {
		return nil, nil
	}

	now := s.clock.Now()
	entries = make([]domainauth.AllowlistEntry, 0, len(emails))
	for _, email := range emails {
		role := domainauth.RoleUser
		if email == s.superadminEmail {
			role = domainauth.RoleSuperadmin
		}
		entries = append(entries, domainauth.AllowlistEntry{Email: email, Role: role, AddedAt: now})
	}
	if err := s.repo.Save(ctx, entries); err != nil {
		return nil, fmt.Errorf("seed allowlist: %w", err)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "allowlist seeded", "entries", len(entries))
	}
	return entries, nil
}

// IsAllowlisted reports whether email may log in. An allowlist that is still
// empty after seeding admits everyone.
func (s *AllowlistService) IsAllowlisted(ctx context.Context, email string) (bool, error) {
	email = domainauth.NormalizeEmail(email)
	if email == "" {
		return false, nil
	}
	if email == s.superadminEmail {
		return true, nil
	}
	entries, err := s.EnsureSeeded(ctx)
	if err != nil {
		return false, err
	}
	if len(entries) == 0 {
		s.openWarnOnce.Do(func() {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "allowlist is empty; every authenticated email is admitted")
			}
		})
		return true, nil
	}
	_, ok := findEntry(entries, email)
	return ok, nil
}

// RoleFor returns the allowlist role for email and whether an entry exists.
func (s *AllowlistService) RoleFor(ctx context.Context, email string) (domainauth.Role, bool, error) {
	entries, err := s.EnsureSeeded(ctx)
	if err != nil {
		return "", false, err
	}
	i, ok := findEntry(entries, domainauth.NormalizeEmail(email))
	if !ok {
		return "", false, nil
	}
	return entries[i].Role, true, nil
}

// AddAllowlistInput is the body of an allowlist addition.
type AddAllowlistInput struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Add appends an entry on behalf of actor and returns the updated list.
func (s *AllowlistService) Add(
	ctx context.Context,
	actor domainauth.Identity,
	in AddAllowlistInput,
) ([]domainauth.AllowlistEntry, error) {
	email := domainauth.NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.ValidationField("email", "Invalid email")
	}

	role := domainauth.RoleUser
	if strings.TrimSpace(in.Role) != "" {
		parsed, ok := domainauth.ParseRole(in.Role)
		if !ok {
			return nil, apperrors.ValidationField("role", "Invalid role")
		}
		role = parsed
	}
	if role == domainauth.RoleSuperadmin {
		return nil, apperrors.Forbidden("superadmin is env-managed")
	}
	if !actor.Role.CanGrant(role) {
		if role == domainauth.RoleAdmin {
			return nil, apperrors.Forbidden("Only superadmin can add admin")
		}
		return nil, apperrors.Forbidden("Insufficient role")
	}

	entries, err := s.EnsureSeeded(ctx)
	if err != nil {
		return nil, err
	}
	if _, exists := findEntry(entries, email); exists {
		return nil, apperrors.Conflict("Already allowlisted")
	}

	next := append(append([]domainauth.AllowlistEntry(nil), entries...),
		domainauth.AllowlistEntry{Email: email, Role: role, AddedAt: s.clock.Now()})
	if err := s.repo.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save allowlist: %w", err)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "allowlist entry added", "email", email, "role", role, "actor", actor.Email)
	}
	return next, nil
}

// Remove deletes email's entry on behalf of actor and returns the updated list.
func (s *AllowlistService) Remove(
	ctx context.Context,
	actor domainauth.Identity,
	email string,
) ([]domainauth.AllowlistEntry, error) {
	email = domainauth.NormalizeEmail(email)
	if s.superadminEmail != "" && email == s.superadminEmail {
		return nil, apperrors.Forbidden("Cannot remove superadmin from allowlist")
	}

	entries, err := s.EnsureSeeded(ctx)
	if err != nil {
		return nil, err
	}
	i, ok := findEntry(entries, email)
	if !ok {
		return nil, apperrors.NotFound("Not found")
	}
	if entries[i].Role != domainauth.RoleUser && actor.Role != domainauth.RoleSuperadmin {
		return nil, apperrors.Forbidden("Only superadmin can remove admin")
	}

	next := make([]domainauth.AllowlistEntry, 0, len(entries)-1)
	next = append(next, entries[:i]...)
	next = append(next, entries[i+1:]...)
	if err := s.repo.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save allowlist: %w", err)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "allowlist entry removed", "email", email, "actor", actor.Email)
	}
	return next, nil
}

// SyncRole updates the role of an existing entry. Missing entries are left alone.
func (s *AllowlistService) SyncRole(ctx context.Context, email string, role domainauth.Role) error {
	entries, err := s.EnsureSeeded(ctx)
	if err != nil {
		return err
	}
	i, ok := findEntry(entries, domainauth.NormalizeEmail(email))
	if !ok || entries[i].Role == role {
		return nil
	}
	next := append([]domainauth.AllowlistEntry(nil), entries...)
	next[i].Role = role
	if err := s.repo.Save(ctx, next); err != nil {
		return fmt.Errorf("save allowlist: %w", err)
	}
	return nil
}

func findEntry(entries []domainauth.AllowlistEntry, email string) (int, bool) {
	for i := range entries {
		if domainauth.NormalizeEmail(entries[i].Email) == email {
			return i, true
		}
	}
	return -1, false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
