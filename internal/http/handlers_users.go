package httpx

import (
	"context"
	"log/slog"
	"net/http"

	domainauth "github.com/xnome/dashboard/internal/domain/auth"
	"github.com/xnome/dashboard/internal/service"
)

// UserAdmin lists users and changes their roles.
type UserAdmin interface {
	List(ctx context.Context) ([]domainauth.StoredUser, error)
	SetRole(ctx context.Context, actor domainauth.Identity, email, role string) (*domainauth.StoredUser, error)
}

// AllowlistAdmin manages the login allowlist.
type AllowlistAdmin interface {
	EnsureSeeded(ctx context.Context) ([]domainauth.AllowlistEntry, error)
	Add(ctx context.Context, actor domainauth.Identity, in service.AddAllowlistInput) ([]domainauth.AllowlistEntry, error)
	Remove(ctx context.Context, actor domainauth.Identity, email string) ([]domainauth.AllowlistEntry, error)
}

// UserHandlers serves user and allowlist administration.
// Every handler except Me runs behind RequireRoles, so an identity is present.
type UserHandlers struct {
	Users     UserAdmin
	Allowlist AllowlistAdmin
	Logger    *slog.Logger
}

// List returns every persisted user.
// GET /users.
func (h *UserHandlers) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		WriteError(r.Context(), w, h.Logger, err)
		return
	}
	if users == nil {
		users = []domainauth.StoredUser{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

type setRoleRequest struct {
	Role string `json:"role"`
}

// SetRole changes a user's role.
// PATCH /users/{email}/role.
func (h *UserHandlers) SetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	updated, err := h.Users.SetRole(r.Context(), actor(r), r.PathValue("email"), req.Role)
	if err != nil {
		WriteError(r.Context(), w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"user": updated})
}

// ListAllowlist returns the allowlist, seeding it on first use.
// GET /users/allowlist.
func (h *UserHandlers) ListAllowlist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Allowlist.EnsureSeeded(r.Context())
	if err != nil {
		WriteError(r.Context(), w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// AddAllowlist appends an allowlist entry.
// POST /users/allowlist.
func (h *UserHandlers) AddAllowlist(w http.ResponseWriter, r *http.Request) {
	var in service.AddAllowlistInput
	if !DecodeJSON(w, r, &in) {
		return
	}
	entries, err := h.Allowlist.Add(r.Context(), actor(r), in)
	if err != nil {
		WriteError(r.Context(), w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "entries": entries})
}

// RemoveAllowlist deletes an allowlist entry.
// DELETE /users/allowlist/{email}.
func (h *UserHandlers) RemoveAllowlist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Allowlist.Remove(r.Context(), actor(r), r.PathValue("email"))
	if err != nil {
		WriteError(r.Context(), w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "entries": entries})
}

func actor(r *http.Request) domainauth.Identity {
	if id, ok := IdentityFromContext(r.Context()); ok {
		return *id
	}
	return domainauth.Identity{}
}
