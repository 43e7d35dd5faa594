package httpx

import (
	"net/http"
)

// ServiceName identifies this API in banner and health responses.
const ServiceName = "xnome-dashboard-api"

//nolint:gochecknoglobals // static route list advertised by the banner
var docRoutes = []string{"/api/health", "/api/views", "/api/views/:id/data", "/auth/google", "/users/me"}

// SystemHandlers serves the banner, health and identity probes.
type SystemHandlers struct {
	GoogleConfigured bool
}

// Root returns the service banner.
// GET /.
func (h *SystemHandlers) Root(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"service": ServiceName,
		"message": "Ready",
		"docs":    docRoutes,
	})
}

// Health reports liveness and whether Google OAuth is configured.
// GET /api/health.
func (h *SystemHandlers) Health(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": ServiceName,
		"auth":    map[string]any{"googleConfigured": h.GoogleConfigured},
	})
}

// Me returns the caller identity, or null for anonymous callers.
// GET /api/me, GET /users/me.
func (h *SystemHandlers) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		WriteJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"user": id})
}
