package httpx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/cors"

	domainauth "github.com/xnome/dashboard/internal/domain/auth"
	"github.com/xnome/dashboard/internal/observability/metrics"
)

// OriginChecker decides which browser origins may call the API with credentials.
type OriginChecker interface {
	AllowsOrigin(origin string) bool
}

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Identity  Authenticator
	Auth      AuthFlow
	Users     UserAdmin
	Allowlist AllowlistAdmin
	Views     ViewsReader
	Origins   OriginChecker

	// Optional: defaults to metrics.Noop.
	Metrics metrics.Recorder
	// Optional: served on MetricsPath when set.
	MetricsHandler http.Handler
	MetricsPath    string

	GoogleConfigured bool
	CookieDomain     string
	IsDev            bool         // Allows non-Secure cookies over plain http
	Logger           *slog.Logger // Optional
}

// NewRouter creates the API mux and wraps it with the middleware chain
// Recover → Logging → Metrics → CORS → Authenticate → OAuth gate.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := services.Metrics
	if rec == nil {
		rec = metrics.Noop{}
	}

	mux := http.NewServeMux()

	system := &SystemHandlers{GoogleConfigured: services.GoogleConfigured}
	views := &ViewHandlers{Svc: services.Views, Logger: logger}
	auth := &AuthHandlers{
		Svc:     services.Auth,
		Cookies: cookieWriter{domain: services.CookieDomain, dev: services.IsDev},
		Metrics: rec,
		Logger:  logger,
	}
	users := &UserHandlers{Users: services.Users, Allowlist: services.Allowlist, Logger: logger}

	mux.HandleFunc("GET /{$}", system.Root)
	registerAPIRoutes(mux, system, views)
	registerAuthRoutes(mux, auth)
	registerUserRoutes(mux, system, users)
	if services.MetricsHandler != nil {
		path := services.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, services.MetricsHandler)
	}

	var handler http.Handler = mux
	handler = RequireIdentityWhenOAuth(services.GoogleConfigured)(handler)
	handler = Authenticate(services.Identity, rec)(handler)
	handler = corsMiddleware(services.Origins)(handler)
	handler = Metrics(rec, routePattern(mux))(handler)
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}

func registerAPIRoutes(mux *http.ServeMux, system *SystemHandlers, views *ViewHandlers) {
	mux.HandleFunc("GET /api/health", system.Health)
	mux.HandleFunc("GET /api/me", system.Me)
	mux.HandleFunc("GET /api/views", views.List)
	mux.HandleFunc("GET /api/views/{id}/data", views.Data)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /auth/google", h.Login)
	mux.HandleFunc("GET /auth/google/callback", h.Callback)
	mux.HandleFunc("POST /auth/logout", h.Logout)
}

func registerUserRoutes(mux *http.ServeMux, system *SystemHandlers, h *UserHandlers) {
	staff := RequireRoles(domainauth.RoleAdmin, domainauth.RoleSuperadmin)
	superadmin := RequireRoles(domainauth.RoleSuperadmin)

	mux.HandleFunc("GET /users/me", system.Me)
	mux.Handle("GET /users", staff(http.HandlerFunc(h.List)))
	mux.Handle("PATCH /users/{email}/role", superadmin(http.HandlerFunc(h.SetRole)))
	mux.Handle("GET /users/allowlist", staff(http.HandlerFunc(h.ListAllowlist)))
	mux.Handle("POST /users/allowlist", staff(http.HandlerFunc(h.AddAllowlist)))
	mux.Handle("DELETE /users/allowlist/{email}", staff(http.HandlerFunc(h.RemoveAllowlist)))
}

// routePattern reports the mux pattern a request matches, "" when none does.
func routePattern(mux *http.ServeMux) func(*http.Request) string {
	return func(r *http.Request) string {
		_, pattern := mux.Handler(r)
		return pattern
	}
}

// corsMiddleware reflects allowed origins with credentials.
func corsMiddleware(origins OriginChecker) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			return origins != nil && origins.AllowsOrigin(origin)
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           600,
	})
}
