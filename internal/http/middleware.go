package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	domainauth "github.com/xnome/dashboard/internal/domain/auth"
	"github.com/xnome/dashboard/internal/observability/metrics"
	"github.com/xnome/dashboard/internal/service"
)

// Authenticator resolves the caller identity from request credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, creds service.Credentials) *domainauth.Identity
}

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := wrapWriter(w)
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func wrapWriter(w http.ResponseWriter) *respWriter {
	if rw, ok := w.(*respWriter); ok {
		return rw
	}
	return &respWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *respWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": "Internal error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Metrics records request count and latency. routeOf maps a request to its
// route pattern so label cardinality stays bounded.
func Metrics(rec metrics.Recorder, routeOf func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := wrapWriter(w)
			next.ServeHTTP(ww, r)
			rec.ObserveRequest(r.Method, routeOf(r), ww.status, time.Since(start))
		})
	}
}

// Authenticate attaches the caller identity, if any, to the request context.
// It never rejects a request; guards decide what anonymous callers may do.
func Authenticate(auth Authenticator, rec metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := auth.Authenticate(r.Context(), service.Credentials{
				Bearer:  bearerToken(r),
				Cookie:  cookieValue(r, CookieSession),
				Headers: r.Header,
			})
			if id == nil {
				rec.IncIdentityResolution(metrics.SourceAnonymous)
				next.ServeHTTP(w, r)
				return
			}
			rec.IncIdentityResolution(string(id.Source))
			next.ServeHTTP(w, r.WithContext(SetIdentityInContext(r.Context(), id)))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireRoles rejects anonymous callers with 401 and callers whose role is
// not listed with 403.
func RequireRoles(roles ...domainauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				WriteJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
				return
			}
			if !slices.Contains(roles, id.Role) {
				WriteJSON(w, http.StatusForbidden, map[string]any{
					"error":    "Forbidden",
					"required": roles,
					"current":  id.Role,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireIdentityWhenOAuth returns 401 for anonymous /api requests while
// Google OAuth is configured. Health and identity probes stay public.
func RequireIdentityWhenOAuth(googleConfigured bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !googleConfigured {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := r.URL.Path
			public := !strings.HasPrefix(p, "/api/") || p == "/api/health" || p == "/api/me"
			if _, ok := IdentityFromContext(r.Context()); !ok && !public {
				WriteJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
