package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	apperrors "github.com/xnome/dashboard/internal/errors"
	"github.com/xnome/dashboard/internal/observability/metrics"
	"github.com/xnome/dashboard/internal/service"
)

// AuthFlow defines the OAuth login operations used by the handlers.
type AuthFlow interface {
	BeginLogin(ctx context.Context, returnTo string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, in service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	Logout(ctx context.Context, token string) error
}

// AuthHandlers provides HTTP handlers for the Google login flow.
type AuthHandlers struct {
	Svc     AuthFlow
	Cookies cookieWriter
	Metrics metrics.Recorder
	Logger  *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Login starts the OAuth flow.
// GET /auth/google?returnTo=<optional url>.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	result, err := h.Svc.BeginLogin(r.Context(), r.URL.Query().Get("returnTo"))
	if err != nil {
		WriteError(r.Context(), w, h.logger(), err)
		return
	}

	if result.ReturnTo != "" {
		h.Cookies.set(w, r, CookieReturnTo, result.ReturnTo, oauthCookieMaxAge)
	}
	h.Cookies.set(w, r, CookieOAuthState, result.State, oauthCookieMaxAge)
	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback completes the OAuth flow and hands the session back to the dashboard.
// GET /auth/google/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	cookies := ParseCookies(r.Header.Get("Cookie"))
	q := r.URL.Query()

	result, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{
		Code:          q.Get("code"),
		State:         q.Get("state"),
		ExpectedState: cookies[CookieOAuthState],
		ReturnTo:      cookies[CookieReturnTo],
	})
	if err != nil {
		h.Metrics.IncLogin(loginOutcome(err))
		WriteError(r.Context(), w, h.logger(), err)
		return
	}
	h.Metrics.IncLogin(metrics.OutcomeSuccess)

	h.Cookies.set(w, r, CookieSession, result.Token, sessionMaxAge(result.ExpiresAt))
	h.Cookies.clear(w, r, CookieOAuthState)
	h.Cookies.clear(w, r, CookieReturnTo)

	// The token travels in the fragment so it never reaches a server log.
	http.Redirect(w, r, sessionRedirect(result.ReturnTo, result.Token), http.StatusFound)
}

// sessionRedirect appends session=<token> to the fragment of returnTo,
// keeping any hash route the dashboard already carries.
func sessionRedirect(returnTo, token string) string {
	u, err := url.Parse(returnTo)
	if err != nil {
		return returnTo + "#session=" + url.QueryEscape(token)
	}
	param := "session=" + token
	if u.Fragment != "" {
		u.Fragment += "&" + param
	} else {
		u.Fragment = param
	}
	u.RawFragment = ""
	return u.String()
}

// Logout revokes the presented session and clears auth cookies.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		token = cookieValue(r, CookieSession)
	}
	if err := h.Svc.Logout(r.Context(), token); err != nil {
		h.logger().WarnContext(r.Context(), "logout failed", "error", err)
	}

	h.Cookies.clear(w, r, CookieSession)
	h.Cookies.clear(w, r, CookieOAuthState)
	h.Cookies.clear(w, r, CookieReturnTo)
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// sessionMaxAge converts the session expiry into a cookie Max-Age in seconds.
func sessionMaxAge(expiresAt time.Time) int {
	secs := int(time.Until(expiresAt).Round(time.Second).Seconds())
	if secs <= 0 {
		return -1
	}
	return secs
}

// loginOutcome separates requests the flow refused from failures on our side.
func loginOutcome(err error) string {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation, apperrors.ErrCodeForbidden, apperrors.ErrCodeUpstream:
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}
