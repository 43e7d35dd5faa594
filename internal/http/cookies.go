package httpx

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	CookieSession    = "session"
	CookieOAuthState = "oauth_state"
	CookieReturnTo   = "return_to"

	oauthCookieMaxAge = 600
)

// ParseCookies splits a Cookie header into name/value pairs. Values are
// URL-unescaped when possible; malformed pairs are skipped and the first
// occurrence of a name wins.
func ParseCookies(header string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(header, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		if _, seen := out[name]; seen {
			continue
		}
		value = strings.TrimSpace(value)
		if unescaped, err := url.QueryUnescape(value); err == nil {
			value = unescaped
		}
		out[name] = value
	}
	return out
}

// cookieValue returns the named cookie from the request, or "".
func cookieValue(r *http.Request, name string) string {
	return ParseCookies(r.Header.Get("Cookie"))[name]
}

// cookieWriter sets cookies with the shared attribute set: Path=/, HttpOnly,
// SameSite=Lax, an optional Domain, and Secure unless the request is plain
// http in development.
type cookieWriter struct {
	domain string
	dev    bool
}

func (c cookieWriter) secure(r *http.Request) bool {
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return !c.dev
}

func (c cookieWriter) set(w http.ResponseWriter, r *http.Request, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    url.QueryEscape(value),
		Path:     "/",
		Domain:   c.domain,
		HttpOnly: true,
		Secure:   c.secure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// clear mirrors the attributes used when setting so browsers drop the cookie.
func (c cookieWriter) clear(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.domain,
		HttpOnly: true,
		Secure:   c.secure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
	})
}
