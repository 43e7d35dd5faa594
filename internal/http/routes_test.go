package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/xnome/dashboard/internal/domain/auth"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRouter_RootAndHealth(t *testing.T) {
	h := newHarness(t, harnessOptions{GoogleConfigured: true})

	rec := h.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"service": "xnome-dashboard-api",
		"message": "Ready",
		"docs": ["/api/health", "/api/views", "/api/views/:id/data", "/auth/google", "/users/me"]
	}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"service":"xnome-dashboard-api","auth":{"googleConfigured":true}}`, rec.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = h.do(http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_APIGate(t *testing.T) {
	t.Run("oauth configured rejects anonymous api calls", func(t *testing.T) {
		h := newHarness(t, harnessOptions{GoogleConfigured: true})

		rec := h.do(http.MethodGet, "/api/views", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())

		rec = h.do(http.MethodGet, "/api/views/overview/data", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		for _, path := range []string{"/api/me", "/users/me"} {
			rec = h.do(http.MethodGet, path, "")
			require.Equal(t, http.StatusOK, rec.Code, path)
			assert.JSONEq(t, `{"user":null}`, rec.Body.String(), path)
		}
	})

	t.Run("preview identity when oauth is not configured", func(t *testing.T) {
		h := newHarness(t, harnessOptions{})

		rec := h.do(http.MethodGet, "/api/me", "")
		require.Equal(t, http.StatusOK, rec.Code)
		user, ok := decodeBody(t, rec)["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "u_preview_"+testSuperadmin, user["id"])
		assert.Equal(t, "superadmin", user["role"])
		assert.Equal(t, "preview", user["source"])

		rec = h.do(http.MethodGet, "/api/views", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRouter_Views(t *testing.T) {
	h := newHarness(t, harnessOptions{GoogleConfigured: true})
	bearer := withBearer(h.token(t, "ops@x.com", domainauth.RoleUser))

	rec := h.do(http.MethodGet, "/api/views", "", bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	views, ok := decodeBody(t, rec)["views"].([]any)
	require.True(t, ok)
	assert.Len(t, views, 11)

	rec = h.do(http.MethodGet, "/api/views/nope/data", "", bearer)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"View not found","id":"nope"}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/views/overview/data?from=yesterday", "", bearer)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/api/views/tokenomics/data?select=kpis.totalSupplyAnome", "", bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1_000_000_000), body["data"])
	assert.Equal(t, "tokenomics", body["view"].(map[string]any)["id"])

	rec = h.do(http.MethodGet, "/api/views/admin/data", "", bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"allowed":false,"reason":"Insufficient role","role":"user"}`,
		mustJSON(t, decodeBody(t, rec)["data"]))
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestRouter_RoleGuards(t *testing.T) {
	h := newHarness(t, harnessOptions{GoogleConfigured: true})

	rec := h.do(http.MethodGet, "/users", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/users", "", withBearer(h.token(t, "ops@x.com", domainauth.RoleUser)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Forbidden","required":["admin","superadmin"],"current":"user"}`, rec.Body.String())

	rec = h.do(http.MethodPatch, "/users/ops@x.com/role", `{"role":"admin"}`,
		withBearer(h.token(t, "lead@x.com", domainauth.RoleAdmin)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Forbidden","required":["superadmin"],"current":"admin"}`, rec.Body.String())

	// Token callers are recorded as users on each authenticated request.
	rec = h.do(http.MethodGet, "/users", "", withBearer(h.token(t, "lead@x.com", domainauth.RoleAdmin)))
	require.Equal(t, http.StatusOK, rec.Code)
	users, ok := decodeBody(t, rec)["users"].([]any)
	require.True(t, ok)
	require.Len(t, users, 2)
	assert.Equal(t, "lead@x.com", users[0].(map[string]any)["email"])
	assert.Equal(t, "ops@x.com", users[1].(map[string]any)["email"])
}

func TestRouter_SetUserRole(t *testing.T) {
	h := newHarness(t, harnessOptions{GoogleConfigured: true, SeedCSV: "ops@x.com"})
	h.seedUser(t, "ops@x.com", domainauth.RoleUser)
	super := withBearer(h.token(t, testSuperadmin, domainauth.RoleSuperadmin))

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"invalid role", "/users/ops@x.com/role", `{"role":"boss"}`, http.StatusBadRequest, "Invalid role"},
		{"superadmin not grantable", "/users/ops@x.com/role", `{"role":"superadmin"}`, http.StatusForbidden,
			"superadmin assignment is bootstrap/env-managed via env"},
		{"unknown user", "/users/ghost@x.com/role", `{"role":"admin"}`, http.StatusNotFound, "User not found"},
		{"malformed body", "/users/ops@x.com/role", `{"role":`, http.StatusBadRequest, "Invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(http.MethodPatch, tt.path, tt.body, super)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, decodeBody(t, rec)["error"])
		})
	}

	rec := h.do(http.MethodPatch, "/users/ops@x.com/role", `{"role":"admin"}`, super)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody(t, rec)["user"].(map[string]any)
	assert.Equal(t, "ops@x.com", user["email"])
	assert.Equal(t, "admin", user["role"])

	rec = h.do(http.MethodGet, "/users/allowlist", "", super)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `{"email":"ops@x.com","role":"admin"`)
}

func TestRouter_RoleChangeAppliesToIssuedToken(t *testing.T) {
	h := newHarness(t, harnessOptions{GoogleConfigured: true})
	userToken := withBearer(h.token(t, "u@x.com", domainauth.RoleUser))
	super := withBearer(h.token(t, testSuperadmin, domainauth.RoleSuperadmin))

	rec := h.do(http.MethodGet, "/api/me", "", userToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user", decodeBody(t, rec)["user"].(map[string]any)["role"])

	rec = h.do(http.MethodGet, "/users", "", userToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodPatch, "/users/u@x.com/role", `{"role":"admin"}`, super)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/me", "", userToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", decodeBody(t, rec)["user"].(map[string]any)["role"])

	rec = h.do(http.MethodGet, "/users", "", userToken)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Allowlist(t *testing.T) {
	h := newHarness(t, harnessOptions{GoogleConfigured: true, SeedCSV: "ops@x.com"})
	admin := withBearer(h.token(t, "lead@x.com", domainauth.RoleAdmin))
	super := withBearer(h.token(t, testSuperadmin, domainauth.RoleSuperadmin))

	rec := h.do(http.MethodGet, "/users/allowlist", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["entries"], 2)

	rec = h.do(http.MethodPost, "/users/allowlist", `{"email":" New@X.com "}`, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Len(t, body["entries"], 3)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		caller   requestOption
		wantCode int
		wantErr  string
	}{
		{"invalid email", http.MethodPost, "/users/allowlist", `{"email":"nope"}`, admin,
			http.StatusBadRequest, "Invalid email"},
		{"admin cannot add admin", http.MethodPost, "/users/allowlist", `{"email":"a2@x.com","role":"admin"}`, admin,
			http.StatusForbidden, "Only superadmin can add admin"},
		{"superadmin never added", http.MethodPost, "/users/allowlist", `{"email":"a3@x.com","role":"superadmin"}`, super,
			http.StatusForbidden, "superadmin is env-managed"},
		{"duplicate", http.MethodPost, "/users/allowlist", `{"email":"ops@x.com"}`, admin,
			http.StatusConflict, "Already allowlisted"},
		{"superadmin protected", http.MethodDelete, "/users/allowlist/" + testSuperadmin, "", super,
			http.StatusForbidden, "Cannot remove superadmin from allowlist"},
		{"missing entry", http.MethodDelete, "/users/allowlist/ghost@x.com", "", admin,
			http.StatusNotFound, "Not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(tt.method, tt.path, tt.body, tt.caller)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, decodeBody(t, rec)["error"])
		})
	}

	rec = h.do(http.MethodPost, "/users/allowlist", `{"email":"boss@x.com","role":"admin"}`, super)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/users/allowlist", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `{"email":"boss@x.com","role":"admin"`)

	rec = h.do(http.MethodDelete, "/users/allowlist/"+testSuperadmin, "", admin)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Cannot remove superadmin from allowlist", decodeBody(t, rec)["error"])

	rec = h.do(http.MethodDelete, "/users/allowlist/boss@x.com", "", admin)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Only superadmin can remove admin", decodeBody(t, rec)["error"])

	rec = h.do(http.MethodDelete, "/users/allowlist/new@x.com", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.NotContains(t, mustJSON(t, body["entries"]), "new@x.com")
}

func TestRouter_LoginFlow(t *testing.T) {
	h := newHarness(t, harnessOptions{GoogleConfigured: true, SeedCSV: "ops@x.com"})
	h.provider.DefaultUser = domainauth.ProviderIdentity{Email: "OPS@x.com", Name: "Ops"}

	rec := h.do(http.MethodGet, "/auth/google?returnTo="+url.QueryEscape("https://app.xnome.xyz/risk"), "")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "https://mock-idp/auth?state="))

	stateCookie := findCookie(rec, CookieOAuthState)
	require.NotNil(t, stateCookie)
	assert.Equal(t, h.provider.LastState(), stateCookie.Value)
	assert.Equal(t, 600, stateCookie.MaxAge)
	assert.True(t, stateCookie.HttpOnly)
	assert.True(t, stateCookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, stateCookie.SameSite)
	assert.Equal(t, "/", stateCookie.Path)

	returnCookie := findCookie(rec, CookieReturnTo)
	require.NotNil(t, returnCookie)
	assert.Equal(t, 600, returnCookie.MaxAge)

	cookieHeader := CookieOAuthState + "=" + stateCookie.Value + "; " + CookieReturnTo + "=" + returnCookie.Value
	rec = h.do(http.MethodGet, "/auth/google/callback?code=abc&state="+url.QueryEscape(stateCookie.Value), "",
		withHeader("Cookie", cookieHeader))
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "abc", h.provider.LastCode())

	location := rec.Header().Get("Location")
	prefix := "https://app.xnome.xyz/risk#session="
	require.True(t, strings.HasPrefix(location, prefix), location)
	token, err := url.QueryUnescape(strings.TrimPrefix(location, prefix))
	require.NoError(t, err)
	claims, ok := h.codec.Verify(token)
	require.True(t, ok)
	assert.Equal(t, "ops@x.com", claims.Email)
	assert.Equal(t, domainauth.RoleUser, claims.Role)

	session := findCookie(rec, CookieSession)
	require.NotNil(t, session)
	assert.Equal(t, 604800, session.MaxAge)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, -1, findCookie(rec, CookieOAuthState).MaxAge)
	assert.Equal(t, -1, findCookie(rec, CookieReturnTo).MaxAge)

	rec = h.do(http.MethodGet, "/api/me", "", withHeader("Cookie", CookieSession+"="+session.Value))
	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody(t, rec)["user"].(map[string]any)
	assert.Equal(t, "ops@x.com", user["email"])
	assert.Equal(t, "cookie", user["source"])
	assert.Equal(t, "u_ops@x.com", user["id"])

	rec = h.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `xnome_auth_logins_total{outcome="success"} 1`)
}

func TestRouter_LoginFlowDefaults(t *testing.T) {
	h := newHarness(t, harnessOptions{GoogleConfigured: true, SeedCSV: "ops@x.com"})
	h.provider.DefaultUser = domainauth.ProviderIdentity{Email: "ops@x.com"}

	rec := h.do(http.MethodGet, "/auth/google?returnTo="+url.QueryEscape("https://evil.example/"), "")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Nil(t, findCookie(rec, CookieReturnTo), "foreign return urls are dropped")

	state := findCookie(rec, CookieOAuthState).Value
	rec = h.do(http.MethodGet, "/auth/google/callback?code=abc&state="+state, "",
		withHeader("Cookie", CookieOAuthState+"="+state))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), testReturnTo+"#session="))
}

func TestRouter_LoginFlowKeepsHashRoute(t *testing.T) {
	h := newHarness(t, harnessOptions{GoogleConfigured: true, SeedCSV: "ops@x.com"})
	h.provider.DefaultUser = domainauth.ProviderIdentity{Email: "ops@x.com"}

	rec := h.do(http.MethodGet, "/auth/google?returnTo="+url.QueryEscape("https://app.xnome.xyz/#/risk"), "")
	require.Equal(t, http.StatusFound, rec.Code)
	state := findCookie(rec, CookieOAuthState).Value
	returnTo := findCookie(rec, CookieReturnTo).Value

	rec = h.do(http.MethodGet, "/auth/google/callback?code=abc&state="+state, "",
		withHeader("Cookie", CookieOAuthState+"="+state+"; "+CookieReturnTo+"="+returnTo))
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())

	location := rec.Header().Get("Location")
	prefix := "https://app.xnome.xyz/#/risk&session="
	require.True(t, strings.HasPrefix(location, prefix), location)
	assert.Equal(t, 1, strings.Count(location, "#"))
	_, ok := h.codec.Verify(strings.TrimPrefix(location, prefix))
	assert.True(t, ok)
}

func TestSessionRedirect(t *testing.T) {
	tests := map[string]string{
		"https://dash.xnome.xyz/":        "https://dash.xnome.xyz/#session=a.b-c_d",
		"https://app.xnome.xyz/#/risk":   "https://app.xnome.xyz/#/risk&session=a.b-c_d",
		"https://app.xnome.xyz/risk?x=1": "https://app.xnome.xyz/risk?x=1#session=a.b-c_d",
		"https://app.xnome.xyz/risk#":    "https://app.xnome.xyz/risk#session=a.b-c_d",
	}
	for in, want := range tests {
		assert.Equal(t, want, sessionRedirect(in, "a.b-c_d"), in)
	}
}

func TestRouter_CallbackRejections(t *testing.T) {
	h := newHarness(t, harnessOptions{GoogleConfigured: true, SeedCSV: "ops@x.com"})
	h.provider.DefaultUser = domainauth.ProviderIdentity{Email: "Stranger@x.com"}
	state := withHeader("Cookie", "oauth_state=s1")

	rec := h.do(http.MethodGet, "/auth/google/callback?state=s1", "", state)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing code"}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/auth/google/callback?code=c&state=s2", "", state)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid state"}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/auth/google/callback?code=c&state=s1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid state"}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/auth/google/callback?code=c&state=s1", "", state)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Email not allowlisted for Google login","email":"stranger@x.com"}`, rec.Body.String())
	assert.Nil(t, findCookie(rec, CookieSession))

	rec = h.do(http.MethodGet, "/metrics", "")
	assert.Contains(t, rec.Body.String(), `xnome_auth_logins_total{outcome="rejected"} 4`)
}

func TestRouter_LoginNotConfigured(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	rec := h.do(http.MethodGet, "/auth/google", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Google OAuth not configured"}`, rec.Body.String())
}

func TestRouter_Logout(t *testing.T) {
	h := newHarness(t, harnessOptions{GoogleConfigured: true})
	token := h.token(t, "ops@x.com", domainauth.RoleUser)

	rec := h.do(http.MethodGet, "/api/views", "", withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodPost, "/auth/logout", "", withHeader("Cookie", CookieSession+"="+token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	for _, name := range []string{CookieSession, CookieOAuthState, CookieReturnTo} {
		c := findCookie(rec, name)
		require.NotNil(t, c, name)
		assert.Equal(t, -1, c.MaxAge, name)
	}

	rec = h.do(http.MethodGet, "/api/views", "", withBearer(token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "revoked token no longer authenticates")

	rec = h.do(http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_DevHeaders(t *testing.T) {
	enabled := newHarness(t, harnessOptions{GoogleConfigured: true, DevHeaders: true})
	rec := enabled.do(http.MethodGet, "/users", "", withDevUser("dev@x.com", domainauth.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"users":[]}`, rec.Body.String())

	disabled := newHarness(t, harnessOptions{GoogleConfigured: true})
	rec = disabled.do(http.MethodGet, "/users", "", withDevUser("dev@x.com", domainauth.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_CORS(t *testing.T) {
	h := newHarness(t, harnessOptions{GoogleConfigured: true})

	rec := h.do(http.MethodGet, "/api/health", "", withHeader("Origin", "https://anome-one-dashboard.pages.dev"))
	assert.Equal(t, "https://anome-one-dashboard.pages.dev", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = h.do(http.MethodGet, "/api/health", "", withHeader("Origin", "https://evil.example"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = h.do(http.MethodOptions, "/users/allowlist/ops@x.com", "",
		withHeader("Origin", "https://app.xnome.xyz"),
		withHeader("Access-Control-Request-Method", "DELETE"),
		withHeader("Access-Control-Request-Headers", "Authorization"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.xnome.xyz", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "DELETE", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestRouter_RequestMetricsUseRoutePattern(t *testing.T) {
	h := newHarness(t, harnessOptions{GoogleConfigured: true})

	h.do(http.MethodGet, "/api/views/overview/data", "", withBearer(h.token(t, "ops@x.com", domainauth.RoleUser)))
	h.do(http.MethodGet, "/api/views", "")

	body := h.do(http.MethodGet, "/metrics", "").Body.String()
	assert.Contains(t, body, `xnome_http_requests_total{method="GET",route="GET /api/views/{id}/data",status="200"} 1`)
	assert.Contains(t, body, `xnome_http_requests_total{method="GET",route="GET /api/views",status="401"} 1`)
	assert.Contains(t, body, `xnome_auth_identity_resolutions_total{source="bearer"} 1`)
}
