package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/xnome/dashboard/internal/errors"
	"github.com/xnome/dashboard/internal/ports"
)

const (
	testClientID = "test-client"
	testKeyID    = "test-key"
)

// fakeIssuer serves discovery, JWKS and a token endpoint that returns tokenBody.
type fakeIssuer struct {
	srv       *httptest.Server
	key       *rsa.PrivateKey
	mu        sync.Mutex
	tokenCode int
	tokenBody string
	lastForm  url.Values
}

func newFakeIssuer(t *testing.T) *fakeIssuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	fi := &fakeIssuer{key: key, tokenCode: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(DiscoveryDocument{
			Issuer:                fi.srv.URL,
			AuthorizationEndpoint: fi.srv.URL + "/auth",
			TokenEndpoint:         fi.srv.URL + "/token",
			JwksURI:               fi.srv.URL + "/jwks",
			SigningAlgs:           []string{"RS256"},
		})
	})
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": testKeyID,
				"alg": "RS256",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		fi.mu.Lock()
		fi.lastForm = r.PostForm
		code, body := fi.tokenCode, fi.tokenBody
		fi.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	})
	fi.srv = httptest.NewServer(mux)
	t.Cleanup(fi.srv.Close)
	return fi
}

func (fi *fakeIssuer) idToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	base := jwt.MapClaims{
		"iss":            fi.srv.URL,
		"sub":            "1234",
		"aud":            testClientID,
		"iat":            time.Now().Unix(),
		"exp":            time.Now().Add(time.Hour).Unix(),
		"email":          "Ops@X.com",
		"email_verified": true,
		"name":           "Ops",
		"picture":        "https://example.com/p.png",
	}
	for k, v := range claims {
		base[k] = v
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, base)
	tok.Header["kid"] = testKeyID
	signed, err := tok.SignedString(key)
	require.NoError(t, err)
	return signed
}

func (fi *fakeIssuer) respondWithIDToken(idToken string) {
	body, _ := json.Marshal(map[string]any{
		"access_token": "at",
		"token_type":   "Bearer",
		"expires_in":   3600,
		"id_token":     idToken,
	})
	fi.setTokenResponse(http.StatusOK, string(body))
}

func (fi *fakeIssuer) setTokenResponse(code int, body string) {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.tokenCode = code
	fi.tokenBody = body
}

func (fi *fakeIssuer) lastCode() string {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	return fi.lastForm.Get("code")
}

func newTestProvider(t *testing.T, fi *fakeIssuer) *Provider {
	t.Helper()
	p, err := NewProvider(ProviderConfig{
		ClientID:     testClientID,
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost:8787/auth/google/callback",
		IssuerURL:    fi.srv.URL,
		HTTPClient:   fi.srv.Client(),
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	_, err := NewProvider(ProviderConfig{RedirectURL: "http://localhost/callback"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client ID is required")
}

func TestNewProvider_AllowsMissingRedirectURL(t *testing.T) {
	p, err := NewProvider(ProviderConfig{ClientID: "client"})
	require.NoError(t, err)
	assert.Empty(t, p.cfg.RedirectURL)
}

func TestNewProvider_DefaultsIssuer(t *testing.T) {
	p, err := NewProvider(ProviderConfig{ClientID: "c", RedirectURL: "http://localhost/cb"})
	require.NoError(t, err)
	assert.Equal(t, DefaultIssuerURL, p.cfg.IssuerURL)

	p, err = NewProvider(ProviderConfig{
		ClientID:    "c",
		RedirectURL: "http://localhost/cb",
		IssuerURL:   "https://issuer.example.com/.well-known/openid-configuration",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://issuer.example.com", p.cfg.IssuerURL)
}

func TestProvider_Begin(t *testing.T) {
	fi := newFakeIssuer(t)
	p := newTestProvider(t, fi)

	authURL, err := p.Begin(context.Background(), ports.BeginInput{State: "state-123"})
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, fi.srv.URL+"/auth", u.Scheme+"://"+u.Host+u.Path)
	q := u.Query()
	assert.Equal(t, testClientID, q.Get("client_id"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "select_account", q.Get("prompt"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, "http://localhost:8787/auth/google/callback", q.Get("redirect_uri"))

	_, err = p.Begin(context.Background(), ports.BeginInput{})
	require.Error(t, err)
}

func TestProvider_Begin_DiscoveryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	p, err := NewProvider(ProviderConfig{ClientID: "c", RedirectURL: "http://localhost/cb", IssuerURL: srv.URL})
	require.NoError(t, err)

	_, err = p.Begin(context.Background(), ports.BeginInput{State: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oidc discovery")
}

func TestProvider_Exchange_Success(t *testing.T) {
	fi := newFakeIssuer(t)
	p := newTestProvider(t, fi)
	fi.respondWithIDToken(fi.idToken(t, fi.key, nil))

	id, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "auth-code"})
	require.NoError(t, err)
	assert.Equal(t, "ops@x.com", id.Email)
	assert.Equal(t, "Ops", id.Name)
	assert.Equal(t, "https://example.com/p.png", id.Picture)
	assert.Equal(t, "auth-code", fi.lastCode())
}

func TestProvider_Exchange_Failures(t *testing.T) {
	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tests := []struct {
		name    string
		setup   func(t *testing.T, fi *fakeIssuer)
		code    apperrors.ErrorCode
		message string
	}{
		{
			name: "provider rejects code",
			setup: func(_ *testing.T, fi *fakeIssuer) {
				fi.setTokenResponse(http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Bad Request"}`)
			},
			code:    apperrors.ErrCodeUpstream,
			message: MsgTokenExchangeFailed,
		},
		{
			name: "missing id_token",
			setup: func(_ *testing.T, fi *fakeIssuer) {
				fi.setTokenResponse(http.StatusOK, `{"access_token":"at","token_type":"Bearer"}`)
			},
			code:    apperrors.ErrCodeValidation,
			message: MsgInvalidIDToken,
		},
		{
			name: "signed by unknown key",
			setup: func(t *testing.T, fi *fakeIssuer) {
				fi.respondWithIDToken(fi.idToken(t, otherKey, nil))
			},
			code:    apperrors.ErrCodeValidation,
			message: MsgInvalidIDToken,
		},
		{
			name: "expired",
			setup: func(t *testing.T, fi *fakeIssuer) {
				fi.respondWithIDToken(fi.idToken(t, fi.key, jwt.MapClaims{
					"exp": time.Now().Add(-time.Hour).Unix(),
				}))
			},
			code:    apperrors.ErrCodeValidation,
			message: MsgInvalidIDToken,
		},
		{
			name: "minted for another client",
			setup: func(t *testing.T, fi *fakeIssuer) {
				fi.respondWithIDToken(fi.idToken(t, fi.key, jwt.MapClaims{"aud": "someone-else"}))
			},
			code:    apperrors.ErrCodeValidation,
			message: MsgInvalidAudience,
		},
		{
			name: "no email",
			setup: func(t *testing.T, fi *fakeIssuer) {
				fi.respondWithIDToken(fi.idToken(t, fi.key, jwt.MapClaims{"email": ""}))
			},
			code:    apperrors.ErrCodeValidation,
			message: MsgInvalidIDToken,
		},
		{
			name: "unverified email",
			setup: func(t *testing.T, fi *fakeIssuer) {
				fi.respondWithIDToken(fi.idToken(t, fi.key, jwt.MapClaims{"email_verified": false}))
			},
			code:    apperrors.ErrCodeValidation,
			message: MsgInvalidIDToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fi := newFakeIssuer(t)
			p := newTestProvider(t, fi)
			tt.setup(t, fi)

			_, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "auth-code"})
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetCode(err))
			assert.True(t, strings.HasPrefix(err.Error(), tt.message), err.Error())
		})
	}
}

func TestProvider_Exchange_ProviderDetails(t *testing.T) {
	fi := newFakeIssuer(t)
	p := newTestProvider(t, fi)
	fi.setTokenResponse(http.StatusBadRequest, `{"error":"invalid_grant"}`)

	_, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "bad"})
	require.Error(t, err)
	details := apperrors.GetDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, map[string]any{"error": "invalid_grant"}, details["details"])
}

func TestProvider_Exchange_Preconditions(t *testing.T) {
	fi := newFakeIssuer(t)
	p := newTestProvider(t, fi)

	_, err := p.Exchange(context.Background(), ports.ExchangeInput{})
	assert.True(t, apperrors.IsValidation(err))

	noSecret, err := NewProvider(ProviderConfig{ClientID: "c", RedirectURL: "http://localhost/cb", IssuerURL: fi.srv.URL})
	require.NoError(t, err)
	_, err = noSecret.Exchange(context.Background(), ports.ExchangeInput{Code: "x"})
	assert.Equal(t, apperrors.ErrCodeNotConfigured, apperrors.GetCode(err))
}
