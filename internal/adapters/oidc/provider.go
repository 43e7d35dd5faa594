package oidc

// Package oidc provides the Google OAuth/OIDC adapter for the dashboard API.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/xnome/dashboard/internal/domain/auth"
	apperrors "github.com/xnome/dashboard/internal/errors"
	"github.com/xnome/dashboard/internal/ports"
	"golang.org/x/oauth2"
)

// DefaultIssuerURL is Google's OIDC issuer.
const DefaultIssuerURL = "https://accounts.google.com"

// DefaultScopes requested on every authorization redirect.
var DefaultScopes = []string{gooidc.ScopeOpenID, "email", "profile"}

// Response messages surfaced to the caller of the callback route.
const (
	MsgTokenExchangeFailed = "Token exchange failed"
	MsgInvalidIDToken      = "Invalid id_token"
	MsgInvalidAudience     = "Invalid audience"
)

// Provider implements ports.AuthProvider against an OIDC issuer (Google by default).
// Discovery happens on first use and is retried until it succeeds.
type Provider struct {
	cfg        ProviderConfig
	httpClient *http.Client

	mu       sync.Mutex
	oauth    *oauth2.Config
	verifier *gooidc.IDTokenVerifier
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	IssuerURL    string       // defaults to DefaultIssuerURL
	HTTPClient   *http.Client // Optional, defaults to a 30s-timeout client
}

// DiscoveryDocument represents the subset of the OIDC discovery document the provider reads.
type DiscoveryDocument struct {
	Issuer                string   `json:"issuer"`
	AuthorizationEndpoint string   `json:"authorization_endpoint"`
	TokenEndpoint         string   `json:"token_endpoint"`
	UserinfoEndpoint      string   `json:"userinfo_endpoint,omitempty"`
	JwksURI               string   `json:"jwks_uri"`
	SigningAlgs           []string `json:"id_token_signing_alg_values_supported,omitempty"`
}

var _ ports.AuthProvider = (*Provider)(nil)

// NewProvider validates cfg and returns a provider. No network call is made.
// An empty RedirectURL is accepted; callers reject login attempts until it is set.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.IssuerURL == "" {
		cfg.IssuerURL = DefaultIssuerURL
	}
	cfg.IssuerURL = strings.TrimSuffix(strings.TrimSuffix(cfg.IssuerURL, "/.well-known/openid-configuration"), "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Provider{cfg: cfg, httpClient: httpClient}, nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// discover fetches the issuer metadata once. The key set outlives the request,
// so it is bound to a context that is never canceled.
func (p *Provider) discover(ctx context.Context) (*oauth2.Config, *gooidc.IDTokenVerifier, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.oauth != nil {
		return p.oauth, p.verifier, nil
	}

	op, err := gooidc.NewProvider(p.clientContext(context.WithoutCancel(ctx)), p.cfg.IssuerURL)
	if err != nil {
		return nil, nil, fmt.Errorf("oidc discovery: %w", err)
	}
	p.oauth = &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		RedirectURL:  p.cfg.RedirectURL,
		Scopes:       DefaultScopes,
		Endpoint:     op.Endpoint(),
	}
	// Audience is checked after the signature so a mismatch gets its own message.
	p.verifier = op.Verifier(&gooidc.Config{SkipClientIDCheck: true})
	return p.oauth, p.verifier, nil
}

// Begin returns the authorization URL for state with prompt=select_account.
func (p *Provider) Begin(ctx context.Context, in ports.BeginInput) (string, error) {
	if in.State == "" {
		return "", errors.New("state is required")
	}
	oc, _, err := p.discover(ctx)
	if err != nil {
		return "", err
	}
	return oc.AuthCodeURL(in.State, oauth2.SetAuthURLParam("prompt", "select_account")), nil
}

// Exchange trades the authorization code for tokens and validates the ID token.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.ProviderIdentity, error) {
	if in.Code == "" {
		return domainauth.ProviderIdentity{}, apperrors.Validation("Missing code")
	}
	if p.cfg.ClientSecret == "" {
		return domainauth.ProviderIdentity{}, apperrors.NotConfigured("Missing GOOGLE_CLIENT_SECRET")
	}
	oc, verifier, err := p.discover(ctx)
	if err != nil {
		return domainauth.ProviderIdentity{}, apperrors.Wrap(err, apperrors.ErrCodeUpstream, MsgTokenExchangeFailed)
	}

	token, err := oc.Exchange(p.clientContext(ctx), in.Code)
	if err != nil {
		return domainauth.ProviderIdentity{}, exchangeError(err)
	}

	rawID, _ := token.Extra("id_token").(string)
	if rawID == "" {
		return domainauth.ProviderIdentity{}, apperrors.Validation(MsgInvalidIDToken).
			WithDetail("details", "missing id_token in token response")
	}
	idTok, err := verifier.Verify(p.clientContext(ctx), rawID)
	if err != nil {
		return domainauth.ProviderIdentity{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, MsgInvalidIDToken)
	}
	if !slices.Contains(idTok.Audience, p.cfg.ClientID) {
		return domainauth.ProviderIdentity{}, apperrors.Validation(MsgInvalidAudience)
	}

	var claims idTokenClaims
	if err := idTok.Claims(&claims); err != nil {
		return domainauth.ProviderIdentity{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, MsgInvalidIDToken)
	}
	return claims.identity()
}

type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (c idTokenClaims) identity() (domainauth.ProviderIdentity, error) {
	email := domainauth.NormalizeEmail(c.Email)
	if email == "" {
		return domainauth.ProviderIdentity{}, apperrors.Validation(MsgInvalidIDToken).
			WithDetail("details", "id_token has no email claim")
	}
	if c.EmailVerified != nil && !*c.EmailVerified {
		return domainauth.ProviderIdentity{}, apperrors.Validation(MsgInvalidIDToken).
			WithDetail("details", "email not verified")
	}
	return domainauth.ProviderIdentity{Email: email, Name: c.Name, Picture: c.Picture}, nil
}

// exchangeError attaches the provider's error body, decoded when it is JSON.
func exchangeError(err error) error {
	appErr := apperrors.Wrap(err, apperrors.ErrCodeUpstream, MsgTokenExchangeFailed)
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return appErr
	}
	var body any
	if json.Unmarshal(re.Body, &body) == nil {
		return appErr.WithDetail("details", body)
	}
	return appErr.WithDetail("details", string(re.Body))
}
