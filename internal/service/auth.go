package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xnome/dashboard/internal/data"
	domainauth "github.com/xnome/dashboard/internal/domain/auth"
	apperrors "github.com/xnome/dashboard/internal/errors"
	"github.com/xnome/dashboard/internal/ports"
)

// RoleResolver decides the effective role for an email given an optional hint.
type RoleResolver interface {
	Resolve(ctx context.Context, email string, hint domainauth.Role) (domainauth.Role, error)
}

// AuthSettings carries the deployment facts the login flow checks before
// talking to the provider.
type AuthSettings struct {
	GoogleConfigured bool
	ClientSecretSet  bool
	RedirectURI      string
	SigningEnabled   bool
	SessionTTL       time.Duration
	DefaultReturnTo  string
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider    ports.AuthProvider // nil when OAuth is not configured
	Codec       ports.TokenCodec
	Revocations ports.RevocationStore
	Resolver    RoleResolver
	Users       UserStore
	Allowlist   *AllowlistService
	Origins     *OriginPolicy
	Settings    AuthSettings
	Logger      *slog.Logger
}

// AuthService orchestrates the OAuth login flow and session issuance.
type AuthService struct {
	provider    ports.AuthProvider
	codec       ports.TokenCodec
	revocations ports.RevocationStore
	resolver    RoleResolver
	users       UserStore
	allowlist   *AllowlistService
	origins     *OriginPolicy
	settings    AuthSettings
	logger      *slog.Logger
	newState    func() string
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Codec == nil || opts.Revocations == nil || opts.Resolver == nil || opts.Users == nil ||
		opts.Allowlist == nil {
		//nolint:forbidigo // Service construction must fail fast during wiring when dependencies are missing
		panic("AuthService requires Codec, Revocations, Resolver, Users and Allowlist")
	}
	origins := opts.Origins
	if origins == nil {
		origins = NewOriginPolicy(nil)
	}
	if opts.Settings.SessionTTL <= 0 {
		opts.Settings.SessionTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		provider:    opts.Provider,
		codec:       opts.Codec,
		revocations: opts.Revocations,
		resolver:    opts.Resolver,
		users:       opts.Users,
		allowlist:   opts.Allowlist,
		origins:     origins,
		settings:    opts.Settings,
		logger:      opts.Logger,
		newState:    uuid.NewString,
	}
}

// GoogleConfigured reports whether the deployment runs the real OAuth flow.
func (s *AuthService) GoogleConfigured() bool { return s.settings.GoogleConfigured }

// SessionTTL is the lifetime of issued session tokens.
func (s *AuthService) SessionTTL() time.Duration { return s.settings.SessionTTL }

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL  string
	State    string
	ReturnTo string // empty when the caller supplied none
}

// BeginLogin generates a fresh state and returns the provider URL to redirect to.
// returnTo is kept only when it points at an allowed origin.
func (s *AuthService) BeginLogin(ctx context.Context, returnTo string) (*BeginLoginResult, error) {
	if !s.settings.GoogleConfigured || s.provider == nil {
		return nil, apperrors.NotConfigured("Google OAuth not configured")
	}
	if s.settings.RedirectURI == "" {
		return nil, apperrors.NotConfigured("GOOGLE_REDIRECT_URI missing")
	}

	state := s.newState()
	authURL, err := s.provider.Begin(ctx, ports.BeginInput{State: state})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Could not start Google login")
	}
	return &BeginLoginResult{
		AuthURL:  authURL,
		State:    state,
		ReturnTo: s.origins.SafeReturnTo(returnTo, ""),
	}, nil
}

// CompleteLoginInput groups the callback parameters and the cookie-held values.
type CompleteLoginInput struct {
	Code          string
	State         string
	ExpectedState string
	ReturnTo      string
}

// CompleteLoginResult is the issued session.
type CompleteLoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      domainauth.StoredUser
	ReturnTo  string
}

// CompleteLogin validates the callback, exchanges the code and issues a session.
// No session is issued unless every step succeeds.
func (s *AuthService) CompleteLogin(ctx context.Context, in CompleteLoginInput) (*CompleteLoginResult, error) {
	if in.Code == "" {
		return nil, apperrors.Validation("Missing code")
	}
	if in.State == "" || in.ExpectedState == "" ||
		subtle.ConstantTimeCompare([]byte(in.State), []byte(in.ExpectedState)) != 1 {
		return nil, apperrors.Validation("Invalid state")
	}
	if err := s.checkCallbackConfig(); err != nil {
		return nil, err
	}

	profile, err := s.provider.Exchange(ctx, ports.ExchangeInput{Code: in.Code})
	if err != nil {
		if apperrors.GetCode(err) != "" {
			return nil, err
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUpstream, "Token exchange failed")
	}
	email := domainauth.NormalizeEmail(profile.Email)

	allowed, err := s.allowlist.IsAllowlisted(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check allowlist: %w", err)
	}
	if !allowed {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "login rejected: not allowlisted", "email", email)
		}
		return nil, apperrors.Forbidden("Email not allowlisted for Google login").WithDetail("email", email)
	}

	role, err := s.resolver.Resolve(ctx, email, "")
	if err != nil {
		return nil, fmt.Errorf("resolve role: %w", err)
	}
	name := profile.Name
	if name == "" {
		name = "User"
	}
	user, err := s.users.UpsertFromLogin(ctx, data.UpsertUserInput{
		Email:   email,
		Name:    name,
		Picture: profile.Picture,
		Role:    role,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	token, err := s.codec.Sign(domainauth.Claims{
		Email:   user.Email,
		Role:    user.Role,
		Name:    user.Name,
		Picture: user.Picture,
	}, s.settings.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "login succeeded", "email", user.Email, "role", user.Role)
	}

	return &CompleteLoginResult{
		Token:     token,
		ExpiresAt: time.Now().Add(s.settings.SessionTTL),
		User:      *user,
		ReturnTo:  s.origins.SafeReturnTo(in.ReturnTo, s.settings.DefaultReturnTo),
	}, nil
}

func (s *AuthService) checkCallbackConfig() error {
	switch {
	case !s.settings.GoogleConfigured || s.provider == nil:
		return apperrors.NotConfigured("Google OAuth not configured")
	case !s.settings.ClientSecretSet:
		return apperrors.NotConfigured("GOOGLE_CLIENT_SECRET missing")
	case s.settings.RedirectURI == "":
		return apperrors.NotConfigured("GOOGLE_REDIRECT_URI missing")
	case !s.settings.SigningEnabled:
		return apperrors.NotConfigured("JWT_SECRET missing")
	}
	return nil
}

// Logout revokes the presented session token until its natural expiry.
// Invalid or absent tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, ok := s.codec.Verify(token)
	if !ok || claims.ID == "" {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "session revoked", "email", claims.Email)
	}
	return nil
}

// MintToken signs a session for email with its resolved role, bypassing OAuth.
// Used by the admin CLI for local testing.
func (s *AuthService) MintToken(ctx context.Context, email string, ttl time.Duration) (string, error) {
	email = domainauth.NormalizeEmail(email)
	if email == "" {
		return "", apperrors.ValidationField("email", "Invalid email")
	}
	role, err := s.resolver.Resolve(ctx, email, "")
	if err != nil {
		return "", fmt.Errorf("resolve role: %w", err)
	}
	if ttl <= 0 {
		ttl = s.settings.SessionTTL
	}
	claims := domainauth.Claims{Email: email, Role: role}
	if u, getErr := s.users.Get(ctx, email); getErr == nil && u != nil {
		claims.Name, claims.Picture = u.Name, u.Picture
	}
	return s.codec.Sign(claims, ttl)
}
