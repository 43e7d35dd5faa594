package service

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/xnome/dashboard/internal/adapters/devauth"
	"github.com/xnome/dashboard/internal/data"
	domainauth "github.com/xnome/dashboard/internal/domain/auth"
	"github.com/xnome/dashboard/internal/ports"
)

// IdentityServiceOptions groups dependencies for IdentityService.
type IdentityServiceOptions struct {
	Codec            ports.TokenCodec
	Revocations      ports.RevocationStore
	Resolver         RoleResolver
	Users            UserStore
	Dev              *devauth.Source // Optional; nil disables dev headers and preview
	GoogleConfigured bool
	Logger           *slog.Logger
}

// IdentityService turns request credentials into an Identity.
type IdentityService struct {
	codec            ports.TokenCodec
	revocations      ports.RevocationStore
	resolver         RoleResolver
	users            UserStore
	dev              *devauth.Source
	googleConfigured bool
	logger           *slog.Logger
}

// NewIdentityService constructs a new IdentityService.
func NewIdentityService(opts IdentityServiceOptions) *IdentityService {
	if opts.Codec == nil || opts.Revocations == nil || opts.Resolver == nil || opts.Users == nil {
		//nolint:forbidigo // Service construction must fail fast during wiring when dependencies are missing
		panic("IdentityService requires Codec, Revocations, Resolver and Users")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityService{
		codec:            opts.Codec,
		revocations:      opts.Revocations,
		resolver:         opts.Resolver,
		users:            opts.Users,
		dev:              opts.Dev,
		googleConfigured: opts.GoogleConfigured,
		logger:           logger,
	}
}

// Credentials are the raw inputs extracted from a request.
type Credentials struct {
	Bearer  string
	Cookie  string
	Headers http.Header
}

// Authenticate tries bearer token, session cookie, dev headers and finally the
// preview identity, returning the first that yields an identity. It returns
// nil for anonymous callers and never fails.
func (s *IdentityService) Authenticate(ctx context.Context, creds Credentials) *domainauth.Identity {
	if id := s.fromToken(ctx, creds.Bearer, domainauth.SourceBearer); id != nil {
		return id
	}
	if id := s.fromToken(ctx, creds.Cookie, domainauth.SourceCookie); id != nil {
		return id
	}
	if s.dev == nil {
		return nil
	}
	if cred, ok := s.dev.FromHeaders(creds.Headers); ok {
		role, err := s.resolver.Resolve(ctx, cred.Email, cred.Hint)
		if err != nil {
			s.logger.WarnContext(ctx, "dev header role resolution failed", "error", err)
			return nil
		}
		return &domainauth.Identity{
			ID:     domainauth.IdentityID(domainauth.SourceDevHeader, cred.Email),
			Email:  cred.Email,
			Role:   role,
			Source: domainauth.SourceDevHeader,
		}
	}
	if !s.googleConfigured {
		if id, ok := s.dev.Preview(); ok {
			return &id
		}
	}
	return nil
}

func (s *IdentityService) fromToken(ctx context.Context, token string, src domainauth.Source) *domainauth.Identity {
	if token == "" {
		return nil
	}
	claims, ok := s.codec.Verify(token)
	if !ok {
		return nil
	}
	if claims.ID != "" {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			s.logger.WarnContext(ctx, "revocation lookup failed", "error", err)
			return nil
		}
		if revoked {
			return nil
		}
	}

	email := domainauth.NormalizeEmail(claims.Email)
	role, err := s.resolver.Resolve(ctx, email, claims.Role)
	if err != nil {
		s.logger.WarnContext(ctx, "role resolution failed", "source", src, "error", err)
		return nil
	}

	if _, err := s.users.UpsertFromLogin(ctx, data.UpsertUserInput{
		Email:   email,
		Name:    claims.Name,
		Picture: claims.Picture,
		Role:    role,
	}); err != nil {
		s.logger.WarnContext(ctx, "refresh user last login failed", "email", email, "error", err)
	}

	return &domainauth.Identity{
		ID:      domainauth.IdentityID(src, email),
		Email:   email,
		Name:    claims.Name,
		Picture: claims.Picture,
		Role:    role,
		Source:  src,
	}
}
