// Package sessiontoken signs and verifies the dashboard's HS256 session tokens.
package sessiontoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	domainauth "github.com/xnome/dashboard/internal/domain/auth"
)

// DefaultTTL is the lifetime of a session token when none is given.
const DefaultTTL = 7 * 24 * time.Hour

// PlaceholderSecret is the sample value shipped in example configs; it never signs anything.
const PlaceholderSecret = "replace-me"

// ErrNotConfigured is returned by Sign when no usable secret is set.
var ErrNotConfigured = errors.New("session token secret not configured")

type sessionClaims struct {
	Email   string `json:"email"`
	Role    string `json:"role,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Codec implements ports.TokenCodec with HMAC-SHA256 compact JWTs.
type Codec struct {
	secret []byte
	now    func() time.Time
	newID  func() string
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for iat and exp.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec creates a codec. An empty or placeholder secret yields a codec
// that refuses to sign and rejects every token.
func NewCodec(secret string, opts ...Option) *Codec {
	c := &Codec{now: time.Now, newID: uuid.NewString}
	if Configured(secret) {
		c.secret = []byte(secret)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether secret is usable for signing.
func Configured(secret string) bool {
	s := strings.TrimSpace(secret)
	return s != "" && s != PlaceholderSecret
}

// Enabled reports whether the codec has a usable secret.
func (c *Codec) Enabled() bool { return len(c.secret) > 0 }

// Sign issues a token for claims valid for ttl (DefaultTTL when ttl <= 0).
// A fresh token id is assigned when claims.ID is empty.
func (c *Codec) Sign(claims domainauth.Claims, ttl time.Duration) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	id := claims.ID
	if id == "" {
		id = c.newID()
	}
	now := c.now()
	sc := sessionClaims{
		Email:   claims.Email,
		Role:    string(claims.Role),
		Name:    claims.Name,
		Picture: claims.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sc).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// Verify checks structure, algorithm, signature and expiry.
// Any failure yields ok=false so callers treat the request as unauthenticated.
func (c *Codec) Verify(token string) (domainauth.Claims, bool) {
	if !c.Enabled() || strings.Count(token, ".") != 2 {
		return domainauth.Claims{}, false
	}
	var sc sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &sc,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid || sc.Email == "" {
		return domainauth.Claims{}, false
	}

	out := domainauth.Claims{
		Email:   sc.Email,
		Role:    domainauth.Role(sc.Role),
		Name:    sc.Name,
		Picture: sc.Picture,
		ID:      sc.ID,
	}
	if sc.IssuedAt != nil {
		out.IssuedAt = sc.IssuedAt.Time
	}
	if sc.ExpiresAt != nil {
		out.ExpiresAt = sc.ExpiresAt.Time
	}
	return out, true
}
