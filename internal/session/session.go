package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/teemow/gmail-ai-agent/internal/apperr"
)

// DefaultTTL is the lifetime of an issued token.
const DefaultTTL = 30 * time.Minute

// DefaultSubject is the fixed subject written into every token.
const DefaultSubject = "user"

// Credentials is the provider credential bundle carried inside a token.
type Credentials struct {
	Subject      string    `json:"subject,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// Complete reports whether all four provider fields are set. Tokens sealed
// from incomplete credentials are rejected by Verify.
func (c Credentials) Complete() bool {
	return c.AccessToken != "" && c.RefreshToken != "" && c.ClientID != "" && c.ClientSecret != ""
}

// Claims are the JWT claims of a session token.
type Claims struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and validates session tokens with a shared secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager. An empty secret is replaced with a random
// one, so tokens stop verifying after a restart.
func NewManager(secret string, opts ...Option) *Manager {
	m := &Manager{
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if secret == "" {
		b := make([]byte, 32)
		_, _ = rand.Read(b)
		secret = hex.EncodeToString(b)
		m.logger.Warn("no session secret configured, using a random one; sessions will not survive a restart")
	}
	m.secret = []byte(secret)
	return m
}

// TTL returns the lifetime applied to issued tokens.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for creds. It returns the token and its lifetime.
func (m *Manager) Issue(creds Credentials) (string, time.Duration, error) {
	subject := creds.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	now := m.now()
	claims := Claims{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, m.ttl, nil
}

// Verify validates a token and returns the credentials it carries.
//
// Bad signatures, unexpected algorithms and expired tokens yield
// apperr.KindUnauthorized. A token that verifies but lacks one of the four
// provider fields yields apperr.KindMalformedToken.
func (m *Manager) Verify(tokenStr string) (*Credentials, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.Unauthorized("Token expired", err)
		}
		return nil, apperr.Unauthorized("Invalid token", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperr.Unauthorized("Invalid token", jwt.ErrSignatureInvalid)
	}

	creds := &Credentials{
		Subject:      claims.Subject,
		AccessToken:  claims.AccessToken,
		RefreshToken: claims.RefreshToken,
		ClientID:     claims.ClientID,
		ClientSecret: claims.ClientSecret,
	}
	if !creds.Complete() {
		return nil, apperr.New(apperr.KindMalformedToken, "Invalid token payload")
	}
	if claims.ExpiresAt != nil {
		creds.ExpiresAt = claims.ExpiresAt.Time
	}
	return creds, nil
}

// Refresh issues a new token for the same credentials with a fresh expiry.
// The provider is not contacted, so a revoked Google grant keeps refreshing.
func (m *Manager) Refresh(creds Credentials) (string, time.Duration, error) {
	return m.Issue(creds)
}
