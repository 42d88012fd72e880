package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the resolved caller of a request.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Guest  bool   `json:"guest,omitempty"`
}

type contextKey struct{}

// FromContext extracts the identity placed by the middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// WithIdentity returns ctx carrying the given identity. Exported for handler
// tests.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

type claims struct {
	Email string `json:"email,omitempty"`
	Guest bool   `json:"guest,omitempty"`
	jwt.RegisteredClaims
}

// Service mints and verifies HS256 session tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService returns a token service. The secret must be non-empty.
func NewService(secret string, ttl time.Duration) (*Service, error) {
	if secret == "" {
		return nil, errors.New("auth secret is required")
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Service{secret: []byte(secret), ttl: ttl}, nil
}

// Mint issues a signed token for the given identity.
func (s *Service) Mint(id Identity) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: id.Email,
		Guest: id.Guest,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the identity it carries.
func (s *Service) Verify(tokenString string) (Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if c.Subject == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: c.Subject, Email: c.Email, Guest: c.Guest}, nil
}
