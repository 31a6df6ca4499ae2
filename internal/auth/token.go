// Package auth issues and verifies session tokens, hashes passwords and
// models the two kinds of authenticated principal.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yukikurage/taskdesk-api/internal/models"
)

var (
	// ErrInvalidToken is returned when the token is malformed or the signature does not match.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

const issuer = "taskdesk-api"

// Identity is the authenticated caller as carried inside a token.
type Identity struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// IsAdmin reports whether the identity is the sentinel administrator.
func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// Claims are the signed token claims.
type Claims struct {
	Identity
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer signing with secret.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns how long issued tokens stay valid.
func (m *TokenIssuer) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for identity.
func (m *TokenIssuer) Issue(identity Identity) (string, error) {
	now := m.now()
	claims := Claims{
		Identity: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   identity.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify validates tokenString and returns the identity it carries.
func (m *TokenIssuer) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}

	return &claims.Identity, nil
}
