// Package auth consumes the identity carried by bearer credentials. Token
// issuance belongs to the identity service; this package only verifies the
// signature and extracts the (userId, role) claims the engine consumes.
package auth

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthorized is returned for missing, malformed or badly signed tokens.
var ErrUnauthorized = errors.New("unauthorized")

// Role is the coarse access level carried in the token.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Identity is the authenticated caller: an opaque value object the core
// consumes without ever seeing the token it came from.
type Identity struct {
	UserID int64
	Role   Role
}

// Verifier validates HS256 bearer tokens and extracts the Identity.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier with the shared HMAC secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Verify parses and validates the token and returns the caller's Identity.
func (v *Verifier) Verify(token string) (Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrUnauthorized
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrUnauthorized
	}

	userID, ok := claims["userId"].(float64)
	if !ok || userID <= 0 {
		return Identity{}, ErrUnauthorized
	}
	role, _ := claims["role"].(string)
	if role == "" {
		role = string(RoleUser)
	}

	return Identity{UserID: int64(userID), Role: Role(role)}, nil
}

type identityKey struct{}

// WithIdentity stores the Identity in the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext extracts the Identity set by the auth middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
