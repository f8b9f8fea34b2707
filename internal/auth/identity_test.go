package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func TestVerify(t *testing.T) {
	v := NewVerifier(testSecret)

	token := signToken(t, testSecret, jwt.MapClaims{
		"userId": 42,
		"role":   "ADMIN",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})

	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id.UserID)
	assert.Equal(t, RoleAdmin, id.Role)
}

func TestVerify_RoleDefaultsToUser(t *testing.T) {
	v := NewVerifier(testSecret)

	token := signToken(t, testSecret, jwt.MapClaims{"userId": 7})

	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, RoleUser, id.Role)
}

func TestVerify_Rejections(t *testing.T) {
	v := NewVerifier(testSecret)

	noneAlg := func(t *testing.T) string {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"userId": 7})
		s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"empty token", func(*testing.T) string { return "" }},
		{"garbage token", func(*testing.T) string { return "not.a.jwt" }},
		{"wrong secret", func(t *testing.T) string {
			return signToken(t, []byte("other-secret"), jwt.MapClaims{"userId": 7})
		}},
		{"missing userId", func(t *testing.T) string {
			return signToken(t, testSecret, jwt.MapClaims{"role": "USER"})
		}},
		{"non-numeric userId", func(t *testing.T) string {
			return signToken(t, testSecret, jwt.MapClaims{"userId": "7"})
		}},
		{"non-positive userId", func(t *testing.T) string {
			return signToken(t, testSecret, jwt.MapClaims{"userId": 0})
		}},
		{"expired", func(t *testing.T) string {
			return signToken(t, testSecret, jwt.MapClaims{
				"userId": 7,
				"exp":    time.Now().Add(-time.Hour).Unix(),
			})
		}},
		{"none algorithm", noneAlg},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Verify(tc.token(t))
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestIdentityContextRoundTrip(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	want := Identity{UserID: 42, Role: RoleAdmin}
	ctx := WithIdentity(context.Background(), want)

	got, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, want, got)
}
