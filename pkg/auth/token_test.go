package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService("s3cret", "servicemarket")

	token, err := svc.Issue("user-1", "provider", time.Hour)
	require.NoError(t, err)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "provider", claims.Role)
}

func TestTokenService_RejectsBadTokens(t *testing.T) {
	svc := NewTokenService("s3cret", "")

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewTokenService("other", "").Issue("user-1", "customer", time.Hour)
		require.NoError(t, err)
		_, err = svc.Parse(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := svc.Issue("user-1", "customer", -time.Minute)
		require.NoError(t, err)
		_, err = svc.Parse(token)
		assert.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		token, err := svc.Issue("", "customer", time.Hour)
		require.NoError(t, err)
		_, err = svc.Parse(token)
		assert.Error(t, err)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user-1"})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.Parse(signed)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Parse("not.a.token")
		assert.Error(t, err)
	})
}

func TestTokenService_EnforcesIssuer(t *testing.T) {
	token, err := NewTokenService("s3cret", "someone-else").Issue("user-1", "customer", time.Hour)
	require.NoError(t, err)

	_, err = NewTokenService("s3cret", "servicemarket").Parse(token)
	assert.Error(t, err)
}
