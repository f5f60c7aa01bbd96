package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuerRoundTrip(t *testing.T) {
	iss := NewIssuer("secret", time.Hour, "pilotopos")

	token, err := iss.GenerateToken(7, "admin", "tnt_default", "v1")
	require.NoError(t, err)

	claims, err := iss.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "tnt_default", claims.Tenant)
	assert.Equal(t, "v1", claims.TokenVersion)
}

func TestIssuerRejects(t *testing.T) {
	iss := NewIssuer("secret", time.Hour, "pilotopos")

	t.Run("missing", func(t *testing.T) {
		_, err := iss.ValidateToken("")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("other secret", func(t *testing.T) {
		token, err := NewIssuer("other", time.Hour, "pilotopos").GenerateToken(1, "a", "", "v")
		require.NoError(t, err)
		_, err = iss.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := NewIssuer("secret", -time.Minute, "pilotopos").GenerateToken(1, "a", "", "v")
		require.NoError(t, err)
		_, err = iss.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other issuer", func(t *testing.T) {
		token, err := NewIssuer("secret", time.Hour, "elsewhere").GenerateToken(1, "a", "", "v")
		require.NoError(t, err)
		_, err = iss.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
