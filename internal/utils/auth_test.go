package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestKeyHashRoundTrip(t *testing.T) {
	hash, err := HashKey("letmein", bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, VerifyKey(hash, "letmein"))
	assert.False(t, VerifyKey(hash, "wrong"))
	assert.False(t, VerifyKey("not-a-hash", "letmein"))
}

func TestAccessTokenCarriesClaims(t *testing.T) {
	tok, err := NewAccessToken("secret", "admin", "ADMIN", 30)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)

	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "admin", claims["sub"])
	assert.Equal(t, "ADMIN", claims["role"])
}
