package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("senha123")
	require.NoError(t, err)

	assert.NotEqual(t, "senha123", hash)
	assert.True(t, CheckPasswordHash("senha123", hash))
	assert.False(t, CheckPasswordHash("senha124", hash))
}

func TestPasswordHashIsSalted(t *testing.T) {
	first, err := HashPassword("same")
	require.NoError(t, err)
	second, err := HashPassword("same")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	token, issued, err := m.GenerateToken("user-1", "maria", false)
	require.NoError(t, err)
	require.NotEmpty(t, issued.ID)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "maria", claims.Username)
	assert.False(t, claims.Fallback)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	token, _, err := NewJWTManager("one", time.Hour).GenerateToken("user-1", "maria", false)
	require.NoError(t, err)

	_, err = NewJWTManager("two", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m := NewJWTManager("secret", -time.Minute)
	token, _, err := m.GenerateToken("user-1", "maria", true)
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
