package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseAccessToken(t *testing.T) {
	secret := []byte("test-secret")
	userID := uuid.New()

	token, err := GenerateAccessToken(secret, userID, "ada@example.com", RoleAdmin, time.Minute)
	require.NoError(t, err)

	claims, err := ParseAccessToken(secret, token)
	require.NoError(t, err)

	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestParseAccessToken_WrongSecret(t *testing.T) {
	token, err := GenerateAccessToken([]byte("secret-a"), uuid.New(), "a@b.c", RoleUser, time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken([]byte("secret-b"), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseAccessToken_Expired(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateAccessToken(secret, uuid.New(), "a@b.c", RoleUser, -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(secret, token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestParseAccessToken_Garbage(t *testing.T) {
	_, err := ParseAccessToken([]byte("test-secret"), "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractTokenFromBearer(t *testing.T) {
	assert.Equal(t, "abc123", ExtractTokenFromBearer("Bearer abc123"))
	assert.Equal(t, "abc123", ExtractTokenFromBearer("bearer abc123"))
	assert.Equal(t, "", ExtractTokenFromBearer("Basic abc123"))
	assert.Equal(t, "", ExtractTokenFromBearer("Bearer"))
	assert.Equal(t, "", ExtractTokenFromBearer(""))
}
