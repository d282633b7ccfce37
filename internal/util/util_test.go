package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateJWTRoundTrip(t *testing.T) {
	token, err := SignJWT("user-1", "jo@example.com", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT(token, "secret")
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "jo@example.com", claims.Email)
}

func TestValidateJWTWrongSecret(t *testing.T) {
	token, err := SignJWT("user-1", "jo@example.com", "secret", time.Hour)
	require.NoError(t, err)

	_, err = ValidateJWT(token, "other-secret")
	require.Error(t, err)
}

func TestValidateJWTExpired(t *testing.T) {
	token, err := SignJWT("user-1", "jo@example.com", "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateJWT(token, "secret")
	require.Error(t, err)
}

func TestValidateJWTGarbage(t *testing.T) {
	_, err := ValidateJWT("not-a-token", "secret")
	require.Error(t, err)
}
