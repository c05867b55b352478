package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndExtract(t *testing.T) {
	svc := NewJWTService("test-secret")
	userID := uuid.New().String()

	token, err := svc.GenerateToken(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	extracted, err := svc.ExtractUserID(token)
	require.NoError(t, err)
	assert.Equal(t, userID, extracted)
}

func TestExtractUserID_WrongSecret(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, err := svc.GenerateToken(uuid.New().String())
	require.NoError(t, err)

	other := NewJWTService("other-secret")
	_, err = other.ExtractUserID(token)
	assert.Error(t, err)
}

func TestExtractUserID_Expired(t *testing.T) {
	svc := NewJWTService("test-secret")

	claims := jwt.MapClaims{
		"user_id": uuid.New().String(),
		"exp":     time.Now().Add(-time.Hour).Unix(),
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.ExtractUserID(expired)
	assert.Error(t, err)
}

func TestExtractUserID_Garbage(t *testing.T) {
	svc := NewJWTService("test-secret")

	_, err := svc.ExtractUserID("not-a-token")
	assert.Error(t, err)
}
