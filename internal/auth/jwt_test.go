package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService("test-secret-key-for-testing-purposes", 15*time.Minute)
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	service := newTestJWTService()

	token, expiresAt, err := service.GenerateAccessToken("user-123", "shopper@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))
	assert.True(t, expiresAt.Before(time.Now().Add(16*time.Minute)))

	claims, err := service.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "shopper@example.com", claims.Email)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, issuer, claims.Issuer)
}

func TestJWTService_ValidateAccessToken_Expired(t *testing.T) {
	service := NewJWTService("test-secret", -time.Minute)

	token, _, err := service.GenerateAccessToken("user-123", "shopper@example.com")
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_Invalid(t *testing.T) {
	service := newTestJWTService()

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"random string", "not-a-valid-token"},
		{"malformed JWT", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTService_ValidateAccessToken_WrongSignature(t *testing.T) {
	other := NewJWTService("another-secret-key", 15*time.Minute)
	token, _, err := other.GenerateAccessToken("user-123", "shopper@example.com")
	require.NoError(t, err)

	claims, err := newTestJWTService().ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_NoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID:           "user-123",
		Email:            "shopper@example.com",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer},
	})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	claims, err := newTestJWTService().ValidateAccessToken(tokenString)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_MissingEmail(t *testing.T) {
	service := newTestJWTService()
	token, _, err := service.GenerateAccessToken("user-123", "")
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}
