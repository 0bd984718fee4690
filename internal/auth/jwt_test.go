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

func TestJWTService_GenerateAccessToken_Success(t *testing.T) {
	service := newTestJWTService()

	token, expiresAt, err := service.GenerateAccessToken("user-123", RoleBusiness, "biz-1")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))
	assert.True(t, expiresAt.Before(time.Now().Add(16*time.Minute)))
}

func TestJWTService_ValidateAccessToken_Valid(t *testing.T) {
	service := newTestJWTService()

	token, _, err := service.GenerateAccessToken("user-456", RoleDelivery, "courier-co")
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(token)

	require.NoError(t, err)
	assert.Equal(t, "user-456", claims.UserID)
	assert.Equal(t, RoleDelivery, claims.Role)
	assert.Equal(t, "courier-co", claims.Scope)
	assert.Equal(t, "user-456", claims.Subject)
}

func TestJWTService_ValidateAccessToken_Expired(t *testing.T) {
	service := NewJWTService("test-secret", 1*time.Millisecond)

	token, _, err := service.GenerateAccessToken("user-123", RoleUser, "")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

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
	service1 := NewJWTService("secret-key-1", 15*time.Minute)
	service2 := NewJWTService("secret-key-2", 15*time.Minute)

	token, _, err := service1.GenerateAccessToken("user-123", RoleUser, "")
	require.NoError(t, err)

	claims, err := service2.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_WrongAlgorithm(t *testing.T) {
	service := newTestJWTService()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID: "user-123",
		Role:   RoleAdmin,
	})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(tokenString)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestClaims_CanActAs(t *testing.T) {
	tests := []struct {
		name   string
		claims Claims
		role   string
		id     string
		want   bool
	}{
		{"admin joins anything", Claims{UserID: "a", Role: RoleAdmin}, RoleBusiness, "biz-9", true},
		{"user own room", Claims{UserID: "u-1", Role: RoleUser}, RoleUser, "u-1", true},
		{"user other room", Claims{UserID: "u-1", Role: RoleUser}, RoleUser, "u-2", false},
		{"user as business", Claims{UserID: "u-1", Role: RoleUser}, RoleBusiness, "u-1", false},
		{"business own scope", Claims{UserID: "u-3", Role: RoleBusiness, Scope: "biz-1"}, RoleBusiness, "biz-1", true},
		{"business other scope", Claims{UserID: "u-3", Role: RoleBusiness, Scope: "biz-1"}, RoleBusiness, "biz-2", false},
		{"delivery own scope", Claims{UserID: "u-4", Role: RoleDelivery, Scope: "dc-1"}, RoleDelivery, "dc-1", true},
		{"empty id", Claims{UserID: "u-4", Role: RoleDelivery}, RoleDelivery, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.CanActAs(tt.role, tt.id))
		})
	}
}

func TestClaims_CanAccessOrder(t *testing.T) {
	tests := []struct {
		name   string
		claims Claims
		want   bool
	}{
		{"admin", Claims{UserID: "a", Role: RoleAdmin}, true},
		{"customer", Claims{UserID: "u-1", Role: RoleUser}, true},
		{"business", Claims{UserID: "u-3", Role: RoleBusiness, Scope: "biz-1"}, true},
		{"assigned courier", Claims{UserID: "u-4", Role: RoleDelivery, Scope: "dc-1"}, true},
		{"other customer", Claims{UserID: "u-2", Role: RoleUser}, false},
		{"other business", Claims{UserID: "u-5", Role: RoleBusiness, Scope: "biz-2"}, false},
		{"other courier", Claims{UserID: "u-6", Role: RoleDelivery, Scope: "dc-2"}, false},
		{"unscoped courier", Claims{UserID: "u-7", Role: RoleDelivery}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.CanAccessOrder("u-1", "biz-1", "dc-1"))
		})
	}

	// No company assigned yet
	courier := Claims{UserID: "u-4", Role: RoleDelivery}
	assert.False(t, courier.CanAccessOrder("u-1", "biz-1", ""))
}
