package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Roles issued by the identity service.
const (
	RoleAdmin    = "admin"
	RoleUser     = "user"
	RoleBusiness = "business"
	RoleDelivery = "delivery"
)

// Claims represents JWT claims. Scope is the business id for business
// accounts and the delivery company id for delivery accounts.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Scope  string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool { return c.Role == RoleAdmin }

// CanActAs reports whether the caller may act for the given role and id:
// admins always, users for themselves, business and delivery accounts for
// their own scope.
func (c *Claims) CanActAs(role, id string) bool {
	if c.IsAdmin() {
		return true
	}
	if id == "" || c.Role != role {
		return false
	}
	if role == RoleUser {
		return c.UserID == id
	}
	return c.Scope == id
}

// CanAccessOrder reports whether the caller is one of the order's parties:
// its customer, its business or the delivery company assigned to it.
func (c *Claims) CanAccessOrder(userID, businessID, deliveryCompanyID string) bool {
	return c.CanActAs(RoleUser, userID) ||
		c.CanActAs(RoleBusiness, businessID) ||
		c.CanActAs(RoleDelivery, deliveryCompanyID)
}

// JWTService handles JWT token operations
type JWTService struct {
	secretKey         []byte
	accessTokenExpiry time.Duration
}

// NewJWTService creates a new JWT service
func NewJWTService(secretKey string, accessExpiry time.Duration) *JWTService {
	return &JWTService{
		secretKey:         []byte(secretKey),
		accessTokenExpiry: accessExpiry,
	}
}

// GenerateAccessToken creates a new access token
func (s *JWTService) GenerateAccessToken(userID, role, scope string) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.accessTokenExpiry)

	claims := Claims{
		UserID: userID,
		Role:   role,
		Scope:  scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// ValidateAccessToken validates an access token and returns claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
