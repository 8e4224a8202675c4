package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the tenant identity of an authenticated request.
type Claims struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	OrganizationID string `json:"organization_id"`
	RoleID         string `json:"role_id,omitempty"`
	jwt.RegisteredClaims
}

// OrganizationUUID parses the organization claim.
func (c *Claims) OrganizationUUID() (uuid.UUID, error) {
	return uuid.Parse(c.OrganizationID)
}

// UserUUID parses the user claim; an absent user is not an error.
func (c *Claims) UserUUID() (*uuid.UUID, error) {
	if c.UserID == "" {
		return nil, nil
	}
	id, err := uuid.Parse(c.UserID)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration, issuer string) *TokenManager {
	if secret == "" {
		secret = "fallback-secret-key-for-development"
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, issuer: issuer, now: time.Now}
}

// Generate JWT token
func (m *TokenManager) Generate(userID uuid.UUID, email string, organizationID uuid.UUID, roleID *uuid.UUID) (string, error) {
	now := m.now()
	claims := Claims{
		UserID:         userID.String(),
		Email:          email,
		OrganizationID: organizationID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if roleID != nil {
		claims.RoleID = roleID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate JWT token
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(m.now)}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.OrganizationUUID(); err != nil {
		return nil, fmt.Errorf("%w: organization claim: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
