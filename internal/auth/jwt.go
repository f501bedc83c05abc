package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims holds the session claims carried by a bearer token.
type Claims struct {
	jwt.RegisteredClaims
	TenantID     string   `json:"tenant_id"`
	Entitlements []string `json:"entitlements,omitempty"`
}

// Session converts validated claims into a session. The subject is the user id.
func (c *Claims) Session() (Session, error) {
	tenant, err := uuid.Parse(c.TenantID)
	if err != nil || tenant == uuid.Nil {
		return Session{}, fmt.Errorf("token has no valid tenant_id")
	}
	var user uuid.UUID
	if c.Subject != "" {
		user, err = uuid.Parse(c.Subject)
		if err != nil {
			return Session{}, fmt.Errorf("token subject is not a user id: %w", err)
		}
	}
	return Session{TenantID: tenant, UserID: user, Entitlements: c.Entitlements}, nil
}

// ValidateToken parses and validates a HS256 token string with the given secret.
func ValidateToken(tokenString string, secret []byte) (*Claims, error) {
	if len(secret) == 0 {
		return nil, errors.New("no secret configured")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// NewToken signs a token for the session.
func NewToken(secret []byte, s Session, expiry time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("no secret configured")
	}
	now := time.Now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		TenantID:     s.TenantID.String(),
		Entitlements: s.Entitlements,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
