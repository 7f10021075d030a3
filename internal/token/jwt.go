// Package token issues and verifies signed bearer tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer          = "speaker-scheduler"
	typeAccess      = "access"
	defaultTokenTTL = 24 * time.Hour
)

// ErrInvalidToken is returned for malformed, expired or tampered tokens.
var ErrInvalidToken = errors.New("token: invalid")

// Claims carries the authenticated user id.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"user_id"`
	TokenType string `json:"typ"`
}

// JWT issues HS256 tokens.
type JWT struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewJWT creates a token manager. A non-positive ttl falls back to 24h.
func NewJWT(secretKey string, ttl time.Duration) *JWT {
	return NewJWTWithClock(secretKey, ttl, nil)
}

// NewJWTWithClock creates a token manager with an injected time source.
func NewJWTWithClock(secretKey string, ttl time.Duration, now func() time.Time) *JWT {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if now == nil {
		now = time.Now
	}
	return &JWT{secretKey: []byte(secretKey), ttl: ttl, now: now}
}

// Issue signs a token for userID and returns it with its expiry.
func (j *JWT) Issue(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("issue token: empty user id")
	}
	now := j.now()
	expires := now.Add(j.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UserID:    userID,
		TokenType: typeAccess,
	})

	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, expires, nil
}

// Parse validates tokenString and returns the user id it was issued for.
func (j *JWT) Parse(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return j.secretKey, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.TokenType != typeAccess || claims.UserID == "" {
		return "", fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}
	return claims.UserID, nil
}
