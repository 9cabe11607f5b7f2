// Package auth consumes session tokens issued by the external auth
// service. Issuance and password handling stay outside this core; only
// validation and caller-identity extraction live here.
package auth

import (
	"fmt"
	"time"

	"helplink/errors"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// ValidateToken parses and validates the signature and expiration of a JWT
// string against the shared secret.
func ValidateToken(tokenString string, secret []byte) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrAuthenticationRequired, err)
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("%w: invalid claims", errors.ErrAuthenticationRequired)
}

// GenerateToken creates a signed JWT for a specific user. Kept for tests
// and local tooling; production tokens come from the external auth service.
func GenerateToken(userID string, roles []string, secret []byte, ttl time.Duration) (string, error) {
	claims := &CustomClaims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "helplink",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
