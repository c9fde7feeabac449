// Package auth issues and verifies Cantas session tokens and resolves the
// user behind an incoming request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dyluth/cantas/pkg/board"
)

// Claims are the session token claims: the standard registered claims plus
// the identifier of the Cantas user.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// GenerateToken signs a session token for userID valid for validityDuration.
func GenerateToken(userID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// GetUserIDFromToken verifies tokenString and returns the user it was issued for.
// Every verification failure wraps board.ErrUnauthorized.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("token expired: %w", board.ErrUnauthorized)
		}
		return "", fmt.Errorf("invalid token: %v: %w", err, board.ErrUnauthorized)
	}

	if !token.Valid || claims.UserID == "" {
		return "", fmt.Errorf("invalid token: %w", board.ErrUnauthorized)
	}

	return claims.UserID, nil
}
