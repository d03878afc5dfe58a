package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kinds. The kind claim is what stops a refresh token from being
// replayed as a session token even if both secrets were equal.
const (
	TokenKindSession = "session"
	TokenKindRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

type SessionClaims struct {
	UserID int64  `json:"uid"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

// MintToken signs a token of the given kind for userID. The jti carries the
// session row id so validation can locate server-side state.
func MintToken(secret string, kind string, userID int64, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   fmt.Sprintf("%d", userID),
			ID:        sessionID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the signature and requires the expected kind.
// Any failure collapses to ErrInvalidToken; callers never see parser
// internals.
func ParseToken(tokenStr string, secret string, expectedKind string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != expectedKind {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
