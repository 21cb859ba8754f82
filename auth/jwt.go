// Package auth is the caller-identity collaborator: it turns bearer tokens
// issued by the surrounding environment into account identifiers. The
// ledger itself never sees a token, only the already-authenticated account.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwtKey reads the secret per call so values loaded after process start
// (godotenv runs inside main) are picked up.
func jwtKey() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		// dev fallback, override in any real deployment
		secret = "socialnet-dev-secret"
	}
	return []byte(secret)
}

// CreateToken issues a signed token for an account. Real deployments issue
// tokens from a gateway; this keeps local setups and tests self-contained.
func CreateToken(account string) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   account,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
	})
	return token.SignedString(jwtKey())
}

// CheckToken validates a token and returns the account it identifies.
func CheckToken(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", errors.New("empty token")
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %T", t.Method)
		}
		return jwtKey(), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

// CallerFromRequest extracts the caller account from the Authorization
// header ("Bearer <token>").
func CallerFromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header must be in format: Bearer <token>")
	}
	return CheckToken(parts[1])
}
