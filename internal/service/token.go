package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenTTL is the default bearer token lifetime.
const AccessTokenTTL = 30 * time.Minute

func SignAccessToken(username string, secret []byte, ttl time.Duration) (string, error) {
	exp := time.Now().Add(ttl)
	claims := jwt.MapClaims{
		"sub": username,
		"exp": exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// ValidateAccessToken parses a bearer token and returns the username it
// was issued for. Expired, malformed and subject-less tokens all fail.
func ValidateAccessToken(rawToken string, secret []byte) (string, error) {
	t, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signature method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !t.Valid {
		return "", fmt.Errorf("invalid access token: %w", err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("cannot parse claims")
	}

	username, _ := claims["sub"].(string)
	if username == "" {
		return "", fmt.Errorf("token has no subject")
	}

	return username, nil
}
