package carts

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brightbasket/cart-backend/pkg/config"
)

var sessionTokenSigningMethod = jwt.SigningMethodHS256

// SessionTokenValidator verifies guest session tokens presented on merge
// requests and returns the session id they assert.
type SessionTokenValidator interface {
	Validate(token string) (string, error)
}

type jwtSessionTokenValidator struct {
	cfg config.JWTConfig
}

// NewSessionTokenValidator builds a validator that checks signature, expiry
// and issuer. The token subject carries the guest session id.
func NewSessionTokenValidator(cfg config.JWTConfig) (SessionTokenValidator, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("jwt secret required for session token validator")
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, fmt.Errorf("jwt issuer required for session token validator")
	}
	return &jwtSessionTokenValidator{cfg: cfg}, nil
}

func (v *jwtSessionTokenValidator) Validate(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("session token is required")
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != sessionTokenSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(v.cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{sessionTokenSigningMethod.Alg()}),
		jwt.WithIssuer(v.cfg.Issuer),
	)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("session token missing subject")
	}
	return claims.Subject, nil
}
