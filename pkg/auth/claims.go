package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles the identity service embeds in access tokens. The cart API only
// distinguishes shoppers from staff managing discounts.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// AccessTokenClaims is the typed JWT the identity service issues to
// signed-in users. This service verifies tokens; it never mints them
// outside of tests.
type AccessTokenClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}
