package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/brightbasket/cart-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "brightbasket-identity"}
}

func TestMintAndParseAccessToken(t *testing.T) {
	t.Parallel()

	cfg := testJWTConfig()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, time.Now(), time.Hour, userID, RoleCustomer)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("expected user id %s, got %s", userID, claims.UserID)
	}
	if claims.Role != RoleCustomer {
		t.Fatalf("expected role %q, got %q", RoleCustomer, claims.Role)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %q, got %q", cfg.Issuer, claims.Issuer)
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := MintAccessToken(testJWTConfig(), time.Now(), time.Hour, uuid.New(), RoleAdmin)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	other := config.JWTConfig{Secret: "other-secret", Issuer: "brightbasket-identity"}
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected signature mismatch error")
	}
}

func TestParseAccessTokenRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	issued := config.JWTConfig{Secret: "test-secret", Issuer: "someone-else"}
	token, err := MintAccessToken(issued, time.Now(), time.Hour, uuid.New(), RoleCustomer)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := ParseAccessToken(testJWTConfig(), token); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	t.Parallel()

	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), time.Hour, uuid.New(), RoleCustomer)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestMintAccessTokenValidatesInputs(t *testing.T) {
	t.Parallel()

	cfg := testJWTConfig()
	if _, err := MintAccessToken(cfg, time.Now(), time.Hour, uuid.Nil, RoleCustomer); err == nil {
		t.Fatal("expected error for nil user id")
	}
	if _, err := MintAccessToken(cfg, time.Now(), time.Hour, uuid.New(), ""); err == nil {
		t.Fatal("expected error for empty role")
	}
	if _, err := MintAccessToken(cfg, time.Now(), 0, uuid.New(), RoleCustomer); err == nil {
		t.Fatal("expected error for zero ttl")
	}
}
