package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/brightbasket/cart-backend/pkg/auth"
	"github.com/brightbasket/cart-backend/pkg/config"
)

type stubSessionValidator struct {
	sessionID string
	err       error
}

func (s *stubSessionValidator) Validate(token string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.sessionID, nil
}

func authTestConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "middleware-secret", Issuer: "brightbasket-identity"}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID uuid.UUID, role string) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), time.Hour, userID, role)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthSeedsUserContext(t *testing.T) {
	cfg := authTestConfig()
	userID := uuid.New()
	token := mintTestToken(t, cfg, userID, pkgAuth.RoleCustomer)

	var gotUser, gotRole string
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotUser != userID.String() {
		t.Fatalf("expected user id %s got %q", userID, gotUser)
	}
	if gotRole != pkgAuth.RoleCustomer {
		t.Fatalf("expected role %q got %q", pkgAuth.RoleCustomer, gotRole)
	}
}

func TestAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	cfg := authTestConfig()
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing token got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token got %d", resp.Code)
	}
}

func TestIdentityResolvesGuestSession(t *testing.T) {
	cfg := authTestConfig()
	sessions := &stubSessionValidator{sessionID: "sess-42"}

	var gotSession string
	handler := Identity(cfg, sessions, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(SessionTokenHeader, "signed-session-token")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotSession != "sess-42" {
		t.Fatalf("expected session id sess-42 got %q", gotSession)
	}
}

func TestIdentityPrefersBearerToken(t *testing.T) {
	cfg := authTestConfig()
	userID := uuid.New()
	token := mintTestToken(t, cfg, userID, pkgAuth.RoleCustomer)

	var gotUser, gotSession string
	handler := Identity(cfg, &stubSessionValidator{sessionID: "sess-42"}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotSession = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(SessionTokenHeader, "signed-session-token")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if gotUser != userID.String() {
		t.Fatalf("expected bearer identity to win, got user %q", gotUser)
	}
	if gotSession != "" {
		t.Fatalf("expected no session id when bearer present, got %q", gotSession)
	}
}

func TestIdentityRejectsBadSessionToken(t *testing.T) {
	cfg := authTestConfig()
	sessions := &stubSessionValidator{err: fmt.Errorf("signature mismatch")}

	handler := Identity(cfg, sessions, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(SessionTokenHeader, "tampered")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestIdentityRequiresCredentials(t *testing.T) {
	cfg := authTestConfig()
	handler := Identity(cfg, &stubSessionValidator{sessionID: "sess"}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
