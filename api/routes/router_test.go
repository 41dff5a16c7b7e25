package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	cartdto "github.com/brightbasket/cart-backend/api/controllers/cart/dto"
	"github.com/brightbasket/cart-backend/internal/carts"
	pkgAuth "github.com/brightbasket/cart-backend/pkg/auth"
	"github.com/brightbasket/cart-backend/pkg/config"
	"github.com/brightbasket/cart-backend/pkg/db/models"
	"github.com/brightbasket/cart-backend/pkg/enums"
)

type okPinger struct{}

func (okPinger) Ping(ctx context.Context) error { return nil }

type fixedSessionValidator struct{ sessionID string }

func (f fixedSessionValidator) Validate(token string) (string, error) {
	return f.sessionID, nil
}

type fixedCartService struct {
	cart *models.Cart
}

func (f *fixedCartService) GetOrCreateActive(ctx context.Context, owner carts.Owner) (*models.Cart, error) {
	return f.cart, nil
}

func (f *fixedCartService) GetActive(ctx context.Context, owner carts.Owner) (*models.Cart, error) {
	return f.cart, nil
}

func (f *fixedCartService) ReplaceCart(ctx context.Context, owner carts.Owner, input carts.UpdateInput) (*models.Cart, error) {
	return f.cart, nil
}

func (f *fixedCartService) AddItem(ctx context.Context, owner carts.Owner, item carts.ItemInput) (*models.Cart, error) {
	return f.cart, nil
}

func (f *fixedCartService) RemoveItem(ctx context.Context, owner carts.Owner, productID uuid.UUID, variantID *string) (*models.Cart, error) {
	return f.cart, nil
}

func (f *fixedCartService) ClearCart(ctx context.Context, owner carts.Owner) error {
	return nil
}

func routerConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "brightbasket-identity"},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	cart := &models.Cart{
		ID:        uuid.New(),
		OwnerKind: enums.CartOwnerGuest,
		Status:    enums.CartStatusActive,
		Currency:  enums.CurrencyUSD,
	}
	return NewRouter(
		cfg,
		nil,
		okPinger{},
		nil,
		fixedSessionValidator{sessionID: "sess-7"},
		&fixedCartService{cart: cart},
		nil,
		nil,
		nil,
	)
}

func TestRouterHealthLive(t *testing.T) {
	router := newTestRouter(routerConfig())

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-BrightBasket-Env") != "test" {
		t.Fatalf("expected env header, got %q", resp.Header().Get("X-BrightBasket-Env"))
	}
}

func TestRouterHealthReadyReportsMissingRedis(t *testing.T) {
	router := newTestRouter(routerConfig())

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestRouterCartRequiresCredentials(t *testing.T) {
	router := newTestRouter(routerConfig())

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRouterCartAcceptsSessionToken(t *testing.T) {
	router := newTestRouter(routerConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Session-Token", "signed-token")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data cartdto.CartView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != string(enums.CartStatusActive) {
		t.Fatalf("unexpected status %q", envelope.Data.Status)
	}
}

func TestRouterAdminRequiresAdminRole(t *testing.T) {
	cfg := routerConfig()
	router := newTestRouter(cfg)

	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), time.Hour, uuid.New(), pkgAuth.RoleCustomer)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/discounts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(routerConfig())

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
