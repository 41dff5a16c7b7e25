package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightbasket/cart-backend/api/middleware"
	checkoutsvc "github.com/brightbasket/cart-backend/internal/checkout"
	"github.com/brightbasket/cart-backend/internal/pricing"
	"github.com/brightbasket/cart-backend/pkg/db/models"
	pkgerrors "github.com/brightbasket/cart-backend/pkg/errors"
)

type stubCheckoutService struct {
	breakdown *pricing.Breakdown
	result    *checkoutsvc.Result
	err       error
	lastReq   checkoutsvc.Request
}

func (s *stubCheckoutService) Quote(ctx context.Context, req checkoutsvc.Request) (*pricing.Breakdown, error) {
	s.lastReq = req
	return s.breakdown, s.err
}

func (s *stubCheckoutService) Finalize(ctx context.Context, req checkoutsvc.Request) (*checkoutsvc.Result, error) {
	s.lastReq = req
	return s.result, s.err
}

func money(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func sampleBreakdown() *pricing.Breakdown {
	return &pricing.Breakdown{
		Currency: "USD",
		Subtotal: money("100.00"),
		Discounts: []pricing.Application{
			{Source: pricing.SourceCoupon, Code: "SAVE10", Amount: money("10.00"), IsStackable: true},
		},
		Rejections:    []pricing.Rejection{{Code: "EXPIRED", Reason: "expired"}},
		DiscountTotal: money("10.00"),
		AfterDiscount: money("90.00"),
		TaxTotal:      money("9.00"),
		Shipping:      decimal.Zero,
		FreeShipping:  true,
		Total:         money("99.00"),
	}
}

func identifiedRequest(method, target, body string, userID uuid.UUID) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func TestCheckoutQuoteReturnsBreakdown(t *testing.T) {
	userID := uuid.New()
	svc := &stubCheckoutService{breakdown: sampleBreakdown()}
	handler := CheckoutQuote(svc, nil)

	body := `{"couponCodes":["SAVE10"]}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, identifiedRequest(http.MethodPost, "/api/v1/checkout/quote", body, userID))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data BreakdownView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Total.Equal(money("99.00")) {
		t.Fatalf("unexpected total %s", envelope.Data.Total)
	}
	if len(envelope.Data.Discounts) != 1 || envelope.Data.Discounts[0].Code != "SAVE10" {
		t.Fatalf("unexpected discounts: %+v", envelope.Data.Discounts)
	}
	if len(envelope.Data.Rejections) != 1 || envelope.Data.Rejections[0].Reason != "expired" {
		t.Fatalf("unexpected rejections: %+v", envelope.Data.Rejections)
	}
	if !envelope.Data.FreeShipping {
		t.Fatal("expected free shipping flag")
	}

	if len(svc.lastReq.CouponCodes) != 1 || svc.lastReq.CouponCodes[0] != "SAVE10" {
		t.Fatalf("coupon codes not passed through: %+v", svc.lastReq.CouponCodes)
	}
	if svc.lastReq.Owner.UserID == nil || *svc.lastReq.Owner.UserID != userID {
		t.Fatalf("owner not derived from context: %+v", svc.lastReq.Owner)
	}
}

func TestCheckoutQuoteRequiresIdentity(t *testing.T) {
	handler := CheckoutQuote(&stubCheckoutService{breakdown: sampleBreakdown()}, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/checkout/quote", strings.NewReader(`{}`)))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCheckoutFinalizeReturnsCheckoutView(t *testing.T) {
	userID := uuid.New()
	checkoutID := uuid.New()
	cartID := uuid.New()
	svc := &stubCheckoutService{
		result: &checkoutsvc.Result{
			CheckoutID: checkoutID,
			Cart:       &models.Cart{ID: cartID},
			Breakdown:  sampleBreakdown(),
		},
	}
	handler := CheckoutFinalize(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, identifiedRequest(http.MethodPost, "/api/v1/checkout", `{}`, userID))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data CheckoutView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.CheckoutID != checkoutID {
		t.Fatalf("unexpected checkout id %s", envelope.Data.CheckoutID)
	}
	if envelope.Data.CartID != cartID {
		t.Fatalf("unexpected cart id %s", envelope.Data.CartID)
	}
}

func TestCheckoutFinalizeSurfacesServiceErrors(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")}
	handler := CheckoutFinalize(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, identifiedRequest(http.MethodPost, "/api/v1/checkout", `{}`, uuid.New()))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
