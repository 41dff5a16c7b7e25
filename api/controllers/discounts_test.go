package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/brightbasket/cart-backend/pkg/db/models"
	"github.com/brightbasket/cart-backend/pkg/enums"
	"github.com/brightbasket/cart-backend/pkg/pagination"
)

type stubDiscountLister struct {
	rows       []models.Discount
	nextCursor string
	err        error
	lastParams pagination.Params
}

func (s *stubDiscountLister) List(ctx context.Context, params pagination.Params) ([]models.Discount, string, error) {
	s.lastParams = params
	return s.rows, s.nextCursor, s.err
}

func TestAdminDiscountListReturnsPage(t *testing.T) {
	repo := &stubDiscountLister{
		rows: []models.Discount{
			{
				ID:        uuid.New(),
				Code:      "SAVE10",
				Type:      enums.DiscountPercentage,
				Value:     money("10"),
				IsActive:  true,
				ValidFrom: time.Now().Add(-time.Hour),
			},
		},
		nextCursor: "next-page",
	}
	handler := AdminDiscountList(repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/discounts?limit=10&cursor=abc", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data DiscountListView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Discounts) != 1 {
		t.Fatalf("expected 1 discount, got %d", len(envelope.Data.Discounts))
	}
	if envelope.Data.Discounts[0].Code != "SAVE10" {
		t.Fatalf("unexpected code %q", envelope.Data.Discounts[0].Code)
	}
	if envelope.Data.NextCursor != "next-page" {
		t.Fatalf("unexpected cursor %q", envelope.Data.NextCursor)
	}
	if repo.lastParams.Limit != 10 || repo.lastParams.Cursor != "abc" {
		t.Fatalf("params not passed through: %+v", repo.lastParams)
	}
}

func TestAdminDiscountListRejectsBadLimit(t *testing.T) {
	handler := AdminDiscountList(&stubDiscountLister{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/discounts?limit=nope", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
