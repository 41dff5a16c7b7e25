package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightbasket/cart-backend/api/responses"
	"github.com/brightbasket/cart-backend/api/validators"
	"github.com/brightbasket/cart-backend/pkg/db/models"
	pkgerrors "github.com/brightbasket/cart-backend/pkg/errors"
	"github.com/brightbasket/cart-backend/pkg/logger"
	"github.com/brightbasket/cart-backend/pkg/pagination"
)

// DiscountLister is the read surface the admin listing needs.
type DiscountLister interface {
	List(ctx context.Context, params pagination.Params) ([]models.Discount, string, error)
}

// DiscountView is the wire shape of a discount rule.
type DiscountView struct {
	ID                    uuid.UUID        `json:"id"`
	Code                  string           `json:"code"`
	Type                  string           `json:"type"`
	Value                 decimal.Decimal  `json:"value"`
	MinimumOrderAmount    *decimal.Decimal `json:"minimumOrderAmount,omitempty"`
	MaximumDiscountAmount *decimal.Decimal `json:"maximumDiscountAmount,omitempty"`
	MinimumQuantity       *int             `json:"minimumQuantity,omitempty"`
	IsActive              bool             `json:"isActive"`
	IsStackable           bool             `json:"isStackable"`
	IsAutomatic           bool             `json:"isAutomatic"`
	ValidFrom             time.Time        `json:"validFrom"`
	ValidTo               *time.Time       `json:"validTo,omitempty"`
	UsageLimit            *int             `json:"usageLimit,omitempty"`
	UsageCount            int              `json:"usageCount"`
}

// DiscountListView is one page of discount rules.
type DiscountListView struct {
	Discounts  []DiscountView `json:"discounts"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

// AdminDiscountList returns a cursor-paginated page of discount rules.
func AdminDiscountList(repo DiscountLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount repository unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		rows, nextCursor, err := repo.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view := DiscountListView{
			Discounts:  make([]DiscountView, 0, len(rows)),
			NextCursor: nextCursor,
		}
		for _, row := range rows {
			view.Discounts = append(view.Discounts, DiscountView{
				ID:                    row.ID,
				Code:                  row.Code,
				Type:                  string(row.Type),
				Value:                 row.Value,
				MinimumOrderAmount:    row.MinimumOrderAmount,
				MaximumDiscountAmount: row.MaximumDiscountAmount,
				MinimumQuantity:       row.MinimumQuantity,
				IsActive:              row.IsActive,
				IsStackable:           row.IsStackable,
				IsAutomatic:           row.IsAutomatic,
				ValidFrom:             row.ValidFrom,
				ValidTo:               row.ValidTo,
				UsageLimit:            row.UsageLimit,
				UsageCount:            row.UsageCount,
			})
		}

		responses.WriteSuccess(w, view)
	}
}
