package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightbasket/cart-backend/api/middleware"
	"github.com/brightbasket/cart-backend/api/responses"
	"github.com/brightbasket/cart-backend/api/validators"
	"github.com/brightbasket/cart-backend/internal/carts"
	checkoutsvc "github.com/brightbasket/cart-backend/internal/checkout"
	"github.com/brightbasket/cart-backend/internal/pricing"
	pkgerrors "github.com/brightbasket/cart-backend/pkg/errors"
	"github.com/brightbasket/cart-backend/pkg/logger"
	"github.com/brightbasket/cart-backend/pkg/types"
)

// CheckoutRequest carries the codes to apply when pricing the caller's
// active cart. A shipping address here overrides the one on the cart.
type CheckoutRequest struct {
	CouponCodes     []string       `json:"couponCodes,omitempty"`
	PromotionIDs    []uuid.UUID    `json:"promotionIds,omitempty"`
	ShippingAddress *types.Address `json:"shippingAddress,omitempty"`
}

// AppliedDiscountView is one discount or promotion application on a quote.
type AppliedDiscountView struct {
	Source       string          `json:"source"`
	Code         string          `json:"code,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	FreeShipping bool            `json:"freeShipping,omitempty"`
}

// RejectionView explains why a requested code did not apply. Rejections are
// part of a successful quote, not errors.
type RejectionView struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// TaxLineView is one applied tax rate.
type TaxLineView struct {
	Name   string          `json:"name"`
	Type   string          `json:"type"`
	Rate   decimal.Decimal `json:"rate"`
	Base   decimal.Decimal `json:"base"`
	Amount decimal.Decimal `json:"amount"`
}

// BreakdownView is the wire shape of a price breakdown.
type BreakdownView struct {
	Currency      string                `json:"currency"`
	Subtotal      decimal.Decimal       `json:"subtotal"`
	Discounts     []AppliedDiscountView `json:"discounts"`
	Rejections    []RejectionView       `json:"rejections"`
	DiscountTotal decimal.Decimal       `json:"discountTotal"`
	AfterDiscount decimal.Decimal       `json:"afterDiscount"`
	Taxes         []TaxLineView         `json:"taxes"`
	TaxTotal      decimal.Decimal       `json:"taxTotal"`
	Shipping      decimal.Decimal       `json:"shipping"`
	FreeShipping  bool                  `json:"freeShipping"`
	Total         decimal.Decimal       `json:"total"`
}

// CheckoutView reports a finalized checkout.
type CheckoutView struct {
	CheckoutID uuid.UUID     `json:"checkoutId"`
	CartID     uuid.UUID     `json:"cartId"`
	Breakdown  BreakdownView `json:"breakdown"`
}

// NewBreakdownView maps a breakdown onto its wire shape.
func NewBreakdownView(b *pricing.Breakdown) BreakdownView {
	view := BreakdownView{
		Currency:      b.Currency,
		Subtotal:      b.Subtotal,
		Discounts:     make([]AppliedDiscountView, 0, len(b.Discounts)),
		Rejections:    make([]RejectionView, 0, len(b.Rejections)),
		Taxes:         make([]TaxLineView, 0, len(b.Taxes)),
		DiscountTotal: b.DiscountTotal,
		AfterDiscount: b.AfterDiscount,
		TaxTotal:      b.TaxTotal,
		Shipping:      b.Shipping,
		FreeShipping:  b.FreeShipping,
		Total:         b.Total,
	}
	for _, app := range b.Discounts {
		view.Discounts = append(view.Discounts, AppliedDiscountView{
			Source:       app.Source,
			Code:         app.Code,
			Amount:       app.Amount,
			FreeShipping: app.FreeShipping,
		})
	}
	for _, rej := range b.Rejections {
		view.Rejections = append(view.Rejections, RejectionView{Code: rej.Code, Reason: rej.Reason})
	}
	for _, tax := range b.Taxes {
		view.Taxes = append(view.Taxes, TaxLineView{
			Name:   tax.Name,
			Type:   string(tax.Type),
			Rate:   tax.Rate,
			Base:   tax.Base,
			Amount: tax.Amount,
		})
	}
	return view
}

// CheckoutQuote prices the caller's active cart without redeeming anything.
func CheckoutQuote(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		req, err := checkoutRequestFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		breakdown, err := svc.Quote(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, NewBreakdownView(breakdown))
	}
}

// CheckoutFinalize prices the cart, redeems the applied discounts and
// promotions, and converts the cart.
func CheckoutFinalize(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		req, err := checkoutRequestFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Finalize(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, CheckoutView{
			CheckoutID: result.CheckoutID,
			CartID:     result.Cart.ID,
			Breakdown:  NewBreakdownView(result.Breakdown),
		})
	}
}

func checkoutRequestFrom(r *http.Request) (checkoutsvc.Request, error) {
	owner, err := ownerFromRequest(r)
	if err != nil {
		return checkoutsvc.Request{}, err
	}

	var payload CheckoutRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		return checkoutsvc.Request{}, err
	}

	return checkoutsvc.Request{
		Owner:           owner,
		CouponCodes:     payload.CouponCodes,
		PromotionIDs:    payload.PromotionIDs,
		ShippingAddress: payload.ShippingAddress,
	}, nil
}

func ownerFromRequest(r *http.Request) (carts.Owner, error) {
	if raw := middleware.UserIDFromContext(r.Context()); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return carts.Owner{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
		}
		return carts.NewUserOwner(userID), nil
	}
	if sessionID := middleware.SessionIDFromContext(r.Context()); sessionID != "" {
		return carts.NewGuestOwner(sessionID), nil
	}
	return carts.Owner{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
}
