package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightbasket/cart-backend/pkg/enums"
)

// CartMergedEvent is emitted when a guest cart has been folded into a user cart.
type CartMergedEvent struct {
	GuestCartID     uuid.UUID                `json:"guest_cart_id"`
	UserCartID      uuid.UUID                `json:"user_cart_id"`
	UserID          uuid.UUID                `json:"user_id"`
	Strategy        enums.ConflictResolution `json:"strategy"`
	ItemCount       int                      `json:"item_count"`
	ConflictCount   int                      `json:"conflict_count"`
	MergedAt        time.Time                `json:"merged_at"`
	PreservedFields []string                 `json:"preserved_fields,omitempty"`
}

// CartExpiredEvent describes a guest cart that aged past its retention window.
type CartExpiredEvent struct {
	CartID    uuid.UUID           `json:"cart_id"`
	OwnerKind enums.CartOwnerKind `json:"owner_kind"`
	SessionID *string             `json:"session_id,omitempty"`
	ExpiredAt time.Time           `json:"expired_at"`
}

// CheckoutPricedEvent carries the final composed totals for a checkout.
type CheckoutPricedEvent struct {
	CheckoutID    uuid.UUID       `json:"checkout_id"`
	CartID        uuid.UUID       `json:"cart_id"`
	UserID        *uuid.UUID      `json:"user_id,omitempty"`
	Currency      string          `json:"currency"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	TaxTotal      decimal.Decimal `json:"tax_total"`
	ShippingCost  decimal.Decimal `json:"shipping_cost"`
	Total         decimal.Decimal `json:"total"`
}

// DiscountAppliedEvent records a successful coupon redemption against a cart.
type DiscountAppliedEvent struct {
	DiscountID uuid.UUID          `json:"discount_id"`
	Code       string             `json:"code"`
	CartID     uuid.UUID          `json:"cart_id"`
	Type       enums.DiscountType `json:"type"`
	Amount     decimal.Decimal    `json:"amount"`
	UsageCount int                `json:"usage_count"`
}
