package cartdto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightbasket/cart-backend/pkg/db/models"
	"github.com/brightbasket/cart-backend/pkg/types"
)

// ItemPayload is one requested cart line. Prices are never accepted from
// clients; the catalog is the only price source.
type ItemPayload struct {
	ProductID uuid.UUID      `json:"productId" validate:"required"`
	VariantID *string        `json:"variantId,omitempty"`
	Quantity  int            `json:"quantity" validate:"required,min=1"`
	Metadata  types.Metadata `json:"metadata,omitempty"`
}

// ReplaceCartRequest carries the full desired cart state.
type ReplaceCartRequest struct {
	Items           []ItemPayload  `json:"items" validate:"dive"`
	ShippingAddress *types.Address `json:"shippingAddress,omitempty"`
	Metadata        types.Metadata `json:"metadata,omitempty"`
	Currency        string         `json:"currency,omitempty"`
}

// CartItemView is the wire shape of one cart line.
type CartItemView struct {
	ProductID     uuid.UUID        `json:"productId"`
	VariantID     *string          `json:"variantId,omitempty"`
	Quantity      int              `json:"quantity"`
	UnitPrice     decimal.Decimal  `json:"unitPrice"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Category      *string          `json:"category,omitempty"`
	Metadata      types.Metadata   `json:"metadata,omitempty"`
	LineSubtotal  decimal.Decimal  `json:"lineSubtotal"`
}

// CartView is the wire shape of a cart.
type CartView struct {
	ID              uuid.UUID       `json:"id"`
	OwnerKind       string          `json:"ownerKind"`
	Status          string          `json:"status"`
	Currency        string          `json:"currency"`
	ShippingAddress *types.Address  `json:"shippingAddress,omitempty"`
	Items           []CartItemView  `json:"items"`
	SubtotalAmount  decimal.Decimal `json:"subtotalAmount"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	TaxAmount       decimal.Decimal `json:"taxAmount"`
	ShippingAmount  decimal.Decimal `json:"shippingAmount"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	Metadata        types.Metadata  `json:"metadata,omitempty"`
	ValidUntil      *time.Time      `json:"validUntil,omitempty"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// NewCartView maps a cart row onto its wire shape.
func NewCartView(cart *models.Cart) CartView {
	view := CartView{
		ID:              cart.ID,
		OwnerKind:       string(cart.OwnerKind),
		Status:          string(cart.Status),
		Currency:        string(cart.Currency),
		ShippingAddress: cart.ShippingAddress,
		Items:           make([]CartItemView, 0, len(cart.Items)),
		SubtotalAmount:  cart.SubtotalAmount,
		DiscountAmount:  cart.DiscountAmount,
		TaxAmount:       cart.TaxAmount,
		ShippingAmount:  cart.ShippingAmount,
		TotalAmount:     cart.TotalAmount,
		Metadata:        cart.Metadata,
		ValidUntil:      cart.ValidUntil,
		UpdatedAt:       cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		view.Items = append(view.Items, CartItemView{
			ProductID:     item.ProductID,
			VariantID:     item.VariantID,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			OriginalPrice: item.OriginalPrice,
			Category:      item.Category,
			Metadata:      item.Metadata,
			LineSubtotal:  item.LineSubtotal(),
		})
	}
	return view
}
