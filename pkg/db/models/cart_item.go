package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightbasket/cart-backend/pkg/types"
)

// CartItem is one priced line inside a cart. A line is unique per
// (cart, product, variant); variant-less products store an empty variant id.
type CartItem struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID        uuid.UUID        `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:ux_cart_items_line,priority:1"`
	ProductID     uuid.UUID        `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_cart_items_line,priority:2"`
	VariantID     *string          `gorm:"column:variant_id;uniqueIndex:ux_cart_items_line,priority:3"`
	Quantity      int              `gorm:"column:quantity;not null"`
	UnitPrice     decimal.Decimal  `gorm:"column:unit_price;type:numeric(12,2);not null"`
	OriginalPrice *decimal.Decimal `gorm:"column:original_price;type:numeric(12,2)"`
	Category      *string          `gorm:"column:category"`
	Metadata      types.Metadata   `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// LineSubtotal returns unit price times quantity.
func (i CartItem) LineSubtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
