package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightbasket/cart-backend/pkg/enums"
	"github.com/brightbasket/cart-backend/pkg/types"
)

// Cart is a session- or user-scoped cart. Guest carts carry a session id and
// no user id; user carts carry a user id.
type Cart struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerKind       enums.CartOwnerKind `gorm:"column:owner_kind;type:cart_owner_kind;not null"`
	UserID          *uuid.UUID          `gorm:"column:user_id;type:uuid"`
	SessionID       *string             `gorm:"column:session_id"`
	Status          enums.CartStatus    `gorm:"column:status;type:cart_status;not null;default:'active'"`
	Currency        enums.Currency      `gorm:"column:currency;not null;default:'USD'"`
	ShippingAddress *types.Address      `gorm:"column:shipping_address;type:address_t"`
	SubtotalAmount  decimal.Decimal     `gorm:"column:subtotal_amount;type:numeric(12,2);not null;default:0"`
	DiscountAmount  decimal.Decimal     `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	TaxAmount       decimal.Decimal     `gorm:"column:tax_amount;type:numeric(12,2);not null;default:0"`
	ShippingAmount  decimal.Decimal     `gorm:"column:shipping_amount;type:numeric(12,2);not null;default:0"`
	TotalAmount     decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null;default:0"`
	Metadata        types.Metadata      `gorm:"column:metadata;type:jsonb;serializer:json"`
	ValidUntil      *time.Time          `gorm:"column:valid_until"`
	MergedAt        *time.Time          `gorm:"column:merged_at"`
	Items           []CartItem          `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsGuest reports whether the cart belongs to an anonymous session.
func (c *Cart) IsGuest() bool {
	return c.OwnerKind == enums.CartOwnerGuest && c.UserID == nil
}
