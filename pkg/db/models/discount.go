package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	dbtypes "github.com/brightbasket/cart-backend/pkg/db/types"
	"github.com/brightbasket/cart-backend/pkg/enums"
)

// Discount is a named adjustment rule redeemable by code, or applied
// automatically when IsAutomatic is set (bulk and seasonal rules).
type Discount struct {
	ID                    uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code                  string             `gorm:"column:code;not null;uniqueIndex:ux_discounts_code"`
	Type                  enums.DiscountType `gorm:"column:type;type:discount_type;not null"`
	Value                 decimal.Decimal    `gorm:"column:value;type:numeric(12,2);not null"`
	MinimumOrderAmount    *decimal.Decimal   `gorm:"column:minimum_order_amount;type:numeric(12,2)"`
	MaximumDiscountAmount *decimal.Decimal   `gorm:"column:maximum_discount_amount;type:numeric(12,2)"`
	MinimumQuantity       *int               `gorm:"column:minimum_quantity"`
	IsActive              bool               `gorm:"column:is_active;not null;default:true"`
	IsStackable           bool               `gorm:"column:is_stackable;not null;default:true"`
	IsAutomatic           bool               `gorm:"column:is_automatic;not null;default:false"`
	ValidFrom             time.Time          `gorm:"column:valid_from;not null"`
	ValidTo               *time.Time         `gorm:"column:valid_to"`
	UsageLimit            *int               `gorm:"column:usage_limit"`
	UsageCount            int                `gorm:"column:usage_count;not null;default:0"`
	ApplicableProducts    dbtypes.UUIDArray  `gorm:"column:applicable_products;type:uuid[]"`
	ApplicableCategories  pq.StringArray     `gorm:"column:applicable_categories;type:text[]"`
	ApplicableUsers       dbtypes.UUIDArray  `gorm:"column:applicable_users;type:uuid[]"`
	CreatedAt             time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// DiscountUsage records one redemption of a discount.
type DiscountUsage struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DiscountID uuid.UUID       `gorm:"column:discount_id;type:uuid;not null;index"`
	CartID     *uuid.UUID      `gorm:"column:cart_id;type:uuid"`
	UserID     *uuid.UUID      `gorm:"column:user_id;type:uuid"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
