package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is the local catalog projection backing the ProductCatalogPort.
// The authoritative catalog lives in an external product service; this table
// carries just enough to validate and price cart lines.
type Product struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU       string          `gorm:"column:sku;not null;uniqueIndex"`
	Title     string          `gorm:"column:title;not null"`
	Category  *string         `gorm:"column:category"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	IsTaxable bool            `gorm:"column:is_taxable;not null;default:true"`
	Variants  pq.StringArray  `gorm:"column:variants;type:text[]"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
