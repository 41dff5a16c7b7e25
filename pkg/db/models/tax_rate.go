package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	dbtypes "github.com/brightbasket/cart-backend/pkg/db/types"
	"github.com/brightbasket/cart-backend/pkg/enums"
)

// TaxRate is a geographically-scoped rate. Optional location fields act as
// wildcards: a NULL state matches every state in the country, and so on.
// Multiple rows may match one address; each contributes independently.
type TaxRate struct {
	ID                   uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                 string            `gorm:"column:name;not null"`
	Country              string            `gorm:"column:country;not null;index"`
	State                *string           `gorm:"column:state"`
	City                 *string           `gorm:"column:city"`
	PostalCode           *string           `gorm:"column:postal_code"`
	Type                 enums.TaxType     `gorm:"column:type;type:tax_type;not null"`
	Rate                 decimal.Decimal   `gorm:"column:rate;type:numeric(6,3);not null"`
	IsInclusive          bool              `gorm:"column:is_inclusive;not null;default:false"`
	ApplicableProducts   dbtypes.UUIDArray `gorm:"column:applicable_products;type:uuid[]"`
	ApplicableCategories pq.StringArray    `gorm:"column:applicable_categories;type:text[]"`
	IsActive             bool              `gorm:"column:is_active;not null;default:true"`
	ValidFrom            time.Time         `gorm:"column:valid_from;not null"`
	ValidTo              *time.Time        `gorm:"column:valid_to"`
	CreatedAt            time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// Specificity counts how many optional location fields are pinned. Used only
// to order retrieval; it never excludes broader matches.
func (t TaxRate) Specificity() int {
	score := 0
	if t.State != nil {
		score++
	}
	if t.City != nil {
		score++
	}
	if t.PostalCode != nil {
		score++
	}
	return score
}
