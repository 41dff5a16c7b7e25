package taxes

import (
	"context"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/brightbasket/cart-backend/pkg/db/models"
	"github.com/brightbasket/cart-backend/pkg/types"
)

// RateFinder loads every tax rate matching a shipping address.
type RateFinder interface {
	FindForAddress(ctx context.Context, address types.Address, at time.Time) ([]models.TaxRate, error)
}

// Repository is the GORM-backed RateFinder.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindForAddress returns all active rates whose location matches the address.
// NULL location columns are wildcards, so a country-wide rate matches every
// address in that country alongside any narrower rates. Results are ordered
// most-specific first; ordering never excludes broader matches.
func (r *Repository) FindForAddress(ctx context.Context, address types.Address, at time.Time) ([]models.TaxRate, error) {
	addr := address.Normalized()

	var rows []models.TaxRate
	err := r.db.WithContext(ctx).
		Where("country = ?", addr.Country).
		Where("state IS NULL OR state = ?", addr.State).
		Where("city IS NULL OR LOWER(city) = LOWER(?)", addr.City).
		Where("postal_code IS NULL OR postal_code = ?", addr.PostalCode).
		Where("is_active = ?", true).
		Where("valid_from <= ?", at).
		Where("valid_to IS NULL OR valid_to >= ?", at).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Specificity() > rows[j].Specificity()
	})
	return rows, nil
}

// MatchesAddress reports whether the rate applies at the address using the
// same wildcard rules as FindForAddress. Used by in-memory tests and callers
// holding pre-fetched rates.
func MatchesAddress(rate models.TaxRate, address types.Address) bool {
	addr := address.Normalized()
	if !strings.EqualFold(rate.Country, addr.Country) {
		return false
	}
	if rate.State != nil && !strings.EqualFold(*rate.State, addr.State) {
		return false
	}
	if rate.City != nil && !strings.EqualFold(*rate.City, addr.City) {
		return false
	}
	if rate.PostalCode != nil && *rate.PostalCode != addr.PostalCode {
		return false
	}
	return true
}
