package discounts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightbasket/cart-backend/pkg/db/models"
	"github.com/brightbasket/cart-backend/pkg/pagination"
)

// DiscountRepository encapsulates discount persistence.
type DiscountRepository interface {
	WithTx(tx *gorm.DB) DiscountRepository
	FindByCode(ctx context.Context, code string) (*models.Discount, error)
	ListAutomatic(ctx context.Context, at time.Time) ([]models.Discount, error)
	List(ctx context.Context, params pagination.Params) ([]models.Discount, string, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error)
	RecordUsage(ctx context.Context, usage *models.DiscountUsage) error
}

// Repository is the GORM-backed DiscountRepository.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) DiscountRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByCode loads a discount by its code, case-insensitively.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Discount, error) {
	var discount models.Discount
	err := r.db.WithContext(ctx).
		Where("LOWER(code) = LOWER(?)", strings.TrimSpace(code)).
		First(&discount).Error
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

// ListAutomatic returns active automatic discounts valid at the given time.
func (r *Repository) ListAutomatic(ctx context.Context, at time.Time) ([]models.Discount, error) {
	var rows []models.Discount
	err := r.db.WithContext(ctx).
		Where("is_automatic = ? AND is_active = ?", true, true).
		Where("valid_from <= ?", at).
		Where("valid_to IS NULL OR valid_to >= ?", at).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// List returns a cursor-paginated page of discounts, newest first.
func (r *Repository) List(ctx context.Context, params pagination.Params) ([]models.Discount, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Discount
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

// IncrementUsage bumps usage_count while honoring the usage limit. Returns
// false if the limit was already reached; the guard and increment happen in
// one statement so concurrent redemptions cannot overshoot.
func (r *Repository) IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Discount{}).
		Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", id).
		Update("usage_count", gorm.Expr("usage_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RecordUsage inserts one redemption row.
func (r *Repository) RecordUsage(ctx context.Context, usage *models.DiscountUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}
