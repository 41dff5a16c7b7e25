package promotions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightbasket/cart-backend/pkg/db/models"
)

// PromotionRepository is the storage surface the resolver needs.
type PromotionRepository interface {
	WithTx(tx *gorm.DB) PromotionRepository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	ListActive(ctx context.Context, at time.Time) ([]models.Promotion, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error)
	RecordUsage(ctx context.Context, usage *models.PromotionUsage) error
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) PromotionRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	var promotion models.Promotion
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&promotion).Error; err != nil {
		return nil, err
	}
	return &promotion, nil
}

func (r *Repository) ListActive(ctx context.Context, at time.Time) ([]models.Promotion, error) {
	var promotions []models.Promotion
	if err := r.db.WithContext(ctx).
		Where("is_active = TRUE").
		Where("valid_from <= ? AND valid_to >= ?", at, at).
		Order("created_at ASC").
		Find(&promotions).Error; err != nil {
		return nil, err
	}
	return promotions, nil
}

// IncrementUsage bumps usage_count only while under the limit. The guard runs
// inside the UPDATE so concurrent applications cannot overshoot.
func (r *Repository) IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Promotion{}).
		Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", id).
		Update("usage_count", gorm.Expr("usage_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) RecordUsage(ctx context.Context, usage *models.PromotionUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}
