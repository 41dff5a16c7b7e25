package promotions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brightbasket/cart-backend/pkg/db/models"
	"github.com/brightbasket/cart-backend/pkg/enums"
	pkgerrors "github.com/brightbasket/cart-backend/pkg/errors"
)

// Resolver evaluates promotion eligibility and applies rewards.
type Resolver interface {
	IsApplicable(ctx context.Context, promotion *models.Promotion, req Request) (bool, error)
	Apply(ctx context.Context, tx *gorm.DB, promotion *models.Promotion, req Request) ([]models.PromotionReward, error)
}

type resolver struct {
	repo       PromotionRepository
	evaluators map[enums.ConditionType]ConditionEvaluator
	now        func() time.Time
}

// NewResolver builds a promotion resolver with the default condition
// evaluators. Extra evaluators override or extend the defaults.
func NewResolver(repo PromotionRepository, extra map[enums.ConditionType]ConditionEvaluator) (Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("promotion repository required")
	}
	evaluators := defaultEvaluators()
	for t, e := range extra {
		evaluators[t] = e
	}
	return &resolver{repo: repo, evaluators: evaluators, now: time.Now}, nil
}

// IsApplicable checks the active flag, validity window, usage limit, and
// every condition with AND semantics. A condition type with no registered
// evaluator fails closed.
func (r *resolver) IsApplicable(ctx context.Context, promotion *models.Promotion, req Request) (bool, error) {
	now := r.now()

	if !promotion.IsActive {
		return false, nil
	}
	if now.Before(promotion.ValidFrom) || now.After(promotion.ValidTo) {
		return false, nil
	}
	if promotion.UsageLimit != nil && promotion.UsageCount >= *promotion.UsageLimit {
		return false, nil
	}

	for _, condition := range promotion.Conditions {
		evaluator, ok := r.evaluators[condition.Type]
		if !ok {
			return false, nil
		}
		holds, err := evaluator.Evaluate(condition, req, now)
		if err != nil {
			return false, err
		}
		if !holds {
			return false, nil
		}
	}
	return true, nil
}

// Apply re-checks applicability inside the caller's transaction, bumps the
// usage counter atomically, records the usage row, and returns the reward
// list. The re-check closes the race between an earlier IsApplicable call
// and the write.
func (r *resolver) Apply(ctx context.Context, tx *gorm.DB, promotion *models.Promotion, req Request) ([]models.PromotionReward, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}

	ok, err := r.IsApplicable(ctx, promotion, req)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "promotion is no longer applicable")
	}

	repo := r.repo.WithTx(tx)
	incremented, err := repo.IncrementUsage(ctx, promotion.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment promotion usage")
	}
	if !incremented {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "promotion usage limit reached")
	}

	usage := &models.PromotionUsage{PromotionID: promotion.ID}
	if req.CartID != uuid.Nil {
		cartID := req.CartID
		usage.CartID = &cartID
	}
	if req.UserID != nil {
		userID := *req.UserID
		usage.UserID = &userID
	}
	if err := repo.RecordUsage(ctx, usage); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record promotion usage")
	}

	return promotion.Rewards, nil
}

// DiscountRewardValue is the decoded payload of a discount-typed reward.
// Exactly one of Percentage or Amount is set.
type DiscountRewardValue struct {
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
}

// DecodeDiscountReward parses a discount-typed reward's value.
func DecodeDiscountReward(reward models.PromotionReward) (DiscountRewardValue, error) {
	if reward.Type != enums.RewardDiscount {
		return DiscountRewardValue{}, pkgerrors.New(pkgerrors.CodeValidation, "reward is not discount-typed")
	}
	var value DiscountRewardValue
	if err := json.Unmarshal(reward.Value, &value); err != nil {
		return DiscountRewardValue{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "discount reward value")
	}
	if value.Percentage == nil && value.Amount == nil {
		return DiscountRewardValue{}, pkgerrors.New(pkgerrors.CodeValidation, "discount reward carries neither percentage nor amount")
	}
	return value, nil
}
