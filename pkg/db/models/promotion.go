package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/brightbasket/cart-backend/pkg/enums"
)

// PromotionCondition is one eligibility check stored inside the conditions
// jsonb column. Value is left raw because its shape depends on Type.
type PromotionCondition struct {
	Type     enums.ConditionType     `json:"type"`
	Operator enums.ConditionOperator `json:"operator"`
	Value    json.RawMessage         `json:"value"`
}

// PromotionReward describes what a promotion grants once every condition holds.
type PromotionReward struct {
	Type  enums.RewardType `json:"type"`
	Value json.RawMessage  `json:"value"`
}

// PromotionConditions is the jsonb-serialized condition list.
type PromotionConditions []PromotionCondition

// PromotionRewards is the jsonb-serialized reward list.
type PromotionRewards []PromotionReward

// Promotion is a rule with arbitrary conditions and multiple rewards.
// All conditions must hold (logical AND) for the promotion to apply.
type Promotion struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string              `gorm:"column:name;not null"`
	Type       enums.PromotionType `gorm:"column:type;type:promotion_type;not null"`
	IsActive   bool                `gorm:"column:is_active;not null;default:true"`
	ValidFrom  time.Time           `gorm:"column:valid_from;not null"`
	ValidTo    time.Time           `gorm:"column:valid_to;not null"`
	Conditions PromotionConditions `gorm:"column:conditions;type:jsonb;serializer:json"`
	Rewards    PromotionRewards    `gorm:"column:rewards;type:jsonb;serializer:json"`
	UsageLimit *int                `gorm:"column:usage_limit"`
	UsageCount int                 `gorm:"column:usage_count;not null;default:0"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// PromotionUsage records one application of a promotion.
type PromotionUsage struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PromotionID uuid.UUID  `gorm:"column:promotion_id;type:uuid;not null;index"`
	CartID      *uuid.UUID `gorm:"column:cart_id;type:uuid"`
	UserID      *uuid.UUID `gorm:"column:user_id;type:uuid"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}
