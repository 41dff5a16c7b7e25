package enums

import "fmt"

// PromotionType classifies a promotion campaign.
type PromotionType string

const (
	PromotionCoupon    PromotionType = "coupon"
	PromotionSeasonal  PromotionType = "seasonal"
	PromotionLoyalty   PromotionType = "loyalty"
	PromotionBulk      PromotionType = "bulk"
	PromotionFirstTime PromotionType = "first_time"
	PromotionBirthday  PromotionType = "birthday"
	PromotionReferral  PromotionType = "referral"
)

var validPromotionTypes = []PromotionType{
	PromotionCoupon,
	PromotionSeasonal,
	PromotionLoyalty,
	PromotionBulk,
	PromotionFirstTime,
	PromotionBirthday,
	PromotionReferral,
}

// String implements fmt.Stringer.
func (p PromotionType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PromotionType.
func (p PromotionType) IsValid() bool {
	for _, candidate := range validPromotionTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePromotionType converts raw input into a PromotionType.
func ParsePromotionType(value string) (PromotionType, error) {
	for _, candidate := range validPromotionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promotion type %q", value)
}

// ConditionType names a promotion eligibility check.
type ConditionType string

const (
	ConditionMinimumOrderAmount ConditionType = "minimum_order_amount"
	ConditionMinimumQuantity    ConditionType = "minimum_quantity"
	ConditionSpecificProducts   ConditionType = "specific_products"
	ConditionSpecificCategories ConditionType = "specific_categories"
	ConditionUserType           ConditionType = "user_type"
	ConditionTimeBased          ConditionType = "time_based"
)

var validConditionTypes = []ConditionType{
	ConditionMinimumOrderAmount,
	ConditionMinimumQuantity,
	ConditionSpecificProducts,
	ConditionSpecificCategories,
	ConditionUserType,
	ConditionTimeBased,
}

// IsValid reports whether the value is a known ConditionType.
func (c ConditionType) IsValid() bool {
	for _, candidate := range validConditionTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ConditionOperator is the comparison verb inside a promotion condition.
type ConditionOperator string

const (
	OperatorEquals             ConditionOperator = "equals"
	OperatorGreaterThan        ConditionOperator = "greater_than"
	OperatorLessThan           ConditionOperator = "less_than"
	OperatorGreaterThanOrEqual ConditionOperator = "greater_than_or_equal"
	OperatorLessThanOrEqual    ConditionOperator = "less_than_or_equal"
	OperatorContains           ConditionOperator = "contains"
	OperatorIn                 ConditionOperator = "in"
)

var validConditionOperators = []ConditionOperator{
	OperatorEquals,
	OperatorGreaterThan,
	OperatorLessThan,
	OperatorGreaterThanOrEqual,
	OperatorLessThanOrEqual,
	OperatorContains,
	OperatorIn,
}

// IsValid reports whether the value is a known ConditionOperator.
func (o ConditionOperator) IsValid() bool {
	for _, candidate := range validConditionOperators {
		if candidate == o {
			return true
		}
	}
	return false
}

// RewardType classifies what a promotion grants once it applies.
type RewardType string

const (
	RewardDiscount     RewardType = "discount"
	RewardFreeShipping RewardType = "free_shipping"
	RewardFreeProduct  RewardType = "free_product"
	RewardPoints       RewardType = "points"
)

var validRewardTypes = []RewardType{
	RewardDiscount,
	RewardFreeShipping,
	RewardFreeProduct,
	RewardPoints,
}

// IsValid reports whether the value is a known RewardType.
func (r RewardType) IsValid() bool {
	for _, candidate := range validRewardTypes {
		if candidate == r {
			return true
		}
	}
	return false
}
