package promotions

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/brightbasket/cart-backend/pkg/db/models"
	"github.com/brightbasket/cart-backend/pkg/enums"
	pkgerrors "github.com/brightbasket/cart-backend/pkg/errors"
)

// Line is one cart line as condition evaluators see it.
type Line struct {
	ProductID uuid.UUID
	Category  *string
	Quantity  int
	Amount    decimal.Decimal
}

// Request is the cart state a promotion is evaluated against.
type Request struct {
	CartID   uuid.UUID
	UserID   *uuid.UUID
	Subtotal decimal.Decimal
	Lines    []Line
}

// ConditionEvaluator decides whether one condition holds for a request.
// Evaluators are registered per condition type so new rule shapes can be
// added without touching the resolver.
type ConditionEvaluator interface {
	Evaluate(condition models.PromotionCondition, req Request, now time.Time) (bool, error)
}

// EvaluatorFunc adapts a function to ConditionEvaluator.
type EvaluatorFunc func(condition models.PromotionCondition, req Request, now time.Time) (bool, error)

func (f EvaluatorFunc) Evaluate(condition models.PromotionCondition, req Request, now time.Time) (bool, error) {
	return f(condition, req, now)
}

func defaultEvaluators() map[enums.ConditionType]ConditionEvaluator {
	return map[enums.ConditionType]ConditionEvaluator{
		enums.ConditionMinimumOrderAmount: EvaluatorFunc(evaluateMinimumOrderAmount),
		enums.ConditionMinimumQuantity:    EvaluatorFunc(evaluateMinimumQuantity),
		enums.ConditionSpecificProducts:   EvaluatorFunc(evaluateSpecificProducts),
		enums.ConditionSpecificCategories: EvaluatorFunc(evaluateSpecificCategories),
		enums.ConditionUserType:           EvaluatorFunc(evaluateUserType),
		enums.ConditionTimeBased:          EvaluatorFunc(evaluateTimeBased),
	}
}

func evaluateMinimumOrderAmount(condition models.PromotionCondition, req Request, _ time.Time) (bool, error) {
	threshold, err := decodeDecimal(condition.Value)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "minimum_order_amount condition value")
	}
	return compareDecimal(req.Subtotal, threshold, condition.Operator)
}

func evaluateMinimumQuantity(condition models.PromotionCondition, req Request, _ time.Time) (bool, error) {
	threshold, err := decodeDecimal(condition.Value)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "minimum_quantity condition value")
	}
	total := 0
	for _, line := range req.Lines {
		total += line.Quantity
	}
	return compareDecimal(decimal.NewFromInt(int64(total)), threshold, condition.Operator)
}

// evaluateSpecificProducts is a membership test: with the contains operator
// the condition holds when any line's product is in the set, and any other
// operator negates the test.
func evaluateSpecificProducts(condition models.PromotionCondition, req Request, _ time.Time) (bool, error) {
	set, err := decodeStringSet(condition.Value)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "specific_products condition value")
	}
	found := false
	for _, line := range req.Lines {
		if _, ok := set[line.ProductID.String()]; ok {
			found = true
			break
		}
	}
	if condition.Operator == enums.OperatorContains {
		return found, nil
	}
	return !found, nil
}

func evaluateSpecificCategories(condition models.PromotionCondition, req Request, _ time.Time) (bool, error) {
	set, err := decodeStringSet(condition.Value)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "specific_categories condition value")
	}
	found := false
	for _, line := range req.Lines {
		if line.Category == nil {
			continue
		}
		if _, ok := set[*line.Category]; ok {
			found = true
			break
		}
	}
	if condition.Operator == enums.OperatorContains {
		return found, nil
	}
	return !found, nil
}

// evaluateUserType only understands equals against "registered". A guest
// request always fails it.
func evaluateUserType(condition models.PromotionCondition, req Request, _ time.Time) (bool, error) {
	var want string
	if err := json.Unmarshal(condition.Value, &want); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "user_type condition value")
	}
	if condition.Operator != enums.OperatorEquals {
		return false, nil
	}
	if req.UserID == nil {
		return false, nil
	}
	return want == "registered", nil
}

type timeWindow struct {
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
}

// evaluateTimeBased holds when now falls inside the configured window. A
// condition without both bounds is vacuously true.
func evaluateTimeBased(condition models.PromotionCondition, _ Request, now time.Time) (bool, error) {
	if len(condition.Value) == 0 {
		return true, nil
	}
	var window timeWindow
	if err := json.Unmarshal(condition.Value, &window); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "time_based condition value")
	}
	if window.StartTime == nil || window.EndTime == nil {
		return true, nil
	}
	return !now.Before(*window.StartTime) && !now.After(*window.EndTime), nil
}

func compareDecimal(actual, threshold decimal.Decimal, op enums.ConditionOperator) (bool, error) {
	switch op {
	case enums.OperatorEquals:
		return actual.Equal(threshold), nil
	case enums.OperatorGreaterThan:
		return actual.GreaterThan(threshold), nil
	case enums.OperatorLessThan:
		return actual.LessThan(threshold), nil
	case enums.OperatorGreaterThanOrEqual:
		return actual.GreaterThanOrEqual(threshold), nil
	case enums.OperatorLessThanOrEqual:
		return actual.LessThanOrEqual(threshold), nil
	default:
		return false, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("operator %q is not valid for numeric conditions", op))
	}
}

func decodeDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	var value decimal.Decimal
	if err := json.Unmarshal(raw, &value); err != nil {
		return decimal.Zero, err
	}
	return value, nil
}

func decodeStringSet(raw json.RawMessage) (map[string]struct{}, error) {
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set, nil
}
