package discounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brightbasket/cart-backend/pkg/db/models"
	"github.com/brightbasket/cart-backend/pkg/enums"
	pkgerrors "github.com/brightbasket/cart-backend/pkg/errors"
)

// Outcome tags a resolution result so callers never branch on nil.
type Outcome string

const (
	OutcomeEligible   Outcome = "eligible"
	OutcomeIneligible Outcome = "ineligible"
	OutcomeNotFound   Outcome = "not_found"
)

// Reason explains an ineligible outcome in stable, machine-readable terms.
type Reason string

const (
	ReasonInactive        Reason = "inactive"
	ReasonNotStarted      Reason = "not_started"
	ReasonExpired         Reason = "expired"
	ReasonUsageExhausted  Reason = "usage_exhausted"
	ReasonMinimumOrder    Reason = "minimum_order_not_met"
	ReasonMinimumQuantity Reason = "minimum_quantity_not_met"
	ReasonNoApplicable    Reason = "no_applicable_items"
	ReasonUserNotEligible Reason = "user_not_eligible"
	ReasonNotStackable    Reason = "not_stackable"
)

// Line is one cart line as the resolver sees it.
type Line struct {
	ProductID uuid.UUID
	Category  *string
	Quantity  int
	Amount    decimal.Decimal
}

// Snapshot is the cart state a discount is validated against.
type Snapshot struct {
	CartID   uuid.UUID
	UserID   *uuid.UUID
	Subtotal decimal.Decimal
	Lines    []Line
}

// Application is the monetary effect of an eligible discount.
type Application struct {
	Amount       decimal.Decimal
	FreeShipping bool
}

// Resolution is the tagged result of validating a code.
type Resolution struct {
	Outcome     Outcome
	Reason      Reason
	Discount    *models.Discount
	Application *Application
}

// Eligible reports whether the discount may be applied.
func (r Resolution) Eligible() bool {
	return r.Outcome == OutcomeEligible
}

// Resolver validates and applies discount codes.
type Resolver interface {
	Resolve(ctx context.Context, code string, snapshot Snapshot) (Resolution, error)
	ResolveAutomatic(ctx context.Context, snapshot Snapshot) ([]Resolution, error)
	Redeem(ctx context.Context, tx *gorm.DB, discount *models.Discount, snapshot Snapshot, amount decimal.Decimal) error
}

type resolver struct {
	repo DiscountRepository
	now  func() time.Time
}

// NewResolver builds a discount resolver.
func NewResolver(repo DiscountRepository) (Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("discount repository required")
	}
	return &resolver{repo: repo, now: time.Now}, nil
}

// Resolve looks the code up and evaluates every eligibility rule against the
// snapshot. A missing code yields OutcomeNotFound rather than an error so the
// composer can report it alongside other rejections.
func (r *resolver) Resolve(ctx context.Context, code string, snapshot Snapshot) (Resolution, error) {
	if strings.TrimSpace(code) == "" {
		return Resolution{}, pkgerrors.New(pkgerrors.CodeValidation, "discount code is required")
	}

	discount, err := r.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Resolution{Outcome: OutcomeNotFound}, nil
		}
		return Resolution{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount")
	}

	return r.evaluate(discount, snapshot), nil
}

// ResolveAutomatic evaluates every active automatic discount against the
// snapshot and returns one tagged resolution per rule.
func (r *resolver) ResolveAutomatic(ctx context.Context, snapshot Snapshot) ([]Resolution, error) {
	rules, err := r.repo.ListAutomatic(ctx, r.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load automatic discounts")
	}

	out := make([]Resolution, 0, len(rules))
	for i := range rules {
		out = append(out, r.evaluate(&rules[i], snapshot))
	}
	return out, nil
}

// Redeem atomically bumps the usage counter and records the usage row. It
// must run inside the caller's transaction so cart totals and the counter
// move together.
func (r *resolver) Redeem(ctx context.Context, tx *gorm.DB, discount *models.Discount, snapshot Snapshot, amount decimal.Decimal) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := r.repo.WithTx(tx)

	ok, err := repo.IncrementUsage(ctx, discount.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment discount usage")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "discount usage limit reached")
	}

	usage := &models.DiscountUsage{
		DiscountID: discount.ID,
		Amount:     amount,
	}
	if snapshot.CartID != uuid.Nil {
		cartID := snapshot.CartID
		usage.CartID = &cartID
	}
	if snapshot.UserID != nil {
		userID := *snapshot.UserID
		usage.UserID = &userID
	}
	if err := repo.RecordUsage(ctx, usage); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record discount usage")
	}
	return nil
}

func (r *resolver) evaluate(discount *models.Discount, snapshot Snapshot) Resolution {
	now := r.now()

	if !discount.IsActive {
		return ineligible(discount, ReasonInactive)
	}
	if now.Before(discount.ValidFrom) {
		return ineligible(discount, ReasonNotStarted)
	}
	if discount.ValidTo != nil && now.After(*discount.ValidTo) {
		return ineligible(discount, ReasonExpired)
	}
	if discount.UsageLimit != nil && discount.UsageCount >= *discount.UsageLimit {
		return ineligible(discount, ReasonUsageExhausted)
	}
	if discount.MinimumOrderAmount != nil && snapshot.Subtotal.LessThan(*discount.MinimumOrderAmount) {
		return ineligible(discount, ReasonMinimumOrder)
	}
	if len(discount.ApplicableUsers) > 0 {
		if snapshot.UserID == nil || !containsUUID(discount.ApplicableUsers, *snapshot.UserID) {
			return ineligible(discount, ReasonUserNotEligible)
		}
	}

	applicable := applicableLines(discount, snapshot.Lines)
	if len(applicable) == 0 {
		return ineligible(discount, ReasonNoApplicable)
	}

	if discount.MinimumQuantity != nil {
		total := 0
		for _, line := range applicable {
			total += line.Quantity
		}
		if total < *discount.MinimumQuantity {
			return ineligible(discount, ReasonMinimumQuantity)
		}
	}

	application := apply(discount, snapshot, applicable)
	return Resolution{
		Outcome:     OutcomeEligible,
		Discount:    discount,
		Application: &application,
	}
}

// apply computes the discount's monetary effect against the applicable base.
func apply(discount *models.Discount, snapshot Snapshot, applicable []Line) Application {
	base := decimal.Zero
	for _, line := range applicable {
		base = base.Add(line.Amount)
	}

	switch discount.Type {
	case enums.DiscountPercentage, enums.DiscountBulk:
		amount := base.Mul(discount.Value).Div(decimal.NewFromInt(100)).Round(2)
		amount = capAmount(discount, amount)
		return Application{Amount: amount}
	case enums.DiscountFixedAmount:
		amount := discount.Value
		if amount.GreaterThan(base) {
			amount = base
		}
		return Application{Amount: capAmount(discount, amount)}
	case enums.DiscountFreeShipping:
		return Application{Amount: decimal.Zero, FreeShipping: true}
	default:
		// buy_x_get_y and future types resolve to zero until priced rules land.
		return Application{Amount: decimal.Zero}
	}
}

func capAmount(discount *models.Discount, amount decimal.Decimal) decimal.Decimal {
	if discount.MaximumDiscountAmount != nil && amount.GreaterThan(*discount.MaximumDiscountAmount) {
		return *discount.MaximumDiscountAmount
	}
	return amount
}

// applicableLines narrows the cart to lines the discount covers. Empty
// allow-lists cover the whole cart.
func applicableLines(discount *models.Discount, lines []Line) []Line {
	if len(discount.ApplicableProducts) == 0 && len(discount.ApplicableCategories) == 0 {
		return lines
	}
	var out []Line
	for _, line := range lines {
		if len(discount.ApplicableProducts) > 0 && containsUUID(discount.ApplicableProducts, line.ProductID) {
			out = append(out, line)
			continue
		}
		if len(discount.ApplicableCategories) > 0 && line.Category != nil && containsString(discount.ApplicableCategories, *line.Category) {
			out = append(out, line)
		}
	}
	return out
}

func ineligible(discount *models.Discount, reason Reason) Resolution {
	return Resolution{
		Outcome:  OutcomeIneligible,
		Reason:   reason,
		Discount: discount,
	}
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func containsUUID(values []uuid.UUID, target uuid.UUID) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
