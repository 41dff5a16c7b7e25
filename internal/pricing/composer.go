package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brightbasket/cart-backend/internal/discounts"
	"github.com/brightbasket/cart-backend/internal/promotions"
	"github.com/brightbasket/cart-backend/internal/taxes"
	"github.com/brightbasket/cart-backend/pkg/config"
	"github.com/brightbasket/cart-backend/pkg/db/models"
	"github.com/brightbasket/cart-backend/pkg/enums"
	pkgerrors "github.com/brightbasket/cart-backend/pkg/errors"
	"github.com/brightbasket/cart-backend/pkg/metrics"
	"github.com/brightbasket/cart-backend/pkg/types"
)

var oneHundred = decimal.NewFromInt(100)

// Line is one cart line handed to the composer.
type Line struct {
	ProductID uuid.UUID
	VariantID *string
	Category  *string
	Quantity  int
	UnitPrice decimal.Decimal
	IsTaxable bool
}

// Request carries everything one quote needs.
type Request struct {
	CartID          uuid.UUID
	UserID          *uuid.UUID
	Lines           []Line
	ShippingAddress *types.Address
	CouponCodes     []string
	PromotionIDs    []uuid.UUID
}

// Application is one discount's contribution to the breakdown.
type Application struct {
	DiscountID   *uuid.UUID
	PromotionID  *uuid.UUID
	Source       string
	Code         string
	Amount       decimal.Decimal
	IsStackable  bool
	FreeShipping bool

	// Discount and Promotion keep the resolved rows around so checkout can
	// redeem them in its own transaction without a second lookup.
	Discount  *models.Discount  `json:"-"`
	Promotion *models.Promotion `json:"-"`
}

const (
	SourceCoupon    = "coupon"
	SourcePromotion = "promotion"
	SourceAutomatic = "automatic"
)

// Rejection reports a coupon or promotion that did not apply. Rejections are
// ordinary results, not errors, so callers can surface them per code.
type Rejection struct {
	Code   string
	Reason string
}

// Breakdown is the priced view of a cart.
type Breakdown struct {
	Currency      string
	Subtotal      decimal.Decimal
	Discounts     []Application
	Rejections    []Rejection
	DiscountTotal decimal.Decimal
	AfterDiscount decimal.Decimal
	Taxes         []taxes.AppliedRate
	TaxTotal      decimal.Decimal
	Shipping      decimal.Decimal
	FreeShipping  bool
	Total         decimal.Decimal
}

// Composer turns a cart snapshot into a full price breakdown.
type Composer interface {
	Quote(ctx context.Context, req Request) (*Breakdown, error)
}

type composer struct {
	discounts discounts.Resolver
	promos    promotions.Resolver
	promoRepo promotions.PromotionRepository
	rates     taxes.RateFinder
	cfg       config.PricingConfig
	metrics   *metrics.PricingMetrics
	now       func() time.Time
}

// NewComposer wires the three resolvers behind one quote entry point.
func NewComposer(
	discountResolver discounts.Resolver,
	promotionResolver promotions.Resolver,
	promotionRepo promotions.PromotionRepository,
	rates taxes.RateFinder,
	cfg config.PricingConfig,
	pricingMetrics *metrics.PricingMetrics,
) (Composer, error) {
	if discountResolver == nil {
		return nil, fmt.Errorf("discount resolver required")
	}
	if promotionResolver == nil {
		return nil, fmt.Errorf("promotion resolver required")
	}
	if promotionRepo == nil {
		return nil, fmt.Errorf("promotion repository required")
	}
	if rates == nil {
		return nil, fmt.Errorf("tax rate finder required")
	}
	return &composer{
		discounts: discountResolver,
		promos:    promotionResolver,
		promoRepo: promotionRepo,
		rates:     rates,
		cfg:       cfg,
		metrics:   pricingMetrics,
		now:       time.Now,
	}, nil
}

// Quote composes the breakdown in a fixed order: subtotal, coupons,
// promotions, automatic discounts, then tax on the post-discount amounts,
// then shipping. Discount resolution must finish before tax because tax is
// computed on what the customer actually pays.
func (c *composer) Quote(ctx context.Context, req Request) (*Breakdown, error) {
	started := c.now()
	breakdown, err := c.quote(ctx, req)
	if err != nil {
		c.metrics.ObserveQuote("error", c.now().Sub(started))
		return nil, err
	}
	c.metrics.ObserveQuote("success", c.now().Sub(started))
	return breakdown, nil
}

func (c *composer) quote(ctx context.Context, req Request) (*Breakdown, error) {
	if err := validateLines(req.Lines); err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	for _, line := range req.Lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	snapshot := discountSnapshot(req, subtotal)

	var applications []Application
	var rejections []Rejection

	for _, code := range req.CouponCodes {
		resolution, err := c.discounts.Resolve(ctx, code, snapshot)
		if err != nil {
			return nil, err
		}
		app, rejection := c.couponOutcome(code, resolution)
		if app != nil {
			applications = append(applications, *app)
		}
		if rejection != nil {
			rejections = append(rejections, *rejection)
		}
	}

	promoApps, promoRejections, err := c.resolvePromotions(ctx, req, subtotal)
	if err != nil {
		return nil, err
	}
	applications = append(applications, promoApps...)
	rejections = append(rejections, promoRejections...)

	automatic, err := c.discounts.ResolveAutomatic(ctx, snapshot)
	if err != nil {
		return nil, err
	}
	for _, resolution := range automatic {
		if !resolution.Eligible() {
			continue
		}
		applications = append(applications, applicationFromDiscount(SourceAutomatic, resolution))
	}

	if c.cfg.EnforceStacking {
		applications = enforceStacking(applications)
	}

	discountTotal := decimal.Zero
	freeShipping := false
	for _, app := range applications {
		discountTotal = discountTotal.Add(app.Amount)
		if app.FreeShipping {
			freeShipping = true
		}
	}

	afterDiscount := subtotal.Sub(discountTotal)
	if afterDiscount.IsNegative() {
		afterDiscount = decimal.Zero
	}

	taxResult, err := c.calculateTax(ctx, req, subtotal, discountTotal)
	if err != nil {
		return nil, err
	}

	if !freeShipping && afterDiscount.GreaterThanOrEqual(c.cfg.FreeShippingAt()) {
		freeShipping = true
	}
	shipping := c.cfg.ShippingCost()
	if freeShipping || len(req.Lines) == 0 {
		shipping = decimal.Zero
	}

	return &Breakdown{
		Currency:      c.cfg.Currency,
		Subtotal:      subtotal,
		Discounts:     applications,
		Rejections:    rejections,
		DiscountTotal: discountTotal,
		AfterDiscount: afterDiscount,
		Taxes:         taxResult.Applied,
		TaxTotal:      taxResult.Total,
		Shipping:      shipping,
		FreeShipping:  freeShipping,
		Total:         afterDiscount.Add(taxResult.Total).Add(shipping),
	}, nil
}

func (c *composer) couponOutcome(code string, resolution discounts.Resolution) (*Application, *Rejection) {
	switch resolution.Outcome {
	case discounts.OutcomeEligible:
		c.metrics.IncDiscountOutcome(string(resolution.Discount.Type), "applied")
		app := applicationFromDiscount(SourceCoupon, resolution)
		return &app, nil
	case discounts.OutcomeNotFound:
		c.metrics.IncDiscountOutcome("unknown", "not_found")
		return nil, &Rejection{Code: code, Reason: "not_found"}
	default:
		c.metrics.IncDiscountOutcome(string(resolution.Discount.Type), string(resolution.Reason))
		return nil, &Rejection{Code: code, Reason: string(resolution.Reason)}
	}
}

func (c *composer) resolvePromotions(ctx context.Context, req Request, subtotal decimal.Decimal) ([]Application, []Rejection, error) {
	if len(req.PromotionIDs) == 0 {
		return nil, nil, nil
	}

	promoReq := promotionRequest(req, subtotal)

	var applications []Application
	var rejections []Rejection
	for _, id := range req.PromotionIDs {
		promotion, err := c.promoRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("promotion %s not found", id))
			}
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion")
		}

		applicable, err := c.promos.IsApplicable(ctx, promotion, promoReq)
		if err != nil {
			return nil, nil, err
		}
		if !applicable {
			rejections = append(rejections, Rejection{Code: promotion.Name, Reason: "not_applicable"})
			continue
		}

		apps, err := rewardApplications(promotion, subtotal)
		if err != nil {
			return nil, nil, err
		}
		applications = append(applications, apps...)
	}
	return applications, rejections, nil
}

// rewardApplications converts a promotion's monetary rewards into discount
// applications. Free-product and points rewards carry no cart-level money
// and are left to the checkout layer.
func rewardApplications(promotion *models.Promotion, subtotal decimal.Decimal) ([]Application, error) {
	var out []Application
	for _, reward := range promotion.Rewards {
		switch reward.Type {
		case enums.RewardDiscount:
			value, err := promotions.DecodeDiscountReward(reward)
			if err != nil {
				return nil, err
			}
			amount := decimal.Zero
			switch {
			case value.Percentage != nil:
				amount = subtotal.Mul(*value.Percentage).Div(oneHundred).Round(2)
			case value.Amount != nil:
				amount = *value.Amount
				if amount.GreaterThan(subtotal) {
					amount = subtotal
				}
			}
			promotionID := promotion.ID
			out = append(out, Application{
				PromotionID: &promotionID,
				Source:      SourcePromotion,
				Code:        promotion.Name,
				Amount:      amount,
				IsStackable: true,
				Promotion:   promotion,
			})
		case enums.RewardFreeShipping:
			promotionID := promotion.ID
			out = append(out, Application{
				PromotionID:  &promotionID,
				Source:       SourcePromotion,
				Code:         promotion.Name,
				Amount:       decimal.Zero,
				IsStackable:  true,
				FreeShipping: true,
				Promotion:    promotion,
			})
		}
	}
	return out, nil
}

// calculateTax allocates the discount across lines proportionally and taxes
// the post-discount amounts. A missing address means no tax jurisdiction, not
// zero-rate tax; a failed rate lookup fails the whole quote.
func (c *composer) calculateTax(ctx context.Context, req Request, subtotal, discountTotal decimal.Decimal) (taxes.Result, error) {
	if req.ShippingAddress == nil {
		return taxes.Result{Total: decimal.Zero}, nil
	}

	rates, err := c.rates.FindForAddress(ctx, *req.ShippingAddress, c.now())
	if err != nil {
		return taxes.Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tax rates")
	}

	return taxes.Calculate(rates, allocateDiscount(req.Lines, subtotal, discountTotal)), nil
}

// allocateDiscount spreads the discount total across lines in proportion to
// each line's share of the subtotal, pushing the rounding remainder onto the
// last line so the allocated amounts sum exactly.
func allocateDiscount(lines []Line, subtotal, discountTotal decimal.Decimal) []taxes.TaxableLine {
	out := make([]taxes.TaxableLine, 0, len(lines))
	if len(lines) == 0 {
		return out
	}

	allocate := discountTotal.GreaterThan(decimal.Zero) && subtotal.GreaterThan(decimal.Zero)
	remaining := discountTotal
	for i, line := range lines {
		amount := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		if allocate {
			share := amount.Mul(discountTotal).Div(subtotal).Round(2)
			if i == len(lines)-1 || share.GreaterThan(remaining) {
				share = remaining
			}
			amount = amount.Sub(share)
			remaining = remaining.Sub(share)
			if amount.IsNegative() {
				amount = decimal.Zero
			}
		}
		out = append(out, taxes.TaxableLine{
			ProductID: line.ProductID,
			Category:  line.Category,
			Amount:    amount,
			IsTaxable: line.IsTaxable,
		})
	}
	return out
}

// enforceStacking keeps either all stackable applications or the single
// largest non-stackable one, whichever discounts more.
func enforceStacking(applications []Application) []Application {
	var stackable []Application
	var bestSolo *Application
	for i := range applications {
		app := applications[i]
		if app.IsStackable {
			stackable = append(stackable, app)
			continue
		}
		if bestSolo == nil || app.Amount.GreaterThan(bestSolo.Amount) {
			bestSolo = &applications[i]
		}
	}
	if bestSolo == nil {
		return applications
	}

	stackedTotal := decimal.Zero
	for _, app := range stackable {
		stackedTotal = stackedTotal.Add(app.Amount)
	}
	if stackedTotal.GreaterThanOrEqual(bestSolo.Amount) {
		return stackable
	}
	return []Application{*bestSolo}
}

func applicationFromDiscount(source string, resolution discounts.Resolution) Application {
	discount := resolution.Discount
	discountID := discount.ID
	return Application{
		DiscountID:   &discountID,
		Source:       source,
		Code:         discount.Code,
		Amount:       resolution.Application.Amount,
		IsStackable:  discount.IsStackable,
		FreeShipping: resolution.Application.FreeShipping,
		Discount:     discount,
	}
}

func discountSnapshot(req Request, subtotal decimal.Decimal) discounts.Snapshot {
	snapshot := discounts.Snapshot{
		CartID:   req.CartID,
		UserID:   req.UserID,
		Subtotal: subtotal,
		Lines:    make([]discounts.Line, 0, len(req.Lines)),
	}
	for _, line := range req.Lines {
		snapshot.Lines = append(snapshot.Lines, discounts.Line{
			ProductID: line.ProductID,
			Category:  line.Category,
			Quantity:  line.Quantity,
			Amount:    line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	return snapshot
}

func promotionRequest(req Request, subtotal decimal.Decimal) promotions.Request {
	out := promotions.Request{
		CartID:   req.CartID,
		UserID:   req.UserID,
		Subtotal: subtotal,
		Lines:    make([]promotions.Line, 0, len(req.Lines)),
	}
	for _, line := range req.Lines {
		out.Lines = append(out.Lines, promotions.Line{
			ProductID: line.ProductID,
			Category:  line.Category,
			Quantity:  line.Quantity,
			Amount:    line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	return out
}

func validateLines(lines []Line) error {
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item product id is required")
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item quantity must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item unit price must not be negative")
		}
	}
	return nil
}
