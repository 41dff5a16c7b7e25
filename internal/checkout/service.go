package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightbasket/cart-backend/internal/carts"
	"github.com/brightbasket/cart-backend/internal/catalog"
	"github.com/brightbasket/cart-backend/internal/discounts"
	"github.com/brightbasket/cart-backend/internal/pricing"
	"github.com/brightbasket/cart-backend/internal/promotions"
	"github.com/brightbasket/cart-backend/pkg/db/models"
	"github.com/brightbasket/cart-backend/pkg/enums"
	pkgerrors "github.com/brightbasket/cart-backend/pkg/errors"
	"github.com/brightbasket/cart-backend/pkg/outbox"
	"github.com/brightbasket/cart-backend/pkg/outbox/payloads"
	"github.com/brightbasket/cart-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Request identifies the cart to price and the codes to apply to it. A
// shipping address on the request overrides the one stored on the cart.
type Request struct {
	Owner           carts.Owner
	CouponCodes     []string
	PromotionIDs    []uuid.UUID
	ShippingAddress *types.Address
}

// Result is a finalized checkout: the priced cart plus the identifier the
// order pipeline picks up downstream.
type Result struct {
	CheckoutID uuid.UUID
	Cart       *models.Cart
	Breakdown  *pricing.Breakdown
}

// Service prices carts and converts them at checkout.
type Service interface {
	// Quote prices the owner's active cart without redeeming anything.
	Quote(ctx context.Context, req Request) (*pricing.Breakdown, error)
	// Finalize prices the cart, redeems every applied discount and
	// promotion, persists the totals, and converts the cart, atomically.
	Finalize(ctx context.Context, req Request) (*Result, error)
}

type service struct {
	cartRepo carts.CartRepository
	products catalog.ProductLoader
	composer pricing.Composer
	disc     discounts.Resolver
	promos   promotions.Resolver
	tx       txRunner
	events   eventEmitter
	now      func() time.Time
}

func NewService(
	cartRepo carts.CartRepository,
	products catalog.ProductLoader,
	composer pricing.Composer,
	discountResolver discounts.Resolver,
	promotionResolver promotions.Resolver,
	tx txRunner,
	events eventEmitter,
) (Service, error) {
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if composer == nil {
		return nil, fmt.Errorf("pricing composer required")
	}
	if discountResolver == nil {
		return nil, fmt.Errorf("discount resolver required")
	}
	if promotionResolver == nil {
		return nil, fmt.Errorf("promotion resolver required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{
		cartRepo: cartRepo,
		products: products,
		composer: composer,
		disc:     discountResolver,
		promos:   promotionResolver,
		tx:       tx,
		events:   events,
		now:      time.Now,
	}, nil
}

func (s *service) Quote(ctx context.Context, req Request) (*pricing.Breakdown, error) {
	_, pricingReq, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.composer.Quote(ctx, pricingReq)
}

func (s *service) Finalize(ctx context.Context, req Request) (*Result, error) {
	cart, pricingReq, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	breakdown, err := s.composer.Quote(ctx, pricingReq)
	if err != nil {
		return nil, err
	}

	checkoutID := uuid.New()
	discountSnapshot := discounts.Snapshot{
		CartID:   cart.ID,
		UserID:   cart.UserID,
		Subtotal: breakdown.Subtotal,
	}
	promotionReq := promotions.Request{
		CartID:   cart.ID,
		UserID:   cart.UserID,
		Subtotal: breakdown.Subtotal,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.cartRepo.WithTx(tx)

		appliedPromotions := map[uuid.UUID]bool{}
		for _, app := range breakdown.Discounts {
			switch {
			case app.Discount != nil:
				if err := s.disc.Redeem(ctx, tx, app.Discount, discountSnapshot, app.Amount); err != nil {
					return err
				}
				if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
					EventType:     enums.EventDiscountApplied,
					AggregateType: enums.AggregateDiscount,
					AggregateID:   app.Discount.ID,
					Actor:         actorFor(cart),
					Data: payloads.DiscountAppliedEvent{
						DiscountID: app.Discount.ID,
						Code:       app.Discount.Code,
						CartID:     cart.ID,
						Type:       app.Discount.Type,
						Amount:     app.Amount,
						UsageCount: app.Discount.UsageCount + 1,
					},
					Version: 1,
				}); err != nil {
					return err
				}
			case app.Promotion != nil && !appliedPromotions[app.Promotion.ID]:
				if _, err := s.promos.Apply(ctx, tx, app.Promotion, promotionReq); err != nil {
					return err
				}
				appliedPromotions[app.Promotion.ID] = true
			}
		}

		cart.ShippingAddress = pricingReq.ShippingAddress
		cart.SubtotalAmount = breakdown.Subtotal
		cart.DiscountAmount = breakdown.DiscountTotal
		cart.TaxAmount = breakdown.TaxTotal
		cart.ShippingAmount = breakdown.Shipping
		cart.TotalAmount = breakdown.Total
		cart.Status = enums.CartStatusConverted
		if _, err := repo.Update(ctx, cart); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart totals")
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCheckoutPriced,
			AggregateType: enums.AggregateCheckout,
			AggregateID:   checkoutID,
			Actor:         actorFor(cart),
			Data: payloads.CheckoutPricedEvent{
				CheckoutID:    checkoutID,
				CartID:        cart.ID,
				UserID:        cart.UserID,
				Currency:      breakdown.Currency,
				Subtotal:      breakdown.Subtotal,
				DiscountTotal: breakdown.DiscountTotal,
				TaxTotal:      breakdown.TaxTotal,
				ShippingCost:  breakdown.Shipping,
				Total:         breakdown.Total,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	return &Result{CheckoutID: checkoutID, Cart: cart, Breakdown: breakdown}, nil
}

// prepare loads the active cart and translates it into a pricing request,
// resolving product taxability from the catalog.
func (s *service) prepare(ctx context.Context, req Request) (*models.Cart, pricing.Request, error) {
	if err := req.Owner.Validate(); err != nil {
		return nil, pricing.Request{}, err
	}

	cart, err := s.cartRepo.FindActiveByOwner(ctx, req.Owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pricing.Request{}, pkgerrors.New(pkgerrors.CodeNotFound, "no active cart")
		}
		return nil, pricing.Request{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, pricing.Request{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	lines := make([]pricing.Line, 0, len(cart.Items))
	for _, item := range cart.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, pricing.Request{}, pkgerrors.New(pkgerrors.CodeStateConflict, "cart references a product that no longer exists")
		}
		lines = append(lines, pricing.Line{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Category:  item.Category,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			IsTaxable: product.IsTaxable,
		})
	}

	address := cart.ShippingAddress
	if req.ShippingAddress != nil {
		address = req.ShippingAddress
	}

	return cart, pricing.Request{
		CartID:          cart.ID,
		UserID:          cart.UserID,
		Lines:           lines,
		ShippingAddress: address,
		CouponCodes:     req.CouponCodes,
		PromotionIDs:    req.PromotionIDs,
	}, nil
}

func actorFor(cart *models.Cart) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: cart.UserID, SessionID: cart.SessionID}
}
