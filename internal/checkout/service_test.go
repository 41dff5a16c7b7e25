package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brightbasket/cart-backend/internal/carts"
	"github.com/brightbasket/cart-backend/internal/discounts"
	"github.com/brightbasket/cart-backend/internal/pricing"
	"github.com/brightbasket/cart-backend/internal/promotions"
	"github.com/brightbasket/cart-backend/pkg/db/models"
	"github.com/brightbasket/cart-backend/pkg/enums"
	pkgerrors "github.com/brightbasket/cart-backend/pkg/errors"
	"github.com/brightbasket/cart-backend/pkg/outbox"
)

type stubCartRepo struct {
	cart    *models.Cart
	updated []*models.Cart
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) carts.CartRepository { return s }

func (s *stubCartRepo) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	return cart, nil
}

func (s *stubCartRepo) Update(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	s.updated = append(s.updated, cart)
	return cart, nil
}

func (s *stubCartRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	if s.cart == nil || s.cart.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.cart, nil
}

func (s *stubCartRepo) FindActiveByOwner(ctx context.Context, owner carts.Owner) (*models.Cart, error) {
	if s.cart == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.cart, nil
}

func (s *stubCartRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CartStatus) error {
	return nil
}

func (s *stubCartRepo) ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartItem) error {
	return nil
}

func (s *stubCartRepo) UpsertItem(ctx context.Context, item *models.CartItem) error { return nil }

func (s *stubCartRepo) DeleteItem(ctx context.Context, cartID, productID uuid.UUID, variantID *string) error {
	return nil
}

func (s *stubCartRepo) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	if s.cart == nil {
		return nil, nil
	}
	return s.cart.Items, nil
}

func (s *stubCartRepo) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.Cart, error) {
	return nil, nil
}

func (s *stubCartRepo) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type stubProductLoader struct {
	products map[uuid.UUID]models.Product
}

func (s *stubProductLoader) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (s *stubProductLoader) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := map[uuid.UUID]models.Product{}
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type stubComposer struct {
	breakdown *pricing.Breakdown
	err       error
	requests  []pricing.Request
}

func (s *stubComposer) Quote(ctx context.Context, req pricing.Request) (*pricing.Breakdown, error) {
	s.requests = append(s.requests, req)
	return s.breakdown, s.err
}

type stubDiscountResolver struct {
	redeemed []uuid.UUID
	err      error
}

func (s *stubDiscountResolver) Resolve(ctx context.Context, code string, snapshot discounts.Snapshot) (discounts.Resolution, error) {
	return discounts.Resolution{Outcome: discounts.OutcomeNotFound}, nil
}

func (s *stubDiscountResolver) ResolveAutomatic(ctx context.Context, snapshot discounts.Snapshot) ([]discounts.Resolution, error) {
	return nil, nil
}

func (s *stubDiscountResolver) Redeem(ctx context.Context, tx *gorm.DB, discount *models.Discount, snapshot discounts.Snapshot, amount decimal.Decimal) error {
	if s.err != nil {
		return s.err
	}
	s.redeemed = append(s.redeemed, discount.ID)
	return nil
}

type stubPromotionResolver struct {
	applied []uuid.UUID
}

func (s *stubPromotionResolver) IsApplicable(ctx context.Context, promotion *models.Promotion, req promotions.Request) (bool, error) {
	return true, nil
}

func (s *stubPromotionResolver) Apply(ctx context.Context, tx *gorm.DB, promotion *models.Promotion, req promotions.Request) ([]models.PromotionReward, error) {
	s.applied = append(s.applied, promotion.ID)
	return promotion.Rewards, nil
}

type stubTxRunner struct{ err error }

func (s *stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s.err != nil {
		return s.err
	}
	return fn(&gorm.DB{})
}

type stubEmitter struct {
	events []outbox.DomainEvent
}

func (s *stubEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func money(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func activeUserCart(userID uuid.UUID, items ...models.CartItem) *models.Cart {
	return &models.Cart{
		ID:        uuid.New(),
		OwnerKind: enums.CartOwnerUser,
		UserID:    &userID,
		Status:    enums.CartStatusActive,
		Currency:  enums.CurrencyUSD,
		Items:     items,
	}
}

func simpleBreakdown() *pricing.Breakdown {
	return &pricing.Breakdown{
		Currency:      "USD",
		Subtotal:      money("100.00"),
		DiscountTotal: money("10.00"),
		AfterDiscount: money("90.00"),
		TaxTotal:      money("9.00"),
		Shipping:      decimal.Zero,
		FreeShipping:  true,
		Total:         money("99.00"),
	}
}

type deps struct {
	repo     *stubCartRepo
	products *stubProductLoader
	composer *stubComposer
	disc     *stubDiscountResolver
	promos   *stubPromotionResolver
	emitter  *stubEmitter
}

func newTestService(t *testing.T, d deps) Service {
	t.Helper()
	if d.repo == nil {
		d.repo = &stubCartRepo{}
	}
	if d.products == nil {
		d.products = &stubProductLoader{products: map[uuid.UUID]models.Product{}}
	}
	if d.composer == nil {
		d.composer = &stubComposer{breakdown: simpleBreakdown()}
	}
	if d.disc == nil {
		d.disc = &stubDiscountResolver{}
	}
	if d.promos == nil {
		d.promos = &stubPromotionResolver{}
	}
	if d.emitter == nil {
		d.emitter = &stubEmitter{}
	}
	svc, err := NewService(d.repo, d.products, d.composer, d.disc, d.promos, &stubTxRunner{}, d.emitter)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func cartFixture(t *testing.T) (deps, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	productID := uuid.New()
	cart := activeUserCart(userID, models.CartItem{
		ID:        uuid.New(),
		ProductID: productID,
		Quantity:  2,
		UnitPrice: money("50.00"),
	})
	cart.Items[0].CartID = cart.ID
	return deps{
		repo: &stubCartRepo{cart: cart},
		products: &stubProductLoader{products: map[uuid.UUID]models.Product{
			productID: {ID: productID, SKU: "SKU-1", Title: "Widget", Price: money("50.00"), IsActive: true, IsTaxable: true},
		}},
		composer: &stubComposer{breakdown: simpleBreakdown()},
	}, userID
}

func TestQuoteTranslatesCartIntoPricingRequest(t *testing.T) {
	t.Parallel()

	d, userID := cartFixture(t)
	svc := newTestService(t, d)

	breakdown, err := svc.Quote(context.Background(), Request{
		Owner:       carts.NewUserOwner(userID),
		CouponCodes: []string{"SAVE10"},
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !breakdown.Total.Equal(money("99.00")) {
		t.Fatalf("total = %s, want 99.00", breakdown.Total)
	}
	if len(d.composer.requests) != 1 {
		t.Fatalf("composer calls = %d, want 1", len(d.composer.requests))
	}
	req := d.composer.requests[0]
	if len(req.Lines) != 1 || !req.Lines[0].IsTaxable || req.Lines[0].Quantity != 2 {
		t.Fatalf("pricing request lines = %+v, want taxable line qty 2", req.Lines)
	}
	if len(req.CouponCodes) != 1 || req.CouponCodes[0] != "SAVE10" {
		t.Fatalf("coupon codes = %v, want [SAVE10]", req.CouponCodes)
	}
}

func TestFinalizeRedeemsAndConvertsCart(t *testing.T) {
	t.Parallel()

	d, userID := cartFixture(t)
	discount := &models.Discount{ID: uuid.New(), Code: "SAVE10", Type: enums.DiscountFixedAmount}
	discountID := discount.ID
	d.composer.breakdown.Discounts = []pricing.Application{{
		DiscountID: &discountID,
		Source:     pricing.SourceCoupon,
		Code:       "SAVE10",
		Amount:     money("10.00"),
		Discount:   discount,
	}}
	d.disc = &stubDiscountResolver{}
	d.emitter = &stubEmitter{}
	svc := newTestService(t, d)

	result, err := svc.Finalize(context.Background(), Request{
		Owner:       carts.NewUserOwner(userID),
		CouponCodes: []string{"SAVE10"},
	})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if result.CheckoutID == uuid.Nil {
		t.Fatal("checkout id must be set")
	}
	if result.Cart.Status != enums.CartStatusConverted {
		t.Fatalf("status = %s, want converted", result.Cart.Status)
	}
	if !result.Cart.TotalAmount.Equal(money("99.00")) || !result.Cart.DiscountAmount.Equal(money("10.00")) {
		t.Fatalf("totals = %s/%s, want 99.00/10.00", result.Cart.TotalAmount, result.Cart.DiscountAmount)
	}
	if len(d.disc.redeemed) != 1 || d.disc.redeemed[0] != discount.ID {
		t.Fatalf("redeemed = %v, want [%s]", d.disc.redeemed, discount.ID)
	}

	var types []enums.OutboxEventType
	for _, event := range d.emitter.events {
		types = append(types, event.EventType)
	}
	if len(types) != 2 || types[0] != enums.EventDiscountApplied || types[1] != enums.EventCheckoutPriced {
		t.Fatalf("events = %v, want discount_applied then checkout_priced", types)
	}
}

func TestFinalizeAppliesPromotionsOnce(t *testing.T) {
	t.Parallel()

	d, userID := cartFixture(t)
	promotion := &models.Promotion{ID: uuid.New(), Name: "Summer Sale", Type: enums.PromotionSeasonal}
	promotionID := promotion.ID
	d.composer.breakdown.Discounts = []pricing.Application{
		{PromotionID: &promotionID, Source: pricing.SourcePromotion, Code: "Summer Sale", Amount: money("5.00"), Promotion: promotion},
		{PromotionID: &promotionID, Source: pricing.SourcePromotion, Code: "Summer Sale", FreeShipping: true, Amount: decimal.Zero, Promotion: promotion},
	}
	d.promos = &stubPromotionResolver{}
	svc := newTestService(t, d)

	_, err := svc.Finalize(context.Background(), Request{Owner: carts.NewUserOwner(userID)})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(d.promos.applied) != 1 {
		t.Fatalf("promotion applications = %d, want exactly 1", len(d.promos.applied))
	}
}

func TestFinalizeEmptyCartRejected(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	svc := newTestService(t, deps{repo: &stubCartRepo{cart: activeUserCart(userID)}})

	_, err := svc.Finalize(context.Background(), Request{Owner: carts.NewUserOwner(userID)})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestFinalizeNoActiveCartIsNotFound(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, deps{})

	_, err := svc.Finalize(context.Background(), Request{Owner: carts.NewUserOwner(uuid.New())})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestFinalizeMissingProductIsStateConflict(t *testing.T) {
	t.Parallel()

	d, userID := cartFixture(t)
	d.products = &stubProductLoader{products: map[uuid.UUID]models.Product{}}
	svc := newTestService(t, d)

	_, err := svc.Finalize(context.Background(), Request{Owner: carts.NewUserOwner(userID)})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("err = %v, want state conflict", err)
	}
}

func TestFinalizeRedeemFailureAbortsCheckout(t *testing.T) {
	t.Parallel()

	d, userID := cartFixture(t)
	discount := &models.Discount{ID: uuid.New(), Code: "SPENT", Type: enums.DiscountFixedAmount}
	discountID := discount.ID
	d.composer.breakdown.Discounts = []pricing.Application{{
		DiscountID: &discountID,
		Source:     pricing.SourceCoupon,
		Code:       "SPENT",
		Amount:     money("10.00"),
		Discount:   discount,
	}}
	d.disc = &stubDiscountResolver{err: pkgerrors.New(pkgerrors.CodeStateConflict, "discount usage limit reached")}
	svc := newTestService(t, d)

	_, err := svc.Finalize(context.Background(), Request{Owner: carts.NewUserOwner(userID)})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("err = %v, want state conflict", err)
	}
	if len(d.repo.updated) != 0 {
		t.Fatal("cart must not be updated when redemption fails")
	}
}
