package promotions

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brightbasket/cart-backend/pkg/db/models"
	"github.com/brightbasket/cart-backend/pkg/enums"
	pkgerrors "github.com/brightbasket/cart-backend/pkg/errors"
)

type stubPromotionRepo struct {
	byID map[uuid.UUID]*models.Promotion

	incrementOK bool
	incremented []uuid.UUID
	usages      []*models.PromotionUsage
}

func (s *stubPromotionRepo) WithTx(tx *gorm.DB) PromotionRepository { return s }

func (s *stubPromotionRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (s *stubPromotionRepo) ListActive(ctx context.Context, at time.Time) ([]models.Promotion, error) {
	return nil, nil
}

func (s *stubPromotionRepo) IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	s.incremented = append(s.incremented, id)
	return s.incrementOK, nil
}

func (s *stubPromotionRepo) RecordUsage(ctx context.Context, usage *models.PromotionUsage) error {
	s.usages = append(s.usages, usage)
	return nil
}

func money(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func rawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal condition value: %v", err)
	}
	return raw
}

func activePromotion(conditions ...models.PromotionCondition) *models.Promotion {
	return &models.Promotion{
		ID:         uuid.New(),
		Name:       "test promotion",
		Type:       enums.PromotionSeasonal,
		IsActive:   true,
		ValidFrom:  time.Now().Add(-time.Hour),
		ValidTo:    time.Now().Add(time.Hour),
		Conditions: conditions,
	}
}

func newTestResolver(t *testing.T, repo PromotionRepository) Resolver {
	t.Helper()
	r, err := NewResolver(repo, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r
}

func requestOf(subtotal string, lines ...Line) Request {
	return Request{CartID: uuid.New(), Subtotal: money(subtotal), Lines: lines}
}

func TestIsApplicableLifecycleGates(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, &stubPromotionRepo{})
	req := requestOf("100.00")

	inactive := activePromotion()
	inactive.IsActive = false

	early := activePromotion()
	early.ValidFrom = time.Now().Add(time.Hour)
	early.ValidTo = time.Now().Add(2 * time.Hour)

	limit := 2
	spent := activePromotion()
	spent.UsageLimit = &limit
	spent.UsageCount = 2

	for name, p := range map[string]*models.Promotion{
		"inactive": inactive, "not started": early, "usage exhausted": spent,
	} {
		ok, err := r.IsApplicable(context.Background(), p, req)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if ok {
			t.Fatalf("%s promotion must not apply", name)
		}
	}

	ok, err := r.IsApplicable(context.Background(), activePromotion(), req)
	if err != nil {
		t.Fatalf("IsApplicable: %v", err)
	}
	if !ok {
		t.Fatal("unconditioned active promotion must apply")
	}
}

func TestMinimumOrderAmountOperators(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, &stubPromotionRepo{})

	cases := []struct {
		op       enums.ConditionOperator
		subtotal string
		want     bool
	}{
		{enums.OperatorGreaterThanOrEqual, "50.00", true},
		{enums.OperatorGreaterThanOrEqual, "49.99", false},
		{enums.OperatorGreaterThan, "50.00", false},
		{enums.OperatorLessThan, "10.00", true},
		{enums.OperatorLessThanOrEqual, "50.00", true},
		{enums.OperatorEquals, "50.00", true},
		{enums.OperatorEquals, "50.01", false},
	}
	for _, tc := range cases {
		p := activePromotion(models.PromotionCondition{
			Type:     enums.ConditionMinimumOrderAmount,
			Operator: tc.op,
			Value:    rawJSON(t, 50),
		})
		ok, err := r.IsApplicable(context.Background(), p, requestOf(tc.subtotal))
		if err != nil {
			t.Fatalf("%s %s: %v", tc.op, tc.subtotal, err)
		}
		if ok != tc.want {
			t.Fatalf("%s against subtotal %s = %v, want %v", tc.op, tc.subtotal, ok, tc.want)
		}
	}
}

func TestMinimumQuantitySumsAllLines(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, &stubPromotionRepo{})
	p := activePromotion(models.PromotionCondition{
		Type:     enums.ConditionMinimumQuantity,
		Operator: enums.OperatorGreaterThanOrEqual,
		Value:    rawJSON(t, 5),
	})

	req := requestOf("90.00",
		Line{ProductID: uuid.New(), Quantity: 2, Amount: money("40.00")},
		Line{ProductID: uuid.New(), Quantity: 3, Amount: money("50.00")},
	)
	ok, err := r.IsApplicable(context.Background(), p, req)
	if err != nil {
		t.Fatalf("IsApplicable: %v", err)
	}
	if !ok {
		t.Fatal("quantity 5 across lines must satisfy >= 5")
	}
}

func TestSpecificProductsMembership(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, &stubPromotionRepo{})
	target := uuid.New()

	contains := activePromotion(models.PromotionCondition{
		Type:     enums.ConditionSpecificProducts,
		Operator: enums.OperatorContains,
		Value:    rawJSON(t, []string{target.String()}),
	})
	inCart := requestOf("20.00", Line{ProductID: target, Quantity: 1, Amount: money("20.00")})
	notInCart := requestOf("20.00", Line{ProductID: uuid.New(), Quantity: 1, Amount: money("20.00")})

	if ok, _ := r.IsApplicable(context.Background(), contains, inCart); !ok {
		t.Fatal("contains must hold when product is in the cart")
	}
	if ok, _ := r.IsApplicable(context.Background(), contains, notInCart); ok {
		t.Fatal("contains must fail when product is absent")
	}

	// Any non-contains operator negates the membership test.
	negated := activePromotion(models.PromotionCondition{
		Type:     enums.ConditionSpecificProducts,
		Operator: enums.OperatorEquals,
		Value:    rawJSON(t, []string{target.String()}),
	})
	if ok, _ := r.IsApplicable(context.Background(), negated, inCart); ok {
		t.Fatal("non-contains operator must negate membership")
	}
	if ok, _ := r.IsApplicable(context.Background(), negated, notInCart); !ok {
		t.Fatal("non-contains operator must hold when product is absent")
	}
}

func TestSpecificCategoriesMembership(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, &stubPromotionRepo{})
	grocery := "grocery"

	p := activePromotion(models.PromotionCondition{
		Type:     enums.ConditionSpecificCategories,
		Operator: enums.OperatorContains,
		Value:    rawJSON(t, []string{"grocery"}),
	})

	req := requestOf("20.00", Line{ProductID: uuid.New(), Category: &grocery, Quantity: 1, Amount: money("20.00")})
	if ok, _ := r.IsApplicable(context.Background(), p, req); !ok {
		t.Fatal("category match expected")
	}

	bare := requestOf("20.00", Line{ProductID: uuid.New(), Quantity: 1, Amount: money("20.00")})
	if ok, _ := r.IsApplicable(context.Background(), p, bare); ok {
		t.Fatal("uncategorized line must not match")
	}
}

func TestUserTypeCondition(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, &stubPromotionRepo{})
	p := activePromotion(models.PromotionCondition{
		Type:     enums.ConditionUserType,
		Operator: enums.OperatorEquals,
		Value:    rawJSON(t, "registered"),
	})

	guest := requestOf("20.00")
	if ok, _ := r.IsApplicable(context.Background(), p, guest); ok {
		t.Fatal("guest request must fail user_type")
	}

	userID := uuid.New()
	registered := requestOf("20.00")
	registered.UserID = &userID
	if ok, _ := r.IsApplicable(context.Background(), p, registered); !ok {
		t.Fatal("registered user must pass user_type")
	}
}

func TestTimeBasedCondition(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, &stubPromotionRepo{})
	req := requestOf("20.00")

	open := activePromotion(models.PromotionCondition{
		Type:     enums.ConditionTimeBased,
		Operator: enums.OperatorEquals,
		Value:    rawJSON(t, map[string]any{}),
	})
	if ok, _ := r.IsApplicable(context.Background(), open, req); !ok {
		t.Fatal("window without bounds is vacuously true")
	}

	closed := activePromotion(models.PromotionCondition{
		Type:     enums.ConditionTimeBased,
		Operator: enums.OperatorEquals,
		Value: rawJSON(t, map[string]string{
			"startTime": time.Now().Add(-2 * time.Hour).Format(time.RFC3339),
			"endTime":   time.Now().Add(-time.Hour).Format(time.RFC3339),
		}),
	})
	if ok, _ := r.IsApplicable(context.Background(), closed, req); ok {
		t.Fatal("expired window must fail")
	}
}

func TestAllConditionsMustHold(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, &stubPromotionRepo{})
	p := activePromotion(
		models.PromotionCondition{
			Type:     enums.ConditionMinimumOrderAmount,
			Operator: enums.OperatorGreaterThanOrEqual,
			Value:    rawJSON(t, 50),
		},
		models.PromotionCondition{
			Type:     enums.ConditionMinimumQuantity,
			Operator: enums.OperatorGreaterThanOrEqual,
			Value:    rawJSON(t, 10),
		},
	)

	req := requestOf("80.00", Line{ProductID: uuid.New(), Quantity: 2, Amount: money("80.00")})
	ok, err := r.IsApplicable(context.Background(), p, req)
	if err != nil {
		t.Fatalf("IsApplicable: %v", err)
	}
	if ok {
		t.Fatal("one failing condition must reject the promotion")
	}
}

func TestUnknownConditionTypeFailsClosed(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, &stubPromotionRepo{})
	p := activePromotion(models.PromotionCondition{
		Type:     enums.ConditionType("lunar_phase"),
		Operator: enums.OperatorEquals,
		Value:    rawJSON(t, "full"),
	})

	if ok, _ := r.IsApplicable(context.Background(), p, requestOf("20.00")); ok {
		t.Fatal("unregistered condition type must fail closed")
	}
}

func TestApplyIncrementsAndRecordsUsage(t *testing.T) {
	t.Parallel()

	repo := &stubPromotionRepo{incrementOK: true}
	r := newTestResolver(t, repo)

	p := activePromotion()
	p.Rewards = models.PromotionRewards{
		{Type: enums.RewardDiscount, Value: json.RawMessage(`{"percentage":"10"}`)},
		{Type: enums.RewardFreeShipping, Value: json.RawMessage(`{}`)},
	}

	userID := uuid.New()
	req := requestOf("100.00")
	req.UserID = &userID

	rewards, err := r.Apply(context.Background(), &gorm.DB{}, p, req)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(rewards) != 2 {
		t.Fatalf("rewards = %d, want 2", len(rewards))
	}
	if len(repo.incremented) != 1 || repo.incremented[0] != p.ID {
		t.Fatalf("incremented = %v, want [%s]", repo.incremented, p.ID)
	}
	if len(repo.usages) != 1 || repo.usages[0].UserID == nil || *repo.usages[0].UserID != userID {
		t.Fatalf("usage = %+v, want row for user %s", repo.usages, userID)
	}
}

func TestApplyRechecksApplicability(t *testing.T) {
	t.Parallel()

	repo := &stubPromotionRepo{incrementOK: true}
	r := newTestResolver(t, repo)

	p := activePromotion()
	p.IsActive = false

	_, err := r.Apply(context.Background(), &gorm.DB{}, p, requestOf("100.00"))
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("err = %v, want state conflict", err)
	}
	if len(repo.incremented) != 0 {
		t.Fatal("usage must not be incremented for inapplicable promotions")
	}
}

func TestApplyUsageGuardIsStateConflict(t *testing.T) {
	t.Parallel()

	repo := &stubPromotionRepo{incrementOK: false}
	r := newTestResolver(t, repo)

	_, err := r.Apply(context.Background(), &gorm.DB{}, activePromotion(), requestOf("100.00"))
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("err = %v, want state conflict", err)
	}
	if len(repo.usages) != 0 {
		t.Fatal("usage row must not be written when the counter guard fails")
	}
}

func TestDecodeDiscountReward(t *testing.T) {
	t.Parallel()

	pct, err := DecodeDiscountReward(models.PromotionReward{
		Type:  enums.RewardDiscount,
		Value: json.RawMessage(`{"percentage":"15"}`),
	})
	if err != nil {
		t.Fatalf("DecodeDiscountReward: %v", err)
	}
	if pct.Percentage == nil || !pct.Percentage.Equal(money("15")) {
		t.Fatalf("percentage = %v, want 15", pct.Percentage)
	}

	_, err = DecodeDiscountReward(models.PromotionReward{
		Type:  enums.RewardPoints,
		Value: json.RawMessage(`100`),
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("err = %v, want validation error for non-discount reward", err)
	}

	_, err = DecodeDiscountReward(models.PromotionReward{
		Type:  enums.RewardDiscount,
		Value: json.RawMessage(`{}`),
	})
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("err = %v, want validation error for empty reward value", err)
	}
}
