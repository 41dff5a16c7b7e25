package carts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brightbasket/cart-backend/pkg/config"
	"github.com/brightbasket/cart-backend/pkg/db/models"
	"github.com/brightbasket/cart-backend/pkg/enums"
	pkgerrors "github.com/brightbasket/cart-backend/pkg/errors"
)

func TestOwnerValidate(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	session := "sess-1"

	if err := NewUserOwner(userID).Validate(); err != nil {
		t.Fatalf("user owner should be valid: %v", err)
	}
	if err := NewGuestOwner(session).Validate(); err != nil {
		t.Fatalf("guest owner should be valid: %v", err)
	}
	if err := (Owner{}).Validate(); err == nil {
		t.Fatal("empty owner should be invalid")
	}
	if err := (Owner{UserID: &userID, SessionID: &session}).Validate(); err == nil {
		t.Fatal("owner with both identities should be invalid")
	}
}

func TestServiceGetActiveNotFound(t *testing.T) {
	t.Parallel()

	repo := &stubCartRepo{findErr: gorm.ErrRecordNotFound}
	svc := newTestService(t, repo, stubProductLoader{})

	_, err := svc.GetActive(context.Background(), NewUserOwner(uuid.New()))
	if err == nil {
		t.Fatal("expected error for missing cart")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error code: %v", err)
	}
}

func TestServiceGetOrCreateActiveCreatesGuestCart(t *testing.T) {
	t.Parallel()

	repo := &stubCartRepo{findErr: gorm.ErrRecordNotFound}
	svc := newTestService(t, repo, stubProductLoader{})

	cart, err := svc.GetOrCreateActive(context.Background(), NewGuestOwner("sess-9"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.OwnerKind != enums.CartOwnerGuest {
		t.Fatalf("expected guest cart, got %s", cart.OwnerKind)
	}
	if cart.SessionID == nil || *cart.SessionID != "sess-9" {
		t.Fatalf("expected session id to be stored")
	}
	if cart.ValidUntil == nil {
		t.Fatal("expected guest cart to carry a TTL")
	}
}

func TestServiceReplaceCartPricesFromCatalog(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	loader := stubProductLoader{products: map[uuid.UUID]models.Product{
		productID: {
			ID:       productID,
			SKU:      "SKU-1",
			Title:    "Beans",
			Price:    decimal.RequireFromString("4.50"),
			IsActive: true,
		},
	}}
	repo := &stubCartRepo{record: &models.Cart{
		ID:        uuid.New(),
		OwnerKind: enums.CartOwnerUser,
		Status:    enums.CartStatusActive,
	}}
	svc := newTestService(t, repo, loader)

	cart, err := svc.ReplaceCart(context.Background(), NewUserOwner(uuid.New()), UpdateInput{
		Items: []ItemInput{{ProductID: productID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.replaced) != 1 {
		t.Fatalf("expected one line, got %d", len(repo.replaced))
	}
	if !repo.replaced[0].UnitPrice.Equal(decimal.RequireFromString("4.50")) {
		t.Fatalf("unit price must come from catalog, got %s", repo.replaced[0].UnitPrice)
	}
	if !cart.SubtotalAmount.Equal(decimal.RequireFromString("13.50")) {
		t.Fatalf("expected subtotal 13.50, got %s", cart.SubtotalAmount)
	}
}

func TestServiceReplaceCartRejectsInactiveProduct(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	loader := stubProductLoader{products: map[uuid.UUID]models.Product{
		productID: {ID: productID, IsActive: false, Price: decimal.NewFromInt(1)},
	}}
	repo := &stubCartRepo{record: &models.Cart{ID: uuid.New(), Status: enums.CartStatusActive}}
	svc := newTestService(t, repo, loader)

	_, err := svc.ReplaceCart(context.Background(), NewUserOwner(uuid.New()), UpdateInput{
		Items: []ItemInput{{ProductID: productID, Quantity: 1}},
	})
	if err == nil {
		t.Fatal("expected error for inactive product")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error code: %v", err)
	}
}

func TestServiceReplaceCartRejectsDuplicateLines(t *testing.T) {
	t.Parallel()

	productID := uuid.New()
	svc := newTestService(t, &stubCartRepo{}, stubProductLoader{})

	_, err := svc.ReplaceCart(context.Background(), NewUserOwner(uuid.New()), UpdateInput{
		Items: []ItemInput{
			{ProductID: productID, Quantity: 1},
			{ProductID: productID, Quantity: 2},
		},
	})
	if err == nil {
		t.Fatal("expected error for duplicate lines")
	}
}

func newTestService(t *testing.T, repo CartRepository, loader stubProductLoader) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, loader, config.MergeConfig{GuestCartTTL: time.Hour}, config.PricingConfig{Currency: "USD"})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

type stubCartRepo struct {
	record   *models.Cart
	findErr  error
	replaced []models.CartItem
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) CartRepository { return s }

func (s *stubCartRepo) FindActiveByOwner(ctx context.Context, owner Owner) (*models.Cart, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.record == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.record, nil
}

func (s *stubCartRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	if s.record == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.record, nil
}

func (s *stubCartRepo) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	cart.ID = uuid.New()
	s.record = cart
	return cart, nil
}

func (s *stubCartRepo) Update(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	s.record = cart
	return cart, nil
}

func (s *stubCartRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CartStatus) error {
	if s.record != nil {
		s.record.Status = status
	}
	return nil
}

func (s *stubCartRepo) ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartItem) error {
	s.replaced = items
	return nil
}

func (s *stubCartRepo) UpsertItem(ctx context.Context, item *models.CartItem) error {
	s.replaced = append(s.replaced, *item)
	return nil
}

func (s *stubCartRepo) DeleteItem(ctx context.Context, cartID, productID uuid.UUID, variantID *string) error {
	return nil
}

func (s *stubCartRepo) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	return s.replaced, nil
}

func (s *stubCartRepo) ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.Cart, error) {
	return nil, nil
}

func (s *stubCartRepo) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubProductLoader struct {
	products map[uuid.UUID]models.Product
}

func (s stubProductLoader) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := s.products[id]; ok {
		return &p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s stubProductLoader) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := map[uuid.UUID]models.Product{}
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
