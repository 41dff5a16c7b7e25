package carts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brightbasket/cart-backend/internal/catalog"
	"github.com/brightbasket/cart-backend/pkg/config"
	"github.com/brightbasket/cart-backend/pkg/db/models"
	"github.com/brightbasket/cart-backend/pkg/enums"
	pkgerrors "github.com/brightbasket/cart-backend/pkg/errors"
	"github.com/brightbasket/cart-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ItemInput is one requested cart line. Unit price always comes from the
// catalog; callers cannot set it.
type ItemInput struct {
	ProductID uuid.UUID
	VariantID *string
	Quantity  int
	Metadata  types.Metadata
}

// UpdateInput captures a full cart write: the complete desired set of lines
// plus optional shipping address and metadata.
type UpdateInput struct {
	Items           []ItemInput
	ShippingAddress *types.Address
	Metadata        types.Metadata
	Currency        enums.Currency
}

// Service exposes cart read/write operations for both owner kinds.
type Service interface {
	GetOrCreateActive(ctx context.Context, owner Owner) (*models.Cart, error)
	GetActive(ctx context.Context, owner Owner) (*models.Cart, error)
	ReplaceCart(ctx context.Context, owner Owner, input UpdateInput) (*models.Cart, error)
	AddItem(ctx context.Context, owner Owner, item ItemInput) (*models.Cart, error)
	RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID, variantID *string) (*models.Cart, error)
	ClearCart(ctx context.Context, owner Owner) error
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products catalog.ProductLoader
	guestTTL time.Duration
	currency enums.Currency
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, products catalog.ProductLoader, cfg config.MergeConfig, pricing config.PricingConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	currency := enums.Currency(strings.ToUpper(strings.TrimSpace(pricing.Currency)))
	if !currency.IsValid() {
		return nil, fmt.Errorf("invalid pricing currency %q", pricing.Currency)
	}
	return &service{
		repo:     repo,
		tx:       tx,
		products: products,
		guestTTL: cfg.GuestCartTTL,
		currency: currency,
	}, nil
}

// GetOrCreateActive returns the active cart for the owner, creating an empty
// one when none exists.
func (s *service) GetOrCreateActive(ctx context.Context, owner Owner) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	cart, err := s.repo.FindActiveByOwner(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	return s.createEmpty(ctx, owner)
}

// GetActive returns the active cart or not-found.
func (s *service) GetActive(ctx context.Context, owner Owner) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	cart, err := s.repo.FindActiveByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "active cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

// ReplaceCart validates every requested line against the catalog and persists
// the full set atomically.
func (s *service) ReplaceCart(ctx context.Context, owner Owner, input UpdateInput) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	items, err := s.buildItems(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	var saved *models.Cart
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		cart, err := txRepo.FindActiveByOwner(ctx, owner)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			cart, err = s.createEmptyTx(ctx, txRepo, owner)
			if err != nil {
				return err
			}
		}

		if input.ShippingAddress != nil {
			normalized := input.ShippingAddress.Normalized()
			cart.ShippingAddress = &normalized
		}
		if input.Metadata != nil {
			cart.Metadata = input.Metadata.Clone()
		}
		if input.Currency.IsValid() {
			cart.Currency = input.Currency
		}
		cart.SubtotalAmount = lineTotal(items)
		if _, err := txRepo.Update(ctx, cart); err != nil {
			return err
		}

		if err := txRepo.ReplaceItems(ctx, cart.ID, items); err != nil {
			return err
		}

		saved, err = txRepo.FindByID(ctx, cart.ID)
		return err
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	}

	return saved, nil
}

// AddItem creates or refreshes one line, validating it against the catalog.
func (s *service) AddItem(ctx context.Context, owner Owner, item ItemInput) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	built, err := s.buildItems(ctx, []ItemInput{item})
	if err != nil {
		return nil, err
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		cart, err := txRepo.FindActiveByOwner(ctx, owner)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			cart, err = s.createEmptyTx(ctx, txRepo, owner)
			if err != nil {
				return err
			}
		}

		line := built[0]
		line.CartID = cart.ID
		if err := txRepo.UpsertItem(ctx, &line); err != nil {
			return err
		}

		return s.refreshSubtotal(ctx, txRepo, cart)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
	}

	saved, err := s.repo.FindActiveByOwner(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
	}
	return saved, nil
}

// RemoveItem drops one line from the active cart.
func (s *service) RemoveItem(ctx context.Context, owner Owner, productID uuid.UUID, variantID *string) (*models.Cart, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	cart, err := s.GetActive(ctx, owner)
	if err != nil {
		return nil, err
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.DeleteItem(ctx, cart.ID, productID, variantID); err != nil {
			return err
		}
		return s.refreshSubtotal(ctx, txRepo, cart)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}

	return s.repo.FindByID(ctx, cart.ID)
}

// ClearCart abandons the owner's active cart.
func (s *service) ClearCart(ctx context.Context, owner Owner) error {
	cart, err := s.GetActive(ctx, owner)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, cart.ID, enums.CartStatusAbandoned); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "abandon cart")
	}
	return nil
}

func (s *service) createEmpty(ctx context.Context, owner Owner) (*models.Cart, error) {
	var created *models.Cart
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		created, err = s.createEmptyTx(ctx, s.repo.WithTx(tx), owner)
		return err
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return created, nil
}

func (s *service) createEmptyTx(ctx context.Context, repo CartRepository, owner Owner) (*models.Cart, error) {
	cart := &models.Cart{
		Status:   enums.CartStatusActive,
		Currency: s.currency,
	}
	if owner.IsGuest() {
		cart.OwnerKind = enums.CartOwnerGuest
		cart.SessionID = owner.SessionID
		if s.guestTTL > 0 {
			until := time.Now().Add(s.guestTTL)
			cart.ValidUntil = &until
		}
	} else {
		cart.OwnerKind = enums.CartOwnerUser
		cart.UserID = owner.UserID
	}
	return repo.Create(ctx, cart)
}

// buildItems validates requested lines against the catalog and prices them.
func (s *service) buildItems(ctx context.Context, inputs []ItemInput) ([]models.CartItem, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(inputs))
	seen := map[string]struct{}{}
	for _, input := range inputs {
		if input.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if input.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		key := lineKey(input.ProductID, input.VariantID)
		if _, dup := seen[key]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate cart line")
		}
		seen[key] = struct{}{}
		ids = append(ids, input.ProductID)
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}

	items := make([]models.CartItem, 0, len(inputs))
	for _, input := range inputs {
		product, ok := products[input.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		if !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
		}
		if input.VariantID != nil && !hasVariant(product, *input.VariantID) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product variant")
		}
		items = append(items, models.CartItem{
			ProductID: product.ID,
			VariantID: copyStringPtr(input.VariantID),
			Quantity:  input.Quantity,
			UnitPrice: product.Price,
			Category:  copyStringPtr(product.Category),
			Metadata:  input.Metadata.Clone(),
		})
	}
	return items, nil
}

func (s *service) refreshSubtotal(ctx context.Context, repo CartRepository, cart *models.Cart) error {
	items, err := repo.ListItems(ctx, cart.ID)
	if err != nil {
		return err
	}
	cart.SubtotalAmount = lineTotal(items)
	_, err = repo.Update(ctx, cart)
	return err
}

func lineTotal(items []models.CartItem) (total decimal.Decimal) {
	for _, item := range items {
		total = total.Add(item.LineSubtotal())
	}
	return total
}

func lineKey(productID uuid.UUID, variantID *string) string {
	if variantID == nil {
		return productID.String()
	}
	return productID.String() + ":" + *variantID
}

func hasVariant(product models.Product, variantID string) bool {
	for _, v := range product.Variants {
		if v == variantID {
			return true
		}
	}
	return false
}

func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	val := *src
	return &val
}
