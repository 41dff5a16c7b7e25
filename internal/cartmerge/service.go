package cartmerge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/brightbasket/cart-backend/internal/carts"
	"github.com/brightbasket/cart-backend/pkg/db/models"
	"github.com/brightbasket/cart-backend/pkg/enums"
	pkgerrors "github.com/brightbasket/cart-backend/pkg/errors"
	"github.com/brightbasket/cart-backend/pkg/metrics"
	"github.com/brightbasket/cart-backend/pkg/outbox"
	"github.com/brightbasket/cart-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Request identifies the two carts of a merge. The guest cart is located by
// the session the token proves; the user cart by the authenticated user id.
type Request struct {
	SessionToken string
	UserID       uuid.UUID
	Options      Options
}

// Result summarizes an executed merge.
type Result struct {
	UserCart     *models.Cart
	ItemsAdded   int
	ItemsUpdated int
	Conflicts    []Conflict
}

// Service merges guest carts into user carts on login.
type Service interface {
	// Preview computes the merge plan without touching either cart.
	Preview(ctx context.Context, req Request) (*Plan, error)
	// Merge applies the plan atomically: item writes, metadata, both status
	// changes, and the merged event land in one transaction or not at all.
	Merge(ctx context.Context, req Request) (*Result, error)
}

type service struct {
	repo    carts.CartRepository
	tx      txRunner
	tokens  carts.SessionTokenValidator
	events  eventEmitter
	metrics *metrics.PricingMetrics
	now     func() time.Time
}

func NewService(
	repo carts.CartRepository,
	tx txRunner,
	tokens carts.SessionTokenValidator,
	events eventEmitter,
	pricingMetrics *metrics.PricingMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("session token validator required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		tokens:  tokens,
		events:  events,
		metrics: pricingMetrics,
		now:     time.Now,
	}, nil
}

func (s *service) Preview(ctx context.Context, req Request) (*Plan, error) {
	guest, user, err := s.loadCarts(ctx, req)
	if err != nil {
		return nil, err
	}
	return BuildPlan(guest, user, req.Options)
}

func (s *service) Merge(ctx context.Context, req Request) (*Result, error) {
	strategy := string(req.Options.Strategy())

	result, err := s.merge(ctx, req)
	if err != nil {
		s.metrics.IncMergeOutcome(strategy, "error")
		return nil, err
	}
	s.metrics.IncMergeOutcome(strategy, "success")
	return result, nil
}

func (s *service) merge(ctx context.Context, req Request) (*Result, error) {
	guest, user, err := s.loadCarts(ctx, req)
	if err != nil {
		return nil, err
	}

	plan, err := BuildPlan(guest, user, req.Options)
	if err != nil {
		return nil, err
	}

	var merged *models.Cart
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if user.ID == uuid.Nil {
			created, err := repo.Create(ctx, user)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user cart")
			}
			user = created
		}

		for _, change := range append(plan.Adds, plan.Updates...) {
			item := itemFromChange(user.ID, change)
			if err := repo.UpsertItem(ctx, &item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write cart line")
			}
		}

		items, err := repo.ListItems(ctx, user.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart lines")
		}

		user.Metadata = plan.Metadata
		user.SubtotalAmount = subtotalOf(items)
		updated, err := repo.Update(ctx, user)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user cart")
		}
		updated.Items = items
		merged = updated

		if err := repo.UpdateStatus(ctx, guest.ID, enums.CartStatusMerged); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark guest cart merged")
		}

		userID := req.UserID
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCartMerged,
			AggregateType: enums.AggregateCart,
			AggregateID:   merged.ID,
			Actor:         &outbox.ActorRef{UserID: &userID, SessionID: guest.SessionID},
			Data: payloads.CartMergedEvent{
				GuestCartID:   guest.ID,
				UserCartID:    merged.ID,
				UserID:        req.UserID,
				Strategy:      req.Options.Strategy(),
				ItemCount:     len(plan.Adds) + len(plan.Updates),
				ConflictCount: len(plan.Conflicts),
				MergedAt:      s.now(),
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		UserCart:     merged,
		ItemsAdded:   len(plan.Adds),
		ItemsUpdated: len(plan.Updates),
		Conflicts:    plan.Conflicts,
	}, nil
}

// loadCarts resolves and validates both sides of the merge. The user cart
// may come back unsaved (zero ID) when the user has no active cart yet;
// Preview treats it as empty and Merge creates it inside the transaction.
func (s *service) loadCarts(ctx context.Context, req Request) (*models.Cart, *models.Cart, error) {
	if req.UserID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	sessionID, err := s.tokens.Validate(req.SessionToken)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid session token")
	}

	guest, err := s.repo.FindActiveByOwner(ctx, carts.NewGuestOwner(sessionID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active guest cart for session")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
	}
	if !guest.IsGuest() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not a guest cart")
	}

	user, err := s.repo.FindActiveByOwner(ctx, carts.NewUserOwner(req.UserID))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user cart")
		}
		userID := req.UserID
		user = &models.Cart{
			OwnerKind: enums.CartOwnerUser,
			UserID:    &userID,
			Status:    enums.CartStatusActive,
			Currency:  guest.Currency,
		}
	}
	if user.UserID == nil || *user.UserID != req.UserID {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart does not belong to the user")
	}

	return guest, user, nil
}

func itemFromChange(cartID uuid.UUID, change ItemChange) models.CartItem {
	return models.CartItem{
		CartID:        cartID,
		ProductID:     change.ProductID,
		VariantID:     change.VariantID,
		Quantity:      change.Quantity,
		UnitPrice:     change.UnitPrice,
		OriginalPrice: change.OriginalPrice,
		Category:      change.Category,
		Metadata:      change.Metadata,
	}
}

func subtotalOf(items []models.CartItem) (total decimal.Decimal) {
	total = decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineSubtotal())
	}
	return total
}
