package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/brightbasket/cart-backend/internal/carts"
	"github.com/brightbasket/cart-backend/pkg/db/models"
	"github.com/brightbasket/cart-backend/pkg/enums"
	"github.com/brightbasket/cart-backend/pkg/logger"
	"github.com/brightbasket/cart-backend/pkg/outbox"
	"github.com/brightbasket/cart-backend/pkg/outbox/payloads"
)

const expiryBatchSize = 200

// CartExpiryJobParams configure the abandoned guest cart sweeper.
type CartExpiryJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Carts       expiredCartReader
	Outbox      outboxEmitter
	OutboxRepo  outboxExistenceChecker
	RepoFactory cartRepoFactory
	BatchSize   int
}

type expiredCartReader interface {
	ListExpired(ctx context.Context, cutoff time.Time, limit int) ([]models.Cart, error)
}

type cartStatusWriter interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.CartStatus) error
}

type cartRepoFactory func(tx *gorm.DB) cartStatusWriter

func defaultCartRepoFactory(tx *gorm.DB) cartStatusWriter {
	return carts.NewRepository(tx)
}

// NewCartExpiryJob builds the job that expires active carts whose
// valid_until has passed and emits a cart_expired event per cart.
func NewCartExpiryJob(params CartExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.OutboxRepo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	factory := params.RepoFactory
	if factory == nil {
		factory = defaultCartRepoFactory
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = expiryBatchSize
	}
	return &cartExpiryJob{
		logg:    params.Logger,
		db:      params.DB,
		carts:   params.Carts,
		out:     params.Outbox,
		repo:    params.OutboxRepo,
		factory: factory,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type cartExpiryJob struct {
	logg    *logger.Logger
	db      txRunner
	carts   expiredCartReader
	out     outboxEmitter
	repo    outboxExistenceChecker
	factory cartRepoFactory
	batch   int
	now     func() time.Time
}

func (j *cartExpiryJob) Name() string { return "cart-expiry" }

func (j *cartExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	expiredCarts, err := j.carts.ListExpired(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query expired carts: %w", err)
	}

	var errs error
	expired := 0
	for _, cart := range expiredCarts {
		if err := j.expireCart(ctx, cart); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire cart %s: %w", cart.ID, err))
			continue
		}
		expired++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"matched": len(expiredCarts),
		"expired": expired,
	})
	j.logg.Info(logCtx, "cart expiry sweep complete")
	return errs
}

func (j *cartExpiryJob) expireCart(ctx context.Context, cart models.Cart) error {
	exists, err := j.repo.Exists(ctx, enums.EventCartExpired, enums.AggregateCart, cart.ID)
	if err != nil {
		return fmt.Errorf("check cart_expired existence: %w", err)
	}

	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := j.factory(tx).UpdateStatus(ctx, cart.ID, enums.CartStatusExpired); err != nil {
			return err
		}
		if exists {
			return nil
		}
		return j.out.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCartExpired,
			AggregateType: enums.AggregateCart,
			AggregateID:   cart.ID,
			Version:       1,
			OccurredAt:    j.now().UTC(),
			Data: payloads.CartExpiredEvent{
				CartID:    cart.ID,
				OwnerKind: cart.OwnerKind,
				SessionID: cart.SessionID,
				ExpiredAt: j.now().UTC(),
			},
		})
	})
}
