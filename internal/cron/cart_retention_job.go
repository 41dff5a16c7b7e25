package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/brightbasket/cart-backend/pkg/logger"
)

const defaultCartRetention = 30 * 24 * time.Hour

// CartRetentionJobParams configure the terminal cart purger.
type CartRetentionJobParams struct {
	Logger    *logger.Logger
	Carts     terminalCartPurger
	Retention time.Duration
}

type terminalCartPurger interface {
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewCartRetentionJob builds the job that purges merged, converted,
// abandoned, and expired carts past the retention window. Line items go
// with them through the cascade.
func NewCartRetentionJob(params CartRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart purger required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultCartRetention
	}
	return &cartRetentionJob{
		logg:      params.Logger,
		carts:     params.Carts,
		retention: retention,
		now:       time.Now,
	}, nil
}

type cartRetentionJob struct {
	logg      *logger.Logger
	carts     terminalCartPurger
	retention time.Duration
	now       func() time.Time
}

func (j *cartRetentionJob) Name() string { return "cart-retention" }

func (j *cartRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.carts.DeleteTerminalOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cart retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "cart retention cleanup complete")
	return nil
}
