package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/brightbasket/cart-backend/api/responses"
	"github.com/brightbasket/cart-backend/pkg/config"
	pkgerrors "github.com/brightbasket/cart-backend/pkg/errors"
	"github.com/brightbasket/cart-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is the health check surface a backing dependency exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-BrightBasket-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and redis before reporting ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, db Pinger, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-BrightBasket-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		failed := false

		checks["database"] = "ok"
		if db == nil {
			checks["database"] = "unconfigured"
			failed = true
		} else if err := db.Ping(ctx); err != nil {
			checks["database"] = err.Error()
			failed = true
		}

		checks["redis"] = "ok"
		if cache == nil {
			checks["redis"] = "unconfigured"
			failed = true
		} else if err := cache.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			failed = true
		}

		if failed {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
