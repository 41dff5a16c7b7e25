package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brightbasket/cart-backend/api/controllers"
	cartcontrollers "github.com/brightbasket/cart-backend/api/controllers/cart"
	"github.com/brightbasket/cart-backend/api/middleware"
	"github.com/brightbasket/cart-backend/internal/cartmerge"
	"github.com/brightbasket/cart-backend/internal/carts"
	checkoutsvc "github.com/brightbasket/cart-backend/internal/checkout"
	pkgAuth "github.com/brightbasket/cart-backend/pkg/auth"
	"github.com/brightbasket/cart-backend/pkg/config"
	"github.com/brightbasket/cart-backend/pkg/logger"
	"github.com/brightbasket/cart-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	sessionTokens carts.SessionTokenValidator,
	cartService carts.Service,
	mergeService cartmerge.Service,
	checkoutService checkoutsvc.Service,
	discountRepo controllers.DiscountLister,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var cachePinger controllers.Pinger
	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		cachePinger = redisClient
		idempotencyStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cachePinger))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(cfg.JWT, sessionTokens, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(cartService, logg))
			r.Put("/", cartcontrollers.CartReplace(cartService, logg))
			r.Delete("/", cartcontrollers.CartClear(cartService, logg))
			r.Post("/items", cartcontrollers.CartAddItem(cartService, logg))
			r.Delete("/items/{productId}", cartcontrollers.CartRemoveItem(cartService, logg))
			r.Post("/merge/preview", cartcontrollers.MergePreview(mergeService, logg))
			r.Post("/merge", cartcontrollers.MergeCommit(mergeService, logg))
		})

		r.Post("/checkout/quote", controllers.CheckoutQuote(checkoutService, logg))
		r.Post("/checkout", controllers.CheckoutFinalize(checkoutService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(pkgAuth.RoleAdmin, logg))
		r.Get("/discounts", controllers.AdminDiscountList(discountRepo, logg))
	})

	return r
}
