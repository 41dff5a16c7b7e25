package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/brightbasket/cart-backend/api/routes"
	"github.com/brightbasket/cart-backend/internal/cartmerge"
	"github.com/brightbasket/cart-backend/internal/carts"
	"github.com/brightbasket/cart-backend/internal/catalog"
	checkoutsvc "github.com/brightbasket/cart-backend/internal/checkout"
	"github.com/brightbasket/cart-backend/internal/discounts"
	"github.com/brightbasket/cart-backend/internal/pricing"
	"github.com/brightbasket/cart-backend/internal/promotions"
	"github.com/brightbasket/cart-backend/internal/taxes"
	"github.com/brightbasket/cart-backend/pkg/config"
	"github.com/brightbasket/cart-backend/pkg/db"
	"github.com/brightbasket/cart-backend/pkg/logger"
	"github.com/brightbasket/cart-backend/pkg/metrics"
	"github.com/brightbasket/cart-backend/pkg/migrate"
	"github.com/brightbasket/cart-backend/pkg/outbox"
	"github.com/brightbasket/cart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	cartRepo := carts.NewRepository(dbClient.DB())
	productRepo := catalog.NewRepository(dbClient.DB())
	discountRepo := discounts.NewRepository(dbClient.DB())
	promotionRepo := promotions.NewRepository(dbClient.DB())
	taxRepo := taxes.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	pricingMetrics := metrics.NewPricingMetrics(prometheus.DefaultRegisterer)

	sessionTokens, err := carts.NewSessionTokenValidator(cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session token validator", err)
		os.Exit(1)
	}

	cartService, err := carts.NewService(cartRepo, dbClient, productRepo, cfg.Merge, cfg.Pricing)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	discountResolver, err := discounts.NewResolver(discountRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create discount resolver", err)
		os.Exit(1)
	}

	promotionResolver, err := promotions.NewResolver(promotionRepo, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create promotion resolver", err)
		os.Exit(1)
	}

	composer, err := pricing.NewComposer(discountResolver, promotionResolver, promotionRepo, taxRepo, cfg.Pricing, pricingMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing composer", err)
		os.Exit(1)
	}

	mergeService, err := cartmerge.NewService(cartRepo, dbClient, sessionTokens, outboxService, pricingMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create merge service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(cartRepo, productRepo, composer, discountResolver, promotionResolver, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionTokens,
			cartService,
			mergeService,
			checkoutService,
			discountRepo,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
