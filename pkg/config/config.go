package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Pricing  PricingConfig
	Merge    MergeConfig
	Eventing EventingConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig
	Cron     CronConfig

	FeatureFlags FeatureFlagsConfig
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BRIGHTBASKET_FEATURE_AUTO_MIGRATE" default:"false"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Pricing.parseAmounts(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BRIGHTBASKET_APP_ENV" required:"true"`
	Port         string `envconfig:"BRIGHTBASKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BRIGHTBASKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BRIGHTBASKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BRIGHTBASKET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BRIGHTBASKET_DB_DSN"`
	Driver string `envconfig:"BRIGHTBASKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BRIGHTBASKET_DB_HOST"`
	LegacyPort     int    `envconfig:"BRIGHTBASKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BRIGHTBASKET_DB_USER"`
	LegacyPassword string `envconfig:"BRIGHTBASKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"BRIGHTBASKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"BRIGHTBASKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BRIGHTBASKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BRIGHTBASKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BRIGHTBASKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BRIGHTBASKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BRIGHTBASKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BRIGHTBASKET_REDIS_ADDR"`
	Password     string        `envconfig:"BRIGHTBASKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"BRIGHTBASKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BRIGHTBASKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BRIGHTBASKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BRIGHTBASKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BRIGHTBASKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BRIGHTBASKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies guest session tokens presented on merge requests.
// Token issuance belongs to the identity service; only the shared secret
// and issuer are needed here.
type JWTConfig struct {
	Secret string `envconfig:"BRIGHTBASKET_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"BRIGHTBASKET_JWT_ISSUER" required:"true"`
}

// PricingConfig drives the composer's shipping and stacking policy.
// Monetary values arrive as strings so they parse into exact decimals.
type PricingConfig struct {
	Currency              string `envconfig:"BRIGHTBASKET_PRICING_CURRENCY" default:"USD"`
	BaseShippingCost      string `envconfig:"BRIGHTBASKET_PRICING_BASE_SHIPPING_COST" default:"9.99"`
	FreeShippingThreshold string `envconfig:"BRIGHTBASKET_PRICING_FREE_SHIPPING_THRESHOLD" default:"50"`
	EnforceStacking       bool   `envconfig:"BRIGHTBASKET_PRICING_ENFORCE_STACKING" default:"false"`

	shippingCost    decimal.Decimal
	freeShippingAt  decimal.Decimal
	amountsResolved bool
}

// NewPricingConfig builds a parsed pricing config outside the env loader.
func NewPricingConfig(currency, shippingCost, freeShippingThreshold string, enforceStacking bool) (PricingConfig, error) {
	cfg := PricingConfig{
		Currency:              currency,
		BaseShippingCost:      shippingCost,
		FreeShippingThreshold: freeShippingThreshold,
		EnforceStacking:       enforceStacking,
	}
	if err := cfg.parseAmounts(); err != nil {
		return PricingConfig{}, err
	}
	return cfg, nil
}

func (p *PricingConfig) parseAmounts() error {
	cost, err := decimal.NewFromString(strings.TrimSpace(p.BaseShippingCost))
	if err != nil {
		return fmt.Errorf("invalid base shipping cost %q: %w", p.BaseShippingCost, err)
	}
	if cost.IsNegative() {
		return fmt.Errorf("base shipping cost must be non-negative")
	}
	threshold, err := decimal.NewFromString(strings.TrimSpace(p.FreeShippingThreshold))
	if err != nil {
		return fmt.Errorf("invalid free shipping threshold %q: %w", p.FreeShippingThreshold, err)
	}
	if threshold.IsNegative() {
		return fmt.Errorf("free shipping threshold must be non-negative")
	}
	p.shippingCost = cost
	p.freeShippingAt = threshold
	p.amountsResolved = true
	return nil
}

// ShippingCost returns the parsed flat shipping cost.
func (p PricingConfig) ShippingCost() decimal.Decimal {
	return p.shippingCost
}

// FreeShippingAt returns the parsed free-shipping subtotal threshold.
func (p PricingConfig) FreeShippingAt() decimal.Decimal {
	return p.freeShippingAt
}

// MergeConfig tunes cart merge behavior.
type MergeConfig struct {
	// GuestCartTTL bounds how long an unmerged guest cart stays active.
	GuestCartTTL time.Duration `envconfig:"BRIGHTBASKET_MERGE_GUEST_CART_TTL" default:"720h"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"BRIGHTBASKET_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BRIGHTBASKET_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"BRIGHTBASKET_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BRIGHTBASKET_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	CartTopic            string `envconfig:"BRIGHTBASKET_PUBSUB_CART_TOPIC" default:"bb-cart-events"`
	CartSubscription     string `envconfig:"BRIGHTBASKET_PUBSUB_CART_SUBSCRIPTION"`
	CheckoutTopic        string `envconfig:"BRIGHTBASKET_PUBSUB_CHECKOUT_TOPIC" default:"bb-checkout-events"`
	CheckoutSubscription string `envconfig:"BRIGHTBASKET_PUBSUB_CHECKOUT_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BRIGHTBASKET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BRIGHTBASKET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BRIGHTBASKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"BRIGHTBASKET_CRON_INTERVAL" default:"1h"`
	CartRetention   time.Duration `envconfig:"BRIGHTBASKET_CRON_CART_RETENTION" default:"720h"`
	OutboxRetention time.Duration `envconfig:"BRIGHTBASKET_CRON_OUTBOX_RETENTION" default:"168h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
