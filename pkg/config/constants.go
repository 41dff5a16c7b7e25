package config

// EnvPrefix namespaces every environment variable consumed by the service.
const EnvPrefix = "BRIGHTBASKET"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (tests, error
// messages).
const (
	EnvAppEnv = "BRIGHTBASKET_APP_ENV"
	EnvPort   = "BRIGHTBASKET_APP_PORT"
	EnvDBDSN  = "BRIGHTBASKET_DB_DSN"
	EnvDBHost = "BRIGHTBASKET_DB_HOST"
	EnvDBUser = "BRIGHTBASKET_DB_USER"
	EnvDBName = "BRIGHTBASKET_DB_NAME"

	EnvRedisURL  = "BRIGHTBASKET_REDIS_URL"
	EnvJWTSecret = "BRIGHTBASKET_JWT_SECRET"
	EnvJWTIssuer = "BRIGHTBASKET_JWT_ISSUER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
