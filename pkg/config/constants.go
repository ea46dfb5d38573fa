package config

const (
	EnvPrefix = "CHECKOUT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DefaultSQLiteDSN = "file:checkout.db?_busy_timeout=5000"

	EnvAppEnv          = "CHECKOUT_APP_ENV"
	EnvPort            = "CHECKOUT_APP_PORT"
	EnvDBDSN           = "CHECKOUT_DB_DSN"
	EnvDBHost          = "CHECKOUT_DB_HOST"
	EnvDBUser          = "CHECKOUT_DB_USER"
	EnvDBName          = "CHECKOUT_DB_NAME"
	EnvUseSQLite       = "CHECKOUT_USE_SQLITE"
	EnvRedisURL        = "CHECKOUT_REDIS_URL"
	EnvTaxRate         = "CHECKOUT_TAX_RATE"
	EnvNotifyTimeout   = "CHECKOUT_NOTIFICATION_TIMEOUT"
	EnvAdminAPIKeyHash = "CHECKOUT_ADMIN_API_KEY_HASH"
	EnvCORSOrigins     = "CHECKOUT_CORS_ORIGINS"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
