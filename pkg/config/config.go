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
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Payment      PaymentConfig
	Admin        AdminConfig
	SMTP         SMTPConfig
	Outbox       OutboxConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if _, err := cfg.Checkout.Tax(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CHECKOUT_APP_ENV" required:"true"`
	Port         string `envconfig:"CHECKOUT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CHECKOUT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CHECKOUT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CHECKOUT_DB_DSN"`
	Driver string `envconfig:"CHECKOUT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"CHECKOUT_DB_HOST"`
	Port     int    `envconfig:"CHECKOUT_DB_PORT" default:"5432"`
	User     string `envconfig:"CHECKOUT_DB_USER"`
	Password string `envconfig:"CHECKOUT_DB_PASSWORD"`
	Name     string `envconfig:"CHECKOUT_DB_NAME"`
	SSLMode  string `envconfig:"CHECKOUT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CHECKOUT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CHECKOUT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CHECKOUT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CHECKOUT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver targets SQLite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"CHECKOUT_REDIS_URL"`
	Address      string        `envconfig:"CHECKOUT_REDIS_ADDR"`
	Password     string        `envconfig:"CHECKOUT_REDIS_PASSWORD"`
	DB           int           `envconfig:"CHECKOUT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CHECKOUT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CHECKOUT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CHECKOUT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CHECKOUT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CHECKOUT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CHECKOUT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CHECKOUT_AUTO_MIGRATE" default:"false"`
}

type CheckoutConfig struct {
	TaxRate             string        `envconfig:"CHECKOUT_TAX_RATE" default:"0"`
	Currency            string        `envconfig:"CHECKOUT_CURRENCY" default:"USD"`
	NotificationTimeout time.Duration `envconfig:"CHECKOUT_NOTIFICATION_TIMEOUT" default:"5s"`
	MaxQuantity         int           `envconfig:"CHECKOUT_MAX_QUANTITY" default:"10"`
}

// Tax parses the configured tax rate as a fraction of the subtotal.
func (c CheckoutConfig) Tax() (decimal.Decimal, error) {
	raw := strings.TrimSpace(c.TaxRate)
	if raw == "" {
		return decimal.Zero, nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s: %w", EnvTaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("%s must be within [0, 1)", EnvTaxRate)
	}
	return rate, nil
}

type PaymentConfig struct {
	SimulatedLatency time.Duration `envconfig:"CHECKOUT_PAYMENT_SIMULATED_LATENCY" default:"0s"`
	RateLimit        int           `envconfig:"CHECKOUT_PAYMENT_RATE_LIMIT" default:"30"`
	RateWindow       time.Duration `envconfig:"CHECKOUT_PAYMENT_RATE_WINDOW" default:"1m"`
}

type AdminConfig struct {
	APIKeyHash string `envconfig:"CHECKOUT_ADMIN_API_KEY_HASH"`
}

type SMTPConfig struct {
	Host     string `envconfig:"CHECKOUT_SMTP_HOST"`
	Port     int    `envconfig:"CHECKOUT_SMTP_PORT" default:"2525"`
	Username string `envconfig:"CHECKOUT_SMTP_USERNAME"`
	Password string `envconfig:"CHECKOUT_SMTP_PASSWORD"`
	From     string `envconfig:"CHECKOUT_SMTP_FROM" default:"orders@checkout.local"`
	StoreURL string `envconfig:"CHECKOUT_STORE_URL" default:"http://localhost:3000"`
	TLS      bool   `envconfig:"CHECKOUT_SMTP_TLS" default:"false"`
}

// Enabled reports whether outbound email is configured.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CHECKOUT_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CHECKOUT_OUTBOX_POLL_MS" default:"1000"`
	MaxAttempts    int `envconfig:"CHECKOUT_OUTBOX_MAX_ATTEMPTS" default:"8"`
	RetentionDays  int `envconfig:"CHECKOUT_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CORSConfig struct {
	Origins []string `envconfig:"CHECKOUT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DBDriverSQLite
		if db.DSN == "" {
			db.DSN = DefaultSQLiteDSN
		}
		return nil
	}
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	partValues := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if partValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
