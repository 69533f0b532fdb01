package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	CORS          CORSConfig
	Stripe        StripeConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Payments      PaymentsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FRESHLANE_APP_ENV" required:"true"`
	Port         string `envconfig:"FRESHLANE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FRESHLANE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FRESHLANE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FRESHLANE_DB_DSN"`
	Driver string `envconfig:"FRESHLANE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FRESHLANE_DB_HOST"`
	LegacyPort     int    `envconfig:"FRESHLANE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FRESHLANE_DB_USER"`
	LegacyPassword string `envconfig:"FRESHLANE_DB_PASSWORD"`
	LegacyName     string `envconfig:"FRESHLANE_DB_NAME"`
	LegacySSLMode  string `envconfig:"FRESHLANE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FRESHLANE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FRESHLANE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FRESHLANE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FRESHLANE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FRESHLANE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FRESHLANE_REDIS_ADDR"`
	Password     string        `envconfig:"FRESHLANE_REDIS_PASSWORD"`
	DB           int           `envconfig:"FRESHLANE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FRESHLANE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FRESHLANE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FRESHLANE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FRESHLANE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FRESHLANE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FRESHLANE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FRESHLANE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FRESHLANE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTTLHours   int    `envconfig:"FRESHLANE_JWT_REFRESH_TTL_HOURS" default:"720"`
}

// RefreshTTL returns the refresh token lifetime with a safe floor.
func (j JWTConfig) RefreshTTL() time.Duration {
	hours := j.RefreshTTLHours
	if hours <= 0 {
		hours = 720
	}
	return time.Duration(hours) * time.Hour
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FRESHLANE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FRESHLANE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FRESHLANE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FRESHLANE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FRESHLANE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"FRESHLANE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"FRESHLANE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"FRESHLANE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"FRESHLANE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"FRESHLANE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"FRESHLANE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FRESHLANE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FRESHLANE_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"FRESHLANE_CORS_ALLOWED_ORIGINS" default:"*"`
}

type StripeConfig struct {
	APIKey string `envconfig:"FRESHLANE_STRIPE_API_KEY"`
	Secret string `envconfig:"FRESHLANE_STRIPE_SECRET"`
	Env    string `envconfig:"FRESHLANE_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GCPConfig struct {
	ProjectID string `envconfig:"FRESHLANE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"FRESHLANE_PUBSUB_ORDERS_TOPIC" default:"fl-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FRESHLANE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FRESHLANE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FRESHLANE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type PaymentsConfig struct {
	GatewayTimeout time.Duration `envconfig:"FRESHLANE_PAYMENT_GATEWAY_TIMEOUT" default:"15s"`
	WebhookTTL     time.Duration `envconfig:"FRESHLANE_PAYMENT_WEBHOOK_IDEMPOTENCY_TTL" default:"168h"`
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
