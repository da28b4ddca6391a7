package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Gateway      GatewayConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Eventing     EventingConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"FIXIT_APP_ENV" required:"true"`
	Port         string `envconfig:"FIXIT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FIXIT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FIXIT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FIXIT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FIXIT_DB_DSN"`
	Driver string `envconfig:"FIXIT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FIXIT_DB_HOST"`
	LegacyPort     int    `envconfig:"FIXIT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FIXIT_DB_USER"`
	LegacyPassword string `envconfig:"FIXIT_DB_PASSWORD"`
	LegacyName     string `envconfig:"FIXIT_DB_NAME"`
	LegacySSLMode  string `envconfig:"FIXIT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FIXIT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FIXIT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FIXIT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FIXIT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FIXIT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FIXIT_REDIS_ADDR"`
	Password     string        `envconfig:"FIXIT_REDIS_PASSWORD"`
	DB           int           `envconfig:"FIXIT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FIXIT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FIXIT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FIXIT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FIXIT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FIXIT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FIXIT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FIXIT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FIXIT_JWT_EXPIRATION_MINUTES" required:"true"`
}

// GatewayConfig points at the mobile-money charge API.
type GatewayConfig struct {
	BaseURL    string        `envconfig:"FIXIT_GATEWAY_BASE_URL" required:"true"`
	APIKey     string        `envconfig:"FIXIT_GATEWAY_API_KEY"`
	MerchantID string        `envconfig:"FIXIT_GATEWAY_MERCHANT_ID"`
	Timeout    time.Duration `envconfig:"FIXIT_GATEWAY_TIMEOUT" default:"15s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FIXIT_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"FIXIT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FIXIT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"FIXIT_PUBSUB_DOMAIN_TOPIC" default:"fixit-domain-events"`
	DomainSubscription string `envconfig:"FIXIT_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FIXIT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FIXIT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FIXIT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"FIXIT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FIXIT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FIXIT_AUTO_MIGRATE" default:"false"`
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
