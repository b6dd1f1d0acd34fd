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
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	Outbox        OutboxConfig
	Bootstrap     BootstrapConfig
	Identity      IdentityConfig
	Notifications NotificationsConfig
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
	Env          string   `envconfig:"PHARMALINK_APP_ENV" required:"true"`
	Port         string   `envconfig:"PHARMALINK_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"PHARMALINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"PHARMALINK_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"PHARMALINK_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PHARMALINK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"PHARMALINK_DB_DSN"`

	Host     string `envconfig:"PHARMALINK_DB_HOST"`
	Port     int    `envconfig:"PHARMALINK_DB_PORT" default:"5432"`
	User     string `envconfig:"PHARMALINK_DB_USER"`
	Password string `envconfig:"PHARMALINK_DB_PASSWORD"`
	Name     string `envconfig:"PHARMALINK_DB_NAME"`
	SSLMode  string `envconfig:"PHARMALINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PHARMALINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PHARMALINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PHARMALINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PHARMALINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PHARMALINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PHARMALINK_REDIS_ADDR"`
	Password     string        `envconfig:"PHARMALINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"PHARMALINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PHARMALINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PHARMALINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PHARMALINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PHARMALINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PHARMALINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"PHARMALINK_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"PHARMALINK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"PHARMALINK_JWT_EXPIRATION_MINUTES" default:"1440"`
	RefreshTokenTTLMinutes int    `envconfig:"PHARMALINK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"PHARMALINK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PHARMALINK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PHARMALINK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PHARMALINK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PHARMALINK_ARGON_KEY_LEN" default:"32"`
	MinLength        int `envconfig:"PHARMALINK_PASSWORD_MIN_LENGTH" default:"6"`
}

type AuthRateLimitConfig struct {
	LoginWindow           time.Duration `envconfig:"PHARMALINK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit    int           `envconfig:"PHARMALINK_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit          int           `envconfig:"PHARMALINK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow        time.Duration `envconfig:"PHARMALINK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterUsernameLimit int           `envconfig:"PHARMALINK_AUTH_RATE_LIMIT_REGISTER_USERNAME_LIMIT" default:"3"`
	RegisterIPLimit       int           `envconfig:"PHARMALINK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PHARMALINK_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	ConsumerIdempotencyTTL time.Duration `envconfig:"PHARMALINK_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type OutboxConfig struct {
	BatchSize      int  `envconfig:"PHARMALINK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int  `envconfig:"PHARMALINK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int  `envconfig:"PHARMALINK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	InProcess      bool `envconfig:"PHARMALINK_OUTBOX_IN_PROCESS" default:"true"`
}

// PollInterval returns the relay poll cadence.
func (o OutboxConfig) PollInterval() time.Duration {
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

// BootstrapConfig seeds the main administrator until a persisted row exists.
type BootstrapConfig struct {
	MainAdminUsername string `envconfig:"MAIN_ADMIN_USERNAME" default:"superadmin"`
	MainAdminPassword string `envconfig:"MAIN_ADMIN_PASSWORD" default:"superadmin123"`
}

type IdentityConfig struct {
	GoogleClientID string `envconfig:"PHARMALINK_GOOGLE_CLIENT_ID"`
}

type NotificationsConfig struct {
	RetentionDays int           `envconfig:"PHARMALINK_NOTIFICATION_RETENTION_DAYS" default:"90"`
	CleanupEvery  time.Duration `envconfig:"PHARMALINK_NOTIFICATION_CLEANUP_INTERVAL" default:"24h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
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
