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
	AuthRateLimit AuthRateLimitConfig
	Password      PasswordConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
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
	Env          string `envconfig:"KARTFORCE_APP_ENV" required:"true"`
	Port         string `envconfig:"KARTFORCE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KARTFORCE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KARTFORCE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"KARTFORCE_DB_DSN"`
	Driver string `envconfig:"KARTFORCE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KARTFORCE_DB_HOST"`
	LegacyPort     int    `envconfig:"KARTFORCE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KARTFORCE_DB_USER"`
	LegacyPassword string `envconfig:"KARTFORCE_DB_PASSWORD"`
	LegacyName     string `envconfig:"KARTFORCE_DB_NAME"`
	LegacySSLMode  string `envconfig:"KARTFORCE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KARTFORCE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KARTFORCE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KARTFORCE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KARTFORCE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KARTFORCE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"KARTFORCE_REDIS_ADDR"`
	Password     string        `envconfig:"KARTFORCE_REDIS_PASSWORD"`
	DB           int           `envconfig:"KARTFORCE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KARTFORCE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KARTFORCE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KARTFORCE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KARTFORCE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KARTFORCE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KARTFORCE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KARTFORCE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"KARTFORCE_JWT_EXPIRATION_MINUTES" required:"true"`
}

// TokenTTL returns the access token TTL configured in minutes.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// AuthRateLimitConfig throttles credential guessing on the login surface.
// Zero window or zero limits disable the corresponding counter.
type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"KARTFORCE_AUTH_RL_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit    int           `envconfig:"KARTFORCE_AUTH_RL_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit int           `envconfig:"KARTFORCE_AUTH_RL_LOGIN_EMAIL_LIMIT" default:"5"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"KARTFORCE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"KARTFORCE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"KARTFORCE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"KARTFORCE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"KARTFORCE_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"KARTFORCE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"KARTFORCE_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"KARTFORCE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"KARTFORCE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"KARTFORCE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SupplyTopic        string `envconfig:"KARTFORCE_PUBSUB_SUPPLY_TOPIC" default:"kf-supply-events"`
	SupplySubscription string `envconfig:"KARTFORCE_PUBSUB_SUPPLY_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"KARTFORCE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"KARTFORCE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"KARTFORCE_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
