package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env      string `env:"APP_ENV"   envDefault:"dev"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`
	SQLitePath    string `env:"SQLITE_PATH"    envDefault:"motomarket.db"`
	DatabaseURL   string `env:"DATABASE_URL"`

	MongoURI string `env:"MONGO_URI"`
	MongoDB  string `env:"MONGO_DB" envDefault:"motomarket"`

	KafkaBrokers       []string        `env:"KAFKA_BROKERS"        envSeparator:","`
	KafkaTopicPrefix   string          `env:"KAFKA_TOPIC_PREFIX"`
	KafkaGroupID       string          `env:"KAFKA_GROUP_ID"       envDefault:"motomarket-reactions"`
	OutboxPollInterval time.Duration   `env:"OUTBOX_POLL_INTERVAL" envDefault:"500ms"`
	RetryBackoff       []time.Duration `env:"RETRY_BACKOFF"        envDefault:"1s,5s,30s" envSeparator:","`
	IdempotencyTTL     time.Duration   `env:"IDEMP_TTL"            envDefault:"168h"`

	RedisURL        string        `env:"REDIS_URL"`
	CatalogCacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"1m"`

	S3Endpoint       string `env:"S3_ENDPOINT"`
	S3PublicEndpoint string `env:"S3_PUBLIC_ENDPOINT"`
	S3AccessKey      string `env:"S3_ACCESS_KEY" envDefault:"minioadmin"`
	S3SecretKey      string `env:"S3_SECRET_KEY" envDefault:"minioadmin"`
	S3Bucket         string `env:"S3_BUCKET"     envDefault:"motomarket-photos"`
	S3UseSSL         bool   `env:"S3_USE_SSL"    envDefault:"false"`

	JWTSecret    string        `env:"JWT_SECRET"`
	SessionTTL   time.Duration `env:"SESSION_TTL"   envDefault:"168h"`
	CookieDomain string        `env:"COOKIE_DOMAIN"`
	CORSOrigins  []string      `env:"CORS_ORIGINS"  envDefault:"http://localhost:3000" envSeparator:","`

	ListingsFixtures string `env:"LISTINGS_FIXTURES"`
}

const devJWTSecret = "motomarket-dev-secret-change-me"

// Load reads .env files when present and parses configuration from the
// current environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Default returns the development configuration.
func Default() Config {
	var cfg Config
	_ = env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}})
	cfg.normalize()
	return cfg
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	if c.StorageDriver == "" {
		c.StorageDriver = DriverMemory
	}
	if c.S3PublicEndpoint == "" {
		c.S3PublicEndpoint = c.S3Endpoint
	}
	if c.JWTSecret == "" && c.IsDev() {
		c.JWTSecret = devJWTSecret
	}
	c.KafkaBrokers = compact(c.KafkaBrokers)
	c.CORSOrigins = compact(c.CORSOrigins)
}

func (c Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if len(c.KafkaBrokers) > 0 && c.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI is required when KAFKA_BROKERS is set"))
	}
	return errors.Join(errs...)
}

// IsDev reports whether the service runs on a developer machine.
func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == "dev" || c.Env == "local"
}

// UsesBroker reports whether committed events go through mongo and kafka.
func (c Config) UsesBroker() bool {
	return len(c.KafkaBrokers) > 0 && c.MongoURI != ""
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
