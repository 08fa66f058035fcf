// Package config loads the environment configuration of the gorenew example servers.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/mihaimyh/gorenew/pkg/renewal"
)

const EnvPrefix = "GORENEW"

// Storage backends
const (
	BackendMemory    = "memory"
	BackendRedis     = "redis"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
	BackendTiered    = "tiered"
)

type Config struct {
	App            AppConfig
	Storage        StorageConfig
	Redis          RedisConfig
	Postgres       PostgresConfig
	Firestore      FirestoreConfig
	Cache          CacheConfig
	CircuitBreaker CircuitBreakerConfig
	Fallback       FallbackConfig
	Stripe         StripeConfig
}

// Load reads the given .env files, when present, then the environment. Variables already
// set in the environment win over the files.
func Load(envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", file, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Port         string `envconfig:"GORENEW_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"GORENEW_LOG_LEVEL" default:"info"`
	UserHeader   string `envconfig:"GORENEW_USER_HEADER" default:"X-User-ID"`
	UpcomingDays int    `envconfig:"GORENEW_UPCOMING_DAYS" default:"14"`
}

type StorageConfig struct {
	Backend string `envconfig:"GORENEW_STORAGE_BACKEND" default:"memory"`
}

type RedisConfig struct {
	Addr      string `envconfig:"GORENEW_REDIS_ADDR" default:"localhost:6379"`
	Password  string `envconfig:"GORENEW_REDIS_PASSWORD"`
	DB        int    `envconfig:"GORENEW_REDIS_DB" default:"0"`
	KeyPrefix string `envconfig:"GORENEW_REDIS_KEY_PREFIX" default:"gorenew:"`
}

type PostgresConfig struct {
	DSN string `envconfig:"GORENEW_POSTGRES_DSN"`
}

type FirestoreConfig struct {
	ProjectID string `envconfig:"GORENEW_FIRESTORE_PROJECT_ID"`
}

type CacheConfig struct {
	Enabled   bool          `envconfig:"GORENEW_CACHE_ENABLED" default:"true"`
	TTL       time.Duration `envconfig:"GORENEW_CACHE_TTL" default:"1m"`
	MaxOwners int           `envconfig:"GORENEW_CACHE_MAX_OWNERS" default:"1000"`
}

type FallbackConfig struct {
	Enabled      bool          `envconfig:"GORENEW_FALLBACK_ENABLED" default:"true"`
	MaxStaleness time.Duration `envconfig:"GORENEW_FALLBACK_MAX_STALENESS" default:"1h"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `envconfig:"GORENEW_CB_ENABLED" default:"false"`
	FailureThreshold int           `envconfig:"GORENEW_CB_FAILURE_THRESHOLD" default:"5"`
	ResetTimeout     time.Duration `envconfig:"GORENEW_CB_RESET_TIMEOUT" default:"30s"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"GORENEW_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"GORENEW_STRIPE_WEBHOOK_SECRET"`
}

// Enabled reports whether Stripe import is configured.
func (s StripeConfig) Enabled() bool {
	return s.APIKey != ""
}

// Validate checks cross-field requirements envconfig cannot express.
func (c *Config) Validate() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis storage requires GORENEW_REDIS_ADDR")
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres storage requires GORENEW_POSTGRES_DSN")
		}
	case BackendFirestore:
		if c.Firestore.ProjectID == "" {
			return fmt.Errorf("firestore storage requires GORENEW_FIRESTORE_PROJECT_ID")
		}
	case BackendTiered:
		if c.Redis.Addr == "" || c.Postgres.DSN == "" {
			return fmt.Errorf("tiered storage requires GORENEW_REDIS_ADDR and GORENEW_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return c.Manager(nil, nil).Validate()
}

// Manager returns the renewal manager configuration. Metrics and logger may be nil.
func (c *Config) Manager(metrics renewal.Metrics, logger renewal.Logger) *renewal.Config {
	return &renewal.Config{
		UpcomingDays: c.App.UpcomingDays,
		CacheConfig: &renewal.CacheConfig{
			Enabled:   c.Cache.Enabled,
			TTL:       c.Cache.TTL,
			MaxOwners: c.Cache.MaxOwners,
		},
		CircuitBreakerConfig: &renewal.CircuitBreakerConfig{
			Enabled:          c.CircuitBreaker.Enabled,
			FailureThreshold: c.CircuitBreaker.FailureThreshold,
			ResetTimeout:     c.CircuitBreaker.ResetTimeout,
		},
		FallbackConfig: &renewal.FallbackConfig{
			Enabled:      c.Fallback.Enabled,
			MaxStaleness: c.Fallback.MaxStaleness,
		},
		Metrics: metrics,
		Logger:  logger,
	}
}
