// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Store backends
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
	StoreFile   = "file"
)

// Config holds all application configuration
type Config struct {
	Port     string `env:"PORT" envDefault:"8080" validate:"required,numeric"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error"`

	Store     string `env:"POEWATCH_STORE" envDefault:"redis" validate:"oneof=redis memory file"`
	CacheDir  string `env:"POEWATCH_CACHE_DIR"`
	KeyPrefix string `env:"POEWATCH_KEY_PREFIX" envDefault:"poe_watch_"`

	// AdminToken guards the refresh and clear endpoints when set
	AdminToken string `env:"POEWATCH_ADMIN_TOKEN"`

	Redis    RedisConfig
	PoeWatch PoeWatchConfig
}

// RedisConfig holds the cache store and job queue connection
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379" validate:"omitempty,hostname_port"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0" validate:"gte=0,lte=15"`
}

// PoeWatchConfig holds remote API and refresh settings
type PoeWatchConfig struct {
	BaseURL         string        `env:"POEWATCH_BASE_URL" envDefault:"https://api.poe.watch" validate:"required,url"`
	Timeout         time.Duration `env:"POEWATCH_HTTP_TIMEOUT" envDefault:"10s" validate:"gt=0"`
	TTL             time.Duration `env:"POEWATCH_TTL" envDefault:"45m" validate:"gt=0"`
	RefreshCron     string        `env:"POEWATCH_REFRESH_CRON" envDefault:"@every 40m" validate:"required"`
	DistributedLock bool          `env:"POEWATCH_DISTRIBUTED_LOCK" envDefault:"false"`
	LockTTL         time.Duration `env:"POEWATCH_LOCK_TTL" envDefault:"1m" validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from environment variables
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values and cross-field rules
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Store == StoreRedis && c.Redis.Addr == "" {
		return fmt.Errorf("invalid config: REDIS_ADDR is required for the redis store")
	}
	return nil
}

// Level returns the zerolog level for LogLevel
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
