// Package config loads process configuration from the environment and
// optional .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"lrucache/internal/logging"
)

const (
	StoreDemo     = "demo"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

var (
	ErrLoadEnvFile   = errors.New("failed to load env file")
	ErrParsingConfig = errors.New("failed to parse config")
	ErrInvalidConfig = errors.New("invalid config")
)

type Config struct {
	Capacity     int           `env:"CACHE_CAPACITY" envDefault:"1024"`     // Capacity is the maximum number of resident entries.
	QueueSize    int           `env:"CACHE_QUEUE_SIZE" envDefault:"0"`      // QueueSize bounds the command queue; 0 means unbounded.
	FetchTimeout time.Duration `env:"CACHE_FETCH_TIMEOUT" envDefault:"30s"` // FetchTimeout bounds a shared fetch; 0 disables it.

	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT" envDefault:"text"`
	LogNoColor bool   `env:"LOG_NO_COLOR"`

	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"lrucache"`

	Store StoreConfig `envPrefix:"STORE_"`
}

type StoreConfig struct {
	Kind string `env:"KIND" envDefault:"demo"` // Kind is one of demo, redis, postgres.

	Latency        time.Duration `env:"LATENCY" envDefault:"50ms"`        // Latency is added to every demo store fetch.
	RateLimit      float64       `env:"RATE_LIMIT" envDefault:"0"`        // RateLimit caps fetches per second; 0 disables it.
	RateBurst      int           `env:"RATE_BURST" envDefault:"1"`        // RateBurst is the token bucket size.
	RetryAttempts  int           `env:"RETRY_ATTEMPTS" envDefault:"3"`    // RetryAttempts counts the first try.
	RetryInterval  time.Duration `env:"RETRY_INTERVAL" envDefault:"100ms"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"30s"`

	RedisURL    string `env:"REDIS_URL"` // RedisURL should be in the format "redis://:password@localhost:6379/0".
	RedisPrefix string `env:"REDIS_PREFIX"`

	PostgresURL   string `env:"PG_URL"`
	PostgresTable string `env:"PG_TABLE" envDefault:"cache_values"`
}

// Load reads the given .env files (or ./.env if none are given and it
// exists), then parses and validates the environment.
// Variables already set in the environment win over file values.
func Load(paths ...string) (Config, error) {
	if len(paths) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, errors.Join(ErrLoadEnvFile, err)
		}
	} else if err := godotenv.Load(paths...); err != nil {
		return Config{}, errors.Join(ErrLoadEnvFile, err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	if c.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_CAPACITY must be positive, got %d", c.Capacity))
	}
	if c.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("CACHE_QUEUE_SIZE must not be negative, got %d", c.QueueSize))
	}
	if c.FetchTimeout < 0 {
		errs = append(errs, fmt.Errorf("CACHE_FETCH_TIMEOUT must not be negative, got %s", c.FetchTimeout))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != logging.FormatText && c.LogFormat != logging.FormatJSON {
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat))
	}
	if c.Store.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("STORE_RATE_LIMIT must not be negative, got %g", c.Store.RateLimit))
	}

	switch c.Store.Kind {
	case StoreDemo:
	case StoreRedis:
		if c.Store.RedisURL == "" {
			errs = append(errs, errors.New("STORE_REDIS_URL is required for the redis store"))
		}
	case StorePostgres:
		if c.Store.PostgresURL == "" {
			errs = append(errs, errors.New("STORE_PG_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_KIND %q", c.Store.Kind))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}
