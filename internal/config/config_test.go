package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetAfter removes variables a dotenv file injected into the process.
func unsetAfter(t *testing.T, keys ...string) {
	t.Helper()
	t.Cleanup(func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.Capacity)
	assert.Equal(t, 0, cfg.QueueSize)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, StoreDemo, cfg.Store.Kind)
	assert.Equal(t, 50*time.Millisecond, cfg.Store.Latency)
	assert.Equal(t, 3, cfg.Store.RetryAttempts)
	assert.Equal(t, "cache_values", cfg.Store.PostgresTable)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("CACHE_CAPACITY", "5")
	t.Setenv("CACHE_QUEUE_SIZE", "128")
	t.Setenv("STORE_KIND", "postgres")
	t.Setenv("STORE_PG_URL", "postgres://localhost/app")
	t.Setenv("STORE_RATE_LIMIT", "2.5")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Capacity)
	assert.Equal(t, 128, cfg.QueueSize)
	assert.Equal(t, StorePostgres, cfg.Store.Kind)
	assert.Equal(t, "postgres://localhost/app", cfg.Store.PostgresURL)
	assert.InDelta(t, 2.5, cfg.Store.RateLimit, 1e-9)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_EnvFile(t *testing.T) {
	unsetAfter(t, "CACHE_CAPACITY", "STORE_KIND", "STORE_REDIS_URL", "STORE_REDIS_PREFIX")

	cfg, err := Load("testdata/redis.env")
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Capacity)
	assert.Equal(t, StoreRedis, cfg.Store.Kind)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Store.RedisURL)
	assert.Equal(t, "lru:", cfg.Store.RedisPrefix)
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	unsetAfter(t, "STORE_KIND", "STORE_REDIS_URL", "STORE_REDIS_PREFIX")
	t.Setenv("CACHE_CAPACITY", "9")

	cfg, err := Load("testdata/redis.env")
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Capacity)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load("testdata/does-not-exist.env")
	require.ErrorIs(t, err, ErrLoadEnvFile)
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("CACHE_CAPACITY", "lots")

	_, err := Load()
	require.ErrorIs(t, err, ErrParsingConfig)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Capacity:  1,
		LogLevel:  "info",
		LogFormat: "text",
		Store:     StoreConfig{Kind: StoreDemo},
	}
	require.NoError(t, valid.Validate())

	cases := map[string]func(c *Config){
		"zero capacity":     func(c *Config) { c.Capacity = 0 },
		"negative queue":    func(c *Config) { c.QueueSize = -1 },
		"negative timeout":  func(c *Config) { c.FetchTimeout = -time.Second },
		"bad level":         func(c *Config) { c.LogLevel = "chatty" },
		"bad format":        func(c *Config) { c.LogFormat = "yaml" },
		"negative rate":     func(c *Config) { c.Store.RateLimit = -1 },
		"unknown store":     func(c *Config) { c.Store.Kind = "memcached" },
		"redis without url": func(c *Config) { c.Store.Kind = StoreRedis },
		"postgres, no url":  func(c *Config) { c.Store.Kind = StorePostgres },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			require.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}
