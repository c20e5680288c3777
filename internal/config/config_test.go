package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, "poe_watch_", cfg.KeyPrefix)
	assert.Equal(t, "https://api.poe.watch", cfg.PoeWatch.BaseURL)
	assert.Equal(t, 45*time.Minute, cfg.PoeWatch.TTL)
	assert.Equal(t, 10*time.Second, cfg.PoeWatch.Timeout)
	assert.Equal(t, "@every 40m", cfg.PoeWatch.RefreshCron)
	assert.False(t, cfg.PoeWatch.DistributedLock)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("POEWATCH_STORE", "memory")
	t.Setenv("REDIS_ADDR", "cache.internal:6380")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("POEWATCH_TTL", "10m")
	t.Setenv("POEWATCH_DISTRIBUTED_LOCK", "true")
	t.Setenv("POEWATCH_KEY_PREFIX", "test:")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, "cache.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 10*time.Minute, cfg.PoeWatch.TTL)
	assert.True(t, cfg.PoeWatch.DistributedLock)
	assert.Equal(t, "test:", cfg.KeyPrefix)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown store", "POEWATCH_STORE", "postgres"},
		{"bad ttl", "POEWATCH_TTL", "soon"},
		{"negative ttl", "POEWATCH_TTL", "-1m"},
		{"bad base url", "POEWATCH_BASE_URL", "not a url"},
		{"bad redis db", "REDIS_DB", "99"},
		{"bad log level", "LOG_LEVEL", "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidateRedisStoreNeedsAddr(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Redis.Addr = ""
	assert.Error(t, cfg.Validate())

	cfg.Store = StoreFile
	assert.NoError(t, cfg.Validate())
}
