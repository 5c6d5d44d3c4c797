package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10, cfg.MaxTurns)
	assert.Equal(t, 10, cfg.HistorySize)
	assert.Equal(t, 2*time.Hour, cfg.IdleTimeout)
	assert.True(t, cfg.Authoritative())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REDIS_URI", "redis://cache:6379")
	t.Setenv("NODE_ROLE", "replica")
	t.Setenv("MAX_TURNS", "4")
	t.Setenv("CATALOG_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", cfg.RedisAddr())
	assert.False(t, cfg.Authoritative())
	assert.Equal(t, 4, cfg.MaxTurns)
	assert.Equal(t, 3*time.Second, cfg.CatalogTimeout)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"MAX_TURNS": "not-an-int",
		"NODE_ROLE": "leader",
		"LOG_LEVEL": "loud",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}

	t.Setenv("HISTORY_SIZE", "0")
	_, err := Load()
	assert.ErrorContains(t, err, "HISTORY_SIZE")
}

func TestParseEnvWrapsErrors(t *testing.T) {
	var cfg struct {
		Port int `env:"SPRINTQUEST_TEST_PORT" envDefault:"123"`
	}
	t.Setenv("SPRINTQUEST_TEST_PORT", "nope")
	assert.ErrorContains(t, ParseEnv(&cfg), "parse env:")
}
