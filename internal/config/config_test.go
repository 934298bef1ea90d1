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

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ReadTimeout)

	assert.Equal(t, "media:lifecycle", cfg.Redis.Stream)
	assert.Equal(t, "platepix-api", cfg.Redis.Group)

	assert.Equal(t, 24*time.Hour, cfg.Lifecycle.AbandonedAfter)
	assert.Equal(t, 100, cfg.Lifecycle.SweepBatch)
	assert.Equal(t, 30*24*time.Hour, cfg.Lifecycle.GracePeriod)
	assert.NotEmpty(t, cfg.Lifecycle.SweepSchedule)
	assert.NotEmpty(t, cfg.Lifecycle.PurgeSchedule)

	assert.Equal(t, time.Hour, cfg.Security.ServiceTokenTTL)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PLATEPIX_ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
}
