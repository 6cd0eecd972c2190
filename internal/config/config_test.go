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

	assert.Equal(t, 5, cfg.Engine.BatchSize)
	assert.Equal(t, 3, cfg.Engine.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Engine.BaseDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.MaxJitter)
	assert.Equal(t, 30*time.Second, cfg.Engine.QueryTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Engine.ConfigCacheTTL)
	assert.False(t, cfg.Database.Enabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENGINE_BATCH_SIZE", "8")
	t.Setenv("ENGINE_QUERY_TIMEOUT", "45")
	t.Setenv("ENGINE_CONFIG_CACHE_TTL", "90s")
	t.Setenv("PROVIDER_BASE_URLS", "DATAJUD=http://localhost:9000, SERASA=http://localhost:9001")
	t.Setenv("DB_HOST", "db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Engine.BatchSize)
	assert.Equal(t, 45*time.Second, cfg.Engine.QueryTimeout)
	assert.Equal(t, 90*time.Second, cfg.Engine.ConfigCacheTTL)
	assert.Equal(t, "http://localhost:9001", cfg.Engine.ProviderBaseURLs["SERASA"])
	assert.True(t, cfg.Database.Enabled())
	assert.Contains(t, cfg.Database.DSN(), "host=db")
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("ENGINE_BATCH_SIZE", "0")
	_, err := Load()
	assert.ErrorContains(t, err, "ENGINE_BATCH_SIZE")
}

func TestProductionRequiresAdminToken(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	_, err := Load()
	assert.ErrorContains(t, err, "ADMIN_TOKEN")

	t.Setenv("ADMIN_TOKEN", "s3cret")
	_, err = Load()
	assert.NoError(t, err)
}
