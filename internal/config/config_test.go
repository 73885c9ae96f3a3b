package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "safescan", cfg.AppName)
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "9090", cfg.MetricsPort)
	assert.Equal(t, int64(32<<20), cfg.MaxFileSizeBytes)
	assert.NotEmpty(t, cfg.ReputationBaseURL)
}

func TestLoadInvalidInts(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REPUTATION_API_KEY", "test-key")
	t.Setenv("MAX_FILE_SIZE_BYTES", "1024")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test-key", cfg.ReputationAPIKey)
	assert.Equal(t, int64(1024), cfg.MaxFileSizeBytes)
	assert.Equal(t, 2, cfg.RedisDB)
}
