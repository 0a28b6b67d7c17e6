package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "molecules.db", cfg.DatabasePath)
	assert.Equal(t, 300, cfg.SnapshotTTL)
	assert.Equal(t, 60, cfg.ResultTTL)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":9090")
	t.Setenv("DOMAIN", "https://api.example.com")
	t.Setenv("SNAPSHOT_TTL", "30")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ENABLE_METRICS", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ServerAddress)
	assert.Equal(t, "https://api.example.com", cfg.BaseURL)
	assert.Equal(t, 30, cfg.SnapshotTTL)
	assert.False(t, cfg.IsDevelopment())
	assert.False(t, cfg.EnableMetrics)
}

func TestValidate(t *testing.T) {
	cfg := &Config{DatabasePath: "x.db", WorkerCount: 1, QueueCapacity: 1, SnapshotTTL: 1, ResultTTL: 1}
	require.NoError(t, cfg.Validate())

	bad := *cfg
	bad.DatabasePath = ""
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.WorkerCount = 0
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.ResultTTL = 0
	assert.Error(t, bad.Validate())
}
