package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidation(t *testing.T) {
	// Test valid config
	validConfig := DefaultConfig()
	if err := validConfig.Validate(); err != nil {
		t.Errorf("Valid config should not return error: %v", err)
	}

	// Test invalid dimension
	invalidDimConfig := DefaultConfig()
	invalidDimConfig.Collections["embeddings"] = CollectionConfig{Dimension: 0}
	if err := invalidDimConfig.Validate(); err == nil {
		t.Error("Config with invalid dimension should return error")
	}

	// Test invalid metric
	invalidMetricConfig := DefaultConfig()
	invalidMetricConfig.Server.DefaultMetric = "manhattan"
	if err := invalidMetricConfig.Validate(); err == nil {
		t.Error("Config with unknown metric should return error")
	}

	// Test invalid persistence interval
	invalidIntervalConfig := DefaultConfig()
	invalidIntervalConfig.Storage.PersistenceInterval = 0
	if err := invalidIntervalConfig.Validate(); err == nil {
		t.Error("Config with zero persistence interval should return error")
	}

	// interval is irrelevant without persistence
	invalidIntervalConfig.Storage.PersistenceEngine = false
	if err := invalidIntervalConfig.Validate(); err != nil {
		t.Errorf("Interval should not be checked when persistence is off: %v", err)
	}

	emptyPortConfig := DefaultConfig()
	emptyPortConfig.Server.Port = ""
	if err := emptyPortConfig.Validate(); err == nil {
		t.Error("Config with empty port should return error")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
		"server": {"port": "9090"},
		"collections": {"docs": {"dimension": 384}},
		"log_level": "debug"
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host, "unset fields keep their defaults")
	assert.Equal(t, 384, cfg.Collections["docs"].Dimension)
	assert.Equal(t, 128, cfg.Collections["default"].Dimension)
	assert.Equal(t, "debug", cfg.LogLevel)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.True(t, os.IsNotExist(err))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = LoadFromFile(bad)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VECSTORE_SERVER_HOST", "0.0.0.0")
	t.Setenv("VECSTORE_SERVER_PORT", "7070")
	t.Setenv("VECSTORE_SERVER_DEFAULT_METRIC", "dot")
	t.Setenv("VECSTORE_STORAGE_DATA_PATH", "/var/lib/vecstore")
	t.Setenv("VECSTORE_STORAGE_PERSISTENCE_ENGINE", "false")
	t.Setenv("VECSTORE_STORAGE_PERSISTENCE_INTERVAL", "30")
	t.Setenv("VECSTORE_LOG_LEVEL", "info")
	t.Setenv("VECSTORE_DIMENSION", "768")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "dot", cfg.Server.DefaultMetric)
	assert.Equal(t, "/var/lib/vecstore", cfg.Storage.DataPath)
	assert.False(t, cfg.Storage.PersistenceEngine)
	assert.Equal(t, 30, cfg.Storage.PersistenceInterval)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 768, cfg.Collections["default"].Dimension)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvKeepsDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromEnvRejectsMalformedValues(t *testing.T) {
	t.Setenv("VECSTORE_DIMENSION", "many")
	_, err := LoadFromEnv()
	assert.Error(t, err)
}
