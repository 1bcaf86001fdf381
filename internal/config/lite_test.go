package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 256, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 0.10, cfg.PackageTolerance)
	assert.True(t, cfg.LedgerEnabled)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 256, cfg.CacheMaxItems)
	assert.True(t, cfg.LedgerEnabled)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	os.Setenv("BILLING_DATA_DIR", "/tmp/test-billing")
	os.Setenv("BILLING_CACHE_MAX_ITEMS", "500")
	os.Setenv("BILLING_CACHE_TTL", "12h")
	os.Setenv("BILLING_PACKAGE_TOLERANCE", "0.05")
	os.Setenv("BILLING_LEDGER_ENABLED", "false")
	os.Setenv("BILLING_LOG_LEVEL", "debug")

	defer clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-billing", cfg.DataDir)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 0.05, cfg.PackageTolerance)
	assert.False(t, cfg.LedgerEnabled)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadLiteConfig_IgnoresInvalidValues(t *testing.T) {
	clearEnvVars(t)

	os.Setenv("BILLING_CACHE_MAX_ITEMS", "-3")
	os.Setenv("BILLING_PACKAGE_TOLERANCE", "7")
	os.Setenv("BILLING_CACHE_TTL", "soon")

	defer clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.Equal(t, 256, cfg.CacheMaxItems)
	assert.Equal(t, 0.10, cfg.PackageTolerance)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
}

func TestLiteConfig_LedgerDBPath(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.tiered-billing"}

	path := cfg.LedgerDBPath()

	assert.Equal(t, "/home/user/.tiered-billing/ledger.db", path)
}

func TestLiteConfig_Adapters(t *testing.T) {
	cfg := DefaultLiteConfig()

	logCfg := cfg.LoggingConfig()
	assert.Equal(t, "stderr", logCfg.Output)
	assert.Equal(t, "info", logCfg.Level)

	engineCfg := cfg.EngineConfig()
	assert.Equal(t, 0.10, engineCfg.PackageTolerance)
	assert.InDelta(t, 1.0, engineCfg.SavingsWeight+engineCfg.UtilizationWeight, 1e-9)
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	cfg := &LiteConfig{DataDir: filepath.Join(tmpDir, "billing")}

	err = cfg.EnsureDataDir()
	require.NoError(t, err)

	_, err = os.Stat(cfg.DataDir)
	assert.NoError(t, err)
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"BILLING_DATA_DIR",
		"BILLING_CACHE_MAX_ITEMS",
		"BILLING_CACHE_TTL",
		"BILLING_PACKAGE_TOLERANCE",
		"BILLING_LEDGER_ENABLED",
		"BILLING_LOG_LEVEL",
		"BILLING_LOG_FORMAT",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}
