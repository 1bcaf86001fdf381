// Package config provides configuration management for the billing services.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tiered-billing-engine/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases: the catalog is the built-in one and the
// ledger is a local SQLite file.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for the ledger

	// Plan cache settings
	CacheMaxItems int           // Maximum plans held in memory
	CacheTTL      time.Duration // How long a cached plan stays fresh

	// Package reconciliation tolerance, as a fraction
	PackageTolerance float64

	// Ledger toggle; when false nothing is written to disk
	LedgerEnabled bool

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".tiered-billing")

	return &LiteConfig{
		DataDir:          dataDir,
		CacheMaxItems:    256,
		CacheTTL:         time.Hour,
		PackageTolerance: 0.10,
		LedgerEnabled:    true,
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("BILLING_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("BILLING_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("BILLING_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	if v := os.Getenv("BILLING_PACKAGE_TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			cfg.PackageTolerance = f
		}
	}

	if v := os.Getenv("BILLING_LEDGER_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LedgerEnabled = b
		}
	}

	if v := os.Getenv("BILLING_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BILLING_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// LedgerDBPath returns the path to the calculation ledger SQLite database.
func (c *LiteConfig) LedgerDBPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}

// LoggingConfig adapts the lite settings to the shared logging setup.
func (c *LiteConfig) LoggingConfig() domain.LoggingConfig {
	// stdout carries the MCP stdio protocol, so logs go to stderr
	return domain.LoggingConfig{Level: c.LogLevel, Format: c.LogFormat, Output: "stderr"}
}

// EngineConfig returns engine tuning with the lite tolerance and stock weights.
func (c *LiteConfig) EngineConfig() domain.EngineConfig {
	return domain.EngineConfig{
		PackageTolerance:  c.PackageTolerance,
		SavingsWeight:     0.6,
		UtilizationWeight: 0.4,
		OverrunPenalty:    2,
	}
}
