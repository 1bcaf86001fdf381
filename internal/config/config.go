package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/viper"

	"github.com/tiered-billing-engine/internal/database"
	"github.com/tiered-billing-engine/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	path   string
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	return NewManagerFromFile("")
}

// NewManagerFromFile loads configuration from an explicit file path.
// An empty path searches the default locations.
func NewManagerFromFile(path string) (*Manager, error) {
	m := &Manager{v: viper.New(), path: path}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := m.v

	// SetConfigName clears an explicit config file, so only search when none was given
	if m.path != "" {
		v.SetConfigFile(m.path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/tiered-billing/")
	}

	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and environment variables still apply
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	v := m.v

	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "15s")
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.tls_enabled", false)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "tiered_billing")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.migrations_path", "./migrations")

	// Cache defaults
	v.SetDefault("cache.redis_enabled", false)
	v.SetDefault("cache.redis_url", "redis://localhost:6379")
	v.SetDefault("cache.default_ttl", "1h")
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")
	v.SetDefault("cache.memory_items", 256)
	v.SetDefault("cache.memory_ttl", "5m")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.filename", "")

	// Engine defaults
	v.SetDefault("engine.package_tolerance", 0.10)
	v.SetDefault("engine.savings_weight", 0.6)
	v.SetDefault("engine.utilization_weight", 0.4)
	v.SetDefault("engine.overrun_penalty", 2.0)

	// Ledger defaults
	v.SetDefault("ledger.driver", "sqlite")
	v.SetDefault("ledger.sqlite_path", "./data/ledger.db")
	v.SetDefault("ledger.url", "")

	// Payment gateway defaults (PhonePe UAT sandbox)
	v.SetDefault("payment.enabled", false)
	v.SetDefault("payment.base_url", "https://api-preprod.phonepe.com/apis/pg-sandbox")
	v.SetDefault("payment.merchant_id", "")
	v.SetDefault("payment.salt_key", "")
	v.SetDefault("payment.salt_index", 1)
	v.SetDefault("payment.redirect_url", "")
	v.SetDefault("payment.callback_url", "")
	v.SetDefault("payment.timeout", "10s")
	v.SetDefault("payment.rate_limit", 5)
	v.SetDefault("payment.failure_threshold", 5)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetEngineConfig returns the package reconciler tuning
func (m *Manager) GetEngineConfig() *domain.EngineConfig {
	return &m.config.Engine
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.RateLimit < 0 {
		return fmt.Errorf("invalid server rate limit: %v", config.Server.RateLimit)
	}

	if config.Database.Enabled {
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	}

	if config.Cache.RedisEnabled && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when the Redis cache is enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	engine := config.Engine
	if engine.PackageTolerance < 0 || engine.PackageTolerance > 1 {
		return fmt.Errorf("package tolerance must be between 0 and 1: %v", engine.PackageTolerance)
	}
	if engine.SavingsWeight < 0 || engine.UtilizationWeight < 0 {
		return fmt.Errorf("efficiency weights must not be negative")
	}
	if math.Abs(engine.SavingsWeight+engine.UtilizationWeight-1) > 1e-9 {
		return fmt.Errorf("efficiency weights must sum to 1, got %v", engine.SavingsWeight+engine.UtilizationWeight)
	}
	if engine.OverrunPenalty < 0 {
		return fmt.Errorf("overrun penalty must not be negative: %v", engine.OverrunPenalty)
	}

	switch config.Ledger.Driver {
	case "sqlite":
		if config.Ledger.SQLitePath == "" {
			return fmt.Errorf("ledger sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if config.Ledger.URL == "" && !config.Database.Enabled {
			return fmt.Errorf("ledger url is required for the postgres driver")
		}
	case "none":
	default:
		return fmt.Errorf("invalid ledger driver: %s", config.Ledger.Driver)
	}

	if config.Payment.Enabled {
		if config.Payment.BaseURL == "" || config.Payment.MerchantID == "" || config.Payment.SaltKey == "" {
			return fmt.Errorf("payment base_url, merchant_id and salt_key are required when payments are enabled")
		}
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// GetDatabaseURL returns the database as a URL, the form golang-migrate expects
func (m *Manager) GetDatabaseURL() string {
	db := m.config.Database
	return database.PostgresURL(db.Host, db.Port, db.Database, db.Username, db.Password, db.SSLMode)
}

// GetLedgerURL returns the Postgres ledger DSN, falling back to the main database
func (m *Manager) GetLedgerURL() string {
	if m.config.Ledger.URL != "" {
		return m.config.Ledger.URL
	}
	return m.GetDatabaseURL()
}

// GetRedisConnectionString returns the Redis connection string
func (m *Manager) GetRedisConnectionString() string {
	return m.config.Cache.RedisURL
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
