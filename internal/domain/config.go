package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Cache       CacheConfig    `mapstructure:"cache"`
	Logging     LoggingConfig  `mapstructure:"logging"`
	Engine      EngineConfig   `mapstructure:"engine"`
	Ledger      LedgerConfig   `mapstructure:"ledger"`
	Payment     PaymentConfig  `mapstructure:"payment"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"` // requests per second per client
	RateBurst      int           `mapstructure:"rate_burst"`
	TLSEnabled     bool          `mapstructure:"tls_enabled"`
	CertFile       string        `mapstructure:"cert_file"`
	KeyFile        string        `mapstructure:"key_file"`
}

// DatabaseConfig represents database connection configuration.
// When Enabled is false the reference catalog falls back to the built-in defaults.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// CacheConfig represents plan catalog cache configuration
type CacheConfig struct {
	RedisEnabled bool          `mapstructure:"redis_enabled"`
	RedisURL     string        `mapstructure:"redis_url"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	MaxRetries   int           `mapstructure:"max_retries"`
	PoolSize     int           `mapstructure:"pool_size"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
	MemoryItems  int           `mapstructure:"memory_items"`
	MemoryTTL    time.Duration `mapstructure:"memory_ttl"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// EngineConfig carries the tunable parameters of the package reconciler.
// Tolerance and weights are fractions.
type EngineConfig struct {
	PackageTolerance  float64 `mapstructure:"package_tolerance"`
	SavingsWeight     float64 `mapstructure:"savings_weight"`
	UtilizationWeight float64 `mapstructure:"utilization_weight"`
	OverrunPenalty    float64 `mapstructure:"overrun_penalty"`
}

// LedgerConfig selects the calculation ledger backend ("sqlite", "postgres" or "none").
type LedgerConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
	URL        string `mapstructure:"url"`
}

// PaymentConfig represents payment gateway configuration
type PaymentConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	BaseURL          string        `mapstructure:"base_url"`
	MerchantID       string        `mapstructure:"merchant_id"`
	SaltKey          string        `mapstructure:"salt_key"`
	SaltIndex        int           `mapstructure:"salt_index"`
	RedirectURL      string        `mapstructure:"redirect_url"`
	CallbackURL      string        `mapstructure:"callback_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	RateLimit        int           `mapstructure:"rate_limit"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}
