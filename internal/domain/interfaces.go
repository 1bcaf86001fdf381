package domain

import (
	"context"
)

// PlanCatalog resolves reference data by name. Unknown names return a *NotFoundError.
type PlanCatalog interface {
	GetPlan(ctx context.Context, name string) (*InsurancePlan, error)
	ListPlans(ctx context.Context) ([]InsurancePlan, error)
	GetPackage(ctx context.Context, name string) (*PackageDefinition, error)
	ListPackages(ctx context.Context) ([]PackageDefinition, error)
	GetIncentiveRule(ctx context.Context, key string) (*IncentiveRule, error)
}

// EstimateRepository persists produced estimates
type EstimateRepository interface {
	SaveEstimate(ctx context.Context, record *EstimateRecord) error
	GetEstimate(ctx context.Context, id string) (*EstimateRecord, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	GetEngineConfig() *EngineConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
