package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/tiered-billing-engine/internal/api"
	"github.com/tiered-billing-engine/internal/cache"
	"github.com/tiered-billing-engine/internal/catalog"
	"github.com/tiered-billing-engine/internal/config"
	"github.com/tiered-billing-engine/internal/database"
	"github.com/tiered-billing-engine/internal/domain"
	"github.com/tiered-billing-engine/internal/ledger"
	"github.com/tiered-billing-engine/internal/logging"
	"github.com/tiered-billing-engine/internal/payment"
	"github.com/tiered-billing-engine/internal/repository"
	"github.com/tiered-billing-engine/internal/service"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := logging.MustNew(cfg.Logging)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := service.Dependencies{Engine: cfg.Engine, Logger: logger}
	var backing domain.PlanCatalog = catalog.Default()
	var healthChecks []namedCheck

	if cfg.Database.Enabled {
		db, err := database.NewConnection(ctx, database.ConfigFromDomain(cfg.Database), logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to database")
		}
		defer db.Close()

		runner, err := database.NewMigrationRunner(configManager.GetDatabaseURL(), cfg.Database.MigrationsPath, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create migration runner")
		}
		if err := runner.Up(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to apply migrations")
		}
		runner.Close()

		catalogRepo := repository.NewCatalogRepository(db.Pool, logger)
		if err := seedIfEmpty(ctx, catalogRepo, logger); err != nil {
			logger.WithError(err).Fatal("Failed to seed reference catalog")
		}
		backing = catalogRepo
		deps.Estimates = repository.NewEstimateRepository(db.Pool, logger)
		healthChecks = append(healthChecks, namedCheck{"database", db.Health})
	}

	var redisClient *redis.Client
	if cfg.Cache.RedisEnabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Cache)
		if err != nil {
			// The memory tier still serves lookups.
			logger.WithError(err).Warn("Redis unavailable, continuing with the memory cache only")
		} else {
			defer redisClient.Close()
			healthChecks = append(healthChecks, namedCheck{"redis", func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}})
		}
	}

	deps.Catalog = cache.NewCachedCatalog(backing, redisClient, cache.Options{
		MemoryItems: cfg.Cache.MemoryItems,
		MemoryTTL:   cfg.Cache.MemoryTTL,
		RedisTTL:    cfg.Cache.DefaultTTL,
	}, logger)

	store, err := ledger.Open(cfg.Ledger, configManager.GetLedgerURL())
	if err != nil {
		logger.WithError(err).Fatal("Failed to open calculation ledger")
	}
	defer store.Close()
	deps.Ledger = store

	if cfg.Payment.Enabled {
		client, err := payment.NewClient(payment.ConfigFromDomain(cfg.Payment), logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create payment client")
		}
		deps.Payments = client
	}

	billing, err := service.NewBillingService(deps)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create billing service")
	}

	server := api.NewServer(configManager, billing, logger)
	for _, hc := range healthChecks {
		server.AddHealthCheck(hc.name, hc.check)
	}

	logger.WithFields(logrus.Fields{
		"environment":   cfg.Environment,
		"database":      cfg.Database.Enabled,
		"redis":         redisClient != nil,
		"ledger_driver": cfg.Ledger.Driver,
		"payments":      cfg.Payment.Enabled,
	}).Info("Starting tiered billing server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

type namedCheck struct {
	name  string
	check api.HealthCheck
}

// seedIfEmpty loads the built-in reference catalog into an empty database.
func seedIfEmpty(ctx context.Context, repo *repository.CatalogRepository, logger *logrus.Logger) error {
	plans, err := repo.ListPlans(ctx)
	if err != nil {
		return err
	}
	if len(plans) > 0 {
		return nil
	}
	logger.Info("Reference catalog is empty, seeding defaults")
	return repo.Seed(ctx, catalog.DefaultPlans(), catalog.DefaultPackages(), catalog.DefaultIncentiveRules())
}
