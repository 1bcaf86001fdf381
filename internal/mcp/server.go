// Package mcp exposes the billing engine to AI agents as MCP tools.
// It runs without external databases: the built-in catalog behind an in-memory
// cache, and an optional SQLite calculation ledger.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/tiered-billing-engine/internal/cache"
	"github.com/tiered-billing-engine/internal/catalog"
	litecfg "github.com/tiered-billing-engine/internal/config"
	"github.com/tiered-billing-engine/internal/ledger"
	"github.com/tiered-billing-engine/internal/logging"
	"github.com/tiered-billing-engine/internal/service"
)

const (
	serverName    = "tiered-billing-mcp"
	serverVersion = "v1.0.0"
)

// Server is the stdio MCP server.
type Server struct {
	config    *litecfg.LiteConfig
	mcpServer *mcp.Server
	billing   *service.BillingService
	catalog   *cache.CachedCatalog
	ledger    ledger.Store
	logger    *logrus.Logger
}

// Option is a functional option for Server.
type Option func(*Server) error

// WithLedger sets a custom calculation ledger.
func WithLedger(store ledger.Store) Option {
	return func(s *Server) error {
		s.ledger = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// NewServer builds the MCP server and registers its tools.
func NewServer(cfg *litecfg.LiteConfig, opts ...Option) (*Server, error) {
	server := &Server{config: cfg}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.logger == nil {
		logger, err := logging.New(cfg.LoggingConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		server.logger = logger
	}

	if server.ledger == nil {
		if cfg.LedgerEnabled {
			if err := cfg.EnsureDataDir(); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
			store, err := ledger.NewSQLiteStore(cfg.LedgerDBPath())
			if err != nil {
				return nil, fmt.Errorf("failed to open ledger: %w", err)
			}
			server.ledger = store
		} else {
			server.ledger = ledger.NopStore{}
		}
	}

	server.catalog = cache.NewCachedCatalog(catalog.Default(), nil, cache.Options{
		MemoryItems: cfg.CacheMaxItems,
		MemoryTTL:   cfg.CacheTTL,
	}, server.logger)

	billing, err := service.NewBillingService(service.Dependencies{
		Catalog: server.catalog,
		Ledger:  server.ledger,
		Engine:  cfg.EngineConfig(),
		Logger:  server.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create billing service: %w", err)
	}
	server.billing = billing

	server.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	server.registerTools()
	server.registerResources()

	server.logger.WithField("ledger_enabled", cfg.LedgerEnabled).Info("MCP server initialized")
	return server, nil
}

// Start serves MCP over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

// Run serves MCP over the given transport.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("Starting billing MCP server")
	if err := s.mcpServer.Run(ctx, transport); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Close releases the ledger.
func (s *Server) Close() error {
	stats := s.catalog.Stats()
	s.logger.WithFields(logrus.Fields{
		"memory_hits":   stats.MemoryHits,
		"backing_calls": stats.BackingCalls,
	}).Debug("Plan cache statistics")

	if err := s.ledger.Close(); err != nil {
		s.logger.WithError(err).Error("Failed to close ledger")
		return err
	}
	return nil
}
