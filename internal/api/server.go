// Package api serves the billing engine over HTTP with gin.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tiered-billing-engine/internal/domain"
	"github.com/tiered-billing-engine/internal/middleware"
	"github.com/tiered-billing-engine/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	billing       *service.BillingService
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
	limiter       *middleware.RateLimiter

	checksMu sync.RWMutex
	checks   map[string]HealthCheck
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, billing *service.BillingService, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	if configManager.IsDevelopment() && cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	s := &Server{
		configManager: configManager,
		billing:       billing,
		logger:        logger,
		router:        router,
		checks:        make(map[string]HealthCheck),
	}

	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.CORS())
	if cfg.Server.RateLimit > 0 {
		s.limiter = middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
		router.Use(middleware.RateLimit(s.limiter))
	}

	s.setupRoutes(cfg.Server.RequestTimeout)

	return s
}

// AddHealthCheck registers a dependency probe reported by GET /health.
func (s *Server) AddHealthCheck(name string, check HealthCheck) {
	s.checksMu.Lock()
	defer s.checksMu.Unlock()
	s.checks[name] = check
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithFields(logrus.Fields{
			"addr": addr,
			"tls":  cfg.TLSEnabled,
		}).Info("HTTP server listening")

		var err error
		if cfg.TLSEnabled {
			err = s.server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	if s.limiter != nil {
		s.limiter.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes(requestTimeout time.Duration) {
	s.router.GET("/health", s.handleHealth)

	// The stream is long-lived; it bounds each message instead of the connection.
	s.router.GET("/ws/estimate", s.handleEstimateStream(requestTimeout))

	api := s.router.Group("/", middleware.RequestTimeout(requestTimeout))
	{
		api.POST("/estimate", s.handleEstimate)
		api.GET("/estimates/:id", s.handleGetEstimate)
		api.POST("/adjudicate", s.handleAdjudicate)
		api.POST("/package/reconcile", s.handleReconcile)
		api.POST("/incentive/compute", s.handleIncentive)
		api.POST("/bill/split", s.handleSplit)
		api.GET("/plans", s.handleListPlans)
		api.GET("/plans/:name", s.handleGetPlan)
		api.GET("/packages", s.handleListPackages)
		api.POST("/payments/initiate", s.handleInitiatePayment)
		api.GET("/payments/:txnId/status", s.handlePaymentStatus)
		api.GET("/ledger", s.handleListLedger)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	s.checksMu.RLock()
	checks := make(map[string]HealthCheck, len(s.checks))
	for name, check := range s.checks {
		checks[name] = check
	}
	s.checksMu.RUnlock()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	results := make(map[string]string, len(checks))
	for name, check := range checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":    status,
		"checks":    results,
		"timestamp": time.Now().UTC(),
		"version":   Version,
	})
}
