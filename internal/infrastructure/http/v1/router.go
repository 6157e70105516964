// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/domain/accounting"
	"stockbook/internal/domain/batches"
	"stockbook/internal/domain/catalog"
	"stockbook/internal/domain/movements"
	"stockbook/internal/domain/reports"
	"stockbook/internal/infrastructure/http/v1/handlers"
	"stockbook/internal/infrastructure/http/v1/middleware"
	"stockbook/pkg/logger"
)

// RouterConfig holds the services the API exposes.
type RouterConfig struct {
	Catalog   *catalog.Service
	Ledger    *batches.Ledger
	Journal   *accounting.Engine
	Movements *movements.Service
	Reports   *reports.Service

	// Health lists the dependencies checked by the readiness probe
	Health map[string]handlers.Dependency

	// Logger for request logging
	Logger *logger.Logger

	// Idempotency enables X-Idempotency-Key handling when non-nil
	Idempotency middleware.IdempotencyStore

	// Mode is the gin mode (release, debug, test)
	Mode string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode == "" {
		cfg.Mode = gin.ReleaseMode
	}
	gin.SetMode(cfg.Mode)

	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	// Health endpoints (no actor, no idempotency)
	healthHandler := handlers.NewHealthHandler(cfg.Health)
	health := v1.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	api := v1.Group("")
	api.Use(middleware.Actor())
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()

	handlers.NewProductHandler(base, cfg.Catalog, cfg.Ledger, cfg.Movements).
		RegisterRoutes(api.Group("/products"))
	handlers.NewMovementHandler(base, cfg.Movements).
		RegisterRoutes(api.Group("/movements"))
	handlers.NewAccountingHandler(base, cfg.Journal).
		RegisterRoutes(api.Group("/accounting"))
	handlers.NewReportHandler(base, cfg.Reports, cfg.Ledger).
		RegisterRoutes(api.Group("/reports"))

	return router
}
