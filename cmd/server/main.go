// Package main is the entry point for the stockbook API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"stockbook/internal/app"
	"stockbook/internal/config"
	v1 "stockbook/internal/infrastructure/http/v1"
	"stockbook/internal/infrastructure/http/v1/handlers"
	"stockbook/internal/infrastructure/lock"
	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)
	log.Info("starting stockbook server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	if cfg.IsDevelopment() {
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatalw("failed to migrate database", "error", err)
		}
	} else {
		version, err := postgres.SchemaVersion(ctx, pool)
		if err != nil || version == 0 {
			log.Fatalw("database schema is not initialized, run cmd/seed first", "version", version, "error", err)
		}
		log.Infow("database schema ready", "version", version)
	}

	txManager := postgres.NewTxManager(pool).WithStatementTimeout(cfg.DBStatementTimeout)

	// --- Optional cross-instance product lock ---
	opts := app.Options{Policy: cfg.AdjustmentPolicy}
	health := map[string]handlers.Dependency{"database": {Pinger: pool}}
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalw("invalid REDIS_URL", "error", err)
		}
		rdb := redis.NewClient(redisOpts)
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warnw("redis unreachable, product locks fall back to row locks", "error", err)
		}
		opts.Locker = lock.NewProductLocker(rdb, cfg.ProductLockTTL)
		health["redis"] = handlers.Dependency{
			Pinger:   handlers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
			Optional: true,
		}
		log.Infow("redis product lock enabled", "ttl", cfg.ProductLockTTL)
	}

	services, err := app.NewServices(txManager, opts)
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}

	if _, err := services.Journal.SeedChart(ctx); err != nil {
		log.Fatalw("failed to seed chart of accounts", "error", err)
	}

	// --- Router ---
	routerCfg := v1.RouterConfig{
		Catalog:   services.Catalog,
		Ledger:    services.Ledger,
		Journal:   services.Journal,
		Movements: services.Movements,
		Reports:   services.Reports,
		Health:    health,
		Logger:    log,
	}
	if cfg.IdempotencyEnabled {
		routerCfg.Idempotency = postgres.NewIdempotencyStore(txManager, cfg.IdempotencyTTL)
	}
	if cfg.IsDevelopment() {
		routerCfg.Mode = gin.DebugMode
	}
	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.AppPort, "adjustment_policy", cfg.AdjustmentPolicy)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	pool.LogStats(ctx)
	log.Info("server stopped")
}
