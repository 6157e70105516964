// Package main is the entry point for the stockbook background worker.
// It relays outbox events to the broker and cleans up expired bookkeeping rows.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"

	"stockbook/internal/config"
	"stockbook/internal/infrastructure/events"
	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/pkg/logger"
)

const (
	cleanupInterval    = time.Hour
	publishedRetention = 7 * 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	log.Info("starting stockbook worker")

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = 5
	poolCfg.ApplicationName = "stockbook-worker"
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool).WithStatementTimeout(cfg.DBStatementTimeout)

	// --- Event delivery ---
	var handler postgres.OutboxHandler = events.LogHandler{}
	if cfg.PubSubProjectID != "" {
		client, err := pubsub.NewClient(ctx, cfg.PubSubProjectID)
		if err != nil {
			log.Fatalw("failed to create pubsub client", "error", err)
		}
		defer client.Close()

		ps, err := events.NewPubSubHandler(client, cfg.PubSubTopic)
		if err != nil {
			log.Fatalw("failed to create pubsub handler", "error", err)
		}
		defer ps.Stop()
		handler = ps
		log.Infow("publishing events to pubsub", "project", cfg.PubSubProjectID, "topic", cfg.PubSubTopic)
	} else {
		log.Info("PUBSUB_PROJECT_ID not set, events are logged only")
	}

	worker := &Worker{
		relay:        postgres.NewOutboxRelay(txManager, cfg.OutboxBatchSize, handler),
		idempotency:  postgres.NewIdempotencyStore(txManager, cfg.IdempotencyTTL),
		pollInterval: cfg.OutboxPollInterval,
		log:          log.WithComponent("worker"),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker polls the outbox and runs periodic cleanup.
type Worker struct {
	relay        *postgres.OutboxRelay
	idempotency  *postgres.IdempotencyStore
	pollInterval time.Duration
	log          *logger.Logger
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w.pollInterval <= 0 {
		w.pollInterval = 2 * time.Second
	}
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(cleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processOutbox(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *Worker) processOutbox(ctx context.Context) {
	stats, err := w.relay.ProcessBatch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Errorw("outbox batch failed", "error", err)
		}
		return
	}
	if stats.Fetched > 0 {
		w.log.Debugw("processed outbox batch",
			"fetched", stats.Fetched, "delivered", stats.Delivered, "failed", stats.Failed)
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if moved, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("move outbox messages to DLQ", "error", err)
	} else if moved > 0 {
		w.log.Warnw("outbox messages moved to DLQ", "count", moved)
	}

	if purged, err := w.relay.PurgePublished(ctx, publishedRetention); err != nil {
		w.log.Errorw("purge published outbox messages", "error", err)
	} else if purged > 0 {
		w.log.Infow("purged published outbox messages", "count", purged)
	}

	if expired, err := w.idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("cleanup idempotency keys", "error", err)
	} else if expired > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", expired)
	}
}
