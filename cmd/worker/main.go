// Package main is the entry point for the cashpoint background worker.
// It relays outbox events to a Redis stream and runs periodic cleanup.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cashpoint/internal/config"
	"cashpoint/internal/infrastructure/messaging"
	"cashpoint/internal/infrastructure/storage/postgres"
	"cashpoint/pkg/logger"
)

const cleanupInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: !cfg.IsProduction(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	if cfg.StorageDriver != config.DriverPostgres {
		log.Fatalw("worker requires postgres storage", "storage", cfg.StorageDriver)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting cashpoint worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL).WithConns(5, 1))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	rdb, err := messaging.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalw("failed to connect to redis", "error", err)
	}
	defer func() { _ = rdb.Close() }()

	txManager := postgres.NewTxManager(pool)
	worker := &Worker{
		relay:        postgres.NewOutboxRelay(txManager, cfg.OutboxBatchSize, messaging.NewStreamPublisher(rdb, cfg.RedisStream)),
		pool:         pool,
		idempotency:  postgres.NewIdempotencyStore(txManager, cfg.IdempotencyTTL),
		pollInterval: cfg.OutboxPollInterval,
		retention:    cfg.OutboxRetention,
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

// Worker runs the outbox relay and housekeeping jobs.
type Worker struct {
	relay        *postgres.OutboxRelay
	pool         *postgres.Pool
	idempotency  *postgres.IdempotencyStore
	pollInterval time.Duration
	retention    time.Duration
	log          *logger.Logger
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(cleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drainOutbox(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

// drainOutbox relays batches until the outbox is empty.
func (w *Worker) drainOutbox(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			w.log.Errorw("outbox batch failed", "error", err)
			return
		}
		if n == 0 {
			return
		}
		w.log.Debugw("relayed outbox batch", "count", n)
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	w.pool.LogStats(ctx)

	if n, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("move failed events to DLQ", "error", err)
	} else if n > 0 {
		w.log.Warnw("moved failed events to DLQ", "count", n)
	}

	if n, err := w.relay.PurgePublished(ctx, w.retention); err != nil {
		w.log.Errorw("purge published events", "error", err)
	} else if n > 0 {
		w.log.Infow("purged published events", "count", n)
	}

	if n, err := w.idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("cleanup idempotency keys", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}
}
