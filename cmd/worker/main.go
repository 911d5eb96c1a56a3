// Package main is the entry point for the stockledger background worker: the
// reservation expiry sweep, the outbox relay and housekeeping.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"stockledger/internal/app"
	"stockledger/internal/config"
	"stockledger/internal/infrastructure/messaging"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	if cfg.App.StorageDriver != config.DriverPostgres {
		log.Fatalw("worker requires the postgres storage driver", "storage", cfg.App.StorageDriver)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting stockledger worker")

	rt, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer rt.Close()

	publisher := messaging.NewPublisher(messaging.Config{
		URL:      cfg.AMQP.URL,
		Exchange: cfg.AMQP.Exchange,
	})
	defer func() { _ = publisher.Close() }()

	txManager := postgres.NewTxManager(rt.Pool)
	worker := NewWorker(WorkerDeps{
		Config:       cfg,
		Pool:         rt.Pool,
		Reservations: rt.Services.Reservations,
		Relay:        postgres.NewOutboxRelay(txManager, cfg.Worker.OutboxBatchSize, publisher),
		Idempotency:  rt.Stores.Idempotency,
		Log:          log,
	})

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
