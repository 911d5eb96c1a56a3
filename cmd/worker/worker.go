package main

import (
	"context"
	"sync"
	"time"

	"stockledger/internal/config"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/idempotency"
	"stockledger/internal/domain/reservation"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/pkg/logger"
)

// publishedRetention is how long relayed outbox rows are kept.
const publishedRetention = 7 * 24 * time.Hour

// WorkerDeps are the collaborators of the background loops.
type WorkerDeps struct {
	Config       *config.Config
	Pool         *postgres.Pool
	Reservations *reservation.Service
	Relay        *postgres.OutboxRelay
	Idempotency  idempotency.Store
	Log          *logger.Logger
}

// Worker runs the reservation sweep, the outbox relay and housekeeping.
type Worker struct {
	deps WorkerDeps
	log  *logger.Logger
}

func NewWorker(deps WorkerDeps) *Worker {
	return &Worker{
		deps: deps,
		log:  deps.Log.WithComponent("worker"),
	}
}

// Run blocks until ctx is cancelled and every loop has returned.
func (w *Worker) Run(ctx context.Context) {
	cfg := w.deps.Config
	ctx = appctx.WithTrace(ctx, appctx.NewTraceContext())

	var wg sync.WaitGroup
	run := func(f func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(ctx)
		}()
	}

	sweeper := reservation.NewSweeper(w.deps.Reservations, cfg.Reservation.SweepInterval, cfg.Reservation.SweepBatchSize)
	run(sweeper.Run)
	run(w.relayLoop)
	run(w.cleanupLoop)

	w.log.Infow("worker loops started",
		"sweep_interval", cfg.Reservation.SweepInterval,
		"outbox_interval", cfg.Worker.OutboxInterval,
		"cleanup_interval", cfg.Worker.CleanupInterval,
	)
	wg.Wait()
}

func (w *Worker) relayLoop(ctx context.Context) {
	ticker := time.NewTicker(w.deps.Config.Worker.OutboxInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processOutbox(ctx)
		}
	}
}

// processOutbox drains full batches back to back so a backlog clears quickly.
func (w *Worker) processOutbox(ctx context.Context) {
	batchSize := w.deps.Config.Worker.OutboxBatchSize
	for ctx.Err() == nil {
		n, err := w.deps.Relay.ProcessBatch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				w.log.Errorw("outbox relay failed", "error", err)
			}
			return
		}
		if n > 0 {
			w.log.Debugw("processed outbox batch", "count", n)
		}
		if n < batchSize {
			return
		}
	}
}

func (w *Worker) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(w.deps.Config.Worker.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if n, err := w.deps.Relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("failed to move outbox messages to DLQ", "error", err)
	} else if n > 0 {
		w.log.Warnw("moved outbox messages to DLQ", "count", n)
	}

	if n, err := w.deps.Relay.PurgePublished(ctx, publishedRetention); err != nil {
		w.log.Errorw("failed to purge published outbox messages", "error", err)
	} else if n > 0 {
		w.log.Infow("purged published outbox messages", "count", n)
	}

	if n, err := w.deps.Idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("failed to clean up idempotency keys", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}

	w.deps.Pool.LogStats(ctx)
}
