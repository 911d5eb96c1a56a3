package reservation

import (
	"context"
	"time"

	"stockledger/pkg/logger"
)

// Sweeper periodically expires lapsed reservations.
type Sweeper struct {
	svc       *Service
	interval  time.Duration
	batchSize int
}

// Defaults for a non-positive interval or batch size.
const (
	DefaultSweepInterval  = 30 * time.Second
	DefaultSweepBatchSize = 100
)

// NewSweeper creates a sweeper that runs every interval, handling at most
// batchSize reservations per pass.
func NewSweeper(svc *Service, interval time.Duration, batchSize int) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	return &Sweeper{svc: svc, interval: interval, batchSize: batchSize}
}

// Run blocks until ctx is cancelled.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep drains lapsed reservations in batches until a pass finds nothing left
// to expire.
func (w *Sweeper) sweep(ctx context.Context) {
	for {
		res, err := w.svc.ExpireLapsed(ctx, w.svc.now(), w.batchSize)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error(ctx, "reservation sweep failed", "error", err)
			}
			return
		}
		if res.Expired+res.Skipped+res.Failed < w.batchSize || res.Expired == 0 {
			return
		}
	}
}
