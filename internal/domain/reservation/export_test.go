package reservation

import (
	"context"
	"time"
)

func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (w *Sweeper) Interval() time.Duration { return w.interval }

func (w *Sweeper) Sweep(ctx context.Context) { w.sweep(ctx) }
