package reservation_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/app/apptest"
	"stockledger/internal/domain/reservation"
)

func lapsedHolds(t *testing.T, f *apptest.Fixture, n int) []*reservation.Reservation {
	t.Helper()
	loc := f.Location(t, "Main")
	it := f.Item(t, loc.ID, "prod-1", "A1", int64(n))

	holds := make([]*reservation.Reservation, 0, n)
	for i := range n {
		r, err := f.Services.Reservations.Create(context.Background(), reservation.CreateRequest{
			InventoryID: it.ID,
			Quantity:    1,
			CartID:      fmt.Sprintf("cart-%d", i),
			ExpiresAt:   time.Now().Add(time.Minute),
		})
		require.NoError(t, err)
		holds = append(holds, r)
	}

	later := time.Now().Add(time.Hour)
	f.Services.Reservations.SetClock(func() time.Time { return later })
	return holds
}

func assertAllExpired(t *testing.T, f *apptest.Fixture, holds []*reservation.Reservation) {
	t.Helper()
	for _, h := range holds {
		got, err := f.Services.Reservations.Get(context.Background(), h.ID)
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusExpired, got.Status, h.CartID)
	}
	it := f.Reload(t, holds[0].InventoryID)
	assert.Equal(t, int64(0), it.ReservedQuantity)
	assert.Equal(t, int64(len(holds)), it.AvailableQuantity)
}

func TestSweeper_DrainsInBatches(t *testing.T) {
	f := apptest.New()
	holds := lapsedHolds(t, f, 5)

	reservation.NewSweeper(f.Services.Reservations, time.Minute, 2).Sweep(context.Background())

	assertAllExpired(t, f, holds)
}

func TestSweeper_RunExpiresUntilCancelled(t *testing.T) {
	f := apptest.New()
	holds := lapsedHolds(t, f, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reservation.NewSweeper(f.Services.Reservations, 10*time.Millisecond, 2).Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		active, err := f.Services.Reservations.ListByItem(context.Background(), holds[0].InventoryID)
		return err == nil && len(active) == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
	assertAllExpired(t, f, holds)
}

func TestNewSweeper_NonPositiveIntervalUsesDefault(t *testing.T) {
	f := apptest.New()

	for _, interval := range []time.Duration{0, -time.Second} {
		w := reservation.NewSweeper(f.Services.Reservations, interval, 0)
		assert.Equal(t, reservation.DefaultSweepInterval, w.Interval())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.NotPanics(t, func() { w.Run(ctx) })
	}
}
