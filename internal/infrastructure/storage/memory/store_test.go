package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/events"
	"stockledger/internal/domain/item"
	"stockledger/internal/domain/location"
)

func seed(t *testing.T, s *Store) (*location.Location, *item.Item) {
	t.Helper()
	ctx := context.Background()
	repos := s.Repositories()

	loc := location.NewLocation("Main", location.TypeWarehouse)
	require.NoError(t, repos.Locations.Create(ctx, loc))

	it := &item.Item{ID: id.New(), ProductID: "p", SKU: "A1", LocationID: loc.ID, Version: 1}
	require.NoError(t, repos.Items.Create(ctx, it))
	return loc, it
}

func TestRunInTransaction_RollsBackOnError(t *testing.T) {
	s := New()
	_, it := seed(t, s)
	repos := s.Repositories()
	boom := errors.New("boom")

	err := s.RunInTransaction(context.Background(), func(ctx context.Context) error {
		_, err := repos.Items.ApplyDelta(ctx, it.ID, item.Delta{Quantity: 5})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repos.Items.GetByID(context.Background(), it.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Quantity)
}

func TestRunInTransaction_RollsBackOnPanic(t *testing.T) {
	s := New()
	_, it := seed(t, s)
	repos := s.Repositories()

	assert.Panics(t, func() {
		_ = s.RunInTransaction(context.Background(), func(ctx context.Context) error {
			_, _ = repos.Items.ApplyDelta(ctx, it.ID, item.Delta{Quantity: 5})
			panic("boom")
		})
	})

	got, err := repos.Items.GetByID(context.Background(), it.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Quantity)
}

func TestRunInTransaction_NestedJoinsOuter(t *testing.T) {
	s := New()
	_, it := seed(t, s)
	repos := s.Repositories()

	err := s.RunInTransaction(context.Background(), func(ctx context.Context) error {
		assert.True(t, s.InTransaction(ctx))
		if err := s.RunInTransaction(ctx, func(ctx context.Context) error {
			_, err := repos.Items.ApplyDelta(ctx, it.ID, item.Delta{Quantity: 5})
			return err
		}); err != nil {
			return err
		}
		return errors.New("outer fails")
	})
	require.Error(t, err)

	got, err := repos.Items.GetByID(context.Background(), it.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Quantity, "inner work is undone with the outer transaction")
	assert.False(t, s.InTransaction(context.Background()))
}

func TestItemRepo_Constraints(t *testing.T) {
	s := New()
	loc, it := seed(t, s)
	repos := s.Repositories()
	ctx := context.Background()

	dup := &item.Item{ID: id.New(), ProductID: "p", SKU: "A1", LocationID: loc.ID}
	err := repos.Items.Create(ctx, dup)
	assert.True(t, apperror.IsConflict(err))

	orphan := &item.Item{ID: id.New(), ProductID: "p", SKU: "A2", LocationID: id.New()}
	assert.True(t, apperror.IsConflict(repos.Items.Create(ctx, orphan)))

	assert.True(t, apperror.IsConflict(repos.Locations.Delete(ctx, loc.ID)))

	stale := *it
	stale.LowStockThreshold = 3
	require.NoError(t, repos.Items.UpdateAttributes(ctx, &stale))
	stale.Version = 1
	assert.True(t, apperror.IsConcurrentModification(repos.Items.UpdateAttributes(ctx, &stale)))
}

func TestOutboxPublish_RequiresTransaction(t *testing.T) {
	s := New()
	repos := s.Repositories()
	assert.Error(t, repos.Outbox.Publish(context.Background(), eventFixture()))

	require.NoError(t, s.RunInTransaction(context.Background(), func(ctx context.Context) error {
		return repos.Outbox.Publish(ctx, eventFixture())
	}))
	assert.Len(t, s.Outbox(), 1)
}

func TestIdempotencyStore(t *testing.T) {
	s := New()
	store := s.Repositories().Idempotency.WithTTL(time.Hour)
	ctx := context.Background()

	replay, err := store.AcquireKey(ctx, "k1", "u1", "POST /reservations", "hash")
	require.NoError(t, err)
	assert.Nil(t, replay)

	_, err = store.AcquireKey(ctx, "k1", "u1", "POST /reservations", "hash")
	assert.True(t, isIdempotency(err), "key still in flight")

	_, err = store.AcquireKey(ctx, "k1", "u1", "POST /reservations", "other")
	assert.True(t, isIdempotency(err))

	require.NoError(t, store.CompleteKey(ctx, "k1", 201, "application/json", map[string]string{"id": "r1"}))
	replay, err = store.AcquireKey(ctx, "k1", "u1", "POST /reservations", "hash")
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, 201, replay.StatusCode)
	assert.JSONEq(t, `{"id":"r1"}`, string(replay.Body))

	require.NoError(t, store.ReleaseKey(ctx, "k1"))
	replay, err = store.AcquireKey(ctx, "k1", "u1", "POST /reservations", "other")
	require.NoError(t, err)
	assert.Nil(t, replay)
}

func eventFixture() events.Event {
	return events.Event{
		AggregateType: events.AggregateItem,
		AggregateID:   id.New(),
		EventType:     events.TypeStockChanged,
		Payload:       map[string]int{"onHand": 1},
	}
}

func isIdempotency(err error) bool {
	appErr, ok := apperror.AsAppError(err)
	return ok && appErr.Code == apperror.CodeIdempotency
}

func TestLocationRepo_ListEmptyIsNotNil(t *testing.T) {
	repos := New().Repositories()

	locs, err := repos.Locations.List(context.Background(), true)
	require.NoError(t, err)
	assert.NotNil(t, locs)
	assert.Empty(t, locs)
}
