package ledger_test

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/app/apptest"
	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/events"
	"stockledger/internal/domain/ledger"
)

func TestPost_AppliesDeltas(t *testing.T) {
	ctx := context.Background()
	f := apptest.New()
	loc := f.Location(t, "Main")
	it := f.Item(t, loc.ID, "prod-1", "A1", 10)

	steps := []struct {
		typ          ledger.Type
		qty          int64
		wantQuantity int64
		wantReserved int64
	}{
		{ledger.TypeRestock, 5, 15, 0},
		{ledger.TypeReservation, 4, 15, 4},
		{ledger.TypeSale, 3, 12, 1},
		{ledger.TypeRelease, 1, 12, 0},
		{ledger.TypeReturn, 2, 14, 0},
		{ledger.TypeAdjustment, -4, 10, 0},
	}

	for _, step := range steps {
		_, err := f.Services.Ledger.Post(ctx, ledger.PostRequest{InventoryID: it.ID, Type: step.typ, Quantity: step.qty})
		require.NoError(t, err, step.typ)

		got := f.Reload(t, it.ID)
		assert.Equal(t, step.wantQuantity, got.Quantity, step.typ)
		assert.Equal(t, step.wantReserved, got.ReservedQuantity, step.typ)
		assert.Equal(t, step.wantQuantity-step.wantReserved, got.AvailableQuantity, step.typ)
		require.NoError(t, got.CheckInvariant())
	}
}

func TestPost_ClampsAtZero(t *testing.T) {
	ctx := context.Background()
	f := apptest.New()
	loc := f.Location(t, "Main")
	it := f.Item(t, loc.ID, "prod-1", "A1", 2)

	_, err := f.Services.Ledger.Post(ctx, ledger.PostRequest{InventoryID: it.ID, Type: ledger.TypeSale, Quantity: 5})
	require.NoError(t, err)
	_, err = f.Services.Ledger.Post(ctx, ledger.PostRequest{InventoryID: it.ID, Type: ledger.TypeRelease, Quantity: 5})
	require.NoError(t, err)

	got := f.Reload(t, it.ID)
	assert.Equal(t, int64(0), got.Quantity)
	assert.Equal(t, int64(0), got.ReservedQuantity)
	assert.Equal(t, int64(0), got.AvailableQuantity)
}

func TestPost_SetsLastRestockDate(t *testing.T) {
	f := apptest.New()
	loc := f.Location(t, "Main")
	it := f.Item(t, loc.ID, "prod-1", "A1", 0)
	assert.Nil(t, it.LastRestockDate)

	require.NoError(t, f.Services.Ledger.Restock(context.Background(), it.ID, 3, "delivery"))
	assert.NotNil(t, f.Reload(t, it.ID).LastRestockDate)
}

func TestPost_Rejects(t *testing.T) {
	ctx := context.Background()
	f := apptest.New()
	loc := f.Location(t, "Main")
	it := f.Item(t, loc.ID, "prod-1", "A1", 5)

	_, err := f.Services.Ledger.Post(ctx, ledger.PostRequest{InventoryID: it.ID, Type: ledger.TypeTransfer, Quantity: 1})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.Services.Ledger.Post(ctx, ledger.PostRequest{InventoryID: it.ID, Type: "shrinkage", Quantity: 1})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.Services.Ledger.Post(ctx, ledger.PostRequest{InventoryID: id.New(), Type: ledger.TypeRestock, Quantity: 1})
	assert.True(t, apperror.IsNotFound(err))

	history, err := f.Services.Ledger.ListByItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1, "only the initial stock entry")
}

func TestPost_RejectsQuantityOverflow(t *testing.T) {
	ctx := context.Background()
	f := apptest.New()
	loc := f.Location(t, "Main")
	it := f.Item(t, loc.ID, "prod-1", "A1", 10)

	_, err := f.Services.Ledger.Post(ctx, ledger.PostRequest{InventoryID: it.ID, Type: ledger.TypeRestock, Quantity: math.MaxInt64})
	assert.True(t, apperror.IsValidation(err), "got %v", err)

	got := f.Reload(t, it.ID)
	assert.Equal(t, int64(10), got.Quantity)
	assert.Equal(t, int64(10), got.AvailableQuantity)

	history, err := f.Services.Ledger.ListByItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	rec, err := f.Services.Ledger.Reconcile(ctx, it.ID)
	require.NoError(t, err)
	assert.True(t, rec.Matches)
	assert.Equal(t, int64(10), rec.ExpectedQuantity)
}

func TestTransfer_RejectsDestinationOverflow(t *testing.T) {
	ctx := context.Background()
	f := apptest.New()
	main := f.Location(t, "Main")
	overflow := f.Location(t, "Overflow")
	src := f.Item(t, main.ID, "prod-1", "A1", 10)
	dst := f.Item(t, overflow.ID, "prod-1", "A1", math.MaxInt64)

	_, err := f.Services.Ledger.Transfer(ctx, ledger.TransferRequest{
		SourceItemID:          src.ID,
		DestinationLocationID: overflow.ID,
		Quantity:              2,
	})
	assert.True(t, apperror.IsValidation(err), "got %v", err)
	assert.Equal(t, int64(10), f.Reload(t, src.ID).Quantity)
	assert.Equal(t, int64(math.MaxInt64), f.Reload(t, dst.ID).Quantity)
}

func TestPost_RecordsActorAndEvent(t *testing.T) {
	f := apptest.New()
	loc := f.Location(t, "Main")
	it := f.Item(t, loc.ID, "prod-1", "A1", 0)

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "clerk-7"})
	posted, err := f.Services.Ledger.Post(ctx, ledger.PostRequest{
		InventoryID: it.ID,
		Type:        ledger.TypeRestock,
		Quantity:    8,
		Reference:   "PO-1",
	})
	require.NoError(t, err)
	require.NotNil(t, posted.CreatedBy)
	assert.Equal(t, "clerk-7", *posted.CreatedBy)

	byRef, err := f.Services.Ledger.ListByReference(ctx, "PO-1")
	require.NoError(t, err)
	require.Len(t, byRef, 1)
	assert.Equal(t, posted.ID, byRef[0].ID)

	outbox := f.Store.Outbox()
	require.NotEmpty(t, outbox)
	last := outbox[len(outbox)-1]
	assert.Equal(t, events.TypeStockChanged, last.EventType)

	var payload events.StockChanged
	require.NoError(t, json.Unmarshal(last.Payload, &payload))
	assert.Equal(t, posted.ID, payload.TransactionID)
	assert.Equal(t, int64(8), payload.OnHand)
	assert.Equal(t, int64(8), payload.Available)
}

func TestReconcile_ReplayMatchesStoredQuantities(t *testing.T) {
	ctx := context.Background()
	f := apptest.New()
	main := f.Location(t, "Main")
	store := f.Location(t, "Store")
	it := f.Item(t, main.ID, "prod-1", "A1", 10)

	post := func(typ ledger.Type, qty int64) {
		_, err := f.Services.Ledger.Post(ctx, ledger.PostRequest{InventoryID: it.ID, Type: typ, Quantity: qty})
		require.NoError(t, err)
	}
	post(ledger.TypeReservation, 3)
	post(ledger.TypeSale, 2)
	post(ledger.TypeAdjustment, -20)
	post(ledger.TypeRestock, 6)

	res, err := f.Services.Ledger.Transfer(ctx, ledger.TransferRequest{
		SourceItemID:          it.ID,
		DestinationLocationID: store.ID,
		Quantity:              2,
	})
	require.NoError(t, err)

	for _, itemID := range []id.ID{it.ID, res.DestinationItem.ID} {
		rec, err := f.Services.Ledger.Reconcile(ctx, itemID)
		require.NoError(t, err)
		assert.True(t, rec.Matches, "%+v", rec)
	}
}

func TestTransfer_CreatesDestinationItem(t *testing.T) {
	ctx := context.Background()
	f := apptest.New()
	main := f.Location(t, "Main")
	store := f.Location(t, "Store")
	src := f.Item(t, main.ID, "prod-1", "A1", 10)

	res, err := f.Services.Ledger.Transfer(ctx, ledger.TransferRequest{
		SourceItemID:          src.ID,
		DestinationLocationID: store.ID,
		Quantity:              4,
		Reference:             "TR-1",
	})
	require.NoError(t, err)

	assert.True(t, res.DestinationAdded)
	assert.Equal(t, int64(6), res.SourceItem.Quantity)
	assert.Equal(t, int64(4), res.DestinationItem.Quantity)
	assert.Equal(t, "A1", res.DestinationItem.SKU)
	assert.Equal(t, store.ID, res.DestinationItem.LocationID)

	entries, err := f.Services.Ledger.ListByReference(ctx, "TR-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, ledger.TypeTransfer, e.Type)
		assert.Equal(t, main.ID, *e.SourceLocationID)
		assert.Equal(t, store.ID, *e.DestinationLocationID)
	}

	// A second transfer reuses the destination row.
	res, err = f.Services.Ledger.Transfer(ctx, ledger.TransferRequest{
		SourceItemID:          src.ID,
		DestinationLocationID: store.ID,
		Quantity:              1,
	})
	require.NoError(t, err)
	assert.False(t, res.DestinationAdded)
	assert.Equal(t, int64(5), res.DestinationItem.Quantity)
}

func TestTransfer_Rejects(t *testing.T) {
	ctx := context.Background()
	f := apptest.New()
	main := f.Location(t, "Main")
	store := f.Location(t, "Store")
	src := f.Item(t, main.ID, "prod-1", "A1", 3)

	_, err := f.Services.Ledger.Transfer(ctx, ledger.TransferRequest{
		SourceItemID: src.ID, DestinationLocationID: store.ID, Quantity: 4,
	})
	assert.True(t, apperror.IsConflict(err), "insufficient stock: %v", err)

	_, err = f.Services.Ledger.Transfer(ctx, ledger.TransferRequest{
		SourceItemID: src.ID, DestinationLocationID: main.ID, Quantity: 1,
	})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.Services.Ledger.Transfer(ctx, ledger.TransferRequest{
		SourceItemID: src.ID, DestinationLocationID: id.New(), Quantity: 1,
	})
	assert.True(t, apperror.IsNotFound(err))

	items, err := f.Services.Items.ListByLocation(ctx, store.ID)
	require.NoError(t, err)
	assert.Empty(t, items, "failed transfers leave nothing behind")
	assert.Equal(t, int64(3), f.Reload(t, src.ID).Quantity)
}
