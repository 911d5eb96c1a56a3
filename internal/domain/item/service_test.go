package item_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/app/apptest"
	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/item"
	"stockledger/internal/domain/ledger"
)

func TestCreate_PostsInitialStock(t *testing.T) {
	ctx := context.Background()
	f := apptest.New()
	loc := f.Location(t, "Main")

	it := f.Item(t, loc.ID, "prod-1", "A1", 10)
	assert.Equal(t, int64(10), it.Quantity)
	assert.Equal(t, int64(10), it.AvailableQuantity)
	assert.NotNil(t, it.LastRestockDate)

	history, err := f.Services.Ledger.ListByItem(ctx, it.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, ledger.TypeRestock, history[0].Type)
	assert.Equal(t, int64(10), history[0].Quantity)
}

func TestCreate_Rejects(t *testing.T) {
	ctx := context.Background()
	f := apptest.New()
	loc := f.Location(t, "Main")
	f.Item(t, loc.ID, "prod-1", "A1", 1)

	_, err := f.Services.Items.Create(ctx, item.CreateRequest{ProductID: "prod-1", SKU: "A1", LocationID: loc.ID})
	assert.True(t, apperror.IsConflict(err), "duplicate sku+location: %v", err)

	_, err = f.Services.Items.Create(ctx, item.CreateRequest{ProductID: "prod-1", SKU: "B1", LocationID: id.New()})
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.Services.Items.Create(ctx, item.CreateRequest{
		ProductID: "prod-1", SKU: "B1", LocationID: loc.ID, Quantity: 5, ReservedQuantity: 2,
	})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.Services.Items.Create(ctx, item.CreateRequest{ProductID: "prod-1", SKU: "B1", LocationID: loc.ID, Quantity: -1})
	assert.True(t, apperror.IsValidation(err))
}

func TestUpdate_QuantityBecomesAdjustment(t *testing.T) {
	ctx := context.Background()
	f := apptest.New()
	loc := f.Location(t, "Main")
	it := f.Item(t, loc.ID, "prod-1", "A1", 10)

	qty, threshold := int64(7), int64(2)
	updated, err := f.Services.Items.Update(ctx, it.ID, item.Patch{Quantity: &qty, LowStockThreshold: &threshold})
	require.NoError(t, err)
	assert.Equal(t, int64(7), updated.Quantity)
	assert.Equal(t, int64(7), updated.AvailableQuantity)
	assert.Equal(t, int64(2), updated.LowStockThreshold)
	assert.Equal(t, it.Version+1, updated.Version)

	history, err := f.Services.Ledger.ListByItem(ctx, it.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, ledger.TypeAdjustment, history[1].Type)
	assert.Equal(t, int64(-3), history[1].Quantity)
}

func TestUpdate_RejectsReservedQuantity(t *testing.T) {
	f := apptest.New()
	loc := f.Location(t, "Main")
	it := f.Item(t, loc.ID, "prod-1", "A1", 10)

	reserved := int64(3)
	_, err := f.Services.Items.Update(context.Background(), it.ID, item.Patch{ReservedQuantity: &reserved})
	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, int64(0), f.Reload(t, it.ID).ReservedQuantity)
}

func TestAdjustQuantity(t *testing.T) {
	ctx := context.Background()
	f := apptest.New()
	loc := f.Location(t, "Main")
	it := f.Item(t, loc.ID, "prod-1", "A1", 5)

	adjusted, err := f.Services.Items.AdjustQuantity(ctx, it.ID, -2, "damaged")
	require.NoError(t, err)
	assert.Equal(t, int64(3), adjusted.Quantity)

	_, err = f.Services.Items.AdjustQuantity(ctx, it.ID, -4, "count")
	assert.True(t, apperror.IsValidation(err))

	_, err = f.Services.Items.AdjustQuantity(ctx, it.ID, 0, "noop")
	assert.True(t, apperror.IsValidation(err))

	_, err = f.Services.Items.AdjustQuantity(ctx, it.ID, math.MaxInt64, "miscount")
	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, int64(3), f.Reload(t, it.ID).Quantity)

	history, err := f.Services.Ledger.ListByItem(ctx, it.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.NotNil(t, history[1].Notes)
	assert.Equal(t, "damaged", *history[1].Notes)
}

func TestDelete_RefusedWithHistory(t *testing.T) {
	ctx := context.Background()
	f := apptest.New()
	loc := f.Location(t, "Main")
	stocked := f.Item(t, loc.ID, "prod-1", "A1", 5)
	empty := f.Item(t, loc.ID, "prod-1", "A2", 0)

	err := f.Services.Items.Delete(ctx, stocked.ID)
	assert.True(t, apperror.IsConflict(err))

	require.NoError(t, f.Services.Items.Delete(ctx, empty.ID))
	_, err = f.Services.Items.Get(ctx, empty.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	f := apptest.New()
	main := f.Location(t, "Main")
	store := f.Location(t, "Store")
	a := f.Item(t, main.ID, "prod-1", "A1", 10)
	f.Item(t, store.ID, "prod-1", "A1", 0)
	f.Item(t, main.ID, "prod-2", "B1", 2)

	threshold := int64(5)
	_, err := f.Services.Items.Update(ctx, a.ID, item.Patch{LowStockThreshold: &threshold})
	require.NoError(t, err)

	bySKU, err := f.Services.Items.FindBySKU(ctx, "A1", nil)
	require.NoError(t, err)
	assert.Len(t, bySKU, 2)

	bySKU, err = f.Services.Items.FindBySKU(ctx, "A1", &store.ID)
	require.NoError(t, err)
	require.Len(t, bySKU, 1)
	assert.Equal(t, store.ID, bySKU[0].LocationID)

	byProduct, err := f.Services.Items.ListByProduct(ctx, "prod-1")
	require.NoError(t, err)
	assert.Len(t, byProduct, 2)

	low, err := f.Services.Items.ListLowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, store.ID, low[0].LocationID)

	out, err := f.Services.Items.ListOutOfStock(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, store.ID, out[0].LocationID)

	page, err := f.Services.Items.List(ctx, item.Filter{LocationID: &main.ID, Page: domain.Page{Limit: 1}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.TotalCount)
	assert.Len(t, page.Items, 1)
}

func TestAuditTrail(t *testing.T) {
	ctx := context.Background()
	f := apptest.New()
	loc := f.Location(t, "Main")
	it := f.Item(t, loc.ID, "prod-1", "A1", 0)
	require.NoError(t, f.Services.Items.Delete(ctx, it.ID))

	var actions []audit.Action
	for _, e := range f.Store.AuditLog() {
		if e.EntityID == it.ID {
			actions = append(actions, e.Action)
		}
	}
	assert.Equal(t, []audit.Action{audit.ActionCreate, audit.ActionDelete}, actions)
}
