package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/app/apptest"
	"stockledger/internal/core/apperror"
	"stockledger/internal/domain/availability"
	"stockledger/internal/domain/reservation"
)

func TestTotalsForProduct_SumsAllLocations(t *testing.T) {
	ctx := context.Background()
	f := apptest.New()
	main := f.Location(t, "Main")
	store := f.Location(t, "Store")
	a := f.Item(t, main.ID, "prod-1", "A1", 10)
	f.Item(t, store.ID, "prod-1", "A1", 4)
	f.Item(t, main.ID, "prod-2", "B1", 100)

	_, err := f.Services.Reservations.Create(ctx, reservation.CreateRequest{
		InventoryID: a.ID, Quantity: 3, CartID: "c1", ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	totals, err := f.Services.Availability.TotalsForProduct(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, availability.Totals{
		ProductID:      "prod-1",
		TotalQuantity:  14,
		TotalReserved:  3,
		TotalAvailable: 11,
		ItemCount:      2,
	}, totals)

	// Recomputed on demand, so repeated reads agree.
	again, err := f.Services.Availability.TotalsForProduct(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, totals, again)

	check, err := f.Services.Availability.IsAvailable(ctx, "prod-1", 11)
	require.NoError(t, err)
	assert.True(t, check.OK)

	check, err = f.Services.Availability.IsAvailable(ctx, "prod-1", 12)
	require.NoError(t, err)
	assert.False(t, check.OK)
}

func TestTotalsForProduct_UnknownProduct(t *testing.T) {
	f := apptest.New()

	totals, err := f.Services.Availability.TotalsForProduct(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, availability.Totals{ProductID: "nope"}, totals)

	_, err = f.Services.Availability.IsAvailable(context.Background(), "nope", 0)
	assert.True(t, apperror.IsValidation(err))
}
