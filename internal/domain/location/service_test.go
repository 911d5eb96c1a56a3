package location_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/app/apptest"
	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/location"
)

func TestCreate_Validates(t *testing.T) {
	f := apptest.New()
	ctx := context.Background()

	assert.True(t, apperror.IsValidation(f.Services.Locations.Create(ctx, location.NewLocation(" ", location.TypeStore))))
	assert.True(t, apperror.IsValidation(f.Services.Locations.Create(ctx, location.NewLocation("Dock", "yard"))))

	loc := location.NewLocation("Dock", location.TypeSupplier)
	require.NoError(t, f.Services.Locations.Create(ctx, loc))
	got, err := f.Services.Locations.Get(ctx, loc.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestUpdate_MergesPatch(t *testing.T) {
	f := apptest.New()
	ctx := context.Background()
	loc := f.Location(t, "Main")

	city := "Lyon"
	inactive := false
	updated, err := f.Services.Locations.Update(ctx, loc.ID, location.Patch{City: &city, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Main", updated.Name)
	assert.Equal(t, "Lyon", *updated.City)
	assert.False(t, updated.IsActive)
	assert.Equal(t, loc.Version+1, updated.Version)

	_, err = f.Services.Locations.Update(ctx, id.New(), location.Patch{City: &city})
	assert.True(t, apperror.IsNotFound(err))
}

func TestList_OrdersByNameAndHidesInactive(t *testing.T) {
	f := apptest.New()
	ctx := context.Background()
	f.Location(t, "Zeta")
	f.Location(t, "Alpha")
	beta := f.Location(t, "Beta")

	inactive := false
	_, err := f.Services.Locations.Update(ctx, beta.ID, location.Patch{IsActive: &inactive})
	require.NoError(t, err)

	active, err := f.Services.Locations.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Alpha", active[0].Name)
	assert.Equal(t, "Zeta", active[1].Name)

	all, err := f.Services.Locations.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDelete_RefusedWhileItemsReferenceIt(t *testing.T) {
	f := apptest.New()
	ctx := context.Background()
	loc := f.Location(t, "Main")
	it := f.Item(t, loc.ID, "prod-1", "A1", 0)

	err := f.Services.Locations.Delete(ctx, loc.ID)
	require.True(t, apperror.IsConflict(err))
	assert.Contains(t, err.Error(), "has associated inventory items")

	require.NoError(t, f.Services.Items.Delete(ctx, it.ID))
	require.NoError(t, f.Services.Locations.Delete(ctx, loc.ID))

	_, err = f.Services.Locations.Get(ctx, loc.ID)
	assert.True(t, apperror.IsNotFound(err))
}
