// Package apptest builds services over an in-memory store for tests.
package apptest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stockledger/internal/app"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/item"
	"stockledger/internal/domain/location"
	"stockledger/internal/infrastructure/storage/memory"
)

// Fixture is a fresh in-memory application.
type Fixture struct {
	Store    *memory.Store
	Stores   app.Stores
	Services *app.Services
}

// New creates an empty fixture.
func New() *Fixture {
	store := memory.New()
	stores := app.NewMemoryStores(store, time.Hour)
	return &Fixture{
		Store:    store,
		Stores:   stores,
		Services: app.NewServices(stores),
	}
}

// Location creates an active warehouse.
func (f *Fixture) Location(t testing.TB, name string) *location.Location {
	t.Helper()
	loc := location.NewLocation(name, location.TypeWarehouse)
	require.NoError(t, f.Services.Locations.Create(context.Background(), loc))
	return loc
}

// Item creates an item for productID/sku at locationID with quantity on hand.
func (f *Fixture) Item(t testing.TB, locationID id.ID, productID, sku string, quantity int64) *item.Item {
	t.Helper()
	it, err := f.Services.Items.Create(context.Background(), item.CreateRequest{
		ProductID:  productID,
		SKU:        sku,
		LocationID: locationID,
		Quantity:   quantity,
	})
	require.NoError(t, err)
	return it
}

// Reload reads the item's current state.
func (f *Fixture) Reload(t testing.TB, itemID id.ID) *item.Item {
	t.Helper()
	it, err := f.Services.Items.Get(context.Background(), itemID)
	require.NoError(t, err)
	return it
}
