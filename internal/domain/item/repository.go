package item

import (
	"context"

	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/location"
)

// Repository persists inventory items.
type Repository interface {
	// Create inserts the item. A duplicate (sku, location) yields DuplicateEntry.
	Create(ctx context.Context, it *Item) error

	// GetByID returns NotFound when the item does not exist.
	GetByID(ctx context.Context, itemID id.ID) (*Item, error)

	// GetForUpdate reads the item and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, itemID id.ID) (*Item, error)

	// GetBySKUForUpdate locks the item for sku at locationID; NotFound if none.
	GetBySKUForUpdate(ctx context.Context, sku string, locationID id.ID) (*Item, error)

	// FindBySKU returns every item with sku, optionally restricted to one location.
	FindBySKU(ctx context.Context, sku string, locationID *id.ID) ([]*Item, error)

	ListByProduct(ctx context.Context, productID string) ([]*Item, error)
	ListByLocation(ctx context.Context, locationID id.ID) ([]*Item, error)

	// ListLowStock returns items whose available quantity is at or below their threshold.
	ListLowStock(ctx context.Context) ([]*Item, error)

	// ListOutOfStock returns items with nothing available.
	ListOutOfStock(ctx context.Context) ([]*Item, error)

	List(ctx context.Context, filter Filter) (domain.ListResult[*Item], error)

	// UpdateAttributes writes the threshold/reorder metadata guarded by it.Version.
	// Quantity columns are not touched. On success it.Version is incremented.
	UpdateAttributes(ctx context.Context, it *Item) error

	// ApplyDelta projects a ledger posting onto the item in one atomic step and
	// returns the updated row. NotFound when the item does not exist.
	ApplyDelta(ctx context.Context, itemID id.ID, delta Delta) (*Item, error)

	// Delete removes the item. Referencing transactions yield Conflict.
	Delete(ctx context.Context, itemID id.ID) error

	// HasTransactions reports whether any ledger entry references the item.
	HasTransactions(ctx context.Context, itemID id.ID) (bool, error)
}

// LocationReader resolves stocking locations.
type LocationReader interface {
	GetByID(ctx context.Context, locationID id.ID) (*location.Location, error)
}

// StockPoster records item quantity changes in the ledger.
type StockPoster interface {
	Restock(ctx context.Context, itemID id.ID, quantity int64, notes string) error
	Adjust(ctx context.Context, itemID id.ID, delta int64, notes string) error
}
