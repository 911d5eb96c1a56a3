package location

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository persists locations.
type Repository interface {
	Create(ctx context.Context, loc *Location) error

	// GetByID returns NotFound when the location does not exist.
	GetByID(ctx context.Context, locationID id.ID) (*Location, error)

	// Update writes every mutable column, guarded by loc.Version (optimistic lock).
	// On success loc.Version is incremented.
	Update(ctx context.Context, loc *Location) error

	// Delete removes the location. A referencing inventory item yields Conflict.
	Delete(ctx context.Context, locationID id.ID) error

	// List returns locations ordered by name; inactive ones only when requested.
	List(ctx context.Context, includeInactive bool) ([]*Location, error)

	// HasItems reports whether any inventory item references the location.
	HasItems(ctx context.Context, locationID id.ID) (bool, error)
}
