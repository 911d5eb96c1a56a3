package reservation

import (
	"context"
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
)

// Repository persists reservations.
type Repository interface {
	Create(ctx context.Context, r *Reservation) error

	// GetByID returns NotFound when the reservation does not exist.
	GetByID(ctx context.Context, reservationID id.ID) (*Reservation, error)

	// GetForUpdate locks the reservation row until the transaction ends.
	GetForUpdate(ctx context.Context, reservationID id.ID) (*Reservation, error)

	// UpdateStatus sets the status and updated_at.
	UpdateStatus(ctx context.Context, reservationID id.ID, status Status, at time.Time) error

	ListActiveByItem(ctx context.Context, itemID id.ID) ([]*Reservation, error)
	ListByOrder(ctx context.Context, orderID string) ([]*Reservation, error)
	ListActiveByCart(ctx context.Context, cartID string) ([]*Reservation, error)

	// ListExpiredIDs returns up to limit active reservations whose deadline is
	// before now, oldest deadline first. The listing takes no locks; each id is
	// re-checked under the reservation lock when it is expired.
	ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]id.ID, error)
}

// Poster posts the ledger entries that back a hold.
type Poster interface {
	Post(ctx context.Context, req ledger.PostRequest) (*ledger.Transaction, error)
}
