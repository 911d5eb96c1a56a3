package ledger

import (
	"context"

	"stockledger/internal/core/id"
)

// Repository stores ledger entries. Entries are never updated or deleted.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error

	// CreateBatch inserts several entries; it must run inside a transaction.
	CreateBatch(ctx context.Context, entries []*Transaction) error

	// GetByID returns NotFound when the entry does not exist.
	GetByID(ctx context.Context, transactionID id.ID) (*Transaction, error)

	// ListByItem returns the item's entries oldest first.
	ListByItem(ctx context.Context, itemID id.ID) ([]*Transaction, error)

	// ListByReference returns every entry carrying reference, oldest first.
	ListByReference(ctx context.Context, reference string) ([]*Transaction, error)
}
