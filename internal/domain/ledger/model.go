// Package ledger is the single path through which item quantities change.
//
// Every posting appends an immutable Transaction and projects its deltas onto the
// item in the same database transaction.
package ledger

import (
	"strings"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/item"
)

// Type is the kind of ledger posting.
type Type string

const (
	TypeRestock     Type = "restock"
	TypeSale        Type = "sale"
	TypeReturn      Type = "return"
	TypeAdjustment  Type = "adjustment"
	TypeTransfer    Type = "transfer"
	TypeReservation Type = "reservation"
	TypeRelease     Type = "release"
)

// IsValid checks that t is a known posting type.
func (t Type) IsValid() bool {
	switch t {
	case TypeRestock, TypeSale, TypeReturn, TypeAdjustment, TypeTransfer, TypeReservation, TypeRelease:
		return true
	}
	return false
}

// Transaction is an immutable ledger entry.
//
// Quantity is a magnitude for every type except adjustment, which is signed. A
// transfer writes one row per side with the same magnitude; the sign is implied by
// whether the row's item sits at the source location.
type Transaction struct {
	ID                    id.ID     `db:"id" json:"id"`
	InventoryID           id.ID     `db:"inventory_id" json:"inventoryId"`
	Type                  Type      `db:"transaction_type" json:"transactionType"`
	Quantity              int64     `db:"quantity" json:"quantity"`
	SourceLocationID      *id.ID    `db:"source_location_id" json:"sourceLocationId,omitempty"`
	DestinationLocationID *id.ID    `db:"destination_location_id" json:"destinationLocationId,omitempty"`
	Reference             *string   `db:"reference" json:"reference,omitempty"`
	Notes                 *string   `db:"notes" json:"notes,omitempty"`
	CreatedBy             *string   `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt             time.Time `db:"created_at" json:"createdAt"`
}

// Deltas maps a posting to the change it causes on the item.
//
//	restock, return  +q on hand
//	sale             -q on hand, -q reserved
//	adjustment       +q on hand (q signed)
//	reservation      +q reserved
//	release          -q reserved
//
// Transfers are two-sided and go through Service.Transfer instead.
func Deltas(t Type, quantity int64) (item.Delta, error) {
	if t == TypeAdjustment {
		if quantity == 0 {
			return item.Delta{}, apperror.NewValidation("adjustment quantity must not be zero").
				WithDetail("field", "quantity")
		}
		return item.Delta{Quantity: quantity}, nil
	}
	if quantity <= 0 {
		return item.Delta{}, apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("transaction_type", string(t))
	}

	switch t {
	case TypeRestock, TypeReturn:
		return item.Delta{Quantity: quantity}, nil
	case TypeSale:
		return item.Delta{Quantity: -quantity, Reserved: -quantity}, nil
	case TypeReservation:
		return item.Delta{Reserved: quantity}, nil
	case TypeRelease:
		return item.Delta{Reserved: -quantity}, nil
	case TypeTransfer:
		return item.Delta{}, apperror.NewValidation("transfer must be posted as a two-sided transfer").
			WithDetail("transaction_type", string(t))
	default:
		return item.Delta{}, apperror.NewValidation("unknown transaction type").
			WithDetail("transaction_type", string(t))
	}
}

// replayDelta is the delta a stored row contributed to the item at itemLocation.
func (t *Transaction) replayDelta(itemLocation id.ID) item.Delta {
	if t.Type == TypeTransfer {
		if t.SourceLocationID != nil && *t.SourceLocationID == itemLocation {
			return item.Delta{Quantity: -t.Quantity}
		}
		return item.Delta{Quantity: t.Quantity}
	}
	d, err := Deltas(t.Type, t.Quantity)
	if err != nil {
		return item.Delta{}
	}
	return d
}

// PostRequest describes a single-item posting.
type PostRequest struct {
	InventoryID id.ID
	Type        Type
	Quantity    int64
	Reference   string
	Notes       string

	// CreatedBy defaults to the authenticated caller.
	CreatedBy string
}

// TransferRequest moves stock from one item to the same SKU at another location.
type TransferRequest struct {
	SourceItemID          id.ID
	DestinationLocationID id.ID
	Quantity              int64
	Reference             string
	Notes                 string
	CreatedBy             string
}

// TransferResult holds both sides of a transfer.
type TransferResult struct {
	Source           *Transaction `json:"source"`
	Destination      *Transaction `json:"destination"`
	SourceItem       *item.Item   `json:"sourceItem"`
	DestinationItem  *item.Item   `json:"destinationItem"`
	DestinationAdded bool         `json:"destinationCreated"`
}

// Reconciliation compares the stored quantities with a replay of the ledger.
type Reconciliation struct {
	ItemID           id.ID `json:"itemId"`
	TransactionCount int   `json:"transactionCount"`
	ExpectedQuantity int64 `json:"expectedQuantity"`
	ExpectedReserved int64 `json:"expectedReserved"`
	StoredQuantity   int64 `json:"storedQuantity"`
	StoredReserved   int64 `json:"storedReserved"`
	Matches          bool  `json:"matches"`
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
