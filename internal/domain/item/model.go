// Package item provides the inventory item store: one row per product SKU at a
// location, holding on-hand, reserved and available quantities.
package item

import (
	"context"
	"math"
	"strings"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
)

// EntityType names items in the audit log.
const EntityType = "inventory_item"

// Item is the stock of one SKU at one location.
//
// Quantity, ReservedQuantity and AvailableQuantity are derived from the ledger and
// are only changed through ledger postings.
type Item struct {
	ID                id.ID      `db:"id" json:"id"`
	ProductID         string     `db:"product_id" json:"productId"`
	SKU               string     `db:"sku" json:"sku"`
	LocationID        id.ID      `db:"location_id" json:"locationId"`
	Quantity          int64      `db:"quantity" json:"quantity"`
	ReservedQuantity  int64      `db:"reserved_quantity" json:"reservedQuantity"`
	AvailableQuantity int64      `db:"available_quantity" json:"availableQuantity"`
	LowStockThreshold int64      `db:"low_stock_threshold" json:"lowStockThreshold"`
	ReorderPoint      int64      `db:"reorder_point" json:"reorderPoint"`
	ReorderQuantity   int64      `db:"reorder_quantity" json:"reorderQuantity"`
	LastRestockDate   *time.Time `db:"last_restock_date" json:"lastRestockDate,omitempty"`
	Version           int        `db:"version" json:"version"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updatedAt"`
}

// Available computes max(0, quantity - reserved).
func Available(quantity, reserved int64) int64 {
	return max(0, quantity-reserved)
}

// Delta is a change to the quantity fields produced by one ledger posting.
type Delta struct {
	Quantity int64
	Reserved int64

	// RestockedAt, when set, becomes the item's LastRestockDate.
	RestockedAt *time.Time
}

// Apply projects d onto the item, clamping both inputs at zero and recomputing
// availability. Storage implementations that cannot run the projection as a single
// statement use this under their own lock.
func (i *Item) Apply(d Delta) {
	i.Quantity = max(0, i.Quantity+d.Quantity)
	i.ReservedQuantity = max(0, i.ReservedQuantity+d.Reserved)
	i.AvailableQuantity = Available(i.Quantity, i.ReservedQuantity)
	if d.RestockedAt != nil {
		t := *d.RestockedAt
		i.LastRestockDate = &t
	}
	i.UpdatedAt = time.Now().UTC()
}

// CheckDelta rejects a posting whose projection does not fit in an int64.
func (i *Item) CheckDelta(d Delta) error {
	if addOverflows(i.Quantity, d.Quantity) || addOverflows(i.ReservedQuantity, d.Reserved) {
		return apperror.NewValidation("quantity out of range").
			WithDetail("item_id", i.ID.String()).
			WithDetail("quantity", i.Quantity).
			WithDetail("reserved", i.ReservedQuantity).
			WithDetail("quantity_delta", d.Quantity).
			WithDetail("reserved_delta", d.Reserved)
	}
	return nil
}

func addOverflows(a, b int64) bool {
	return (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b)
}

// CheckInvariant verifies the derived quantity fields.
func (i *Item) CheckInvariant() error {
	if i.Quantity < 0 || i.ReservedQuantity < 0 || i.AvailableQuantity != Available(i.Quantity, i.ReservedQuantity) {
		return apperror.NewInternal(nil).
			WithDetail("item_id", i.ID.String()).
			WithDetail("quantity", i.Quantity).
			WithDetail("reserved", i.ReservedQuantity).
			WithDetail("available", i.AvailableQuantity)
	}
	return nil
}

// IsLowStock reports available <= lowStockThreshold.
func (i *Item) IsLowStock() bool {
	return i.AvailableQuantity <= i.LowStockThreshold
}

// IsOutOfStock reports available <= 0.
func (i *Item) IsOutOfStock() bool {
	return i.AvailableQuantity <= 0
}

// NeedsReorder reports whether on-hand stock has fallen to the reorder point.
func (i *Item) NeedsReorder() bool {
	return i.ReorderPoint > 0 && i.Quantity <= i.ReorderPoint
}

// Validate checks the non-quantity fields.
func (i *Item) Validate(ctx context.Context) error {
	if strings.TrimSpace(i.ProductID) == "" {
		return apperror.NewValidation("productId is required").WithDetail("field", "productId")
	}
	if strings.TrimSpace(i.SKU) == "" {
		return apperror.NewValidation("sku is required").WithDetail("field", "sku")
	}
	if id.IsNil(i.LocationID) {
		return apperror.NewValidation("locationId is required").WithDetail("field", "locationId")
	}
	if i.LowStockThreshold < 0 || i.ReorderPoint < 0 || i.ReorderQuantity < 0 {
		return apperror.NewValidation("thresholds must not be negative")
	}
	return nil
}

// Patch is the closed set of fields an item update may change.
//
// Quantity is not written directly: a change is posted to the ledger as an
// adjustment for the difference. ReservedQuantity is never patchable; it is only
// accepted here so the request can be rejected explicitly.
type Patch struct {
	LowStockThreshold *int64
	ReorderPoint      *int64
	ReorderQuantity   *int64
	LastRestockDate   *time.Time
	Quantity          *int64
	ReservedQuantity  *int64
}

// Validate rejects patches that would bypass the ledger or break the invariant.
func (p Patch) Validate() error {
	if p.ReservedQuantity != nil {
		return apperror.NewValidation("reservedQuantity can only change through reservations").
			WithDetail("field", "reservedQuantity")
	}
	if p.Quantity != nil && *p.Quantity < 0 {
		return apperror.NewValidation("quantity must not be negative").WithDetail("field", "quantity")
	}
	for field, v := range map[string]*int64{
		"lowStockThreshold": p.LowStockThreshold,
		"reorderPoint":      p.ReorderPoint,
		"reorderQuantity":   p.ReorderQuantity,
	} {
		if v != nil && *v < 0 {
			return apperror.NewValidation(field + " must not be negative").WithDetail("field", field)
		}
	}
	return nil
}

// applyAttributes merges the metadata fields into i.
func (p Patch) applyAttributes(i *Item) {
	if p.LowStockThreshold != nil {
		i.LowStockThreshold = *p.LowStockThreshold
	}
	if p.ReorderPoint != nil {
		i.ReorderPoint = *p.ReorderPoint
	}
	if p.ReorderQuantity != nil {
		i.ReorderQuantity = *p.ReorderQuantity
	}
	if p.LastRestockDate != nil {
		t := *p.LastRestockDate
		i.LastRestockDate = &t
	}
	i.UpdatedAt = time.Now().UTC()
}

// Filter narrows a paginated item listing.
type Filter struct {
	LocationID *id.ID
	ProductID  *string
	LowStock   bool
	OutOfStock bool
	Page       domain.Page
}
