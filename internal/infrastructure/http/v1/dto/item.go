package dto

import (
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/item"
)

// --- Request DTOs ---

// CreateItemRequest registers a SKU at a location with its opening stock.
type CreateItemRequest struct {
	ProductID         string `json:"productId" binding:"required"`
	SKU               string `json:"sku" binding:"required"`
	LocationID        string `json:"locationId" binding:"required"`
	Quantity          int64  `json:"quantity"`
	ReservedQuantity  int64  `json:"reservedQuantity"`
	LowStockThreshold int64  `json:"lowStockThreshold"`
	ReorderPoint      int64  `json:"reorderPoint"`
	ReorderQuantity   int64  `json:"reorderQuantity"`
}

// ToRequest converts the DTO to a service request.
func (r *CreateItemRequest) ToRequest() (item.CreateRequest, error) {
	locationID, err := parseID("locationId", r.LocationID)
	if err != nil {
		return item.CreateRequest{}, err
	}
	return item.CreateRequest{
		ProductID:         r.ProductID,
		SKU:               r.SKU,
		LocationID:        locationID,
		Quantity:          r.Quantity,
		ReservedQuantity:  r.ReservedQuantity,
		LowStockThreshold: r.LowStockThreshold,
		ReorderPoint:      r.ReorderPoint,
		ReorderQuantity:   r.ReorderQuantity,
	}, nil
}

// UpdateItemRequest is a partial update. A quantity change is booked as an
// adjustment; reservedQuantity is rejected by the service.
type UpdateItemRequest struct {
	LowStockThreshold *int64     `json:"lowStockThreshold"`
	ReorderPoint      *int64     `json:"reorderPoint"`
	ReorderQuantity   *int64     `json:"reorderQuantity"`
	LastRestockDate   *time.Time `json:"lastRestockDate"`
	Quantity          *int64     `json:"quantity"`
	ReservedQuantity  *int64     `json:"reservedQuantity"`
}

// ToPatch converts the request to a domain patch.
func (r *UpdateItemRequest) ToPatch() item.Patch {
	return item.Patch{
		LowStockThreshold: r.LowStockThreshold,
		ReorderPoint:      r.ReorderPoint,
		ReorderQuantity:   r.ReorderQuantity,
		LastRestockDate:   r.LastRestockDate,
		Quantity:          r.Quantity,
		ReservedQuantity:  r.ReservedQuantity,
	}
}

// AdjustItemRequest posts a signed correction.
type AdjustItemRequest struct {
	Delta  int64  `json:"delta"`
	Reason string `json:"reason"`
}

// ListItemsQuery filters the paginated item listing.
type ListItemsQuery struct {
	PaginationRequest
	LocationID string `form:"locationId"`
	ProductID  string `form:"productId"`
	LowStock   bool   `form:"lowStock"`
	OutOfStock bool   `form:"outOfStock"`
}

// ToFilter converts the query to a domain filter.
func (q *ListItemsQuery) ToFilter() (item.Filter, error) {
	f := item.Filter{
		LowStock:   q.LowStock,
		OutOfStock: q.OutOfStock,
		Page:       q.ToPage(),
	}
	if q.LocationID != "" {
		locationID, err := parseID("locationId", q.LocationID)
		if err != nil {
			return item.Filter{}, err
		}
		f.LocationID = &locationID
	}
	if q.ProductID != "" {
		f.ProductID = &q.ProductID
	}
	return f, nil
}

// FindBySKUQuery narrows a SKU lookup to one location.
type FindBySKUQuery struct {
	LocationID string `form:"locationId"`
}

// Location parses the optional location filter.
func (q *FindBySKUQuery) Location() (*id.ID, error) {
	if q.LocationID == "" {
		return nil, nil
	}
	locationID, err := parseID("locationId", q.LocationID)
	if err != nil {
		return nil, err
	}
	return &locationID, nil
}

// --- Response DTOs ---

// ItemResponse is an item with its derived stock flags.
type ItemResponse struct {
	*item.Item
	IsLowStock   bool `json:"isLowStock"`
	IsOutOfStock bool `json:"isOutOfStock"`
	NeedsReorder bool `json:"needsReorder"`
}

// FromItem creates response DTO from domain entity.
func FromItem(it *item.Item) ItemResponse {
	return ItemResponse{
		Item:         it,
		IsLowStock:   it.IsLowStock(),
		IsOutOfStock: it.IsOutOfStock(),
		NeedsReorder: it.NeedsReorder(),
	}
}

// FromItems converts a list, never returning nil.
func FromItems(items []*item.Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, FromItem(it))
	}
	return out
}
