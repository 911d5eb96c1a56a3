// Package reservation manages time-bounded holds placed against an item's stock.
package reservation

import (
	"strings"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusActive    Status = "active"
	StatusFulfilled Status = "fulfilled"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// IsValid checks that s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusFulfilled, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s != StatusActive
}

// releasesStock reports whether entering s gives the held quantity back.
func (s Status) releasesStock() bool {
	return s == StatusCancelled || s == StatusExpired
}

// CanTransition reports whether from -> to is allowed. Only an active
// reservation may move, and only to a terminal state.
func CanTransition(from, to Status) bool {
	return from == StatusActive && to.IsValid() && to.IsTerminal()
}

// Reservation is a hold of Quantity units of one item for an order or a cart.
type Reservation struct {
	ID          id.ID     `db:"id" json:"id"`
	InventoryID id.ID     `db:"inventory_id" json:"inventoryId"`
	Quantity    int64     `db:"quantity" json:"quantity"`
	OrderID     *string   `db:"order_id" json:"orderId,omitempty"`
	CartID      *string   `db:"cart_id" json:"cartId,omitempty"`
	ExpiresAt   time.Time `db:"expires_at" json:"expiresAt"`
	Status      Status    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// IsLapsed reports whether an active hold has passed its deadline.
func (r *Reservation) IsLapsed(now time.Time) bool {
	return r.Status == StatusActive && r.ExpiresAt.Before(now)
}

// CreateRequest asks for a hold. Exactly one of OrderID and CartID is set.
type CreateRequest struct {
	InventoryID id.ID
	Quantity    int64
	OrderID     string
	CartID      string
	ExpiresAt   time.Time
}

// Validate checks the request before anything is locked.
func (r CreateRequest) Validate(now time.Time) error {
	if id.IsNil(r.InventoryID) {
		return apperror.NewValidation("inventoryId is required").WithDetail("field", "inventoryId")
	}
	if r.Quantity <= 0 {
		return apperror.NewValidation("quantity must be positive").WithDetail("field", "quantity")
	}
	hasOrder := strings.TrimSpace(r.OrderID) != ""
	hasCart := strings.TrimSpace(r.CartID) != ""
	if hasOrder == hasCart {
		return apperror.NewValidation("exactly one of orderId and cartId is required")
	}
	if r.ExpiresAt.IsZero() {
		return apperror.NewValidation("expiresAt is required").WithDetail("field", "expiresAt")
	}
	if !r.ExpiresAt.After(now) {
		return apperror.NewValidation("expiresAt must be in the future").WithDetail("field", "expiresAt")
	}
	return nil
}

// SweepResult counts the outcome of one expiry pass.
type SweepResult struct {
	Expired int `json:"expired"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
