package dto

import (
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/domain/reservation"
)

// CreateReservationRequest holds stock for an order or a cart. Without
// expiresAt the hold lasts for the configured default.
type CreateReservationRequest struct {
	InventoryID string     `json:"inventoryId" binding:"required"`
	Quantity    int64      `json:"quantity"`
	OrderID     string     `json:"orderId"`
	CartID      string     `json:"cartId"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

// ToRequest converts the DTO to a service request.
func (r *CreateReservationRequest) ToRequest(now time.Time, defaultTTL time.Duration) (reservation.CreateRequest, error) {
	itemID, err := parseID("inventoryId", r.InventoryID)
	if err != nil {
		return reservation.CreateRequest{}, err
	}
	expiresAt := now.Add(defaultTTL)
	if r.ExpiresAt != nil {
		expiresAt = *r.ExpiresAt
	}
	return reservation.CreateRequest{
		InventoryID: itemID,
		Quantity:    r.Quantity,
		OrderID:     r.OrderID,
		CartID:      r.CartID,
		ExpiresAt:   expiresAt,
	}, nil
}

// TransitionReservationRequest moves a reservation to a terminal status.
type TransitionReservationRequest struct {
	Status reservation.Status `json:"status" binding:"required"`
}

// ListReservationsQuery selects reservations by order or by cart.
type ListReservationsQuery struct {
	OrderID string `form:"orderId"`
	CartID  string `form:"cartId"`
}

// Validate requires exactly one selector.
func (q *ListReservationsQuery) Validate() error {
	if (q.OrderID == "") == (q.CartID == "") {
		return apperror.NewValidation("exactly one of orderId and cartId is required")
	}
	return nil
}

// AvailabilityCheckQuery asks whether quantity units can be sold.
type AvailabilityCheckQuery struct {
	Quantity int64 `form:"quantity"`
}
