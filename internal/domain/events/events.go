// Package events defines the domain events written to the transactional outbox.
package events

import (
	"context"
	"time"

	"stockledger/internal/core/id"
)

// Event types.
const (
	TypeStockChanged             = "StockChanged"
	TypeReservationStatusChanged = "ReservationStatusChanged"
)

// Aggregate types.
const (
	AggregateItem        = "InventoryItem"
	AggregateReservation = "InventoryReservation"
)

// Event is a domain event to be relayed after the surrounding transaction commits.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// Publisher writes events. It must be called inside a transaction so the event
// commits or rolls back together with the change that produced it.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// StockChanged is emitted for every ledger posting.
type StockChanged struct {
	ItemID          id.ID     `json:"itemId"`
	ProductID       string    `json:"productId"`
	SKU             string    `json:"sku"`
	LocationID      id.ID     `json:"locationId"`
	TransactionID   id.ID     `json:"transactionId"`
	TransactionType string    `json:"transactionType"`
	Quantity        int64     `json:"quantity"`
	OnHand          int64     `json:"onHand"`
	Reserved        int64     `json:"reserved"`
	Available       int64     `json:"available"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// ReservationStatusChanged is emitted when a hold is created or leaves the active state.
type ReservationStatusChanged struct {
	ReservationID id.ID     `json:"reservationId"`
	ItemID        id.ID     `json:"itemId"`
	Quantity      int64     `json:"quantity"`
	From          string    `json:"from,omitempty"`
	To            string    `json:"to"`
	OrderID       *string   `json:"orderId,omitempty"`
	CartID        *string   `json:"cartId,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Message is a stored outbox event as handed to a relay handler.
type Message struct {
	ID            id.ID
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// Handler delivers relayed messages, typically to a broker.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}
