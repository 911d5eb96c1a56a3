package reservation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain/events"
	"stockledger/internal/domain/item"
	"stockledger/internal/domain/ledger"
	"stockledger/pkg/logger"
)

// ItemLocker locks an item row for the duration of a transaction.
type ItemLocker interface {
	GetForUpdate(ctx context.Context, itemID id.ID) (*item.Item, error)
}

// Service creates and transitions reservations. Every change to held stock goes
// through the ledger in the same transaction as the reservation row.
type Service struct {
	repo      Repository
	items     ItemLocker
	ledger    Poster
	publisher events.Publisher
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a reservation service. publisher may be nil.
func NewService(repo Repository, items ItemLocker, poster Poster, publisher events.Publisher, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		items:     items,
		ledger:    poster,
		publisher: publisher,
		txManager: txManager,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create places a hold. The item row is locked while availability is checked, the
// reservation inserted and the reservation entry posted, so two callers can never
// both take the last units.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Reservation, error) {
	now := s.now()
	if err := req.Validate(now); err != nil {
		return nil, err
	}

	var created *Reservation
	err := tx.RunWithRetry(ctx, s.txManager, tx.DefaultRetryPolicy(), func(ctx context.Context) error {
		it, err := s.items.GetForUpdate(ctx, req.InventoryID)
		if err != nil {
			return err
		}
		if it.AvailableQuantity < req.Quantity {
			return apperror.NewInsufficientStock(it.ID.String(), req.Quantity, it.AvailableQuantity)
		}

		r := &Reservation{
			ID:          id.New(),
			InventoryID: req.InventoryID,
			Quantity:    req.Quantity,
			OrderID:     optional(req.OrderID),
			CartID:      optional(req.CartID),
			ExpiresAt:   req.ExpiresAt.UTC(),
			Status:      StatusActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.repo.Create(ctx, r); err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}

		if _, err := s.ledger.Post(ctx, ledger.PostRequest{
			InventoryID: r.InventoryID,
			Type:        ledger.TypeReservation,
			Quantity:    r.Quantity,
			Reference:   r.ID.String(),
		}); err != nil {
			return err
		}

		if err := s.publish(ctx, r, ""); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "reservation created",
		"reservation_id", created.ID,
		"item_id", created.InventoryID,
		"quantity", created.Quantity,
		"expires_at", created.ExpiresAt,
	)
	return created, nil
}

// Transition moves an active reservation to a terminal status. Cancelling or
// expiring releases the held quantity; fulfilling only records the outcome, the
// checkout flow consumes the stock with a sale posting.
func (s *Service) Transition(ctx context.Context, reservationID id.ID, to Status) (*Reservation, error) {
	if !to.IsValid() {
		return nil, apperror.NewValidation("unknown reservation status").WithDetail("status", string(to))
	}

	var updated *Reservation
	err := tx.RunWithRetry(ctx, s.txManager, tx.DefaultRetryPolicy(), func(ctx context.Context) error {
		var err error
		updated, err = s.transition(ctx, reservationID, to)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "reservation transitioned",
		"reservation_id", reservationID,
		"status", updated.Status,
	)
	return updated, nil
}

func (s *Service) transition(ctx context.Context, reservationID id.ID, to Status) (*Reservation, error) {
	r, err := s.repo.GetForUpdate(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(r.Status, to) {
		return nil, apperror.NewInvalidTransition("reservation", string(r.Status), string(to)).
			WithDetail("reservation_id", reservationID.String())
	}

	from := r.Status
	now := s.now()
	if err := s.repo.UpdateStatus(ctx, r.ID, to, now); err != nil {
		return nil, fmt.Errorf("update reservation status: %w", err)
	}
	r.Status = to
	r.UpdatedAt = now

	if to.releasesStock() {
		if _, err := s.ledger.Post(ctx, ledger.PostRequest{
			InventoryID: r.InventoryID,
			Type:        ledger.TypeRelease,
			Quantity:    r.Quantity,
			Reference:   r.ID.String(),
			Notes:       "reservation " + string(to),
		}); err != nil {
			return nil, err
		}
	}

	if err := s.publish(ctx, r, from); err != nil {
		return nil, err
	}
	return r, nil
}

// ExpireLapsed expires up to limit active reservations whose deadline is before
// now, each in its own transaction. A reservation that a concurrent caller has
// already moved out of active is skipped, so its stock is released only once.
func (s *Service) ExpireLapsed(ctx context.Context, now time.Time, limit int) (SweepResult, error) {
	var result SweepResult

	ids, err := s.repo.ListExpiredIDs(ctx, now, limit)
	if err != nil {
		return result, fmt.Errorf("list lapsed reservations: %w", err)
	}

	for _, reservationID := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		_, err := s.Transition(ctx, reservationID, StatusExpired)
		switch {
		case err == nil:
			result.Expired++
		case apperror.IsInvalidTransition(err), apperror.IsNotFound(err):
			result.Skipped++
		default:
			result.Failed++
			logger.Error(ctx, "failed to expire reservation", "reservation_id", reservationID, "error", err)
		}
	}

	if len(ids) > 0 {
		logger.Info(ctx, "reservation sweep finished",
			"expired", result.Expired,
			"skipped", result.Skipped,
			"failed", result.Failed,
		)
	}
	return result, nil
}

// Get returns a reservation by id.
func (s *Service) Get(ctx context.Context, reservationID id.ID) (*Reservation, error) {
	return s.repo.GetByID(ctx, reservationID)
}

// ListByItem returns the item's active holds.
func (s *Service) ListByItem(ctx context.Context, itemID id.ID) ([]*Reservation, error) {
	return s.repo.ListActiveByItem(ctx, itemID)
}

// ListByOrder returns the order's reservations in any status.
func (s *Service) ListByOrder(ctx context.Context, orderID string) ([]*Reservation, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, apperror.NewValidation("orderId is required").WithDetail("field", "orderId")
	}
	return s.repo.ListByOrder(ctx, orderID)
}

// ListByCart returns the cart's active holds.
func (s *Service) ListByCart(ctx context.Context, cartID string) ([]*Reservation, error) {
	if strings.TrimSpace(cartID) == "" {
		return nil, apperror.NewValidation("cartId is required").WithDetail("field", "cartId")
	}
	return s.repo.ListActiveByCart(ctx, cartID)
}

func (s *Service) publish(ctx context.Context, r *Reservation, from Status) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Publish(ctx, events.Event{
		AggregateType: events.AggregateReservation,
		AggregateID:   r.ID,
		EventType:     events.TypeReservationStatusChanged,
		Payload: events.ReservationStatusChanged{
			ReservationID: r.ID,
			ItemID:        r.InventoryID,
			Quantity:      r.Quantity,
			From:          string(from),
			To:            string(r.Status),
			OrderID:       r.OrderID,
			CartID:        r.CartID,
			OccurredAt:    r.UpdatedAt,
		},
	})
}
