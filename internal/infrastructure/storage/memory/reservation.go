package memory

import (
	"context"
	"sort"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/availability"
	"stockledger/internal/domain/reservation"
)

var (
	_ reservation.Repository  = (*ReservationRepo)(nil)
	_ availability.Repository = (*AvailabilityRepo)(nil)
)

// ReservationRepo implements reservation.Repository.
type ReservationRepo struct {
	s *Store
}

func (r *ReservationRepo) Create(ctx context.Context, res *reservation.Reservation) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.items[res.InventoryID]; !ok {
			return apperror.NewConflict("referenced inventory item does not exist").
				WithDetail("item_id", res.InventoryID.String())
		}
		if _, ok := st.reservations[res.ID]; ok {
			return apperror.NewDuplicate("reservation", "id", res.ID.String())
		}
		st.reservations[res.ID] = *res
		return nil
	})
}

func (r *ReservationRepo) GetByID(ctx context.Context, reservationID id.ID) (*reservation.Reservation, error) {
	var out *reservation.Reservation
	err := r.s.do(ctx, func(st *state) error {
		res, ok := st.reservations[reservationID]
		if !ok {
			return apperror.NewNotFound("reservation", reservationID.String())
		}
		out = &res
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID: the transaction already holds the store lock.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, reservationID id.ID) (*reservation.Reservation, error) {
	return r.GetByID(ctx, reservationID)
}

func (r *ReservationRepo) UpdateStatus(ctx context.Context, reservationID id.ID, status reservation.Status, at time.Time) error {
	return r.s.do(ctx, func(st *state) error {
		res, ok := st.reservations[reservationID]
		if !ok {
			return apperror.NewNotFound("reservation", reservationID.String())
		}
		res.Status = status
		res.UpdatedAt = at
		st.reservations[reservationID] = res
		return nil
	})
}

func (r *ReservationRepo) ListActiveByItem(ctx context.Context, itemID id.ID) ([]*reservation.Reservation, error) {
	return r.filter(ctx, func(res *reservation.Reservation) bool {
		return res.InventoryID == itemID && res.Status == reservation.StatusActive
	})
}

func (r *ReservationRepo) ListByOrder(ctx context.Context, orderID string) ([]*reservation.Reservation, error) {
	return r.filter(ctx, func(res *reservation.Reservation) bool {
		return res.OrderID != nil && *res.OrderID == orderID
	})
}

func (r *ReservationRepo) ListActiveByCart(ctx context.Context, cartID string) ([]*reservation.Reservation, error) {
	return r.filter(ctx, func(res *reservation.Reservation) bool {
		return res.CartID != nil && *res.CartID == cartID && res.Status == reservation.StatusActive
	})
}

func (r *ReservationRepo) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]id.ID, error) {
	lapsed, err := r.filter(ctx, func(res *reservation.Reservation) bool { return res.IsLapsed(now) })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(lapsed, func(i, j int) bool { return lapsed[i].ExpiresAt.Before(lapsed[j].ExpiresAt) })
	if limit > 0 && len(lapsed) > limit {
		lapsed = lapsed[:limit]
	}

	ids := make([]id.ID, 0, len(lapsed))
	for _, res := range lapsed {
		ids = append(ids, res.ID)
	}
	return ids, nil
}

// filter returns matching reservations, oldest first.
func (r *ReservationRepo) filter(ctx context.Context, match func(res *reservation.Reservation) bool) ([]*reservation.Reservation, error) {
	out := []*reservation.Reservation{}
	err := r.s.do(ctx, func(st *state) error {
		for _, res := range st.reservations {
			if match(&res) {
				out = append(out, &res)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, err
}

// AvailabilityRepo implements availability.Repository.
type AvailabilityRepo struct {
	s *Store
}

func (r *AvailabilityRepo) TotalsForProduct(ctx context.Context, productID string) (availability.Totals, error) {
	t := availability.Totals{ProductID: productID}
	err := r.s.do(ctx, func(st *state) error {
		for _, it := range st.items {
			if it.ProductID != productID {
				continue
			}
			t.TotalQuantity += it.Quantity
			t.TotalReserved += it.ReservedQuantity
			t.TotalAvailable += it.AvailableQuantity
			t.ItemCount++
		}
		return nil
	})
	return t, err
}
