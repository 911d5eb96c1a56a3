package inventory_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/reservation"
	"stockledger/internal/infrastructure/storage/postgres"
)

var _ reservation.Repository = (*ReservationRepo)(nil)

// ReservationRepo implements reservation.Repository.
type ReservationRepo struct {
	baseRepo[reservation.Reservation]
}

// NewReservationRepo creates a new reservation repository.
func NewReservationRepo(txm *postgres.TxManager) *ReservationRepo {
	return &ReservationRepo{baseRepo: newBaseRepo[reservation.Reservation](txm, TableReservations, "reservation")}
}

func (r *ReservationRepo) Create(ctx context.Context, res *reservation.Reservation) error {
	err := r.insert(ctx, res)
	if apperror.IsConflict(err) && !apperror.IsDuplicate(err) {
		return apperror.NewConflict("referenced inventory item does not exist").
			WithDetail("item_id", res.InventoryID.String()).
			WithCause(err)
	}
	return err
}

func (r *ReservationRepo) GetByID(ctx context.Context, reservationID id.ID) (*reservation.Reservation, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": reservationID}), reservationID.String())
}

// GetForUpdate locks the reservation row until the surrounding transaction ends.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, reservationID id.ID) (*reservation.Reservation, error) {
	q := r.baseSelect().Where(squirrel.Eq{"id": reservationID}).Suffix("FOR UPDATE")
	return r.getOne(ctx, q, reservationID.String())
}

func (r *ReservationRepo) UpdateStatus(ctx context.Context, reservationID id.ID, status reservation.Status, at time.Time) error {
	sql, args, err := builder().
		Update(r.tableName).
		Set("status", status).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": reservationID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("update %s: %w", r.tableName, err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, reservationID.String())
	}
	return nil
}

func (r *ReservationRepo) ListActiveByItem(ctx context.Context, itemID id.ID) ([]*reservation.Reservation, error) {
	return r.selectAll(ctx, r.oldestFirst().Where(squirrel.Eq{
		"inventory_id": itemID,
		"status":       reservation.StatusActive,
	}))
}

func (r *ReservationRepo) ListByOrder(ctx context.Context, orderID string) ([]*reservation.Reservation, error) {
	return r.selectAll(ctx, r.oldestFirst().Where(squirrel.Eq{"order_id": orderID}))
}

func (r *ReservationRepo) ListActiveByCart(ctx context.Context, cartID string) ([]*reservation.Reservation, error) {
	return r.selectAll(ctx, r.oldestFirst().Where(squirrel.Eq{
		"cart_id": cartID,
		"status":  reservation.StatusActive,
	}))
}

// ListExpiredIDs is a plain snapshot read. Transition locks and re-checks each
// id, so a reservation settled in the meantime is skipped there.
func (r *ReservationRepo) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]id.ID, error) {
	sql, args, err := r.expiredQuery(now, limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	ids := []id.ID{}
	if err := pgxscan.Select(ctx, r.querier(ctx), &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	return ids, nil
}

func (r *ReservationRepo) expiredQuery(now time.Time, limit int) squirrel.SelectBuilder {
	q := builder().
		Select("id").
		From(r.tableName).
		Where(squirrel.Eq{"status": reservation.StatusActive}).
		Where(squirrel.Lt{"expires_at": now}).
		OrderBy("expires_at", "id")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return q
}

func (r *ReservationRepo) oldestFirst() squirrel.SelectBuilder {
	return r.baseSelect().OrderBy("created_at", "id")
}
