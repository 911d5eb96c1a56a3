package inventory_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/location"
	"stockledger/internal/infrastructure/storage/postgres"
)

var _ location.Repository = (*LocationRepo)(nil)

// LocationRepo implements location.Repository.
type LocationRepo struct {
	baseRepo[location.Location]
}

// NewLocationRepo creates a new location repository.
func NewLocationRepo(txm *postgres.TxManager) *LocationRepo {
	return &LocationRepo{baseRepo: newBaseRepo[location.Location](txm, TableLocations, "inventory location")}
}

func (r *LocationRepo) Create(ctx context.Context, loc *location.Location) error {
	return r.insert(ctx, loc)
}

func (r *LocationRepo) GetByID(ctx context.Context, locationID id.ID) (*location.Location, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": locationID}), locationID.String())
}

// Update writes every mutable column with optimistic locking on version.
func (r *LocationRepo) Update(ctx context.Context, loc *location.Location) error {
	now := time.Now().UTC()
	q := builder().
		Update(r.tableName).
		SetMap(map[string]any{
			"name":        loc.Name,
			"type":        loc.Type,
			"address":     loc.Address,
			"city":        loc.City,
			"state":       loc.State,
			"postal_code": loc.PostalCode,
			"country":     loc.Country,
			"is_active":   loc.IsActive,
			"updated_at":  now,
		}).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": loc.ID, "version": loc.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("update %s: %w", r.tableName, err))
	}
	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, loc.ID); err != nil {
			return err
		}
		return apperror.NewConcurrentModification(r.entityName, loc.ID.String())
	}

	loc.Version++
	loc.UpdatedAt = now
	return nil
}

// Delete removes the location. Items referencing it block deletion through the
// foreign key, which surfaces as Conflict.
func (r *LocationRepo) Delete(ctx context.Context, locationID id.ID) error {
	sql, args, err := builder().Delete(r.tableName).Where(squirrel.Eq{"id": locationID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		mapped := postgres.MapError(err)
		if apperror.IsConflict(mapped) {
			return apperror.NewConflict("location has associated inventory items").
				WithDetail("location_id", locationID.String()).
				WithCause(err)
		}
		return fmt.Errorf("delete %s: %w", r.tableName, mapped)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, locationID.String())
	}
	return nil
}

func (r *LocationRepo) List(ctx context.Context, includeInactive bool) ([]*location.Location, error) {
	q := r.baseSelect().OrderBy("name", "id")
	if !includeInactive {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	return r.selectAll(ctx, q)
}

func (r *LocationRepo) HasItems(ctx context.Context, locationID id.ID) (bool, error) {
	return r.exists(ctx, TableItems, squirrel.Eq{"location_id": locationID})
}
