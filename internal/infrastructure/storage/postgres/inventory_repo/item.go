package inventory_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/item"
	"stockledger/internal/infrastructure/storage/postgres"
)

var _ item.Repository = (*ItemRepo)(nil)

// Foreign keys that reference inventory_items, as named in the migrations.
const (
	fkTransactionItem = "fk_inventory_transactions_item"
	fkReservationItem = "fk_inventory_reservations_item"
)

// ItemRepo implements item.Repository.
type ItemRepo struct {
	baseRepo[item.Item]
}

// NewItemRepo creates a new inventory item repository.
func NewItemRepo(txm *postgres.TxManager) *ItemRepo {
	return &ItemRepo{baseRepo: newBaseRepo[item.Item](txm, TableItems, "inventory item")}
}

func (r *ItemRepo) Create(ctx context.Context, it *item.Item) error {
	it.AvailableQuantity = item.Available(it.Quantity, it.ReservedQuantity)
	err := r.insert(ctx, it)
	if apperror.IsDuplicate(err) {
		return apperror.NewDuplicate(r.entityName, "sku", it.SKU).
			WithDetail("location_id", it.LocationID.String()).
			WithCause(err)
	}
	if apperror.IsConflict(err) {
		return apperror.NewConflict("referenced location does not exist").
			WithDetail("location_id", it.LocationID.String()).
			WithCause(err)
	}
	return err
}

func (r *ItemRepo) GetByID(ctx context.Context, itemID id.ID) (*item.Item, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": itemID}), itemID.String())
}

// GetForUpdate locks the item row until the surrounding transaction ends.
func (r *ItemRepo) GetForUpdate(ctx context.Context, itemID id.ID) (*item.Item, error) {
	q := r.baseSelect().Where(squirrel.Eq{"id": itemID}).Suffix("FOR UPDATE")
	return r.getOne(ctx, q, itemID.String())
}

func (r *ItemRepo) GetBySKUForUpdate(ctx context.Context, sku string, locationID id.ID) (*item.Item, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"sku": sku, "location_id": locationID}).
		Suffix("FOR UPDATE")
	it, err := r.getOne(ctx, q, sku)
	if apperror.IsNotFound(err) {
		return nil, apperror.NewNotFound(r.entityName, sku).WithDetail("location_id", locationID.String())
	}
	return it, err
}

func (r *ItemRepo) FindBySKU(ctx context.Context, sku string, locationID *id.ID) ([]*item.Item, error) {
	q := r.ordered().Where(squirrel.Eq{"sku": sku})
	if locationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *locationID})
	}
	return r.selectAll(ctx, q)
}

func (r *ItemRepo) ListByProduct(ctx context.Context, productID string) ([]*item.Item, error) {
	return r.selectAll(ctx, r.ordered().Where(squirrel.Eq{"product_id": productID}))
}

func (r *ItemRepo) ListByLocation(ctx context.Context, locationID id.ID) ([]*item.Item, error) {
	return r.selectAll(ctx, r.ordered().Where(squirrel.Eq{"location_id": locationID}))
}

func (r *ItemRepo) ListLowStock(ctx context.Context) ([]*item.Item, error) {
	return r.selectAll(ctx, r.ordered().Where(lowStock))
}

func (r *ItemRepo) ListOutOfStock(ctx context.Context) ([]*item.Item, error) {
	return r.selectAll(ctx, r.ordered().Where(outOfStock))
}

var (
	lowStock   = squirrel.Expr("available_quantity <= low_stock_threshold")
	outOfStock = squirrel.LtOrEq{"available_quantity": 0}
)

func (r *ItemRepo) List(ctx context.Context, f item.Filter) (domain.ListResult[*item.Item], error) {
	page := f.Page.Normalize()
	result := domain.ListResult[*item.Item]{
		Items:  []*item.Item{},
		Limit:  page.Limit,
		Offset: page.Offset,
	}

	q := r.baseSelect()
	if f.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *f.LocationID})
	}
	if f.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *f.ProductID})
	}
	if f.LowStock {
		q = q.Where(lowStock)
	}
	if f.OutOfStock {
		q = q.Where(outOfStock)
	}

	countSQL, countArgs, err := builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := r.querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy("sku", "id").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset))

	items, err := r.selectAll(ctx, q)
	if err != nil {
		return result, err
	}
	result.Items = items
	return result, nil
}

// UpdateAttributes writes threshold and reorder metadata with optimistic locking.
// Quantity columns belong to ApplyDelta and are left alone.
func (r *ItemRepo) UpdateAttributes(ctx context.Context, it *item.Item) error {
	now := time.Now().UTC()
	q := builder().
		Update(r.tableName).
		SetMap(map[string]any{
			"low_stock_threshold": it.LowStockThreshold,
			"reorder_point":       it.ReorderPoint,
			"reorder_quantity":    it.ReorderQuantity,
			"last_restock_date":   it.LastRestockDate,
			"updated_at":          now,
		}).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": it.ID, "version": it.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(fmt.Errorf("update %s: %w", r.tableName, err))
	}
	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, it.ID); err != nil {
			return err
		}
		return apperror.NewConcurrentModification(r.entityName, it.ID.String())
	}

	it.Version++
	it.UpdatedAt = now
	return nil
}

// ApplyDelta projects a posting in a single UPDATE. The SET expressions read the
// pre-update row, so available is derived from the clamped new values.
func (r *ItemRepo) ApplyDelta(ctx context.Context, itemID id.ID, d item.Delta) (*item.Item, error) {
	q := r.applyDeltaQuery(itemID, d, time.Now().UTC())
	it, err := r.getOne(ctx, q, itemID.String())
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (r *ItemRepo) applyDeltaQuery(itemID id.ID, d item.Delta, now time.Time) squirrel.UpdateBuilder {
	return builder().
		Update(r.tableName).
		Set("quantity", squirrel.Expr("GREATEST(0, quantity + ?)", d.Quantity)).
		Set("reserved_quantity", squirrel.Expr("GREATEST(0, reserved_quantity + ?)", d.Reserved)).
		Set("available_quantity", squirrel.Expr(
			"GREATEST(0, GREATEST(0, quantity + ?) - GREATEST(0, reserved_quantity + ?))",
			d.Quantity, d.Reserved)).
		Set("last_restock_date", squirrel.Expr("COALESCE(?::timestamptz, last_restock_date)", d.RestockedAt)).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": itemID}).
		Suffix("RETURNING " + strings.Join(r.selectCols, ", "))
}

func (r *ItemRepo) Delete(ctx context.Context, itemID id.ID) error {
	sql, args, err := builder().Delete(r.tableName).Where(squirrel.Eq{"id": itemID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.ConstraintName {
			case fkTransactionItem:
				return apperror.NewConflict("item has inventory transactions").
					WithDetail("item_id", itemID.String()).WithCause(err)
			case fkReservationItem:
				return apperror.NewConflict("item has reservations").
					WithDetail("item_id", itemID.String()).WithCause(err)
			}
		}
		return postgres.MapError(fmt.Errorf("delete %s: %w", r.tableName, err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, itemID.String())
	}
	return nil
}

func (r *ItemRepo) HasTransactions(ctx context.Context, itemID id.ID) (bool, error) {
	return r.exists(ctx, TableTransactions, squirrel.Eq{"inventory_id": itemID})
}

// ordered selects items in a stable order: sku, then id.
func (r *ItemRepo) ordered() squirrel.SelectBuilder {
	return r.baseSelect().OrderBy("sku", "id")
}
