// Package inventory_repo provides PostgreSQL implementations of the inventory
// repositories. Every query goes through the TxManager querier, so repositories
// join the caller's transaction when the context carries one.
package inventory_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/infrastructure/storage/postgres"
)

// Table names.
const (
	TableLocations    = "inventory_locations"
	TableItems        = "inventory_items"
	TableTransactions = "inventory_transactions"
	TableReservations = "inventory_reservations"
)

// baseRepo holds what every inventory repository shares: the transaction
// manager, the table and its column list derived from the row type's db tags.
type baseRepo[T any] struct {
	txm        *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
}

func newBaseRepo[T any](txm *postgres.TxManager, tableName, entityName string) baseRepo[T] {
	return baseRepo[T]{
		txm:        txm,
		tableName:  tableName,
		entityName: entityName,
		selectCols: postgres.ExtractDBColumns[T](),
	}
}

// builder returns a squirrel builder with PostgreSQL placeholder format.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *baseRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txm.GetQuerier(ctx)
}

// baseSelect creates a SELECT of every mapped column.
func (r *baseRepo[T]) baseSelect() squirrel.SelectBuilder {
	return builder().Select(r.selectCols...).From(r.tableName)
}

// insert writes row using its db tags.
func (r *baseRepo[T]) insert(ctx context.Context, row *T) error {
	data := postgres.StructToMap(row)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in %s", r.entityName)
	}

	sql, args, err := builder().Insert(r.tableName).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return postgres.MapError(fmt.Errorf("insert %s: %w", r.tableName, err))
	}
	return nil
}

// getOne runs q and scans a single row; no row yields NotFound for key.
func (r *baseRepo[T]) getOne(ctx context.Context, q squirrel.Sqlizer, key string) (*T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	row := new(T)
	if err := pgxscan.Get(ctx, r.querier(ctx), row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(r.entityName, key)
		}
		return nil, postgres.MapError(fmt.Errorf("get %s: %w", r.tableName, err))
	}
	return row, nil
}

// selectAll runs q and scans every row; an empty result is an empty slice.
func (r *baseRepo[T]) selectAll(ctx context.Context, q squirrel.Sqlizer) ([]*T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows := []*T{}
	if err := pgxscan.Select(ctx, r.querier(ctx), &rows, sql, args...); err != nil {
		return nil, postgres.MapError(fmt.Errorf("list %s: %w", r.tableName, err))
	}
	return rows, nil
}

// exists reports whether q returns at least one row.
func (r *baseRepo[T]) exists(ctx context.Context, table string, where squirrel.Sqlizer) (bool, error) {
	sub, args, err := builder().Select("1").From(table).Where(where).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var found bool
	if err := r.querier(ctx).QueryRow(ctx, "SELECT EXISTS ("+sub+")", args...).Scan(&found); err != nil {
		return false, fmt.Errorf("exists in %s: %w", table, err)
	}
	return found, nil
}
