package inventory_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
)

var _ ledger.Repository = (*TransactionRepo)(nil)

// TransactionRepo implements ledger.Repository. Rows are append-only.
type TransactionRepo struct {
	baseRepo[ledger.Transaction]
}

// NewTransactionRepo creates a new ledger repository.
func NewTransactionRepo(txm *postgres.TxManager) *TransactionRepo {
	return &TransactionRepo{
		baseRepo: newBaseRepo[ledger.Transaction](txm, TableTransactions, "inventory transaction"),
	}
}

func (r *TransactionRepo) Create(ctx context.Context, t *ledger.Transaction) error {
	err := r.insert(ctx, t)
	if apperror.IsConflict(err) && !apperror.IsDuplicate(err) {
		return apperror.NewConflict("referenced inventory item does not exist").
			WithDetail("item_id", t.InventoryID.String()).
			WithCause(err)
	}
	return err
}

// CreateBatch copies entries in with COPY. Must run inside a transaction.
func (r *TransactionRepo) CreateBatch(ctx context.Context, entries []*ledger.Transaction) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(entries))
	for _, t := range entries {
		m := postgres.StructToMap(t)
		row := make([]any, len(r.selectCols))
		for i, col := range r.selectCols {
			row[i] = m[col]
		}
		rows = append(rows, row)
	}

	n, err := r.txm.CopyRows(ctx, r.tableName, r.selectCols, rows)
	if err != nil {
		return postgres.MapError(fmt.Errorf("copy %s: %w", r.tableName, err))
	}
	if n != int64(len(entries)) {
		return fmt.Errorf("copy %s: wrote %d of %d rows", r.tableName, n, len(entries))
	}
	return nil
}

func (r *TransactionRepo) GetByID(ctx context.Context, transactionID id.ID) (*ledger.Transaction, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": transactionID}), transactionID.String())
}

func (r *TransactionRepo) ListByItem(ctx context.Context, itemID id.ID) ([]*ledger.Transaction, error) {
	return r.selectAll(ctx, r.chronological().Where(squirrel.Eq{"inventory_id": itemID}))
}

func (r *TransactionRepo) ListByReference(ctx context.Context, reference string) ([]*ledger.Transaction, error) {
	return r.selectAll(ctx, r.chronological().Where(squirrel.Eq{"reference": reference}))
}

// chronological orders entries in posting order. Ids are UUIDv7, so they break
// ties between entries written in the same microsecond.
func (r *TransactionRepo) chronological() squirrel.SelectBuilder {
	return r.baseSelect().OrderBy("created_at", "id")
}
