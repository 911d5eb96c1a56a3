package memory

import (
	"context"
	"fmt"
	"sort"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
)

var _ ledger.Repository = (*TransactionRepo)(nil)

// TransactionRepo implements ledger.Repository. Entries are append-only.
type TransactionRepo struct {
	s *Store
}

func (r *TransactionRepo) Create(ctx context.Context, t *ledger.Transaction) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.items[t.InventoryID]; !ok {
			return apperror.NewConflict("referenced inventory item does not exist").
				WithDetail("item_id", t.InventoryID.String())
		}
		if _, ok := st.transactions[t.ID]; ok {
			return apperror.NewDuplicate("inventory transaction", "id", t.ID.String())
		}
		st.transactions[t.ID] = *t
		return nil
	})
}

func (r *TransactionRepo) CreateBatch(ctx context.Context, entries []*ledger.Transaction) error {
	if !r.s.InTransaction(ctx) {
		return fmt.Errorf("batch insert requires transaction context")
	}
	for _, t := range entries {
		if err := r.Create(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (r *TransactionRepo) GetByID(ctx context.Context, transactionID id.ID) (*ledger.Transaction, error) {
	var out *ledger.Transaction
	err := r.s.do(ctx, func(st *state) error {
		t, ok := st.transactions[transactionID]
		if !ok {
			return apperror.NewNotFound("inventory transaction", transactionID.String())
		}
		out = &t
		return nil
	})
	return out, err
}

func (r *TransactionRepo) ListByItem(ctx context.Context, itemID id.ID) ([]*ledger.Transaction, error) {
	return r.filter(ctx, func(t *ledger.Transaction) bool { return t.InventoryID == itemID })
}

func (r *TransactionRepo) ListByReference(ctx context.Context, reference string) ([]*ledger.Transaction, error) {
	return r.filter(ctx, func(t *ledger.Transaction) bool {
		return t.Reference != nil && *t.Reference == reference
	})
}

// filter returns matching entries in posting order.
func (r *TransactionRepo) filter(ctx context.Context, match func(t *ledger.Transaction) bool) ([]*ledger.Transaction, error) {
	out := []*ledger.Transaction{}
	err := r.s.do(ctx, func(st *state) error {
		for _, t := range st.transactions {
			if match(&t) {
				out = append(out, &t)
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
