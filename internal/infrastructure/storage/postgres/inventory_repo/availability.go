package inventory_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/domain/availability"
	"stockledger/internal/infrastructure/storage/postgres"
)

var _ availability.Repository = (*AvailabilityRepo)(nil)

// AvailabilityRepo aggregates item rows per product.
type AvailabilityRepo struct {
	txm *postgres.TxManager
}

// NewAvailabilityRepo creates a new availability repository.
func NewAvailabilityRepo(txm *postgres.TxManager) *AvailabilityRepo {
	return &AvailabilityRepo{txm: txm}
}

// TotalsForProduct sums every location's item for productID. A product without
// items yields zero totals.
func (r *AvailabilityRepo) TotalsForProduct(ctx context.Context, productID string) (availability.Totals, error) {
	sql, args, err := totalsQuery(productID).ToSql()
	if err != nil {
		return availability.Totals{}, fmt.Errorf("build query: %w", err)
	}

	var t availability.Totals
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &t, sql, args...); err != nil {
		return availability.Totals{}, fmt.Errorf("product totals: %w", err)
	}
	t.ProductID = productID
	return t, nil
}

func totalsQuery(productID string) squirrel.SelectBuilder {
	return builder().
		Select(
			"COALESCE(SUM(quantity), 0)::bigint AS total_quantity",
			"COALESCE(SUM(reserved_quantity), 0)::bigint AS total_reserved",
			"COALESCE(SUM(available_quantity), 0)::bigint AS total_available",
			"COUNT(*)::int AS item_count",
		).
		From(TableItems).
		Where(squirrel.Eq{"product_id": productID})
}
