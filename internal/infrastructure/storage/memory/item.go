package memory

import (
	"context"
	"sort"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/item"
)

var _ item.Repository = (*ItemRepo)(nil)

// ItemRepo implements item.Repository.
type ItemRepo struct {
	s *Store
}

func (r *ItemRepo) Create(ctx context.Context, it *item.Item) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.locations[it.LocationID]; !ok {
			return apperror.NewConflict("referenced location does not exist").
				WithDetail("location_id", it.LocationID.String())
		}
		for _, other := range st.items {
			if other.SKU == it.SKU && other.LocationID == it.LocationID {
				return apperror.NewDuplicate("inventory item", "sku", it.SKU).
					WithDetail("location_id", it.LocationID.String())
			}
		}
		it.AvailableQuantity = item.Available(it.Quantity, it.ReservedQuantity)
		st.items[it.ID] = *it
		return nil
	})
}

func (r *ItemRepo) GetByID(ctx context.Context, itemID id.ID) (*item.Item, error) {
	var out *item.Item
	err := r.s.do(ctx, func(st *state) error {
		it, ok := st.items[itemID]
		if !ok {
			return apperror.NewNotFound("inventory item", itemID.String())
		}
		out = &it
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID: the transaction already holds the store lock.
func (r *ItemRepo) GetForUpdate(ctx context.Context, itemID id.ID) (*item.Item, error) {
	return r.GetByID(ctx, itemID)
}

func (r *ItemRepo) GetBySKUForUpdate(ctx context.Context, sku string, locationID id.ID) (*item.Item, error) {
	var out *item.Item
	err := r.s.do(ctx, func(st *state) error {
		for _, it := range st.items {
			if it.SKU == sku && it.LocationID == locationID {
				out = &it
				return nil
			}
		}
		return apperror.NewNotFound("inventory item", sku).WithDetail("location_id", locationID.String())
	})
	return out, err
}

func (r *ItemRepo) FindBySKU(ctx context.Context, sku string, locationID *id.ID) ([]*item.Item, error) {
	return r.filter(ctx, func(it *item.Item) bool {
		return it.SKU == sku && (locationID == nil || it.LocationID == *locationID)
	})
}

func (r *ItemRepo) ListByProduct(ctx context.Context, productID string) ([]*item.Item, error) {
	return r.filter(ctx, func(it *item.Item) bool { return it.ProductID == productID })
}

func (r *ItemRepo) ListByLocation(ctx context.Context, locationID id.ID) ([]*item.Item, error) {
	return r.filter(ctx, func(it *item.Item) bool { return it.LocationID == locationID })
}

func (r *ItemRepo) ListLowStock(ctx context.Context) ([]*item.Item, error) {
	return r.filter(ctx, (*item.Item).IsLowStock)
}

func (r *ItemRepo) ListOutOfStock(ctx context.Context) ([]*item.Item, error) {
	return r.filter(ctx, (*item.Item).IsOutOfStock)
}

func (r *ItemRepo) List(ctx context.Context, f item.Filter) (domain.ListResult[*item.Item], error) {
	page := f.Page.Normalize()
	all, err := r.filter(ctx, func(it *item.Item) bool {
		if f.LocationID != nil && it.LocationID != *f.LocationID {
			return false
		}
		if f.ProductID != nil && it.ProductID != *f.ProductID {
			return false
		}
		if f.LowStock && !it.IsLowStock() {
			return false
		}
		if f.OutOfStock && !it.IsOutOfStock() {
			return false
		}
		return true
	})
	if err != nil {
		return domain.ListResult[*item.Item]{}, err
	}

	res := domain.ListResult[*item.Item]{
		Items:      []*item.Item{},
		TotalCount: int64(len(all)),
		Limit:      page.Limit,
		Offset:     page.Offset,
	}
	if page.Offset < len(all) {
		end := min(page.Offset+page.Limit, len(all))
		res.Items = all[page.Offset:end]
	}
	return res, nil
}

func (r *ItemRepo) UpdateAttributes(ctx context.Context, it *item.Item) error {
	return r.s.do(ctx, func(st *state) error {
		stored, ok := st.items[it.ID]
		if !ok {
			return apperror.NewNotFound("inventory item", it.ID.String())
		}
		if stored.Version != it.Version {
			return apperror.NewConcurrentModification("inventory item", it.ID.String())
		}
		stored.LowStockThreshold = it.LowStockThreshold
		stored.ReorderPoint = it.ReorderPoint
		stored.ReorderQuantity = it.ReorderQuantity
		stored.LastRestockDate = it.LastRestockDate
		stored.Version++
		stored.UpdatedAt = time.Now().UTC()
		st.items[it.ID] = stored

		it.Version = stored.Version
		it.UpdatedAt = stored.UpdatedAt
		return nil
	})
}

func (r *ItemRepo) ApplyDelta(ctx context.Context, itemID id.ID, delta item.Delta) (*item.Item, error) {
	var out *item.Item
	err := r.s.do(ctx, func(st *state) error {
		it, ok := st.items[itemID]
		if !ok {
			return apperror.NewNotFound("inventory item", itemID.String())
		}
		if err := it.CheckDelta(delta); err != nil {
			return err
		}
		it.Apply(delta)
		st.items[itemID] = it
		out = &it
		return nil
	})
	return out, err
}

func (r *ItemRepo) Delete(ctx context.Context, itemID id.ID) error {
	return r.s.do(ctx, func(st *state) error {
		if _, ok := st.items[itemID]; !ok {
			return apperror.NewNotFound("inventory item", itemID.String())
		}
		for _, t := range st.transactions {
			if t.InventoryID == itemID {
				return apperror.NewConflict("item has inventory transactions").
					WithDetail("item_id", itemID.String())
			}
		}
		for _, res := range st.reservations {
			if res.InventoryID == itemID {
				return apperror.NewConflict("item has reservations").
					WithDetail("item_id", itemID.String())
			}
		}
		delete(st.items, itemID)
		return nil
	})
}

func (r *ItemRepo) HasTransactions(ctx context.Context, itemID id.ID) (bool, error) {
	found := false
	err := r.s.do(ctx, func(st *state) error {
		for _, t := range st.transactions {
			if t.InventoryID == itemID {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}

// filter returns copies of matching items ordered by SKU then id.
func (r *ItemRepo) filter(ctx context.Context, match func(it *item.Item) bool) ([]*item.Item, error) {
	out := []*item.Item{}
	err := r.s.do(ctx, func(st *state) error {
		for _, it := range st.items {
			if match(&it) {
				out = append(out, &it)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].SKU != out[j].SKU {
			return out[i].SKU < out[j].SKU
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, err
}
