package item

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
	"stockledger/internal/domain/audit"
	"stockledger/pkg/logger"
)

const (
	initialStockNote   = "initial stock"
	quantityUpdateNote = "quantity updated"
)

// CreateRequest registers stock of a SKU at a location.
type CreateRequest struct {
	ProductID         string
	SKU               string
	LocationID        id.ID
	Quantity          int64
	ReservedQuantity  int64
	LowStockThreshold int64
	ReorderPoint      int64
	ReorderQuantity   int64
}

// Service provides the inventory item store operations.
// Quantity changes are always delegated to the StockPoster.
type Service struct {
	repo      Repository
	locations LocationReader
	poster    StockPoster
	txManager tx.Manager
	hooks     *domain.HookRegistry[*Item]
}

// NewService creates an item service. rec may be nil to disable auditing.
func NewService(repo Repository, locations LocationReader, poster StockPoster, txManager tx.Manager, rec audit.Recorder) *Service {
	s := &Service{
		repo:      repo,
		locations: locations,
		poster:    poster,
		txManager: txManager,
		hooks:     domain.NewHookRegistry[*Item](),
	}
	audit.Register(s.hooks, rec, EntityType, describe)
	return s
}

// Hooks returns the hook registry for external registration.
func (s *Service) Hooks() *domain.HookRegistry[*Item] {
	return s.hooks
}

// Create inserts the item with empty stock and, in the same transaction, posts the
// initial quantity as a restock so that the ledger accounts for every unit.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Item, error) {
	if req.Quantity < 0 {
		return nil, apperror.NewValidation("quantity must not be negative").WithDetail("field", "quantity")
	}
	if req.ReservedQuantity != 0 {
		return nil, apperror.NewValidation("reservedQuantity can only change through reservations").
			WithDetail("field", "reservedQuantity")
	}

	now := time.Now().UTC()
	it := &Item{
		ID:                id.New(),
		ProductID:         strings.TrimSpace(req.ProductID),
		SKU:               strings.TrimSpace(req.SKU),
		LocationID:        req.LocationID,
		LowStockThreshold: req.LowStockThreshold,
		ReorderPoint:      req.ReorderPoint,
		ReorderQuantity:   req.ReorderQuantity,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := it.Validate(ctx); err != nil {
		return nil, err
	}

	var created *Item
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.locations.GetByID(ctx, it.LocationID); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, it); err != nil {
			return fmt.Errorf("create item: %w", err)
		}
		if err := s.hooks.Run(ctx, domain.AfterCreate, it); err != nil {
			return err
		}
		if req.Quantity > 0 {
			if err := s.poster.Restock(ctx, it.ID, req.Quantity, initialStockNote); err != nil {
				return err
			}
		}

		var err error
		created, err = s.repo.GetByID(ctx, it.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "inventory item created",
		"item_id", created.ID, "sku", created.SKU, "location_id", created.LocationID, "quantity", created.Quantity)
	return created, nil
}

// Get returns an item by id.
func (s *Service) Get(ctx context.Context, itemID id.ID) (*Item, error) {
	return s.repo.GetByID(ctx, itemID)
}

// FindBySKU returns the items stocking sku, optionally at one location only.
func (s *Service) FindBySKU(ctx context.Context, sku string, locationID *id.ID) ([]*Item, error) {
	if strings.TrimSpace(sku) == "" {
		return nil, apperror.NewValidation("sku is required").WithDetail("field", "sku")
	}
	return s.repo.FindBySKU(ctx, sku, locationID)
}

func (s *Service) ListByProduct(ctx context.Context, productID string) ([]*Item, error) {
	return s.repo.ListByProduct(ctx, productID)
}

func (s *Service) ListByLocation(ctx context.Context, locationID id.ID) ([]*Item, error) {
	if _, err := s.locations.GetByID(ctx, locationID); err != nil {
		return nil, err
	}
	return s.repo.ListByLocation(ctx, locationID)
}

func (s *Service) ListLowStock(ctx context.Context) ([]*Item, error) {
	return s.repo.ListLowStock(ctx)
}

func (s *Service) ListOutOfStock(ctx context.Context) ([]*Item, error) {
	return s.repo.ListOutOfStock(ctx)
}

// List returns a page of items matching filter.
func (s *Service) List(ctx context.Context, filter Filter) (domain.ListResult[*Item], error) {
	filter.Page = filter.Page.Normalize()
	return s.repo.List(ctx, filter)
}

// Update applies patch. Metadata is written under optimistic locking; a quantity
// change is posted to the ledger as an adjustment for the difference.
func (s *Service) Update(ctx context.Context, itemID id.ID, patch Patch) (*Item, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var updated *Item
	err := tx.RunWithRetry(ctx, s.txManager, tx.DefaultRetryPolicy(), func(ctx context.Context) error {
		it, err := s.repo.GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}

		if patch.hasAttributes() {
			patch.applyAttributes(it)
			if err := s.repo.UpdateAttributes(ctx, it); err != nil {
				return fmt.Errorf("update item: %w", err)
			}
			if err := s.hooks.Run(ctx, domain.AfterUpdate, it); err != nil {
				return err
			}
		}

		if patch.Quantity != nil && *patch.Quantity != it.Quantity {
			if err := s.poster.Adjust(ctx, itemID, *patch.Quantity-it.Quantity, quantityUpdateNote); err != nil {
				return err
			}
		}

		updated, err = s.repo.GetByID(ctx, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AdjustQuantity posts a signed adjustment with reason as the ledger note.
func (s *Service) AdjustQuantity(ctx context.Context, itemID id.ID, delta int64, reason string) (*Item, error) {
	if delta == 0 {
		return nil, apperror.NewValidation("adjustment must not be zero").WithDetail("field", "delta")
	}

	var adjusted *Item
	err := tx.RunWithRetry(ctx, s.txManager, tx.DefaultRetryPolicy(), func(ctx context.Context) error {
		it, err := s.repo.GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if err := it.CheckDelta(Delta{Quantity: delta}); err != nil {
			return err
		}
		if it.Quantity+delta < 0 {
			return apperror.NewValidation("adjustment would make quantity negative").
				WithDetail("quantity", it.Quantity).
				WithDetail("delta", delta)
		}
		if err := s.poster.Adjust(ctx, itemID, delta, reason); err != nil {
			return err
		}
		adjusted, err = s.repo.GetByID(ctx, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "inventory adjusted", "item_id", itemID, "delta", delta, "reason", reason)
	return adjusted, nil
}

// Delete removes an item that has no ledger history.
func (s *Service) Delete(ctx context.Context, itemID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		it, err := s.repo.GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}

		hasTx, err := s.repo.HasTransactions(ctx, itemID)
		if err != nil {
			return fmt.Errorf("check item transactions: %w", err)
		}
		if hasTx {
			return apperror.NewConflict("item has inventory transactions").
				WithDetail("item_id", itemID.String())
		}

		if err := s.repo.Delete(ctx, itemID); err != nil {
			return err
		}
		return s.hooks.Run(ctx, domain.AfterDelete, it)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "inventory item deleted", "item_id", itemID)
	return nil
}

func (p Patch) hasAttributes() bool {
	return p.LowStockThreshold != nil || p.ReorderPoint != nil || p.ReorderQuantity != nil || p.LastRestockDate != nil
}

func describe(i *Item) (id.ID, map[string]any) {
	return i.ID, map[string]any{
		"productId":         i.ProductID,
		"sku":               i.SKU,
		"locationId":        i.LocationID,
		"lowStockThreshold": i.LowStockThreshold,
		"reorderPoint":      i.ReorderPoint,
		"reorderQuantity":   i.ReorderQuantity,
		"lastRestockDate":   i.LastRestockDate,
		"version":           i.Version,
	}
}
