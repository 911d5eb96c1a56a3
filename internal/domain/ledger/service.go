package ledger

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain/events"
	"stockledger/internal/domain/item"
	"stockledger/pkg/logger"
)

const systemActor = "system"

var tracer = otel.Tracer("stockledger/ledger")

// Compile-time check that Service can back item quantity changes.
var _ item.StockPoster = (*Service)(nil)

// Service posts ledger entries.
type Service struct {
	repo      Repository
	items     item.Repository
	locations item.LocationReader
	publisher events.Publisher
	txManager tx.Manager
	retry     tx.RetryPolicy
}

// NewService creates a ledger service. publisher may be nil to skip outbox events.
func NewService(repo Repository, items item.Repository, locations item.LocationReader, publisher events.Publisher, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		items:     items,
		locations: locations,
		publisher: publisher,
		txManager: txManager,
		retry:     tx.DefaultRetryPolicy(),
	}
}

// Post appends one entry and applies its deltas to the item atomically.
func (s *Service) Post(ctx context.Context, req PostRequest) (*Transaction, error) {
	ctx, span := tracer.Start(ctx, "ledger.post",
		trace.WithAttributes(
			attribute.String("ledger.type", string(req.Type)),
			attribute.Int64("ledger.quantity", req.Quantity),
			attribute.String("ledger.item_id", req.InventoryID.String()),
		))
	defer span.End()

	delta, err := Deltas(req.Type, req.Quantity)
	if err != nil {
		return nil, err
	}

	var posted *Transaction
	err = tx.RunWithRetry(ctx, s.txManager, s.retry, func(ctx context.Context) error {
		var err error
		posted, err = s.post(ctx, req, delta)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.Info(ctx, "ledger entry posted",
		"transaction_id", posted.ID,
		"item_id", posted.InventoryID,
		"type", posted.Type,
		"quantity", posted.Quantity,
	)
	return posted, nil
}

// post runs inside a transaction.
func (s *Service) post(ctx context.Context, req PostRequest, delta item.Delta) (*Transaction, error) {
	current, err := s.items.GetByID(ctx, req.InventoryID)
	if err != nil {
		return nil, err
	}
	if err := current.CheckDelta(delta); err != nil {
		return nil, err
	}

	t := &Transaction{
		ID:          id.New(),
		InventoryID: req.InventoryID,
		Type:        req.Type,
		Quantity:    req.Quantity,
		Reference:   optional(req.Reference),
		Notes:       optional(req.Notes),
		CreatedBy:   s.actor(ctx, req.CreatedBy),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	if req.Type == TypeRestock {
		at := t.CreatedAt
		delta.RestockedAt = &at
	}
	updated, err := s.items.ApplyDelta(ctx, req.InventoryID, delta)
	if err != nil {
		return nil, fmt.Errorf("apply %s to item: %w", req.Type, err)
	}

	if err := s.publishStockChanged(ctx, t, updated); err != nil {
		return nil, err
	}
	return t, nil
}

// Restock posts a restock.
func (s *Service) Restock(ctx context.Context, itemID id.ID, quantity int64, notes string) error {
	_, err := s.Post(ctx, PostRequest{InventoryID: itemID, Type: TypeRestock, Quantity: quantity, Notes: notes})
	return err
}

// Adjust posts a signed adjustment.
func (s *Service) Adjust(ctx context.Context, itemID id.ID, delta int64, notes string) error {
	_, err := s.Post(ctx, PostRequest{InventoryID: itemID, Type: TypeAdjustment, Quantity: delta, Notes: notes})
	return err
}

// Transfer moves quantity from the source item to the item with the same SKU at the
// destination location, creating it when missing. Both sides are written in one
// transaction, one entry per side.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	ctx, span := tracer.Start(ctx, "ledger.transfer",
		trace.WithAttributes(
			attribute.String("ledger.item_id", req.SourceItemID.String()),
			attribute.String("ledger.destination_location_id", req.DestinationLocationID.String()),
			attribute.Int64("ledger.quantity", req.Quantity),
		))
	defer span.End()

	if req.Quantity <= 0 {
		return nil, apperror.NewValidation("quantity must be positive").WithDetail("field", "quantity")
	}
	if id.IsNil(req.DestinationLocationID) {
		return nil, apperror.NewValidation("destinationLocationId is required").
			WithDetail("field", "destinationLocationId")
	}

	var result *TransferResult
	err := tx.RunWithRetry(ctx, s.txManager, s.retry, func(ctx context.Context) error {
		var err error
		result, err = s.transfer(ctx, req)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.Info(ctx, "stock transferred",
		"source_item_id", result.SourceItem.ID,
		"destination_item_id", result.DestinationItem.ID,
		"quantity", req.Quantity,
	)
	return result, nil
}

func (s *Service) transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	src, err := s.items.GetForUpdate(ctx, req.SourceItemID)
	if err != nil {
		return nil, err
	}
	if src.LocationID == req.DestinationLocationID {
		return nil, apperror.NewValidation("destination location must differ from the source location").
			WithDetail("field", "destinationLocationId")
	}
	if _, err := s.locations.GetByID(ctx, req.DestinationLocationID); err != nil {
		return nil, err
	}
	if src.AvailableQuantity < req.Quantity {
		return nil, apperror.NewInsufficientStock(src.ID.String(), req.Quantity, src.AvailableQuantity)
	}

	dst, created, err := s.destinationItem(ctx, src, req.DestinationLocationID)
	if err != nil {
		return nil, err
	}
	if err := dst.CheckDelta(item.Delta{Quantity: req.Quantity}); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	srcLoc, dstLoc := src.LocationID, req.DestinationLocationID
	actor := s.actor(ctx, req.CreatedBy)
	entry := func(itemID id.ID) *Transaction {
		return &Transaction{
			ID:                    id.New(),
			InventoryID:           itemID,
			Type:                  TypeTransfer,
			Quantity:              req.Quantity,
			SourceLocationID:      &srcLoc,
			DestinationLocationID: &dstLoc,
			Reference:             optional(req.Reference),
			Notes:                 optional(req.Notes),
			CreatedBy:             actor,
			CreatedAt:             now,
		}
	}

	result := &TransferResult{DestinationAdded: created}
	result.Source = entry(src.ID)
	result.Destination = entry(dst.ID)

	if err := s.repo.CreateBatch(ctx, []*Transaction{result.Source, result.Destination}); err != nil {
		return nil, fmt.Errorf("insert transfer entries: %w", err)
	}

	if result.SourceItem, err = s.items.ApplyDelta(ctx, src.ID, item.Delta{Quantity: -req.Quantity}); err != nil {
		return nil, fmt.Errorf("debit transfer source: %w", err)
	}
	if result.DestinationItem, err = s.items.ApplyDelta(ctx, dst.ID, item.Delta{Quantity: req.Quantity}); err != nil {
		return nil, fmt.Errorf("credit transfer destination: %w", err)
	}

	if err := s.publishStockChanged(ctx, result.Source, result.SourceItem); err != nil {
		return nil, err
	}
	if err := s.publishStockChanged(ctx, result.Destination, result.DestinationItem); err != nil {
		return nil, err
	}
	return result, nil
}

// destinationItem locks the item for src's SKU at locationID, creating it when absent.
func (s *Service) destinationItem(ctx context.Context, src *item.Item, locationID id.ID) (*item.Item, bool, error) {
	dst, err := s.items.GetBySKUForUpdate(ctx, src.SKU, locationID)
	if err == nil {
		if dst.ProductID != src.ProductID {
			return nil, false, apperror.NewConflict("sku belongs to a different product at the destination").
				WithDetail("sku", src.SKU).
				WithDetail("product_id", dst.ProductID)
		}
		return dst, false, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, false, err
	}

	now := time.Now().UTC()
	dst = &item.Item{
		ID:                id.New(),
		ProductID:         src.ProductID,
		SKU:               src.SKU,
		LocationID:        locationID,
		LowStockThreshold: src.LowStockThreshold,
		ReorderPoint:      src.ReorderPoint,
		ReorderQuantity:   src.ReorderQuantity,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.items.Create(ctx, dst); err != nil {
		// Another transfer created it first; rerun the whole transaction.
		if apperror.IsConflict(err) {
			return nil, false, apperror.NewConcurrentModification("inventory item", src.SKU).WithCause(err)
		}
		return nil, false, fmt.Errorf("create transfer destination: %w", err)
	}
	return dst, true, nil
}

// Get returns a ledger entry by id.
func (s *Service) Get(ctx context.Context, transactionID id.ID) (*Transaction, error) {
	return s.repo.GetByID(ctx, transactionID)
}

// ListByItem returns the item's history; NotFound if the item does not exist.
func (s *Service) ListByItem(ctx context.Context, itemID id.ID) ([]*Transaction, error) {
	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListByItem(ctx, itemID)
}

// ListByReference returns every entry posted with reference.
func (s *Service) ListByReference(ctx context.Context, reference string) ([]*Transaction, error) {
	if optional(reference) == nil {
		return nil, apperror.NewValidation("reference is required").WithDetail("field", "reference")
	}
	return s.repo.ListByReference(ctx, reference)
}

// Reconcile replays the item's history from zero, clamping at every step the way
// postings do, and compares the outcome with the stored quantities.
func (s *Service) Reconcile(ctx context.Context, itemID id.ID) (*Reconciliation, error) {
	var rec *Reconciliation
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		stored, err := s.items.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		history, err := s.repo.ListByItem(ctx, itemID)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}

		replay := &item.Item{ID: itemID, LocationID: stored.LocationID}
		for _, t := range history {
			replay.Apply(t.replayDelta(stored.LocationID))
		}

		rec = &Reconciliation{
			ItemID:           itemID,
			TransactionCount: len(history),
			ExpectedQuantity: replay.Quantity,
			ExpectedReserved: replay.ReservedQuantity,
			StoredQuantity:   stored.Quantity,
			StoredReserved:   stored.ReservedQuantity,
		}
		rec.Matches = rec.ExpectedQuantity == rec.StoredQuantity && rec.ExpectedReserved == rec.StoredReserved
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !rec.Matches {
		logger.Warn(ctx, "ledger does not match stored quantities",
			"item_id", itemID,
			"expected_quantity", rec.ExpectedQuantity,
			"stored_quantity", rec.StoredQuantity,
			"expected_reserved", rec.ExpectedReserved,
			"stored_reserved", rec.StoredReserved,
		)
	}
	return rec, nil
}

func (s *Service) publishStockChanged(ctx context.Context, t *Transaction, it *item.Item) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Publish(ctx, events.Event{
		AggregateType: events.AggregateItem,
		AggregateID:   it.ID,
		EventType:     events.TypeStockChanged,
		Payload: events.StockChanged{
			ItemID:          it.ID,
			ProductID:       it.ProductID,
			SKU:             it.SKU,
			LocationID:      it.LocationID,
			TransactionID:   t.ID,
			TransactionType: string(t.Type),
			Quantity:        t.Quantity,
			OnHand:          it.Quantity,
			Reserved:        it.ReservedQuantity,
			Available:       it.AvailableQuantity,
			OccurredAt:      t.CreatedAt,
		},
	})
}

func (s *Service) actor(ctx context.Context, explicit string) *string {
	if v := optional(explicit); v != nil {
		return v
	}
	a := appctx.Actor(ctx, systemActor)
	return &a
}
