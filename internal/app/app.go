// Package app wires repositories and domain services together.
package app

import (
	"fmt"
	"time"

	"stockledger/internal/core/idempotency"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/availability"
	"stockledger/internal/domain/events"
	"stockledger/internal/domain/item"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/location"
	"stockledger/internal/domain/reservation"
	"stockledger/internal/infrastructure/storage/memory"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/inventory_repo"
)

// Stores is one backing store seen through the domain interfaces.
type Stores struct {
	TxManager    tx.Manager
	Locations    location.Repository
	Items        item.Repository
	Transactions ledger.Repository
	Reservations reservation.Repository
	Availability availability.Repository
	Outbox       events.Publisher
	Audit        audit.Recorder
	History      audit.HistoryReader
	Idempotency  idempotency.Store
}

// NewMemoryStores backs every repository with store.
func NewMemoryStores(store *memory.Store, idempotencyTTL time.Duration) Stores {
	repos := store.Repositories()
	return Stores{
		TxManager:    store,
		Locations:    repos.Locations,
		Items:        repos.Items,
		Transactions: repos.Transactions,
		Reservations: repos.Reservations,
		Availability: repos.Availability,
		Outbox:       repos.Outbox,
		Audit:        repos.Audit,
		History:      repos.Audit,
		Idempotency:  repos.Idempotency.WithTTL(idempotencyTTL),
	}
}

// NewPostgresStores backs every repository with pool.
func NewPostgresStores(pool *postgres.Pool, idempotencyTTL time.Duration) (Stores, error) {
	txManager := postgres.NewTxManager(pool)

	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		return Stores{}, fmt.Errorf("create audit service: %w", err)
	}

	return Stores{
		TxManager:    txManager,
		Locations:    inventory_repo.NewLocationRepo(txManager),
		Items:        inventory_repo.NewItemRepo(txManager),
		Transactions: inventory_repo.NewTransactionRepo(txManager),
		Reservations: inventory_repo.NewReservationRepo(txManager),
		Availability: inventory_repo.NewAvailabilityRepo(txManager),
		Outbox:       postgres.NewOutboxPublisher(txManager),
		Audit:        auditService,
		History:      auditService,
		Idempotency:  postgres.NewIdempotencyStore(txManager, idempotencyTTL),
	}, nil
}

// Services holds the domain services.
type Services struct {
	Locations    *location.Service
	Items        *item.Service
	Ledger       *ledger.Service
	Reservations *reservation.Service
	Availability *availability.Service
}

// NewServices builds the services over st.
func NewServices(st Stores) *Services {
	ledgerSvc := ledger.NewService(st.Transactions, st.Items, st.Locations, st.Outbox, st.TxManager)
	return &Services{
		Locations:    location.NewService(st.Locations, st.TxManager, st.Audit),
		Items:        item.NewService(st.Items, st.Locations, ledgerSvc, st.TxManager, st.Audit),
		Ledger:       ledgerSvc,
		Reservations: reservation.NewService(st.Reservations, st.Items, ledgerSvc, st.Outbox, st.TxManager),
		Availability: availability.NewService(st.Availability),
	}
}
