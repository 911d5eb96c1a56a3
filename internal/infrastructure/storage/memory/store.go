// Package memory is an in-process implementation of the inventory repositories.
//
// A single mutex serializes whole transactions; a failed transaction is rolled
// back by restoring a snapshot taken when it began. Used for tests and for
// running the API with STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"sync"

	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain/events"
	"stockledger/internal/domain/item"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/domain/location"
	"stockledger/internal/domain/reservation"
)

var (
	_ tx.Manager   = (*Store)(nil)
	_ tx.Inspector = (*Store)(nil)
)

type state struct {
	locations    map[id.ID]location.Location
	items        map[id.ID]item.Item
	transactions map[id.ID]ledger.Transaction
	reservations map[id.ID]reservation.Reservation
	outbox       []events.Message
	audit        []AuditEntry
	idempotency  map[string]idempotencyRecord
}

func newState() *state {
	return &state{
		locations:    make(map[id.ID]location.Location),
		items:        make(map[id.ID]item.Item),
		transactions: make(map[id.ID]ledger.Transaction),
		reservations: make(map[id.ID]reservation.Reservation),
		idempotency:  make(map[string]idempotencyRecord),
	}
}

// clone copies every table. Rows are stored by value, so a shallow copy of each
// map is enough to isolate the snapshot.
func (s *state) clone() *state {
	c := &state{
		locations:    make(map[id.ID]location.Location, len(s.locations)),
		items:        make(map[id.ID]item.Item, len(s.items)),
		transactions: make(map[id.ID]ledger.Transaction, len(s.transactions)),
		reservations: make(map[id.ID]reservation.Reservation, len(s.reservations)),
		outbox:       append([]events.Message(nil), s.outbox...),
		audit:        append([]AuditEntry(nil), s.audit...),
		idempotency:  make(map[string]idempotencyRecord, len(s.idempotency)),
	}
	for k, v := range s.locations {
		c.locations[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.idempotency {
		c.idempotency[k] = v
	}
	return c
}

// Store holds all tables and implements tx.Manager.
type Store struct {
	mu sync.Mutex
	st *state
}

// New creates an empty store.
func New() *Store {
	return &Store{st: newState()}
}

// txKey marks a context running inside one of this store's transactions.
type txKey struct{}

// RunInTransaction runs fn holding the store lock. A nested call joins the outer
// transaction. If fn fails or panics every change it made is discarded.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.InTransaction(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	snapshot := s.st.clone()
	committed := false
	defer func() {
		if !committed {
			s.st = snapshot
		}
		s.mu.Unlock()
	}()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		return err
	}
	committed = true
	return nil
}

// InTransaction reports whether ctx is inside a transaction of this store.
func (s *Store) InTransaction(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// do runs fn against the current state, taking the lock unless ctx already holds it.
func (s *Store) do(ctx context.Context, fn func(st *state) error) error {
	if s.InTransaction(ctx) {
		return fn(s.st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// Outbox returns a copy of the events written so far.
func (s *Store) Outbox() []events.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Message(nil), s.st.outbox...)
}

// AuditLog returns a copy of the recorded audit entries.
func (s *Store) AuditLog() []AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuditEntry(nil), s.st.audit...)
}

// Repositories bundles one repository of each kind over a single store.
type Repositories struct {
	Locations    *LocationRepo
	Items        *ItemRepo
	Transactions *TransactionRepo
	Reservations *ReservationRepo
	Availability *AvailabilityRepo
	Outbox       *OutboxPublisher
	Audit        *AuditRecorder
	Idempotency  *IdempotencyStore
}

// Repositories returns repositories backed by s.
func (s *Store) Repositories() Repositories {
	return Repositories{
		Locations:    &LocationRepo{s: s},
		Items:        &ItemRepo{s: s},
		Transactions: &TransactionRepo{s: s},
		Reservations: &ReservationRepo{s: s},
		Availability: &AvailabilityRepo{s: s},
		Outbox:       &OutboxPublisher{s: s},
		Audit:        &AuditRecorder{s: s},
		Idempotency:  &IdempotencyStore{s: s},
	}
}
