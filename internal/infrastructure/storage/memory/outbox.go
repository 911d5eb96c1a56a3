package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/internal/core/idempotency"
	"stockledger/internal/domain/audit"
	"stockledger/internal/domain/events"
)

var (
	_ events.Publisher    = (*OutboxPublisher)(nil)
	_ audit.Recorder      = (*AuditRecorder)(nil)
	_ audit.HistoryReader = (*AuditRecorder)(nil)
	_ idempotency.Store   = (*IdempotencyStore)(nil)
)

// OutboxPublisher appends events to the in-memory outbox.
type OutboxPublisher struct {
	s *Store
}

// Publish must run inside a transaction so the event shares its fate.
func (p *OutboxPublisher) Publish(ctx context.Context, event events.Event) error {
	if !p.s.InTransaction(ctx) {
		return fmt.Errorf("outbox publish requires transaction context")
	}
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	p.s.st.outbox = append(p.s.st.outbox, events.Message{
		ID:            id.New(),
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	})
	return nil
}

// AuditEntry is one recorded change.
type AuditEntry struct {
	ID         id.ID
	EntityType string
	EntityID   id.ID
	Action     audit.Action
	UserID     string
	Changes    map[string]any
	CreatedAt  time.Time
}

// AuditRecorder implements audit.Recorder.
type AuditRecorder struct {
	s *Store
}

func (a *AuditRecorder) LogChange(ctx context.Context, entityType string, entityID id.ID, action audit.Action, changes map[string]any) error {
	return a.s.do(ctx, func(st *state) error {
		st.audit = append(st.audit, AuditEntry{
			ID:         id.New(),
			EntityType: entityType,
			EntityID:   entityID,
			Action:     action,
			UserID:     appctx.GetUserID(ctx),
			Changes:    changes,
			CreatedAt:  time.Now().UTC(),
		})
		return nil
	})
}

func (a *AuditRecorder) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	out := []audit.Entry{}
	err := a.s.do(ctx, func(st *state) error {
		for i := len(st.audit) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
			e := st.audit[i]
			if e.EntityType != entityType || e.EntityID != entityID {
				continue
			}
			changes, err := json.Marshal(e.Changes)
			if err != nil {
				return fmt.Errorf("marshal changes: %w", err)
			}
			out = append(out, audit.Entry{
				ID:         e.ID,
				EntityType: e.EntityType,
				EntityID:   e.EntityID,
				Action:     e.Action,
				UserID:     e.UserID,
				Changes:    changes,
				CreatedAt:  e.CreatedAt,
			})
		}
		return nil
	})
	return out, err
}

type idempotencyRecord struct {
	userID      string
	operation   string
	requestHash string
	status      idempotency.Status
	statusCode  int
	contentType string
	response    []byte
	updatedAt   time.Time
	expiresAt   time.Time
}

// IdempotencyStore implements idempotency.Store.
type IdempotencyStore struct {
	s   *Store
	ttl time.Duration
}

// WithTTL returns a copy of the store that keeps keys for ttl.
func (i *IdempotencyStore) WithTTL(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{s: i.s, ttl: ttl}
}

func (i *IdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*idempotency.Replay, error) {
	var replay *idempotency.Replay
	err := i.s.do(ctx, func(st *state) error {
		now := time.Now().UTC()
		rec, ok := st.idempotency[key]
		if !ok || now.After(rec.expiresAt) {
			st.idempotency[key] = idempotencyRecord{
				userID:      userID,
				operation:   operation,
				requestHash: requestHash,
				status:      idempotency.StatusPending,
				updatedAt:   now,
				expiresAt:   now.Add(i.keyTTL()),
			}
			return nil
		}

		if rec.userID != userID || rec.operation != operation || rec.requestHash != requestHash {
			return apperror.NewIdempotencyMismatch(key)
		}

		switch rec.status {
		case idempotency.StatusSuccess, idempotency.StatusFailed:
			replay = &idempotency.Replay{
				StatusCode:  idempotency.NormalizeStatus(rec.statusCode),
				ContentType: idempotency.NormalizeContentType(rec.contentType),
				Body:        rec.response,
			}
			return nil
		default:
			if now.Sub(rec.updatedAt) > idempotency.StaleAfter {
				rec.updatedAt = now
				st.idempotency[key] = rec
				return nil
			}
			return apperror.NewIdempotencyConflict(key)
		}
	})
	return replay, err
}

func (i *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return i.finish(ctx, key, idempotency.StatusSuccess, statusCode, contentType, response)
}

func (i *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	return i.finish(ctx, key, idempotency.StatusFailed, statusCode, contentType, response)
}

func (i *IdempotencyStore) ReleaseKey(ctx context.Context, key string) error {
	return i.s.do(ctx, func(st *state) error {
		delete(st.idempotency, key)
		return nil
	})
}

func (i *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	var n int64
	err := i.s.do(ctx, func(st *state) error {
		now := time.Now().UTC()
		for key, rec := range st.idempotency {
			if now.After(rec.expiresAt) {
				delete(st.idempotency, key)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (i *IdempotencyStore) finish(ctx context.Context, key string, status idempotency.Status, statusCode int, contentType string, response any) error {
	var body []byte
	if response != nil {
		b, err := json.Marshal(response)
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		body = b
	}
	return i.s.do(ctx, func(st *state) error {
		rec, ok := st.idempotency[key]
		if !ok {
			return nil
		}
		rec.status = status
		rec.statusCode = statusCode
		rec.contentType = contentType
		rec.response = body
		rec.updatedAt = time.Now().UTC()
		st.idempotency[key] = rec
		return nil
	})
}

func (i *IdempotencyStore) keyTTL() time.Duration {
	if i.ttl <= 0 {
		return 24 * time.Hour
	}
	return i.ttl
}
