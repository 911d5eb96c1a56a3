// Package audit records who changed location and item metadata, and how.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"stockledger/internal/core/id"
	"stockledger/internal/domain"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Recorder persists audit entries. Implementations write inside the caller's
// transaction when one is open.
type Recorder interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action Action, changes map[string]any) error
}

// Describer extracts the identity and the audited fields of an entity.
type Describer[T any] func(entity T) (id.ID, map[string]any)

// Register wires rec into hooks for create, update and delete of entityType.
func Register[T any](hooks *domain.HookRegistry[T], rec Recorder, entityType string, describe Describer[T]) {
	if rec == nil {
		return
	}
	on := func(action Action) domain.Hook[T] {
		return func(ctx context.Context, entity T) error {
			entityID, fields := describe(entity)
			return rec.LogChange(ctx, entityType, entityID, action, fields)
		}
	}
	hooks.On(domain.AfterCreate, on(ActionCreate))
	hooks.On(domain.AfterUpdate, on(ActionUpdate))
	hooks.On(domain.AfterDelete, on(ActionDelete))
}

// Entry is a stored audit record as returned by a history query.
type Entry struct {
	ID         id.ID           `json:"id"`
	EntityType string          `json:"entityType"`
	EntityID   id.ID           `json:"entityId"`
	Action     Action          `json:"action"`
	UserID     string          `json:"userId,omitempty"`
	Changes    json.RawMessage `json:"changes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// HistoryReader returns the newest entries for one entity first.
type HistoryReader interface {
	History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]Entry, error)
}
