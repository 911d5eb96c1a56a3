package location

import (
	"context"
	"fmt"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
	"stockledger/internal/domain/audit"
	"stockledger/pkg/logger"
)

// Service provides the location registry operations.
type Service struct {
	repo      Repository
	txManager tx.Manager
	hooks     *domain.HookRegistry[*Location]
}

// NewService creates a location service. rec may be nil to disable auditing.
func NewService(repo Repository, txManager tx.Manager, rec audit.Recorder) *Service {
	s := &Service{
		repo:      repo,
		txManager: txManager,
		hooks:     domain.NewHookRegistry[*Location](),
	}
	audit.Register(s.hooks, rec, EntityType, describe)
	return s
}

// Hooks returns the hook registry for external registration.
func (s *Service) Hooks() *domain.HookRegistry[*Location] {
	return s.hooks
}

// Create registers a new location.
func (s *Service) Create(ctx context.Context, loc *Location) error {
	if err := loc.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, loc); err != nil {
			return fmt.Errorf("create location: %w", err)
		}
		return s.hooks.Run(ctx, domain.AfterCreate, loc)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "location created", "location_id", loc.ID, "name", loc.Name, "type", loc.Type)
	return nil
}

// Get returns a location by id.
func (s *Service) Get(ctx context.Context, locationID id.ID) (*Location, error) {
	return s.repo.GetByID(ctx, locationID)
}

// Update merges patch into the location.
func (s *Service) Update(ctx context.Context, locationID id.ID, patch Patch) (*Location, error) {
	var updated *Location
	err := tx.RunWithRetry(ctx, s.txManager, tx.DefaultRetryPolicy(), func(ctx context.Context) error {
		loc, err := s.repo.GetByID(ctx, locationID)
		if err != nil {
			return err
		}

		patch.Apply(loc)
		if err := loc.Validate(ctx); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, loc); err != nil {
			return fmt.Errorf("update location: %w", err)
		}
		if err := s.hooks.Run(ctx, domain.AfterUpdate, loc); err != nil {
			return err
		}
		updated = loc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a location that no inventory item references.
func (s *Service) Delete(ctx context.Context, locationID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		loc, err := s.repo.GetByID(ctx, locationID)
		if err != nil {
			return err
		}

		hasItems, err := s.repo.HasItems(ctx, locationID)
		if err != nil {
			return fmt.Errorf("check location items: %w", err)
		}
		if hasItems {
			return apperror.NewConflict("location has associated inventory items").
				WithDetail("location_id", locationID.String())
		}

		// The FK constraint still guards against an item created after the check.
		if err := s.repo.Delete(ctx, locationID); err != nil {
			return err
		}
		return s.hooks.Run(ctx, domain.AfterDelete, loc)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "location deleted", "location_id", locationID)
	return nil
}

// List returns active locations, or all when includeInactive is set, ordered by name.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]*Location, error) {
	return s.repo.List(ctx, includeInactive)
}

func describe(l *Location) (id.ID, map[string]any) {
	return l.ID, map[string]any{
		"name":       l.Name,
		"type":       l.Type,
		"address":    l.Address,
		"city":       l.City,
		"state":      l.State,
		"postalCode": l.PostalCode,
		"country":    l.Country,
		"isActive":   l.IsActive,
		"version":    l.Version,
	}
}
