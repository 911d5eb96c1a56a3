package app

import (
	"context"
	"fmt"

	"stockledger/internal/config"
	"stockledger/internal/infrastructure/storage/memory"
	"stockledger/internal/infrastructure/storage/postgres"
)

// Runtime is an opened backing store with the services built over it.
type Runtime struct {
	Stores   Stores
	Services *Services

	// Pool is set for the postgres driver only.
	Pool *postgres.Pool
}

// Open connects the store selected by cfg.App.StorageDriver.
func Open(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	switch cfg.App.StorageDriver {
	case config.DriverMemory:
		stores := NewMemoryStores(memory.New(), cfg.Idempotency.TTL)
		return &Runtime{Stores: stores, Services: NewServices(stores)}, nil

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
			URL:             cfg.DB.URL,
			AppName:         cfg.App.Name,
			MaxConns:        int32(cfg.DB.MaxConns),
			MinConns:        int32(cfg.DB.MinConns),
			MaxConnLifetime: cfg.DB.MaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		stores, err := NewPostgresStores(pool, cfg.Idempotency.TTL)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return &Runtime{Stores: stores, Services: NewServices(stores), Pool: pool}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.App.StorageDriver)
	}
}

// Close releases the database pool, if any.
func (r *Runtime) Close() {
	if r.Pool != nil {
		r.Pool.Close()
	}
}
