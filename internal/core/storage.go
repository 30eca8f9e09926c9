package core

import (
	"context"
	"fmt"
	"io"

	"bookclub/internal/config"
	"bookclub/internal/infra/persistence/memory"
	"bookclub/internal/infra/persistence/postgres"
	"bookclub/internal/infra/persistence/sqlite"
)

// OpenPersistentStore selects a backend from the storage configuration.
// SQL backends apply their schema and hydrate from existing rows before
// returning; they implement io.Closer.
func OpenPersistentStore(ctx context.Context, cfg config.StorageConfig, engine *RulesEngine, opts ...memory.Option) (PersistentStore, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return memory.NewStore(engine, opts...), nil
	case config.StorageSQLite, "":
		store, err := sqlite.NewStore(ctx, cfg.SQLitePath, engine, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN, engine, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

// CloseStore closes store when it holds external resources.
func CloseStore(store PersistentStore) error {
	if closer, ok := store.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
