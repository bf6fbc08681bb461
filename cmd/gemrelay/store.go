package main

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/gemrelay/pkg/config"
	"mercator-hq/gemrelay/pkg/rotation"
	"mercator-hq/gemrelay/pkg/rotation/storage"
)

// storageConfig maps the rotation section onto the storage package config.
func storageConfig(cfg *config.Config) storage.Config {
	r := cfg.Rotation
	return storage.Config{
		Backend:         r.Backend,
		SQLitePath:      r.SQLite.Path,
		SQLiteDriver:    r.SQLite.Driver,
		BusyTimeout:     r.SQLite.BusyTimeout,
		DSN:             r.DSN(),
		MaxOpenConns:    r.SQL.MaxOpenConns,
		MaxIdleConns:    r.SQL.MaxIdleConns,
		ConnMaxLifetime: r.SQL.ConnMaxLifetime,
	}
}

// opener returns a function opening the configured backend.
func opener(cfg *config.Config) rotation.Opener {
	sc := storageConfig(cfg)
	return func(ctx context.Context) (storage.Backend, error) {
		return storage.Open(ctx, sc)
	}
}

// openStore opens the configured backend now, bounded by the init timeout.
func openStore(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	if cfg.Rotation.InitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Rotation.InitTimeout)
		defer cancel()
	}

	store, err := opener(cfg)(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s rotation store: %w", cfg.Rotation.Backend, err)
	}
	return store, nil
}

// rotationStore returns the store the proxy rotates against. With lazy_init
// the backend is opened by the first forwarded request; otherwise it is
// opened here and a failure aborts startup.
func rotationStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Backend, error) {
	if cfg.Rotation.LazyInit {
		return rotation.NewLazyStore(cfg.Rotation.Backend, opener(cfg), cfg.Rotation.InitTimeout, logger), nil
	}

	logger.Info("initializing rotation store", "backend", cfg.Rotation.Backend)
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("rotation store ready", "backend", store.Name())
	return store, nil
}
