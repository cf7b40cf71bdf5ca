// Package backend selects and opens the configured storage implementation.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"spendtrack/internal/config"
	"spendtrack/internal/storage"
	"spendtrack/internal/storage/memory"
	"spendtrack/internal/storage/postgres"
	"spendtrack/internal/storage/sqlite"
)

// Open returns the store named by cfg.DataBackend. The caller owns the
// store and must Close it.
func Open(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.DataBackend {
	case "sqlite":
		slog.Info("Opening sqlite backend", "path", cfg.SQLiteDBPath)
		return sqlite.NewRepository(cfg.SQLiteDBPath)
	case "postgres":
		slog.Info("Opening postgres backend")
		return postgres.NewRepository(ctx, cfg.PostgresURL)
	case "memory":
		slog.Warn("Using in-memory backend, data will not survive restarts")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}
}
