// Package store keeps the project and simulation records in a single
// versioned database document, persisted through a pluggable Backend.
package store

import (
	"context"
	"fmt"

	"github.com/iwvelando/cashout-forecast/internal/config"
	"github.com/iwvelando/cashout-forecast/pkg/constants"
	"go.uber.org/zap"
)

// Backend persists the raw database document.
type Backend interface {
	// Load returns the stored document, or nil when nothing has been stored
	// yet.
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Close() error
}

// NewBackend opens the backend selected by cfg.
func NewBackend(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	key := cfg.Key
	if key == "" {
		key = constants.DBKey
	}

	logger.Debug("opening record store backend",
		zap.String("op", "store.NewBackend"),
		zap.String("backend", cfg.Backend),
	)

	switch cfg.Backend {
	case "", constants.StoreBackendMemory:
		return NewMemoryBackend(), nil
	case constants.StoreBackendRedis:
		return NewRedisBackend(ctx, cfg.Redis, key)
	case constants.StoreBackendSQLite:
		return OpenSQLBackend(ctx, DialectSQLite, cfg.Path, key)
	case constants.StoreBackendPostgres:
		return OpenSQLBackend(ctx, DialectPostgres, cfg.DSN, key)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Backend)
	}
}
