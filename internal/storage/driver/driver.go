package driver

import (
	"context"

	"github.com/facto/facto/internal/cache"
	"github.com/facto/facto/internal/config"
	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/logger"
	"github.com/facto/facto/internal/storage"
	"github.com/facto/facto/internal/storage/redis"
	"github.com/facto/facto/internal/storage/sqlite"
	"github.com/facto/facto/internal/types"
)

// Open returns the backend selected by storage.driver
func Open(ctx context.Context, cfg *config.Configuration, log *logger.Logger) (storage.Backend, error) {
	switch cfg.Storage.Driver {
	case types.StorageDriverMemory:
		log.Debugw("using in-memory storage")
		return cache.NewMemoryBackend(), nil
	case types.StorageDriverSQLite:
		log.Debugw("using sqlite storage", "path", cfg.Storage.SQLitePath)
		store, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		if n, err := store.PurgeExpired(ctx); err != nil {
			log.Warnw("failed to purge expired entries", "error", err)
		} else if n > 0 {
			log.Debugw("purged expired entries", "count", n)
		}
		return store, nil
	case types.StorageDriverRedis:
		log.Debugw("using redis storage", "address", cfg.Storage.Redis.Address)
		return redis.Open(ctx, cfg.Storage.Redis)
	}
	return nil, ierr.NewError("unknown storage driver").
		WithHintf("Storage driver must be one of %s, %s or %s",
			types.StorageDriverMemory, types.StorageDriverSQLite, types.StorageDriverRedis).
		WithReportableDetails(map[string]any{"driver": cfg.Storage.Driver}).
		Mark(ierr.ErrConfiguration)
}
