package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
	"github.com/vladislavdragonenkov/glowup/internal/storage/memory"
	"github.com/vladislavdragonenkov/glowup/internal/storage/postgres"
	"github.com/vladislavdragonenkov/glowup/internal/storage/redis"
)

// storage хранит выбранный KV-бэкенд и функцию его закрытия.
type storage struct {
	kv domain.KVStore
	// expiring == nil, если бэкенд сам удаляет истёкшие ключи (Redis).
	expiring domain.ExpiringStore
	closeFn  func() error
}

func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (storage, error) {
	if err := cfg.Validate(); err != nil {
		return storage{}, err
	}

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		logger.Warn("using in-memory storage: data is lost on restart")
		store := memory.NewKVStore()
		return storage{kv: store, expiring: store}, nil

	case StorageDriverRedis:
		store, err := redis.Open(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return storage{}, fmt.Errorf("init redis storage: %w", err)
		}
		logger.WithField("addr", cfg.RedisAddr).Info("redis storage initialized")
		return storage{kv: store, closeFn: store.Close}, nil

	case StorageDriverPostgres:
		pg, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return storage{}, fmt.Errorf("init postgres storage: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := pg.EnsureSchema(ctx); err != nil {
				_ = pg.Close()
				return storage{}, fmt.Errorf("apply postgres migrations: %w", err)
			}
		}
		logger.Info("postgres storage initialized")
		store := postgres.NewKVStore(pg)
		return storage{kv: store, expiring: store, closeFn: pg.Close}, nil
	}

	return storage{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
}
