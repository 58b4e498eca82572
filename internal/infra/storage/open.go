package storage

import (
	"context"
	"fmt"

	"mawakit/internal/infra/config"
)

const (
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Open builds the backend selected by cfg.StorageDriver and wraps it with the
// configured quota.
func Open(ctx context.Context, cfg *config.AppConfig) (*QuotaStorage, error) {
	var (
		s   Storage
		err error
	)
	switch cfg.StorageDriver {
	case DriverBolt:
		s, err = NewBoltStorage(cfg.StoragePath)
	case DriverPostgres:
		db, dbErr := NewPostgresConnection(cfg.DatabaseURL)
		if dbErr != nil {
			return nil, dbErr
		}
		pg := NewPostgresStorage(db)
		if err = pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		s = pg
	case DriverRedis:
		s, err = NewRedisStorage(ctx, cfg.RedisAddr, cfg.RedisPassword)
	case DriverMemory:
		s = NewMemoryStorage()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	if err != nil {
		return nil, err
	}
	return WithQuota(s, cfg.StorageQuotaBytes), nil
}
