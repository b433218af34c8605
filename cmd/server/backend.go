package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/kitchen-ledger/internal/adapter/storage"
	"github.com/rl1809/kitchen-ledger/internal/config"
	"github.com/rl1809/kitchen-ledger/internal/port"
)

type resources struct {
	backend     port.LedgerBackend
	idempotency port.IdempotencyStore
	closers     []func() error
}

func (r *resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// openResources connects the configured ledger backend and, when enabled,
// the Redis idempotency store.
func openResources(ctx context.Context, cfg *config.Config) (*resources, error) {
	res := &resources{}

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: 20,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		res.closers = append(res.closers, rdb.Close)
	}

	var redisAdapter *storage.RedisAdapter
	if rdb != nil {
		redisAdapter = storage.NewRedisAdapter(rdb, cfg.Redis.LedgerKey, cfg.Redis.IdempotencyTTL)
	}
	if cfg.Ledger.Idempotency {
		res.idempotency = redisAdapter
	}

	switch cfg.Ledger.Backend {
	case config.BackendMemory:
		res.backend = storage.NewMemoryAdapter()

	case config.BackendFile:
		adapter, err := storage.NewFileAdapter(cfg.Ledger.FilePath)
		if err != nil {
			res.Close()
			return nil, err
		}
		res.backend = adapter

	case config.BackendRedis:
		res.backend = redisAdapter

	case config.BackendMySQL:
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			res.Close()
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
		res.closers = append(res.closers, db.Close)

		if err := db.PingContext(ctx); err != nil {
			res.Close()
			return nil, fmt.Errorf("ping mysql: %w", err)
		}
		adapter := storage.NewMySQLAdapter(db)
		if err := adapter.EnsureSchema(ctx); err != nil {
			res.Close()
			return nil, err
		}
		res.backend = adapter

	case config.BackendSQL:
		gdb, err := storage.OpenGorm(cfg.SQL.Driver, cfg.SQL.DSN)
		if err != nil {
			res.Close()
			return nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			res.Close()
			return nil, fmt.Errorf("getting sql db handle: %w", err)
		}
		res.closers = append(res.closers, sqlDB.Close)
		if cfg.SQL.Driver == "sqlite" {
			// sqlite allows a single writer
			sqlDB.SetMaxOpenConns(1)
		}

		adapter := storage.NewGormAdapter(gdb)
		if err := adapter.Migrate(ctx); err != nil {
			res.Close()
			return nil, err
		}
		res.backend = adapter

	default:
		res.Close()
		return nil, fmt.Errorf("unsupported ledger backend %q", cfg.Ledger.Backend)
	}

	return res, nil
}
