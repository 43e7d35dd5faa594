package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/xnome/dashboard/config"
	"github.com/xnome/dashboard/internal/adapters/memory"
	pgadapter "github.com/xnome/dashboard/internal/adapters/postgres"
	redisadapter "github.com/xnome/dashboard/internal/adapters/redis"
	"github.com/xnome/dashboard/internal/data"
	"github.com/xnome/dashboard/internal/ports"
)

// Store bundles the persistence adapters chosen by STORE_BACKEND.
type Store struct {
	Backend     config.StoreBackend
	KV          ports.KVStore
	Revocations ports.RevocationStore
	Cache       ports.CacheRepository

	closers []func() error
}

// Close releases backend connections in reverse order of acquisition.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Health checks every adapter that holds a remote connection.
func (s *Store) Health(ctx context.Context) error {
	var errs []error
	for name, v := range map[string]any{"kv": s.KV, "revocations": s.Revocations, "cache": s.Cache} {
		hc, ok := v.(ports.HealthChecker)
		if !ok {
			continue
		}
		if err := hc.Health(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// OpenStore connects the configured backend. The view cache lives in Redis
// when the redis backend is selected and in a process-local LRU otherwise.
func OpenStore(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	dbCfg := DatabaseConfig{DBConfig: cfg.Postgres, RedisConfig: cfg.Redis, Logger: logger}

	var (
		store *Store
		err   error
	)
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		var client redis.UniversalClient
		client, err = ConnectRedis(ctx, dbCfg)
		if err != nil {
			return nil, err
		}
		store = newRedisStore(client, cfg.Store.RedisNamespace)
	case config.StoreBackendPostgres:
		var pool *pgxpool.Pool
		pool, err = ConnectPostgres(ctx, dbCfg)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrationsOnStart {
			if err = RunMigrations(ctx, pool, logger); err != nil {
				pool.Close()
				return nil, err
			}
		}
		store = newPostgresStore(pool)
		store.closers = append(store.closers, func() error { pool.Close(); return nil })
	case config.StoreBackendMemory, "":
		store = newMemoryStore()
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}

	if store.Cache == nil {
		store.Cache = data.NewLRUCacheRepo(cfg.HTTP.ViewCacheSize, cfg.HTTP.ViewCacheTTL)
	}
	if err = store.Health(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("store health: %w", err)
	}
	if logger != nil {
		logger.Info("store ready", "backend", store.Backend)
	}
	return store, nil
}

func newMemoryStore() *Store {
	return &Store{
		Backend:     config.StoreBackendMemory,
		KV:          memory.NewKVStore(),
		Revocations: memory.NewRevocationStore(),
	}
}

func newRedisStore(client redis.UniversalClient, namespace string) *Store {
	if namespace == "" {
		namespace = redisadapter.DefaultNamespace
	}
	return &Store{
		Backend:     config.StoreBackendRedis,
		KV:          redisadapter.NewKVStoreWithNamespace(client, namespace),
		Revocations: redisadapter.NewRevocationStoreWithPrefix(client, namespace+"revoked:"),
		Cache:       data.NewRedisCacheRepo(client, namespace+"cache:"),
		closers:     []func() error{client.Close},
	}
}

func newPostgresStore(db pgadapter.DB) *Store {
	return &Store{
		Backend:     config.StoreBackendPostgres,
		KV:          pgadapter.NewKVStore(db),
		Revocations: pgadapter.NewRevocationStore(db),
	}
}
