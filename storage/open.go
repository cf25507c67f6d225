package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/Sheulydsp/kanban-dashboard/board"
	"github.com/Sheulydsp/kanban-dashboard/config"
)

// Open builds the repository selected by cfg.Storage.Backend, wrapped in a
// Redis cache when a cache TTL is configured. rc may be nil unless the
// backend or cache needs Redis. The returned func releases backend
// resources.
func Open(ctx context.Context, cfg *config.Config, rc *redis.Client, logger *log.Logger) (board.Repository, func(), error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	noop := func() {}

	var (
		repo    board.Repository
		closeFn = noop
	)
	switch cfg.Storage.Backend {
	case config.BackendFile:
		repo = NewFile(cfg.Storage.Path)
	case config.BackendMemory:
		repo = NewMemory()
	case config.BackendRedis:
		if rc == nil {
			return nil, noop, errors.New("redis backend requires a redis client")
		}
		repo = NewRedis(rc, cfg.Storage.Key)
	case config.BackendTables:
		client, err := NewTableClient(cfg.Tables.ConnectionString, cfg.Tables.TasksTable)
		if err != nil {
			return nil, noop, fmt.Errorf("tables client: %w", err)
		}
		repo = NewTables(client, cfg.Tables.Partition)
	case config.BackendPostgres:
		pg, err := NewPostgres(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, noop, err
		}
		repo, closeFn = pg, pg.Close
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if cfg.Storage.CacheTTL > 0 && cacheable(cfg.Storage.Backend) {
		if rc == nil {
			closeFn()
			return nil, noop, errors.New("tasks cache requires a redis client")
		}
		repo = NewCache(repo, rc, cfg.Storage.Key, cfg.Storage.CacheTTL, logger)
	}

	logger.WithFields(log.Fields{
		"backend": cfg.Storage.Backend,
		"cached":  cfg.Storage.CacheTTL > 0 && cacheable(cfg.Storage.Backend),
	}).Info("tasks repository ready")
	return repo, closeFn, nil
}

// The redis and memory backends are already served from memory.
func cacheable(backend string) bool {
	return backend != config.BackendRedis && backend != config.BackendMemory
}
