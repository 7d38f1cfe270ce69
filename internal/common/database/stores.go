package database

import (
	"context"
	"time"

	"pitch-analyzer/internal/common/config"
	"pitch-analyzer/internal/common/errors"
	"pitch-analyzer/internal/common/logger"
)

// Stores bundles the clients for the selected retrieval backend. Redis is
// nil when no cache address is configured or the cache is unreachable.
type Stores struct {
	Backend       string
	Postgres      *PostgresClient
	Elasticsearch *ElasticsearchClient
	Redis         *RedisClient
}

// Open creates the document store client for cfg.Retrieval.Backend. The
// primary store is not pinged: an unreachable store surfaces per run as a
// retrieval failure. The cache is pinged once and dropped on failure.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (*Stores, error) {
	s := &Stores{Backend: cfg.Retrieval.Backend}

	switch cfg.Retrieval.Backend {
	case config.BackendElasticsearch:
		es, err := NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, errors.NewElasticsearchConnectionFailedError(err)
		}
		s.Elasticsearch = es
	default:
		pg, err := NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, errors.NewDatabaseConnectionFailedError(err)
		}
		s.Postgres = pg
	}

	if cfg.Database.Redis.Address == "" {
		return s, nil
	}

	rdb := NewRedis(cfg.Database.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx); err != nil {
		log.Warn("document cache disabled", map[string]interface{}{
			"address": cfg.Database.Redis.Address,
			"error":   errors.NewCacheUnavailableError(err).Error(),
		})
		_ = rdb.Close()
		return s, nil
	}
	s.Redis = rdb
	return s, nil
}

// Ping checks the primary document store.
func (s *Stores) Ping(ctx context.Context) error {
	switch {
	case s.Postgres != nil:
		if err := s.Postgres.Ping(ctx); err != nil {
			return errors.NewDatabaseConnectionFailedError(err)
		}
	case s.Elasticsearch != nil:
		if err := s.Elasticsearch.Ping(ctx); err != nil {
			return errors.NewElasticsearchConnectionFailedError(err)
		}
	}
	return nil
}

func (s *Stores) Close() error {
	var firstErr error
	if s.Postgres != nil {
		firstErr = s.Postgres.Close()
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
