package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/models"

	"github.com/redis/go-redis/v9"
)

type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

// CachedFetcher serves documents from Redis and falls through to the
// underlying store on a miss. Cache failures never fail a fetch, and
// errors from the store are not cached.
type CachedFetcher struct {
	next Fetcher
	rdb  *redis.Client
	cfg  CacheConfig
	log  logger.Logger
}

func NewCachedFetcher(next Fetcher, rdb *redis.Client, cfg CacheConfig, log logger.Logger) *CachedFetcher {
	if cfg.Prefix == "" {
		cfg.Prefix = "pitch:doc:"
	}
	return &CachedFetcher{
		next: next,
		rdb:  rdb,
		cfg:  cfg,
		log:  logger.Component(log, "retrieval-cache"),
	}
}

func (c *CachedFetcher) Fetch(ctx context.Context, id string) (models.RawDocument, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	key := c.cfg.Prefix + id

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if doc, decodeErr := decodeDocument(id, data); decodeErr == nil {
			c.log.Debug("cache hit", map[string]interface{}{"pitchId": id})
			return doc, nil
		}
		c.log.Warn("dropping unreadable cache entry", map[string]interface{}{"pitchId": id})
		c.rdb.Del(ctx, key)
	case !errors.Is(err, redis.Nil):
		c.log.Warn("cache read failed", map[string]interface{}{"pitchId": id, "error": err.Error()})
	}

	doc, err := c.next.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return doc, nil
	}
	if err := c.rdb.Set(ctx, key, payload, c.cfg.TTL).Err(); err != nil {
		c.log.Warn("cache write failed", map[string]interface{}{"pitchId": id, "error": err.Error()})
	}
	return doc, nil
}
