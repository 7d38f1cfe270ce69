// Package retrieval loads raw pitch documents from the configured document
// store, optionally through a Redis cache.
package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"pitch-analyzer/internal/common/config"
	"pitch-analyzer/internal/common/database"
	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/models"
)

var (
	ErrNotFound   = errors.New("PITCH_NOT_FOUND")
	ErrConnection = errors.New("DOCUMENT_STORE_UNAVAILABLE")
	ErrInvalidID  = errors.New("INVALID_PITCH_ID")
)

const maxIDLength = 256

// Fetcher returns the raw document stored under id. Failures wrap
// ErrNotFound or ErrConnection.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (models.RawDocument, error)
}

// ValidateID rejects ids that can never address a document.
func ValidateID(id string) error {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return fmt.Errorf("%w: pitch id is empty", ErrInvalidID)
	}
	if len(trimmed) > maxIDLength {
		return fmt.Errorf("%w: pitch id longer than %d characters", ErrInvalidID, maxIDLength)
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: pitch id contains control characters", ErrInvalidID)
		}
	}
	return nil
}

// decodeDocument requires a JSON object; anything else is unusable.
func decodeDocument(id string, data []byte) (models.RawDocument, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		return nil, fmt.Errorf("%w: document %s is not a JSON object", ErrNotFound, id)
	}
	return models.RawDocument(doc), nil
}

// connectionError keeps the context error visible to callers.
func connectionError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %s: %v", ErrConnection, op, ctxErr)
	}
	return fmt.Errorf("%w: %s: %v", ErrConnection, op, err)
}

// New builds the fetcher for cfg.Retrieval.Backend on top of the opened
// stores, wrapping it in a cache when Redis is available.
func New(cfg *config.Config, stores *database.Stores, log logger.Logger) (Fetcher, error) {
	var base Fetcher
	switch cfg.Retrieval.Backend {
	case config.BackendPostgres:
		if stores.Postgres == nil {
			return nil, fmt.Errorf("postgres backend selected but no postgres client is open")
		}
		base = NewPostgresFetcher(stores.Postgres.DB, cfg.Retrieval.Table, log)
	case config.BackendElasticsearch:
		if stores.Elasticsearch == nil {
			return nil, fmt.Errorf("elasticsearch backend selected but no elasticsearch client is open")
		}
		base = NewElasticsearchFetcher(stores.Elasticsearch.Client, cfg.Retrieval.Index, log)
	default:
		return nil, fmt.Errorf("unknown retrieval backend %q", cfg.Retrieval.Backend)
	}

	if stores.Redis == nil {
		return base, nil
	}
	return NewCachedFetcher(base, stores.Redis.Client, CacheConfig{
		TTL:    config.GetDuration(cfg.Retrieval.CacheTTL),
		Prefix: cfg.Retrieval.CachePrefix,
	}, log), nil
}
