package retrieval

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/models"

	"github.com/lib/pq"
)

// PostgresFetcher reads the JSON document column of a pitch table.
type PostgresFetcher struct {
	db    *sql.DB
	query string
	log   logger.Logger
}

func NewPostgresFetcher(db *sql.DB, table string, log logger.Logger) *PostgresFetcher {
	return &PostgresFetcher{
		db:    db,
		query: fmt.Sprintf("SELECT document FROM %s WHERE id = $1", pq.QuoteIdentifier(table)),
		log:   logger.Component(log, "retrieval").With(map[string]interface{}{"backend": "postgres", "table": table}),
	}
}

func (f *PostgresFetcher) Fetch(ctx context.Context, id string) (models.RawDocument, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	var data []byte
	err := f.db.QueryRowContext(ctx, f.query, id).Scan(&data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%w: no pitch with id %s", ErrNotFound, id)
	case err != nil:
		f.log.Error("pitch query failed", map[string]interface{}{"pitchId": id, "error": err.Error()})
		return nil, connectionError(ctx, "postgres query", err)
	}

	f.log.Debug("pitch fetched", map[string]interface{}{"pitchId": id, "bytes": len(data)})
	return decodeDocument(id, data)
}
