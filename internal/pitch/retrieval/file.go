package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"pitch-analyzer/internal/models"
)

// FileFetcher reads <dir>/<id>.json. Used for offline runs of the CLI.
type FileFetcher struct {
	dir string
}

func NewFileFetcher(dir string) *FileFetcher {
	return &FileFetcher{dir: dir}
}

func (f *FileFetcher) Fetch(ctx context.Context, id string) (models.RawDocument, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, connectionError(ctx, "read document file", err)
	}
	if filepath.Base(id) != id {
		return nil, fmt.Errorf("%w: pitch id %q is not a plain file name", ErrInvalidID, id)
	}

	data, err := os.ReadFile(filepath.Join(f.dir, id+".json"))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: no document file for %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, connectionError(ctx, "read document file", err)
	}
	return decodeDocument(id, data)
}
