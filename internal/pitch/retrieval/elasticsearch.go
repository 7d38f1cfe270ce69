package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/models"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchFetcher reads a pitch document's _source by id.
type ElasticsearchFetcher struct {
	transport esapi.Transport
	index     string
	log       logger.Logger
}

type getResponse struct {
	Found  bool            `json:"found"`
	Source json.RawMessage `json:"_source"`
}

func NewElasticsearchFetcher(transport esapi.Transport, index string, log logger.Logger) *ElasticsearchFetcher {
	return &ElasticsearchFetcher{
		transport: transport,
		index:     index,
		log:       logger.Component(log, "retrieval").With(map[string]interface{}{"backend": "elasticsearch", "index": index}),
	}
}

func (f *ElasticsearchFetcher) Fetch(ctx context.Context, id string) (models.RawDocument, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	req := esapi.GetRequest{Index: f.index, DocumentID: id}
	res, err := req.Do(ctx, f.transport)
	if err != nil {
		f.log.Error("pitch get failed", map[string]interface{}{"pitchId": id, "error": err.Error()})
		return nil, connectionError(ctx, "elasticsearch get", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: no pitch with id %s in index %s", ErrNotFound, id, f.index)
	}
	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		f.log.Error("pitch get returned error status", map[string]interface{}{
			"pitchId": id,
			"status":  res.StatusCode,
			"body":    string(body),
		})
		return nil, fmt.Errorf("%w: elasticsearch get: %s", ErrConnection, res.Status())
	}

	var out getResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: elasticsearch get: decode response: %v", ErrConnection, err)
	}
	if !out.Found || len(out.Source) == 0 {
		return nil, fmt.Errorf("%w: no pitch with id %s in index %s", ErrNotFound, id, f.index)
	}
	return decodeDocument(id, out.Source)
}
