package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pitch-analyzer/internal/common/errors"
	"pitch-analyzer/internal/common/logger"
	"pitch-analyzer/internal/pitch/orchestrator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type stubAnalyzer struct {
	runs  map[string]*orchestrator.Run
	errs  map[string]error
	panic bool
}

func (s *stubAnalyzer) Run(ctx context.Context, pitchID string) (*orchestrator.Run, error) {
	if s.panic {
		panic("analyzer exploded")
	}
	if err, ok := s.errs[pitchID]; ok {
		return &orchestrator.Run{RunID: "run-" + pitchID, State: orchestrator.StateFailed}, err
	}
	return s.runs[pitchID], nil
}

func (s *stubAnalyzer) RunBatch(ctx context.Context, ids []string) []orchestrator.BatchItem {
	items := make([]orchestrator.BatchItem, 0, len(ids))
	for _, id := range ids {
		run, err := s.Run(ctx, id)
		items = append(items, orchestrator.BatchItem{PitchID: id, Run: run, Err: err})
	}
	return items
}

func newStubAnalyzer() *stubAnalyzer {
	return &stubAnalyzer{
		runs: map[string]*orchestrator.Run{
			"pitch-1": {RunID: "run-1", State: orchestrator.StateDone, Output: map[string]interface{}{"pitchId": "pitch-1", "final_irs_score": 72}},
		},
		errs: map[string]error{
			"missing": errors.NewPitchNotFoundError("missing", nil),
			"down":    errors.NewDocumentStoreUnavailableError("down", fmt.Errorf("connection refused")),
			"bad\x00": errors.NewInvalidPitchIDError("control character"),
		},
	}
}

func createTestRouter(t *testing.T, deps Deps) http.Handler {
	if deps.Analyzer == nil {
		deps.Analyzer = newStubAnalyzer()
	}
	deps.Logger = logger.NewTestLogger(t)
	return NewRouter(deps)
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// ==========================
// Health
// ==========================

func TestRouter_Health(t *testing.T) {
	tests := []struct {
		name           string
		check          func(ctx context.Context) error
		expectedStatus int
		expectedBody   string
	}{
		{name: "no check configured", expectedStatus: http.StatusOK, expectedBody: "healthy"},
		{
			name:           "store reachable",
			check:          func(ctx context.Context) error { return nil },
			expectedStatus: http.StatusOK,
			expectedBody:   "healthy",
		},
		{
			name:           "store down",
			check:          func(ctx context.Context) error { return fmt.Errorf("dial tcp: connection refused") },
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, createTestRouter(t, Deps{HealthCheck: tt.check}), http.MethodGet, "/health", "")
			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedBody, decodeBody(t, rec)["status"])
		})
	}
}

// ==========================
// Analyze
// ==========================

func TestRouter_Analyze(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		validate       func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:           "success returns coerced report",
			body:           `{"pitch_id": "pitch-1"}`,
			expectedStatus: http.StatusOK,
			validate: func(t *testing.T, rec *httptest.ResponseRecorder) {
				body := decodeBody(t, rec)
				assert.Equal(t, "pitch-1", body["pitchId"])
				assert.Equal(t, float64(72), body["final_irs_score"])
				assert.Equal(t, "run-1", rec.Header().Get("X-Run-Id"))
				assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
			},
		},
		{
			name:           "missing pitch id",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			validate: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, rec.Body.String(), "Missing pitch_id parameter")
			},
		},
		{
			name:           "blank pitch id",
			body:           `{"pitch_id": "   "}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed body",
			body:           `{"pitch_id":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "pitch not found",
			body:           `{"pitch_id": "missing"}`,
			expectedStatus: http.StatusNotFound,
			validate: func(t *testing.T, rec *httptest.ResponseRecorder) {
				errBody := decodeBody(t, rec)["error"].(map[string]interface{})
				assert.Equal(t, "PITCH_NOT_FOUND", errBody["code"])
			},
		},
		{
			name:           "document store down",
			body:           `{"pitch_id": "down"}`,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "invalid pitch id",
			body:           `{"pitch_id": "bad\u0000"}`,
			expectedStatus: http.StatusBadRequest,
			validate: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, rec.Body.String(), "INVALID_PITCH_ID")
			},
		},
	}

	router := createTestRouter(t, Deps{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/analyze", tt.body)
			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			if tt.validate != nil {
				tt.validate(t, rec)
			}
		})
	}
}

func TestRouter_Analyze_PanicRecovered(t *testing.T) {
	router := createTestRouter(t, Deps{Analyzer: &stubAnalyzer{panic: true}})

	rec := doRequest(t, router, http.MethodPost, "/analyze", `{"pitch_id": "pitch-1"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

// ==========================
// Batch
// ==========================

func TestRouter_AnalyzeBatch(t *testing.T) {
	router := createTestRouter(t, Deps{})

	rec := doRequest(t, router, http.MethodPost, "/analyze/batch", `{"pitch_ids": ["pitch-1", "missing", "down"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Results []BatchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 3)

	assert.Equal(t, "success", body.Results[0].Status)
	assert.Equal(t, "run-1", body.Results[0].RunID)
	assert.Equal(t, "pitch-1", body.Results[0].Result["pitchId"])

	assert.Equal(t, "error", body.Results[1].Status)
	assert.Equal(t, "PITCH_NOT_FOUND", body.Results[1].ErrorCode)
	assert.Nil(t, body.Results[1].Result)

	assert.Equal(t, "DOCUMENT_STORE_UNAVAILABLE", body.Results[2].ErrorCode)
}

func TestRouter_AnalyzeBatch_BadRequests(t *testing.T) {
	tooMany := make([]string, MaxBatchSize+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf(`"p-%d"`, i)
	}

	tests := []struct {
		name string
		body string
	}{
		{name: "missing ids", body: `{}`},
		{name: "empty ids", body: `{"pitch_ids": []}`},
		{name: "wrong type", body: `{"pitch_ids": "pitch-1"}`},
		{name: "too many ids", body: `{"pitch_ids": [` + strings.Join(tooMany, ",") + `]}`},
	}

	router := createTestRouter(t, Deps{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/analyze/batch", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

// ==========================
// Metrics
// ==========================

func TestRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "pitch_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	rec := doRequest(t, createTestRouter(t, Deps{Gatherer: reg}), http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pitch_test_total 1")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(errors.ErrCodePitchNotFound))
	assert.Equal(t, http.StatusBadRequest, statusFor(errors.ErrCodeInvalidPitchID))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(errors.ErrCodeDocumentStoreUnavailable))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.ErrCodeInternal))
}
