package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// StandardError
// ==========================

func TestStandardError_ErrorAndUnwrap(t *testing.T) {
	cause := stderrors.New("dial tcp: connection refused")
	err := NewDocumentStoreUnavailableError("p-1", cause)

	assert.Equal(t, "StandardError[DOCUMENT_STORE_UNAVAILABLE]: Document store unreachable", err.Error())
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, "p-1", err.Metadata["pitchId"])
	assert.Contains(t, err.Details, "connection refused")
	assert.True(t, err.Retryable)
}

func TestAsStandardError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("run failed: %w", NewPitchNotFoundError("p-2", nil))

	stdErr, ok := AsStandardError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodePitchNotFound, stdErr.Code)
	assert.True(t, HasCode(wrapped, ErrCodePitchNotFound))
	assert.False(t, HasCode(stderrors.New("plain"), ErrCodePitchNotFound))
}

// ==========================
// BPMN conversion
// ==========================

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name        string
		err         *StandardError
		wantCode    string
		wantRetries int
	}{
		{
			name:        "not found is terminal",
			err:         NewPitchNotFoundError("p", nil),
			wantCode:    "PITCH_NOT_FOUND",
			wantRetries: 0,
		},
		{
			name:        "store unavailable is retried by the engine",
			err:         NewDocumentStoreUnavailableError("p", stderrors.New("x")),
			wantCode:    "DOCUMENT_STORE_UNAVAILABLE",
			wantRetries: 3,
		},
		{
			name:        "database connection maps to store unavailable",
			err:         NewDatabaseConnectionFailedError(stderrors.New("x")),
			wantCode:    "DOCUMENT_STORE_UNAVAILABLE",
			wantRetries: 3,
		},
		{
			name:        "unmapped code falls back to itself",
			err:         NewInternalError(stderrors.New("x")),
			wantCode:    "INTERNAL_ERROR",
			wantRetries: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.wantCode, bpmn.Code)
			assert.Equal(t, tt.wantRetries, bpmn.Retries)
			vars := bpmn.ToErrorVariables()
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
			assert.Equal(t, tt.wantCode, vars["errorCode"])
		})
	}
}

func TestDecide(t *testing.T) {
	_, d := Decide(NewDocumentStoreUnavailableError("p", stderrors.New("x")), 3)
	assert.Equal(t, DecisionFail, d)

	_, d = Decide(NewDocumentStoreUnavailableError("p", stderrors.New("x")), 0)
	assert.Equal(t, DecisionThrow, d)

	_, d = Decide(NewPitchNotFoundError("p", nil), 3)
	assert.Equal(t, DecisionThrow, d)

	stdErr, d := Decide(stderrors.New("boom"), 3)
	assert.Equal(t, DecisionThrow, d)
	assert.Equal(t, ErrCodeInternal, stdErr.Code)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "RETRIEVAL", GetErrorCategory(ErrCodePitchNotFound))
	assert.Equal(t, "STORAGE", GetErrorCategory(ErrCodeDatabaseConnectionFailed))
	assert.Equal(t, "NOTIFICATION", GetErrorCategory(ErrCodeEventPublishFailed))
	assert.Equal(t, "PIPELINE", GetErrorCategory(ErrCodeScoringUnderflow))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeReportValidationFailed))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
	assert.True(t, IsRetryableErrorCode(ErrCodeEventPublishFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeInvalidPitchID))
}

func TestReportValidationFailed_JoinsViolations(t *testing.T) {
	err := NewReportValidationFailedError([]string{"pitchId: required", "uniqueness: integer"})
	assert.Equal(t, "pitchId: required; uniqueness: integer", err.Details)
	assert.Len(t, err.Metadata["violations"], 2)
}
