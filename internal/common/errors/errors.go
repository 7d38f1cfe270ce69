// Package errors provides the standardized error model for the pitch
// pipeline and its mapping onto BPMN errors for the Zeebe workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Retrieval errors are the only ones that fail a pipeline run.
const (
	ErrCodePitchNotFound            ErrorCode = "PITCH_NOT_FOUND"
	ErrCodeDocumentStoreUnavailable ErrorCode = "DOCUMENT_STORE_UNAVAILABLE"
	ErrCodeInvalidPitchID           ErrorCode = "INVALID_PITCH_ID"
)

// Degradations recorded while a run keeps going.
const (
	ErrCodeNormalizationDegraded  ErrorCode = "NORMALIZATION_DEGRADED"
	ErrCodeProviderFailed         ErrorCode = "ANALYSIS_PROVIDER_FAILED"
	ErrCodeRuleEvaluationFailed   ErrorCode = "RULE_EVALUATION_FAILED"
	ErrCodeScoringUnderflow       ErrorCode = "SCORING_UNDERFLOW"
	ErrCodeReportValidationFailed ErrorCode = "REPORT_VALIDATION_FAILED"
)

// Infrastructure / delivery errors.
const (
	ErrCodeDatabaseConnectionFailed      ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeCacheUnavailable              ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeEventPublishFailed            ErrorCode = "EVENT_PUBLISH_FAILED"
	ErrCodeBrokerUnavailable             ErrorCode = "BROKER_UNAVAILABLE"
	ErrCodeBrokerRejected                ErrorCode = "BROKER_REJECTED"
	ErrCodeInvalidInput                  ErrorCode = "INVALID_INPUT"
	ErrCodeInternal                      ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// AsStandardError extracts a *StandardError anywhere in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewPitchNotFoundError is fatal for the run: there is nothing to analyze.
func NewPitchNotFoundError(pitchID string, cause error) *StandardError {
	return newError(ErrCodePitchNotFound, "Pitch document not found",
		fmt.Sprintf("pitchId: %s", pitchID), false, cause).
		WithMetadata("pitchId", pitchID)
}

// NewDocumentStoreUnavailableError is fatal for the run. The pipeline never
// retries; Retryable only tells the workflow engine it may try the job again.
func NewDocumentStoreUnavailableError(pitchID string, cause error) *StandardError {
	details := fmt.Sprintf("pitchId: %s", pitchID)
	if cause != nil {
		details = fmt.Sprintf("pitchId: %s, error: %s", pitchID, cause.Error())
	}
	return newError(ErrCodeDocumentStoreUnavailable, "Document store unreachable",
		details, true, cause).
		WithMetadata("pitchId", pitchID)
}

// NewInvalidPitchIDError rejects an empty or malformed pitch id.
func NewInvalidPitchIDError(details string) *StandardError {
	return newError(ErrCodeInvalidPitchID, "Invalid pitch id", details, false, nil)
}

// NewNormalizationDegradedError records that the raw document was passed
// through without canonical guarantees.
func NewNormalizationDegradedError(reason interface{}) *StandardError {
	return newError(ErrCodeNormalizationDegraded, "Normalization failed; raw document passed through",
		fmt.Sprint(reason), false, nil)
}

// NewProviderFailedError records one analysis category as unavailable.
func NewProviderFailedError(category string, reason interface{}) *StandardError {
	return newError(ErrCodeProviderFailed, "Analysis provider failed",
		fmt.Sprintf("category: %s, error: %v", category, reason), false, nil).
		WithMetadata("category", category)
}

// NewRuleEvaluationFailedError records a consistency rule that was skipped.
func NewRuleEvaluationFailedError(rule string, reason interface{}) *StandardError {
	return newError(ErrCodeRuleEvaluationFailed, "Consistency rule could not be evaluated",
		fmt.Sprintf("rule: %s, error: %v", rule, reason), false, nil).
		WithMetadata("rule", rule)
}

// NewScoringUnderflowError records that no category produced a usable average.
func NewScoringUnderflowError(neutral float64) *StandardError {
	return newError(ErrCodeScoringUnderflow, "No usable category averages",
		fmt.Sprintf("overall score defaulted to %.1f", neutral), false, nil)
}

// NewReportValidationFailedError carries schema violations found after coercion.
func NewReportValidationFailedError(violations []string) *StandardError {
	return newError(ErrCodeReportValidationFailed, "Report does not conform to schema",
		strings.Join(violations, "; "), false, nil).
		WithMetadata("violations", violations)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true, err)
}

// NewElasticsearchConnectionFailedError creates a retryable Elasticsearch connection error.
func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeElasticsearchConnectionFailed, "Elasticsearch connection error", err.Error(), true, err)
}

func NewCacheUnavailableError(err error) *StandardError {
	return newError(ErrCodeCacheUnavailable, "Document cache unavailable", err.Error(), true, err)
}

// NewEventPublishFailedError creates a retryable notification error.
func NewEventPublishFailedError(topic string, err error) *StandardError {
	return newError(ErrCodeEventPublishFailed, "Analysis event publish failed",
		fmt.Sprintf("topic: %s, error: %s", topic, err.Error()), true, err)
}

// NewBrokerUnavailableError covers transient Zeebe gateway failures.
func NewBrokerUnavailableError(operation string, err error) *StandardError {
	return newError(ErrCodeBrokerUnavailable, "Workflow broker unavailable",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true, err)
}

func NewBrokerRejectedError(operation string, err error) *StandardError {
	return newError(ErrCodeBrokerRejected, "Workflow broker rejected command",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), false, err)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid job input", details, false, nil)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// ==========================
// 4. BPMN Mapping & Retry Policy
// ==========================

// BPMNErrorMapping maps internal codes to the error codes modelled on
// boundary events in the pitch-analysis process.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodePitchNotFound:                 "PITCH_NOT_FOUND",
	ErrCodeDocumentStoreUnavailable:      "DOCUMENT_STORE_UNAVAILABLE",
	ErrCodeInvalidPitchID:                "INVALID_PITCH_ID",
	ErrCodeReportValidationFailed:        "REPORT_INVALID",
	ErrCodeDatabaseConnectionFailed:      "DOCUMENT_STORE_UNAVAILABLE",
	ErrCodeElasticsearchConnectionFailed: "DOCUMENT_STORE_UNAVAILABLE",
	ErrCodeEventPublishFailed:            "EVENT_PUBLISH_FAILED",
	ErrCodeInvalidInput:                  "INVALID_INPUT",
}

// GetRetryCount is the number of job retries the workflow engine is granted.
// It applies to Zeebe jobs only; the pipeline itself never retries.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDocumentStoreUnavailable,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeEventPublishFailed,
		ErrCodeBrokerUnavailable:
		return 3
	case ErrCodeCacheUnavailable:
		return 1
	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "PITCH") || strings.Contains(codeStr, "DOCUMENT"):
		return "RETRIEVAL"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "CACHE"):
		return "STORAGE"
	case strings.Contains(codeStr, "EVENT"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "BROKER"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "NORMALIZATION") || strings.Contains(codeStr, "PROVIDER") ||
		strings.Contains(codeStr, "RULE") || strings.Contains(codeStr, "SCORING"):
		return "PIPELINE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
