package server

import (
	"net/http"

	"pitch-analyzer/internal/common/errors"

	"github.com/gin-gonic/gin"
)

type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func respondError(c *gin.Context, status int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}

// respondPipelineError maps a run error onto its HTTP status.
func respondPipelineError(c *gin.Context, err error) {
	stdErr := errors.Normalize(err)
	respondError(c, statusFor(stdErr.Code), string(stdErr.Code), stdErr.Message, stdErr.Details)
}

func statusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodePitchNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidPitchID, errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeDocumentStoreUnavailable,
		errors.ErrCodeDatabaseConnectionFailed,
		errors.ErrCodeElasticsearchConnectionFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
