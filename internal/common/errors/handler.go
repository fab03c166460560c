// internal/common/errors/handler.go
package errors

import (
	"errors"
	"time"
)

// Handler normalizes arbitrary errors into StandardError and logs them
// with their retry and category metadata, so every surface reports
// failures the same way.
type Handler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewHandler(logger Logger) *Handler {
	return &Handler{logger: logger}
}

// Normalize ensures we always have a StandardError.
func (h *Handler) Normalize(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// Handle normalizes and logs an error, returning the normalized form
// for the caller to map onto its own surface.
func (h *Handler) Handle(operation string, err error) *StandardError {
	stdErr := h.Normalize(err)
	h.logger.Error("operation failed", map[string]interface{}{
		"operation":     operation,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"category":      stdErr.Category,
		"retryable":     stdErr.Retryable,
		"retries":       GetRetryCount(stdErr.Code),
		"errorCategory": GetErrorCategory(stdErr.Code),
	})
	return stdErr
}
