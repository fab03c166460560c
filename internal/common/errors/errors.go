// Package errors provides standardized error handling for the insights service.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeUpstreamFetchFailed  ErrorCode = "UPSTREAM_FETCH_FAILED"
	ErrCodeUpstreamTimeout      ErrorCode = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamBadStatus    ErrorCode = "UPSTREAM_BAD_STATUS"
	ErrCodePayloadInvalid       ErrorCode = "PAYLOAD_INVALID"
	ErrCodeUnknownCategory      ErrorCode = "UNKNOWN_CATEGORY"
	ErrCodeCacheUnavailable     ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeSearchQueryFailed    ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchIndexFailed    ErrorCode = "SEARCH_INDEX_FAILED"
	ErrCodeReportStoreFailed    ErrorCode = "REPORT_STORE_FAILED"
	ErrCodeExportWriteFailed    ErrorCode = "EXPORT_WRITE_FAILED"
	ErrCodeNotificationFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeFetchAlreadyInFlight ErrorCode = "FETCH_ALREADY_IN_FLIGHT"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Category  string                 `json:"category,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithCategory scopes the error to one issue category so a failure in
// one category never bleeds into the others on the client side.
func (e *StandardError) WithCategory(category string) *StandardError {
	e.Category = category
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

// NewUpstreamFetchFailedError creates a retryable upstream fetch error.
func NewUpstreamFetchFailedError(category string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamFetchFailed,
		Message:   "Upstream API fetch failed",
		Details:   err.Error(),
		Retryable: true,
		Category:  category,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamTimeoutError creates a retryable upstream timeout error.
func NewUpstreamTimeoutError(category string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamTimeout,
		Message:   "Upstream API request timed out",
		Details:   fmt.Sprintf("category: %s", category),
		Retryable: true,
		Category:  category,
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamBadStatusError creates an upstream HTTP status error.
// 5xx responses are retryable, 4xx are not.
func NewUpstreamBadStatusError(category string, status int) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamBadStatus,
		Message:   "Upstream API returned non-success status",
		Details:   fmt.Sprintf("category: %s, status: %d", category, status),
		Retryable: status >= 500,
		Category:  category,
		Timestamp: time.Now().UTC(),
	}
}

// NewPayloadInvalidError creates a non-retryable payload validation error.
func NewPayloadInvalidError(category, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePayloadInvalid,
		Message:   "Category payload failed schema validation",
		Details:   details,
		Retryable: false,
		Category:  category,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownCategoryError creates a non-retryable category error.
func NewUnknownCategoryError(category string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownCategory,
		Message:   "Unsupported issue category",
		Details:   fmt.Sprintf("category: %s", category),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError creates a retryable cache error.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Category cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable search error.
func NewSearchQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Issue search query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchIndexFailedError creates a retryable indexing error.
func NewSearchIndexFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchIndexFailed,
		Message:   "Issue indexing failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewReportStoreFailedError creates a retryable report persistence error.
func NewReportStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeReportStoreFailed,
		Message:   "Report history write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewExportWriteFailedError creates a non-retryable export error.
func NewExportWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExportWriteFailed,
		Message:   "Export write failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationFailedError creates a retryable notification error.
func NewNotificationFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationFailed,
		Message:   "Alert delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Retry Policy
// ==========================

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeUpstreamFetchFailed,
		ErrCodeCacheUnavailable,
		ErrCodeSearchQueryFailed,
		ErrCodeSearchIndexFailed,
		ErrCodeReportStoreFailed,
		ErrCodeNotificationFailed:
		return 3

	case ErrCodeUpstreamTimeout,
		ErrCodeUpstreamBadStatus:
		return 2

	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// ==========================
// 4. HTTP Mapping
// ==========================

// HTTPStatus maps an error code to the status the API surface returns.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeUnknownCategory:
		return http.StatusNotFound
	case ErrCodePayloadInvalid:
		return http.StatusUnprocessableEntity
	case ErrCodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeUpstreamFetchFailed, ErrCodeUpstreamBadStatus:
		return http.StatusBadGateway
	case ErrCodeCacheUnavailable, ErrCodeSearchQueryFailed,
		ErrCodeSearchIndexFailed, ErrCodeReportStoreFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory returns the subsystem of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "UPSTREAM"):
		return "UPSTREAM"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "REPORT") || strings.Contains(codeStr, "EXPORT"):
		return "REPORTING"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "PAYLOAD") || strings.Contains(codeStr, "CATEGORY"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
