package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

const (
	// Validation (400)
	ErrCodeValidationInvalidProperty  ErrorCode = "validation_invalid_property"
	ErrCodeValidationInvalidOperator  ErrorCode = "validation_invalid_operator"
	ErrCodeValidationInvalidThreshold ErrorCode = "validation_invalid_threshold"
	ErrCodeValidationInvalidTrigger   ErrorCode = "validation_invalid_trigger"
	ErrCodeValidationInvalidSnapshot  ErrorCode = "validation_invalid_snapshot"
	ErrCodeValidationInvalidRequest   ErrorCode = "validation_invalid_request"
	ErrCodeValidationUnknownConfigKey ErrorCode = "validation_unknown_config_key"

	// Not Found (404)
	ErrCodeNotFoundProperty ErrorCode = "not_found_property"
	ErrCodeNotFoundTrigger  ErrorCode = "not_found_trigger"
	ErrCodeNotFoundChannel  ErrorCode = "not_found_channel"

	// Dispatch (504)
	ErrCodeDispatchTimeout ErrorCode = "dispatch_timeout"

	// Internal/Upstream (500/502)
	ErrCodeInternalDB              ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected      ErrorCode = "internal_unexpected_error"
	ErrCodeUpstreamUnavailable     ErrorCode = "upstream_transport_unavailable"
	ErrCodeUpstreamRejected        ErrorCode = "upstream_transport_rejected"
	ErrCodeUpstreamCircuitOpen     ErrorCode = "upstream_circuit_open"
	ErrCodeUpstreamInvalidResponse ErrorCode = "upstream_invalid_response"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound
	case c == ErrCodeDispatchTimeout:
		return http.StatusGatewayTimeout
	case c == ErrCodeUpstreamCircuitOpen:
		return http.StatusServiceUnavailable
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError is the standard application error type.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
