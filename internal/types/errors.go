package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// All handlers MUST use these constants instead of hardcoded strings.
const (
	// Validation
	ErrCodeValidationMissingUsername ErrorCode = "validation_missing_username"
	ErrCodeValidationMissingToken    ErrorCode = "validation_missing_token"
	ErrCodeValidationMissingField    ErrorCode = "validation_missing_required_field"

	// Webhook authentication (the sole non-200 client-facing failure)
	ErrCodeWebhookUnauthorized ErrorCode = "webhook_unauthorized"

	// Not Found
	ErrCodeNotFoundSession ErrorCode = "not_found_session"

	// Entitlement
	ErrCodeNoSubscription ErrorCode = "no_subscription"

	// Internal
	ErrCodeInternalDB         ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// HTTPStatus maps an ErrorCode to its transport status code.
//
// The mapping is deliberately unusual: validation failures, unknown tokens,
// and missing entitlements are expected outcomes and are reported with 200
// plus a structured error body, because clients of the demo API (and the
// billing provider's retry logic) key off the JSON body, not the status
// line. The webhook credential check is the one exception: the provider
// retries on non-2xx, and a bad credential must not be retried away, so it
// maps to 401. Internal failures remain 500.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case c == ErrCodeWebhookUnauthorized:
		return http.StatusUnauthorized // 401
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError // 500
	default:
		return http.StatusOK // 200
	}
}

// Label returns the short client-facing error name used in legacy response
// bodies ({"error":"BadRequest"} and friends).
func (c ErrorCode) Label() string {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return "BadRequest"
	case c == ErrCodeWebhookUnauthorized:
		return "Unauthorized"
	case strings.HasPrefix(s, "not_found_"):
		return "NotFound"
	case c == ErrCodeNoSubscription:
		return "NoSubscription"
	default:
		return "InternalError"
	}
}

// AppError is the standard application error type used throughout the
// service. All domain and handler errors should be expressed as AppError to
// enable consistent error formatting, HTTP status mapping, and error chain
// support.
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

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error. This is the standard constructor for domain
// errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with the given code, message,
// underlying error, and structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}
