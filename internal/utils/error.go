package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes with HTTP status mapping
const (
	// General errors
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeValidationFailed  = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"

	// Backend errors
	ErrCodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	ErrCodeBackendRejected    = "BACKEND_REJECTED"

	// Session errors
	ErrCodeSessionNotFound     = "SESSION_NOT_FOUND"
	ErrCodeAlreadyProcessing   = "ALREADY_PROCESSING"
	ErrCodeNotConnected        = "NOT_CONNECTED"
	ErrCodeEmptyQuery          = "EMPTY_QUERY"
	ErrCodeNoGeneratedSQL      = "NO_GENERATED_SQL"
	ErrCodeMissingFeedbackData = "MISSING_FEEDBACK_DATA"
	ErrCodeStaleResponse       = "STALE_RESPONSE"

	// Data source errors
	ErrCodeDataSourceNotFound = "DATASOURCE_NOT_FOUND"

	// Validation error codes
	ErrCodeInvalidJSON = "INVALID_JSON"
)

// HTTPStatus maps error codes to HTTP status codes
var HTTPStatus = map[string]int{
	ErrCodeInvalidRequest:    http.StatusBadRequest,
	ErrCodeValidationFailed:  http.StatusUnprocessableEntity,
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeInternalError:     http.StatusInternalServerError,
	ErrCodeRateLimitExceeded: http.StatusTooManyRequests,

	ErrCodeBackendUnavailable: http.StatusBadGateway,
	ErrCodeBackendRejected:    http.StatusBadGateway,

	ErrCodeSessionNotFound:     http.StatusNotFound,
	ErrCodeAlreadyProcessing:   http.StatusConflict,
	ErrCodeNotConnected:        http.StatusPreconditionFailed,
	ErrCodeEmptyQuery:          http.StatusBadRequest,
	ErrCodeNoGeneratedSQL:      http.StatusPreconditionFailed,
	ErrCodeMissingFeedbackData: http.StatusPreconditionFailed,
	ErrCodeStaleResponse:       http.StatusConflict,

	ErrCodeDataSourceNotFound: http.StatusNotFound,

	ErrCodeInvalidJSON: http.StatusBadRequest,
}

// AppError represents an application error with additional context
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for creating errors
type ErrorBuilder struct {
	code    string
	message string
	details string
	cause   error
}

// NewErrorBuilder creates a new error builder
func NewErrorBuilder(code string) *ErrorBuilder {
	return &ErrorBuilder{code: code}
}

// WithMessage sets the error message
func (eb *ErrorBuilder) WithMessage(message string) *ErrorBuilder {
	eb.message = message
	return eb
}

// WithDetails sets the error details
func (eb *ErrorBuilder) WithDetails(details string) *ErrorBuilder {
	eb.details = details
	return eb
}

// WithCause sets the underlying error cause
func (eb *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	eb.cause = cause
	return eb
}

// Build constructs the final AppError
func (eb *ErrorBuilder) Build() *AppError {
	if eb.message == "" {
		eb.message = getDefaultMessage(eb.code)
	}

	return &AppError{
		Code:    eb.code,
		Message: eb.message,
		Details: eb.details,
		Cause:   eb.cause,
	}
}

// getDefaultMessage returns a default message for error codes
func getDefaultMessage(code string) string {
	messages := map[string]string{
		ErrCodeInvalidRequest:    "The request is invalid",
		ErrCodeValidationFailed:  "Validation failed",
		ErrCodeNotFound:          "Resource not found",
		ErrCodeInternalError:     "Internal server error",
		ErrCodeRateLimitExceeded: "Rate limit exceeded",

		ErrCodeBackendUnavailable: "Text-to-SQL backend is unavailable",
		ErrCodeBackendRejected:    "Text-to-SQL backend rejected the request",

		ErrCodeSessionNotFound:     "Session not found",
		ErrCodeAlreadyProcessing:   "A query is already being processed, please wait for it to finish",
		ErrCodeNotConnected:        "Check the database connection first",
		ErrCodeEmptyQuery:          "Query must not be empty",
		ErrCodeNoGeneratedSQL:      "There is no generated SQL to execute",
		ErrCodeMissingFeedbackData: "Feedback needs both a query and a generated SQL statement",
		ErrCodeStaleResponse:       "The active data source changed while the request was in flight",

		ErrCodeDataSourceNotFound: "Data source not found",

		ErrCodeInvalidJSON: "Invalid JSON format",
	}

	if msg, exists := messages[code]; exists {
		return msg
	}
	return "Unknown error"
}

func NewValidationError(message string, details string) *AppError {
	return NewErrorBuilder(ErrCodeValidationFailed).
		WithMessage(message).
		WithDetails(details).
		Build()
}

// NewSessionError builds a session rule violation with the default message for code.
func NewSessionError(code string) *AppError {
	return NewErrorBuilder(code).Build()
}

// NewBackendError wraps a failed backend call.
func NewBackendError(code string, cause error, message string) *AppError {
	return NewErrorBuilder(code).
		WithMessage(message).
		WithCause(cause).
		Build()
}

// AsAppError unwraps err to an *AppError if there is one in its chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsErrorType checks if an error matches a specific error code
func IsErrorType(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// GetErrorStatus returns the HTTP status code for an error
func GetErrorStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		if status, exists := HTTPStatus[appErr.Code]; exists {
			return status
		}
	}
	return http.StatusInternalServerError
}
