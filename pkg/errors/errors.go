// Package errors provides structured error handling for the application
// Following enterprise patterns for error management and observability
package errors

import (
	goerrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents an error code
type ErrorCode string

// Error codes grouped by the taxonomy the endpoints rely on:
// validation, not-found, already-processed (uniqueness), external,
// and fatal (database/timeout) failures.
const (
	// Client errors (4xx)
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	CodeInvalidToken    ErrorCode = "INVALID_TOKEN"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"

	// Uniqueness violations surfaced as "already processed" no-ops
	CodeAlreadyProcessed ErrorCode = "ALREADY_PROCESSED"

	// Server errors (5xx)
	CodeServerError        ErrorCode = "SERVER_ERROR"
	CodeDatabaseError      ErrorCode = "DATABASE_ERROR"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	CodeOCRProviderError   ErrorCode = "OCR_PROVIDER_ERROR"
	CodeDecisionTimeout    ErrorCode = "DECISION_TIMEOUT"

	// Domain lookups
	CodeEventNotFound     ErrorCode = "EVENT_NOT_FOUND"
	CodeMealNotFound      ErrorCode = "MEAL_NOT_FOUND"
	CodeHouseholdNotFound ErrorCode = "HOUSEHOLD_NOT_FOUND"
)

// AppError represents an application error with structured information
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Reason returns the short machine-readable token used on the wire,
// e.g. "invalid_token", "unauthorized", "server_error".
func (e *AppError) Reason() string {
	return strings.ToLower(string(e.Code))
}

// StatusCode returns the appropriate HTTP status code
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeValidationError:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeInvalidToken:
		return http.StatusUnauthorized
	case CodeNotFound, CodeEventNotFound, CodeMealNotFound, CodeHouseholdNotFound:
		return http.StatusNotFound
	case CodeAlreadyProcessed:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeOCRProviderError:
		return http.StatusBadGateway
	case CodeDecisionTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    details,
		StackTrace: getStackTrace(),
	}
}

// Predefined error constructors for common scenarios

// NewValidationError creates a validation error
func NewValidationError(details string) *AppError {
	return NewAppError(CodeValidationError, "Validation failed", details)
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "Authentication required"
	}
	return NewAppError(CodeUnauthorized, message, "")
}

// NewInvalidTokenError creates an invalid bearer token error
func NewInvalidTokenError() *AppError {
	return NewAppError(CodeInvalidToken, "Invalid token", "The bearer token could not be verified")
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	message := "Resource not found"
	if resource != "" {
		message = fmt.Sprintf("%s not found", resource)
	}
	return NewAppError(CodeNotFound, message, "")
}

// NewEventNotFoundError creates a decision event not found error
func NewEventNotFoundError(eventID string) *AppError {
	return NewAppError(
		CodeEventNotFound,
		"Decision event not found",
		fmt.Sprintf("Decision event with ID %s does not exist", eventID),
	).WithMetadata("event_id", eventID)
}

// NewMealNotFoundError creates a meal not found error
func NewMealNotFoundError(mealID string) *AppError {
	return NewAppError(
		CodeMealNotFound,
		"Meal not found",
		fmt.Sprintf("Meal with ID %s does not exist", mealID),
	).WithMetadata("meal_id", mealID)
}

// NewHouseholdNotFoundError creates a household not found error
func NewHouseholdNotFoundError(householdKey string) *AppError {
	return NewAppError(
		CodeHouseholdNotFound,
		"Household not found",
		fmt.Sprintf("Household %s does not exist", householdKey),
	).WithMetadata("household_key", householdKey)
}

// NewAlreadyProcessedError reports a uniqueness violation: the row the
// caller tried to create already exists. Callers treat it as a no-op.
func NewAlreadyProcessedError(resource, key string) *AppError {
	return NewAppError(
		CodeAlreadyProcessed,
		"Already processed",
		fmt.Sprintf("%s %s was already recorded", resource, key),
	).WithMetadata("resource", resource).WithMetadata("key", key)
}

// NewTooManyRequestsError creates a rate limit error
func NewTooManyRequestsError() *AppError {
	return NewAppError(
		CodeTooManyRequests,
		"Too many requests",
		"Rate limit exceeded for this household",
	)
}

// NewServiceUnavailableError reports that the service is deliberately
// refusing work, for example during maintenance.
func NewServiceUnavailableError(details string) *AppError {
	return NewAppError(CodeServiceUnavailable, "Service unavailable", details)
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation string, cause error) *AppError {
	return NewAppError(
		CodeDatabaseError,
		"Database operation failed",
		fmt.Sprintf("Failed to %s", operation),
	).WithCause(cause)
}

// NewOCRProviderError creates an OCR provider error
func NewOCRProviderError(provider string, cause error) *AppError {
	return NewAppError(
		CodeOCRProviderError,
		"OCR extraction failed",
		fmt.Sprintf("Provider %s did not return text", provider),
	).WithMetadata("provider", provider).WithCause(cause)
}

// NewDecisionTimeoutError reports that the arbiter exceeded its deadline
func NewDecisionTimeoutError() *AppError {
	return NewAppError(CodeDecisionTimeout, "Decision timed out", "")
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return NewAppError(CodeServerError, message, "")
}

// Utility functions

// Wrap wraps an error as an internal error if it's not already an AppError
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if goerrors.As(err, &appErr) {
		return appErr
	}

	return NewInternalError(message).WithCause(err)
}

// Is checks if an error carries a specific error code
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if goerrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsAlreadyProcessed reports whether err is a uniqueness violation
func IsAlreadyProcessed(err error) bool {
	return Is(err, CodeAlreadyProcessed)
}

// IsNotFound reports whether err is any of the not-found codes
func IsNotFound(err error) bool {
	var appErr *AppError
	if goerrors.As(err, &appErr) {
		switch appErr.Code {
		case CodeNotFound, CodeEventNotFound, CodeMealNotFound, CodeHouseholdNotFound:
			return true
		}
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if goerrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeServerError
}

// getStackTrace captures the current stack trace
func getStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "pkg/errors") {
			builder.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return builder.String()
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value"`
	Tag     string      `json:"tag"`
	Message string      `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	if len(v) == 1 {
		return v[0].Message
	}

	var messages []string
	for _, err := range v {
		messages = append(messages, err.Message)
	}

	return strings.Join(messages, "; ")
}

// NewValidationErrors creates validation errors from validator errors
func NewValidationErrors(errors []ValidationError) *AppError {
	validationErrs := ValidationErrors(errors)

	return NewAppError(
		CodeValidationError,
		"Validation failed",
		validationErrs.Error(),
	).WithMetadata("validation_errors", validationErrs)
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error ErrorDetails `json:"error"`
}

// ErrorDetails represents the error details in API responses
type ErrorDetails struct {
	Reason    string                 `json:"reason"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// ToErrorResponse converts an AppError to an API error response
func ToErrorResponse(err *AppError, requestID string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetails{
			Reason:    err.Reason(),
			Message:   err.Message,
			Details:   err.Details,
			Metadata:  err.Metadata,
			RequestID: requestID,
			Timestamp: fmt.Sprintf("%d", time.Now().Unix()),
		},
	}
}
