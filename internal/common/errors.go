package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures for propagation and HTTP mapping.
type ErrorKind string

const (
	KindValidation          ErrorKind = "VALIDATION_ERROR"
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindConflict            ErrorKind = "CONFLICT"
	KindSchemaCompatibility ErrorKind = "SCHEMA_COMPATIBILITY"
	KindUnexpected          ErrorKind = "SERVER_ERROR"
)

// AppError is the error type services return to handlers.
type AppError struct {
	Kind    ErrorKind
	Message string
	Details map[string]string
	// Status overrides the kind's default HTTP status when non-zero.
	Status int
	Cause  error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// HTTPStatus maps the error to a response status.
func (e *AppError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WithDetail adds a key to the error details and returns e.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{Kind: KindNotFound, Message: resource + " not found"}
}

func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

// NewSchemaError marks a statement that hit a missing table or column. The
// client sees a generic server error.
func NewSchemaError(message string, cause error) *AppError {
	return &AppError{Kind: KindSchemaCompatibility, Message: message, Cause: cause}
}

// NewUnexpectedError wraps an internal failure. The cause is logged, the
// message shown to callers stays generic.
func NewUnexpectedError(operation string, cause error) *AppError {
	return &AppError{Kind: KindUnexpected, Message: "failed to " + operation, Cause: cause}
}

// AsAppError extracts an *AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}
