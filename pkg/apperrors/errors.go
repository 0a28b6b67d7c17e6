package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error
type Kind string

const (
	// Domain errors
	KindValidation       Kind = "VALIDATION"
	KindInvalidStructure Kind = "INVALID_STRUCTURE"
	KindNotFound         Kind = "NOT_FOUND"
	KindConflict         Kind = "CONFLICT"
	KindEmptyPool        Kind = "EMPTY_POOL"

	// Infrastructure errors
	KindInternal    Kind = "INTERNAL"
	KindUnavailable Kind = "UNAVAILABLE"
	KindDatabase    Kind = "DATABASE"
)

// AppError carries an error kind, a caller-facing message and the
// HTTP status the REST layer maps it to.
type AppError struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Cause      error  `json:"-"`
	HTTPStatus int    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// Constructor functions for the error kinds the service surfaces

// NewValidationError creates a bad-request error for malformed input
func NewValidationError(message string) *AppError {
	return &AppError{
		Kind:       KindValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidStructureError reports a SMILES string that failed to parse.
// The message mirrors the parser diagnostic the API has always returned.
func NewInvalidStructureError(input string) *AppError {
	return &AppError{
		Kind:       KindInvalidStructure,
		Message:    fmt.Sprintf("SMILES Parse Error: syntax error for input '%s'.", input),
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Message:    message,
		HTTPStatus: http.StatusNotFound,
	}
}

// NewConflictError creates a conflict error for uniqueness violations
func NewConflictError(message string) *AppError {
	return &AppError{
		Kind:       KindConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewEmptyPoolError reports that no candidates are available for search
func NewEmptyPoolError() *AppError {
	return &AppError{
		Kind:       KindEmptyPool,
		Message:    "The molecules for substructure search aren't provided",
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Kind:       KindInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// NewUnavailableError creates a service unavailable error
func NewUnavailableError(message string) *AppError {
	return &AppError{
		Kind:       KindUnavailable,
		Message:    message,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// NewDatabaseError wraps a failed store operation
func NewDatabaseError(operation string, err error) *AppError {
	return &AppError{
		Kind:       KindDatabase,
		Message:    fmt.Sprintf("database operation '%s' failed", operation),
		Cause:      err,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Helper functions

// Get extracts an AppError from an error chain
func Get(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsKind checks if an error is of a specific kind
func IsKind(err error, kind Kind) bool {
	appErr := Get(err)
	return appErr != nil && appErr.Kind == kind
}

// IsNotFound checks if an error is a not-found error
func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	return IsKind(err, KindConflict)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsKind(err, KindValidation)
}

// IsInvalidStructure checks if an error is a structure parse error
func IsInvalidStructure(err error) bool {
	return IsKind(err, KindInvalidStructure)
}

// Wrap wraps an error with additional context, preserving an existing
// AppError kind and status.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr := Get(err); appErr != nil {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}
