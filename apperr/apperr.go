// Package apperr builds the structured errors used across the engine. Every
// constructed error carries an errbuilder code plus a Category so callers can
// branch on retryability without string matching.
package apperr

import (
	"errors"
	"fmt"

	errbuilder "github.com/ZanzyTHEbar/errbuilder-go"
)

// Category defines the type of error for proper handling
type Category string

const (
	CategoryValidation    Category = "validation"
	CategoryConfiguration Category = "configuration"
	CategoryStorage       Category = "storage"
	CategoryConflict      Category = "conflict"
	CategoryNotFound      Category = "not_found"
	CategoryInternal      Category = "internal"
)

// Error wraps an errbuilder error with the handling category
type Error struct {
	*errbuilder.ErrBuilder
	Category Category `json:"category"`
}

// Error implements the error interface
func (e *Error) Error() string {
	codeStr := "UNKNOWN_ERROR"
	switch e.ErrBuilder.ErrCode() {
	case errbuilder.CodeInvalidArgument:
		codeStr = "VALIDATION_ERROR"
	case errbuilder.CodeFailedPrecondition:
		codeStr = "CONFIGURATION_ERROR"
	case errbuilder.CodeUnavailable:
		codeStr = "STORAGE_ERROR"
	case errbuilder.CodeAborted:
		codeStr = "CONFLICT_ERROR"
	case errbuilder.CodeNotFound:
		codeStr = "NOT_FOUND"
	case errbuilder.CodeInternal:
		codeStr = "INTERNAL_ERROR"
	}

	return fmt.Sprintf("[%s] %s", codeStr, e.ErrBuilder.Msg)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// New creates an Error from an errbuilder with a category
func New(builder *errbuilder.ErrBuilder, category Category) *Error {
	return &Error{
		ErrBuilder: builder,
		Category:   category,
	}
}

// NewValidationError creates a validation error with an optional detail message
func NewValidationError(message string, details ...string) *Error {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	if len(details) > 0 {
		errorMap := errbuilder.ErrorMap{}
		errorMap.Set("validation_details", errors.New(details[0]))
		builder = builder.WithDetails(errbuilder.NewErrDetails(errorMap))
	}

	return New(builder, CategoryValidation)
}

// NewValidationErrorWithMap creates a validation error carrying per-field messages
func NewValidationErrorWithMap(message string, fieldErrors map[string]string) *Error {
	errorMap := errbuilder.ErrorMap{}
	for field, msg := range fieldErrors {
		errorMap.Set(field, errors.New(msg))
	}

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	return New(builder, CategoryValidation)
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(message string, cause error) *Error {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return New(builder, CategoryConfiguration)
}

// NewStorageError creates a storage error for failed reads and writes
func NewStorageError(message string, cause error) *Error {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnavailable).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return New(builder, CategoryStorage)
}

// NewConflictError creates a conflict error for a version check that failed
// on a concurrent write. Conflicts are retryable.
func NewConflictError(offerID string, expectedVersion int64) *Error {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("offer_id", errors.New(offerID))
	errorMap.Set("expected_version", fmt.Errorf("%d", expectedVersion))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeAborted).
		WithMsg("offer score version changed concurrently").
		WithDetails(errbuilder.NewErrDetails(errorMap))

	return New(builder, CategoryConflict)
}

// NewNotFoundError creates a not-found error for a missing entity
func NewNotFoundError(entity, id string) *Error {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("id", errors.New(id))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("%s not found", entity)).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	return New(builder, CategoryNotFound)
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *Error {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return New(builder, CategoryInternal)
}

// ToError converts any error to an *Error
func ToError(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	if ebErr, ok := err.(*errbuilder.ErrBuilder); ok {
		return New(ebErr, CategoryInternal)
	}

	return NewInternalError("an unexpected error occurred", err)
}

// IsRetryable reports whether the error should trigger a retry. Conflicts and
// transient storage failures retry; validation and configuration never do.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	switch ToError(err).Category {
	case CategoryConflict, CategoryStorage:
		return true
	default:
		return false
	}
}

// IsConflict reports whether the error is a concurrent-write conflict
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	return ToError(err).Category == CategoryConflict
}

// IsNotFound reports whether the error is a missing-entity error
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return ToError(err).Category == CategoryNotFound
}

// Wrap adds formatted context to an error, preserving the chain
func Wrap(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	contextMsg := fmt.Sprintf(message, args...)
	return fmt.Errorf("%s: %w", contextMsg, err)
}
