// Package errors provides standardized domain errors with codes for the OpenShelf server.
//
// Usage:
//
//	// In the engine - return typed errors
//	if !book.IsAvailable() {
//	    return errors.BusinessRulef("no copies available for %q", book.ISBN)
//	}
//
//	// In callers - check with errors.Is against sentinels
//	if errors.Is(err, errors.ErrNotFound) {
//	    ...
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeBusinessRule:
//	        ...
//	    case errors.CodeConflict:
//	        // safe to retry the whole operation
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	// CodeValidation marks malformed or out-of-range input, caught before
	// any storage access. The caller can correct the input and resubmit.
	CodeValidation Code = "VALIDATION"
	// CodeNotFound marks a reference to a patron, book, checkout, or
	// reservation that does not exist.
	CodeNotFound Code = "NOT_FOUND"
	// CodeBusinessRule marks well-formed input that current domain state
	// forbids (limit reached, no copies, max renewals, and so on). The
	// message carries the specific rule that was broken.
	CodeBusinessRule Code = "BUSINESS_RULE"
	// CodeConflict marks a concurrent-writer collision detected between
	// read and commit. Retrying the whole operation is safe.
	CodeConflict Code = "CONFLICT"
	// CodeStorage marks an unavailable store or a failed commit. Fatal for
	// the request; never retried by the engine.
	CodeStorage Code = "STORAGE"
	// CodeInternal marks a programming error or an unclassified failure.
	CodeInternal Code = "INTERNAL"
)

// Retryable reports whether an operation failing with this code can be
// safely retried from scratch by the caller.
func (c Code) Retryable() bool {
	return c == CodeConflict
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrValidation   = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotFound     = &Error{Code: CodeNotFound, Message: "not found"}
	ErrBusinessRule = &Error{Code: CodeBusinessRule, Message: "business rule violation"}
	ErrConflict     = &Error{Code: CodeConflict, Message: "conflict"}
	ErrStorage      = &Error{Code: CodeStorage, Message: "storage failure"}
	ErrInternal     = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// BusinessRule creates a business rule violation error.
func BusinessRule(msg string) *Error {
	return &Error{Code: CodeBusinessRule, Message: msg}
}

// BusinessRulef creates a business rule violation error with formatted message.
func BusinessRulef(format string, args ...any) *Error {
	return &Error{Code: CodeBusinessRule, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// Conflictf creates a conflict error with formatted message.
func Conflictf(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// Storage creates a storage failure error.
func Storage(msg string) *Error {
	return &Error{Code: CodeStorage, Message: msg}
}

// Storagef creates a storage failure error with formatted message.
func Storagef(format string, args ...any) *Error {
	return &Error{Code: CodeStorage, Message: fmt.Sprintf(format, args...)}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
