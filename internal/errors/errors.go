// Package errors provides standardized pipeline errors with codes for chaptify.
//
// Usage:
//
//	// In components - return typed errors
//	if author == "" && title == "" {
//	    return errors.Identity("no author/title in tags or filename")
//	}
//
//	// In the CLI - check with errors.Is, or map to an exit status
//	var pipeErr *errors.Error
//	if errors.As(err, &pipeErr) {
//	    os.Exit(pipeErr.Code.ExitCode())
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

// Error codes used throughout the pipeline, one per failure class.
const (
	CodeIdentity              Code = "IDENTITY"
	CodeCatalogTransient      Code = "CATALOG_TRANSIENT"
	CodeCatalogNotFound       Code = "CATALOG_NOT_FOUND"
	CodeCatalogUnauthorized   Code = "CATALOG_UNAUTHORIZED"
	CodeNoMatch               Code = "NO_MATCH"
	CodeAmbiguousMatch        Code = "AMBIGUOUS_MATCH"
	CodeUnresolvableTimecodes Code = "UNRESOLVABLE_TIMECODES"
	CodeDurationMismatch      Code = "DURATION_MISMATCH"
	CodeRemux                 Code = "REMUX"
	CodeValidation            Code = "VALIDATION"
	CodeInternal              Code = "INTERNAL"
)

// ExitCode returns the process exit status for an error code, so batch
// callers can classify failures without parsing log output.
func (c Code) ExitCode() int {
	switch c {
	case CodeIdentity:
		return 2
	case CodeCatalogTransient, CodeCatalogNotFound, CodeCatalogUnauthorized:
		return 3
	case CodeNoMatch:
		return 4
	case CodeAmbiguousMatch:
		return 5
	case CodeUnresolvableTimecodes, CodeDurationMismatch:
		return 6
	case CodeRemux:
		return 7
	case CodeValidation:
		return 8
	default:
		return 1
	}
}

// Transient reports whether the code describes a retryable condition.
// Only transient catalog failures are retried by the pipeline.
func (c Code) Transient() bool {
	return c == CodeCatalogTransient
}

// Error is a pipeline error carrying a code and optional diagnostic details.
type Error struct {
	Code    Code
	Message string
	Details any   // e.g. candidate list for match failures
	cause   error // unexported, for wrapping
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
	ErrIdentity              = &Error{Code: CodeIdentity, Message: "cannot derive author/title"}
	ErrCatalogTransient      = &Error{Code: CodeCatalogTransient, Message: "transient catalog failure"}
	ErrCatalogNotFound       = &Error{Code: CodeCatalogNotFound, Message: "not found in catalog"}
	ErrCatalogUnauthorized   = &Error{Code: CodeCatalogUnauthorized, Message: "catalog authorization failed"}
	ErrNoMatch               = &Error{Code: CodeNoMatch, Message: "no matching work"}
	ErrAmbiguousMatch        = &Error{Code: CodeAmbiguousMatch, Message: "ambiguous match"}
	ErrUnresolvableTimecodes = &Error{Code: CodeUnresolvableTimecodes, Message: "unresolvable timecodes"}
	ErrDurationMismatch      = &Error{Code: CodeDurationMismatch, Message: "duration mismatch"}
	ErrRemux                 = &Error{Code: CodeRemux, Message: "remux failed"}
	ErrValidation            = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal              = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// Identity creates an identity extraction error.
func Identity(msg string) *Error {
	return &Error{Code: CodeIdentity, Message: msg}
}

// Identityf creates an identity extraction error with formatted message.
func Identityf(format string, args ...any) *Error {
	return &Error{Code: CodeIdentity, Message: fmt.Sprintf(format, args...)}
}

// CatalogTransient creates a retryable catalog error.
func CatalogTransient(msg string) *Error {
	return &Error{Code: CodeCatalogTransient, Message: msg}
}

// CatalogNotFound creates a permanent not-found catalog error.
func CatalogNotFound(msg string) *Error {
	return &Error{Code: CodeCatalogNotFound, Message: msg}
}

// CatalogUnauthorized creates a permanent authorization catalog error.
func CatalogUnauthorized(msg string) *Error {
	return &Error{Code: CodeCatalogUnauthorized, Message: msg}
}

// NoMatch creates a matcher failure with the rejected candidate list.
func NoMatch(msg string, candidates any) *Error {
	return &Error{Code: CodeNoMatch, Message: msg, Details: candidates}
}

// AmbiguousMatch creates a matcher tie failure with the tied candidates.
func AmbiguousMatch(msg string, candidates any) *Error {
	return &Error{Code: CodeAmbiguousMatch, Message: msg, Details: candidates}
}

// UnresolvableTimecodes creates a timecode resolution error.
func UnresolvableTimecodes(msg string) *Error {
	return &Error{Code: CodeUnresolvableTimecodes, Message: msg}
}

// DurationMismatchf creates a drift-guard error with formatted message.
func DurationMismatchf(format string, args ...any) *Error {
	return &Error{Code: CodeDurationMismatch, Message: fmt.Sprintf(format, args...)}
}

// Remux creates a remux error.
func Remux(msg string) *Error {
	return &Error{Code: CodeRemux, Message: msg}
}

// Remuxf creates a remux error with formatted message.
func Remuxf(format string, args ...any) *Error {
	return &Error{Code: CodeRemux, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the pipeline error code from any error.
// Non-pipeline errors report CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
