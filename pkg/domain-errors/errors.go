// Package dErrors provides coded domain errors shared by every service.
//
// Services construct these at the point where a business rule fails; the HTTP
// layer translates codes to status codes in exactly one place. Stores never
// return coded errors directly; they return pkg/platform/sentinel values that
// services translate.
package dErrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error for transport-layer translation.
type Code string

const (
	// CodeValidation marks user-correctable input failures: blank required
	// fields, invalid enum values, future dates, blocked archives and merges.
	CodeValidation Code = "validation"
	// CodeInvalidInput marks malformed identifiers or payload shapes caught at
	// trust boundaries before any business rule runs.
	CodeInvalidInput Code = "invalid_input"
	// CodeConflict marks a lost race with a concurrent writer. Callers inside
	// the core usually resolve these by reusing the winning row rather than
	// surfacing them.
	CodeConflict Code = "conflict"
	// CodeNotFound marks a referenced entity that does not exist.
	CodeNotFound Code = "not_found"
	// CodeUnauthorized marks missing or invalid credentials on admin routes.
	CodeUnauthorized Code = "unauthorized"
	// CodeInvariantViolation marks an aggregate invariant breach detected by a
	// model constructor or transition check.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeTimeout marks a transaction aborted by context cancellation.
	CodeTimeout Code = "timeout"
	// CodeInternal marks unexpected infrastructure failures.
	CodeInternal Code = "internal"
)

// Error is a coded domain error with an optional field scope.
type Error struct {
	Code  Code
	Field string
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return e.Field + " " + e.Msg
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Msg: msg}
}

// Newf constructs a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// NewField constructs a validation error scoped to a single field so callers
// can render "email is invalid" style messages unchanged.
func NewField(field, msg string) error {
	return &Error{Code: CodeValidation, Field: field, Msg: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Msg: msg, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the outermost code, or CodeInternal when err is not coded.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// FieldOf returns the field scope of the outermost coded error, if any.
func FieldOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Field
	}
	return ""
}
