package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"strings"
)

// Error is a structured error carrying a code, a human-readable message,
// an optional cause and optional key/value context for logging.
type Error struct {
	// Code classifies the error.
	Code ErrorCode `json:"code"`

	// Message describes what failed.
	Message string `json:"message"`

	// Context holds additional key/value pairs describing the failure.
	Context map[string]any `json:"context,omitempty"`

	// Cause is the underlying error, if any.
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause so errors.Is and errors.As see through it.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
// This lets callers match on a bare code: errors.Is(err, &Error{Code: CodeNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// New creates an error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an error with the given code and a formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a code and message. It returns nil when err is nil.
func Wrap(err error, code ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// WrapWithContext wraps err with a code, message and context map.
// It returns nil when err is nil. The context map is copied.
func WrapWithContext(err error, code ErrorCode, message string, ctx map[string]any) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err, Context: maps.Clone(ctx)}
}

// GetCode returns the code of the outermost *Error in err's chain,
// or CodeUnknown when there is none.
func GetCode(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code == code {
			return true
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				if HasCode(inner, code) {
					return true
				}
			}
			return false
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		default:
			return false
		}
	}
	return false
}

// IsRetryable reports whether err is classified with a transient code.
func IsRetryable(err error) bool {
	return GetCode(err).Retryable()
}

// Is, As and Join re-export the standard library helpers so callers need a
// single errors import.
var (
	Is   = stderrors.Is
	As   = stderrors.As
	Join = stderrors.Join
)
