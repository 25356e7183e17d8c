// Package errors provides structured error types for dotstim.
//
// Errors carry a machine-readable [Code] so that the CLI, the HTTP server and
// batch drivers can react to a failure category without string matching:
//
//   - INVALID_*: parameters rejected before any random draw
//   - PLACEMENT_FAILED: a single dot exhausted its retry budget
//   - GENERATION_FAILED: every wholesale placement attempt failed
//   - INTERNAL_*: unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidConfiguration, "max_dot_area %.1f exceeds %.1f", max, limit)
//	if errors.Is(err, errors.ErrCodeInvalidConfiguration) {
//	    // adjust parameters
//	}
//
// Domain packages may also define their own error types; any error exposing a
// Code() Code method is recognised by [Is] and [GetCode].
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput         Code = "INVALID_INPUT"
	ErrCodeInvalidConfiguration Code = "INVALID_CONFIGURATION"
	ErrCodeInvalidFormat        Code = "INVALID_FORMAT"
	ErrCodeInvalidShape         Code = "INVALID_SHAPE"
	ErrCodeInvalidPath          Code = "INVALID_PATH"

	// Generation errors
	ErrCodePlacementFailed  Code = "PLACEMENT_FAILED"
	ErrCodeGenerationFailed Code = "GENERATION_FAILED"

	// Resource errors
	ErrCodeNotFound Code = "NOT_FOUND"
	ErrCodeNetwork  Code = "NETWORK_ERROR"
	ErrCodeTimeout  Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// coder is implemented by typed domain errors that carry a code.
type coder interface {
	Code() Code
}

// Is reports whether err has the given error code.
// The outermost coded error in the chain decides.
func Is(err error, code Code) bool {
	return err != nil && GetCode(err) == code
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no error in the chain carries a code.
func GetCode(err error) Code {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Code
		case coder:
			return e.Code()
		}
		err = errors.Unwrap(err)
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
