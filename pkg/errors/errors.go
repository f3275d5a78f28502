// Package errors provides structured error types for the piecework
// application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and library surface
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages carrying geometric identity
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Fatal codes abort the pipeline run (a structural invariant is broken);
// non-fatal codes are collected as diagnostics while the rest of the
// drawing is processed best-effort.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeDegenerateInput, "zero-length segment at (%.3f, %.3f)", x, y)
//	if errors.Is(err, errors.ErrCodeDegenerateInput) {
//	    // Handle malformed geometry
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidSVG, origErr, "parse %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different failure categories.
const (
	// Geometry-build errors
	ErrCodeDegenerateInput Code = "DEGENERATE_INPUT" // zero-length or duplicate geometry
	ErrCodeOpenPath        Code = "OPEN_PATH"        // drawing not fully closed (non-fatal)

	// Structural invariant violations (fatal)
	ErrCodeDisconnectedGroup Code = "DISCONNECTED_GROUP" // sewing order cannot be completed
	ErrCodeOversizedShape    Code = "OVERSIZED_SHAPE"    // shape fits no page in any rotation

	// Per-group geometry failures (reported with group identity)
	ErrCodeInvalidOffset Code = "INVALID_OFFSET" // seam allowance could not be made simple

	// Input and configuration errors
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidSVG    Code = "INVALID_SVG"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"
	ErrCodeFileNotFound  Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
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

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
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
