// Package errors provides structured error types for vtp.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the HTTP API
//   - Machine-readable error codes for programmatic handling
//   - Context-carrying errors for the transform core (point, expression, source line)
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes group failures by the stage that raised them:
//   - CONFIGURATION: bad project files, equation pairs or mismatched counts
//   - PHYSICAL_PARAMETER: non-positive physical constants
//   - EVALUATION: a field expression is undefined at a queried point
//   - GEOMETRY_AMBIGUITY: boundary bisection failed to converge
//   - INVALID_*: input validation failures
//   - INTERNAL_*: unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeConfiguration, "%d equation pairs for %d solids", np, ns)
//	if errors.Is(err, errors.ErrCodeConfiguration) {
//	    // Abort before producing output
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeFileNotFound, origErr, "read mesh %s", path)
package errors

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Startup errors
	ErrCodeConfiguration     Code = "CONFIGURATION"
	ErrCodePhysicalParameter Code = "PHYSICAL_PARAMETER"

	// Transform errors
	ErrCodeEvaluation        Code = "EVALUATION"
	ErrCodeGeometryAmbiguity Code = "GEOMETRY_AMBIGUITY"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeInvalidRegion Code = "INVALID_REGION"

	// Resource not found errors
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

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

// coder is implemented by the typed errors in this package.
type coder interface {
	Code() Code
}

// Is reports whether err has the given error code.
// It unwraps the error chain and stops at the first *Error or typed error
// exposing a Code method.
func Is(err error, code Code) bool {
	return err != nil && GetCode(err) == code
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no error in the chain carries a code.
func GetCode(err error) Code {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		if c, ok := err.(coder); ok {
			return c.Code()
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

// EvaluationError reports a field expression that is undefined at a point.
type EvaluationError struct {
	Region string // Region name, empty when not known to the evaluator
	Field  string // "multiplier", "geometry" or a custom field name
	Expr   string // Expression source text
	Point  r3.Vec
	Cause  error
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	where := e.Field
	if e.Region != "" {
		where = e.Region + "." + e.Field
	}
	msg := fmt.Sprintf("evaluate %s %q at (%.4f, %.4f, %.4f)", where, e.Expr, e.Point.X, e.Point.Y, e.Point.Z)
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *EvaluationError) Unwrap() error { return e.Cause }

// Code returns the error code for this error type.
func (e *EvaluationError) Code() Code {
	return ErrCodeEvaluation
}

// GeometryAmbiguityError reports a region boundary that could not be located.
type GeometryAmbiguityError struct {
	From, To   r3.Vec // Segment endpoints
	Iterations int    // Iterations spent before giving up
	Reason     string
}

// Error implements the error interface.
func (e *GeometryAmbiguityError) Error() string {
	return fmt.Sprintf("ambiguous region boundary on segment (%.4f, %.4f, %.4f) -> (%.4f, %.4f, %.4f) after %d iterations: %s",
		e.From.X, e.From.Y, e.From.Z, e.To.X, e.To.Y, e.To.Z, e.Iterations, e.Reason)
}

// Code returns the error code for this error type.
func (e *GeometryAmbiguityError) Code() Code {
	return ErrCodeGeometryAmbiguity
}

// SourceError attaches a G-code source location to an error raised while
// transforming that line.
type SourceError struct {
	Line int    // 1-based line number
	Text string // Original line text
	Err  error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.Text, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error { return e.Err }

// Code returns the code of the wrapped error, or ErrCodeInternal.
func (e *SourceError) Code() Code {
	if c := GetCode(e.Err); c != "" {
		return c
	}
	return ErrCodeInternal
}
