// Package domainerrors provides coded errors that services return and transports
// translate. Stores return sentinel errors (see pkg/platform/sentinel); services
// wrap them with a Code so handlers can map failures without string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers. Codes are stable strings so they can be
// surfaced verbatim in API responses.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "unavailable"
	CodeInternal           Code = "internal_error"
)

// Coded is implemented by any error that carries a Code. Domain packages with
// richer error types implement it so HasCode works across package boundaries.
type Coded interface {
	error
	Code() Code
}

// Error is the default coded error.
type Error struct {
	code    Code
	message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error classification.
func (e *Error) Code() Code { return e.code }

// Message returns the caller-facing message without the wrapped cause.
func (e *Error) Message() string { return e.message }

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{code: code, message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{code: code, message: message, cause: err}
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var coded Coded
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return CodeInternal
}

// HasCode reports whether the outermost coded error in err's chain has code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// Is is an alias of HasCode kept for handler readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// MessageOf returns the caller-facing message of the outermost coded error.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message()
	}
	var coded Coded
	if errors.As(err, &coded) {
		return coded.Error()
	}
	return err.Error()
}
