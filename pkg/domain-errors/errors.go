// Package domainerrors defines the coded error type shared by services and
// transports. Services return *Error values; transports map the Code to a
// status without inspecting messages.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of domain failure.
type Code string

const (
	CodeNotFound              Code = "not_found"
	CodeInvalidTransition     Code = "invalid_transition"
	CodeEvaluationUnavailable Code = "evaluation_unavailable"
	CodeExpiredAttribution    Code = "expired_attribution"
	CodeUnknownAttribution    Code = "unknown_attribution"
	CodeTrustScoreTooLow      Code = "trust_score_too_low"
	CodeInvalidSignature      Code = "invalid_signature"

	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeInvariantViolation Code = "invariant_violation"
	CodeConflict           Code = "conflict"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeRateLimited        Code = "rate_limited"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Retryable reports whether a caller may repeat the operation later and
// reasonably expect a different outcome.
func (c Code) Retryable() bool {
	switch c {
	case CodeEvaluationUnavailable, CodeRateLimited, CodeTimeout:
		return true
	default:
		return false
	}
}

// Error is a domain failure carrying a stable code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost *Error in the chain, or
// CodeInternal when err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
