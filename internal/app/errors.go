package app

import (
	"errors"
	"time"
)

// Code classifies caller-visible failures. The server maps codes onto HTTP
// statuses; raw upstream detail never reaches the caller.
type Code string

const (
	CodeInvalidInput        Code = "invalid_input"
	CodeUnauthenticated     Code = "unauthenticated"
	CodePermissionDenied    Code = "permission_denied"
	CodeNotFound            Code = "not_found"
	CodeRateLimited         Code = "rate_limited"
	CodeGenerationFailed    Code = "generation_failed"
	CodeUpstreamUnavailable Code = "upstream_unavailable"
	CodePersistenceFailed   Code = "persistence_failed"
)

// Error is the typed failure surfaced to callers: a code, a human-readable
// message, and for rate limits a retry-after hint. The wrapped cause stays
// internal for logging.
type Error struct {
	Code       Code
	Message    string
	RetryAfter time.Duration
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds an Error with no underlying cause.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError builds an Error keeping the cause for diagnostics.
func WrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// RateLimitedError builds a rate_limited Error carrying the wait hint.
func RateLimitedError(message string, retryAfter time.Duration) *Error {
	return &Error{Code: CodeRateLimited, Message: message, RetryAfter: retryAfter}
}

// AsError extracts the typed Error from an error chain.
func AsError(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
