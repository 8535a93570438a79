// Package errors provides structured errors for llmgate. Each error carries
// a code identifying the failure type plus optional metadata, so callers can
// distinguish a missing credential from a backend failure without string
// matching.
package errors

import (
	"errors"
	"fmt"
)

// Error is a structured error with a code and optional metadata.
type Error struct {
	code     ErrorCode
	message  string
	cause    error
	metadata map[string]string
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Metadata returns a copy of the error metadata.
func (e *Error) Metadata() map[string]string {
	result := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		result[k] = v
	}
	return result
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Option is a functional option for configuring an Error.
type Option func(*Error)

// WithCause sets the underlying cause.
func WithCause(cause error) Option {
	return func(e *Error) {
		e.cause = cause
	}
}

// WithMetadata adds a metadata key-value pair.
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string, opts ...Option) *Error {
	e := &Error{
		code:    code,
		message: message,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Newf creates a new Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// MissingCredential creates a construction error for an absent environment
// credential. The provider and env var names are recorded as metadata so the
// failure identifies which backend was being configured.
func MissingCredential(provider, envVar string) *Error {
	return New(ErrCodeMissingCredential,
		fmt.Sprintf("missing credential for provider %s: environment variable %s is not set", provider, envVar),
		WithMetadata("provider", provider),
		WithMetadata("env_var", envVar))
}

// InvalidConfig creates an invalid configuration error.
func InvalidConfig(message string, opts ...Option) *Error {
	return New(ErrCodeInvalidConfig, message, opts...)
}

// Is checks whether any error in the chain carries the given code.
func Is(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.code == code
	}
	return false
}

// Code extracts the error code from an error chain.
// Returns the empty code if err is not a structured Error.
func Code(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return ""
}

// GetMetadata extracts metadata from an error chain.
// Returns nil if err is not a structured Error.
func GetMetadata(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Metadata()
	}
	return nil
}
