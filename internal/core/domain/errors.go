// Package domain defines the core domain models for pulsekv.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain error with a structured error code.
//
// The code is for logs and metrics only; replies on the wire carry the
// message alone.
type DomainError struct {
	Code    string // Error code (e.g., "KV-ARG-4001")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison by code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Error codes.
const (
	CodeProtocol       = "KV-PROTO-4000"
	CodeArgument       = "KV-ARG-4001"
	CodeUnknownCommand = "KV-CMD-4040"
	CodeRateLimited    = "KV-RATE-4290"
	CodeInternal       = "KV-SYS-5000"
)

var (
	// ErrProtocol indicates the input stream could not be decoded.
	ErrProtocol = NewDomainError(CodeProtocol, "protocol error")

	// ErrArgument indicates a missing or invalid command argument.
	ErrArgument = NewDomainError(CodeArgument, "invalid argument")

	// ErrUnknownCommand indicates the command name is not recognized.
	ErrUnknownCommand = NewDomainError(CodeUnknownCommand, "unknown command")

	// ErrRateLimited indicates the client exceeded its command rate.
	ErrRateLimited = NewDomainError(CodeRateLimited, "rate limit exceeded")

	// ErrInternal indicates an unexpected server-side failure.
	ErrInternal = NewDomainError(CodeInternal, "internal error")
)
