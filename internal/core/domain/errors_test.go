package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DomainError
		expected string
	}{
		{
			name:     "error without details",
			err:      NewDomainError("KV-TEST-1000", "test message"),
			expected: "[KV-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewDomainError("KV-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[KV-TEST-1001] test message: extra info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDomainError_Is(t *testing.T) {
	err1 := NewDomainError("KV-TEST-1000", "message 1")
	err2 := NewDomainError("KV-TEST-1000", "message 2") // Same code, different message
	err3 := NewDomainError("KV-TEST-1001", "message 1") // Different code

	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-DomainError")
	}

	// Details do not change identity.
	if !errors.Is(ErrArgument.WithDetails("key is required"), ErrArgument) {
		t.Error("errors.Is should match ErrArgument with details")
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := NewDomainError("KV-TEST-1000", "wrapper").WithCause(cause)

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	errNoCause := NewDomainError("KV-TEST-1000", "no cause")
	if errors.Unwrap(errNoCause) != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestDomainError_WithDetails(t *testing.T) {
	original := NewDomainError("KV-TEST-1000", "original message")
	withDetails := original.WithDetails("additional details")

	if original.Details != "" {
		t.Error("WithDetails should not modify original error")
	}
	if withDetails.Details != "additional details" {
		t.Errorf("Details = %q, want %q", withDetails.Details, "additional details")
	}
	if withDetails.Code != original.Code {
		t.Errorf("Code = %q, want %q", withDetails.Code, original.Code)
	}
}

func TestIsDomainError(t *testing.T) {
	if !IsDomainError(ErrArgument, CodeArgument) {
		t.Error("IsDomainError should return true for matching code")
	}
	if IsDomainError(ErrArgument, CodeProtocol) {
		t.Error("IsDomainError should return false for non-matching code")
	}
	if IsDomainError(fmt.Errorf("regular error"), CodeArgument) {
		t.Error("IsDomainError should return false for non-DomainError")
	}
	if !IsDomainError(ErrProtocol, "") {
		t.Error("IsDomainError with empty code should match any DomainError")
	}

	wrapped := fmt.Errorf("wrapped: %w", ErrUnknownCommand)
	if !IsDomainError(wrapped, CodeUnknownCommand) {
		t.Error("IsDomainError should work with wrapped errors")
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"domain error", ErrArgument, CodeArgument},
		{"wrapped domain error", fmt.Errorf("wrapped: %w", ErrProtocol), CodeProtocol},
		{"regular error", fmt.Errorf("regular error"), ""},
		{"nil error", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.expected {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err  *DomainError
		code string
	}{
		{ErrProtocol, "KV-PROTO-4000"},
		{ErrArgument, "KV-ARG-4001"},
		{ErrUnknownCommand, "KV-CMD-4040"},
		{ErrRateLimited, "KV-RATE-4290"},
		{ErrInternal, "KV-SYS-5000"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Message should not be empty")
			}
		})
	}
}
