// Package domain defines the core domain models for pulsekv.
//
// Domain models are pure value objects without any IO dependencies.
// This package contains:
//
//   - Entry: a stored value with its optional expiry
//   - Command: a decoded request (name plus positional arguments)
//   - ConnID: ULID-based identifiers for client connections
//   - Errors: protocol, argument and command errors with stable codes
package domain
