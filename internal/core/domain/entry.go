package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Entry is a value held in the keyspace.
type Entry struct {
	Value []byte

	// ExpiresAt is the absolute expiry in Unix milliseconds. Zero means the
	// entry never expires.
	ExpiresAt int64
}

// NewEntry creates an entry with no expiry.
func NewEntry(value []byte) *Entry {
	return &Entry{Value: value}
}

// ExpiredAt reports whether the entry is no longer visible at now (Unix ms).
//
// An expiry equal to now counts as elapsed, so a zero-second EXPIRE hides the
// key immediately.
func (e *Entry) ExpiredAt(now int64) bool {
	return e.ExpiresAt != 0 && e.ExpiresAt <= now
}

// ExpireAfter sets the expiry to seconds after now (Unix ms). The caller
// bounds seconds so that the sum fits in int64.
func (e *Entry) ExpireAfter(now, seconds int64) {
	e.ExpiresAt = now + seconds*1000
}

// Command is a decoded client request.
type Command struct {
	// Name is the lower-cased command name.
	Name string
	// Args are the positional arguments after the name.
	Args [][]byte
}

// Arg returns the i-th argument, or nil when absent.
func (c *Command) Arg(i int) []byte {
	if i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

// ConnIDPrefix is the prefix for connection IDs.
const ConnIDPrefix = "conn-"

// NewConnID generates a connection identifier using ULID.
func NewConnID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternal.WithCause(err)
	}
	return ConnIDPrefix + strings.ToLower(id.String()), nil
}
