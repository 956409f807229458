package domain

import (
	"strings"
	"testing"
	"time"
)

func TestEntry_ExpiredAt(t *testing.T) {
	now := time.Now().UnixMilli()

	tests := []struct {
		name      string
		expiresAt int64
		want      bool
	}{
		{"no expiry", 0, false},
		{"future", now + 1000, false},
		{"past", now - 1, true},
		{"exactly now", now, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Entry{Value: []byte("v"), ExpiresAt: tt.expiresAt}
			if got := e.ExpiredAt(now); got != tt.want {
				t.Errorf("ExpiredAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_ExpireAfter(t *testing.T) {
	e := NewEntry([]byte("v"))
	if e.ExpiresAt != 0 {
		t.Fatalf("new entry ExpiresAt = %d, want 0", e.ExpiresAt)
	}

	e.ExpireAfter(1000, 5)
	if e.ExpiresAt != 6000 {
		t.Errorf("ExpiresAt = %d, want 6000", e.ExpiresAt)
	}

	// Far beyond what a time.Duration can hold.
	e.ExpireAfter(1000, 10_000_000_000)
	if want := int64(10_000_000_000_001_000); e.ExpiresAt != want {
		t.Errorf("ExpiresAt = %d, want %d", e.ExpiresAt, want)
	}
	if e.ExpiredAt(1000) {
		t.Error("a long expiry should not be elapsed")
	}

	e.ExpireAfter(1000, 0)
	if !e.ExpiredAt(1000) {
		t.Error("zero seconds should be expired at the same instant")
	}
}

func TestCommand_Arg(t *testing.T) {
	cmd := &Command{Name: "set", Args: [][]byte{[]byte("k"), []byte("v")}}

	if string(cmd.Arg(0)) != "k" {
		t.Errorf("Arg(0) = %q, want k", cmd.Arg(0))
	}
	if string(cmd.Arg(1)) != "v" {
		t.Errorf("Arg(1) = %q, want v", cmd.Arg(1))
	}
	if cmd.Arg(2) != nil {
		t.Errorf("Arg(2) = %q, want nil", cmd.Arg(2))
	}
	if cmd.Arg(-1) != nil {
		t.Errorf("Arg(-1) = %q, want nil", cmd.Arg(-1))
	}
}

func TestNewConnID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id, err := NewConnID()
		if err != nil {
			t.Fatalf("NewConnID() error = %v", err)
		}
		if !strings.HasPrefix(id, ConnIDPrefix) {
			t.Errorf("id %q missing prefix %q", id, ConnIDPrefix)
		}
		if len(id) != len(ConnIDPrefix)+26 {
			t.Errorf("len(id) = %d, want %d", len(id), len(ConnIDPrefix)+26)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}
