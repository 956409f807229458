package connection

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Manager tracks the server an interactive session is talking to.
type Manager struct {
	mu      sync.Mutex
	current *Client
	timeout time.Duration
}

// NewManager creates a manager with no current connection.
func NewManager(timeout time.Duration) *Manager {
	return &Manager{timeout: timeout}
}

// Connect pings addr and makes it the current server. The previous client,
// if any, is closed only after the new one answers.
func (m *Manager) Connect(ctx context.Context, addr string) error {
	c := NewClient(addr, m.timeout)
	if _, err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return fmt.Errorf("connect %s: %w", addr, err)
	}

	m.mu.Lock()
	prev := m.current
	m.current = c
	m.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	return nil
}

// Disconnect closes the current connection.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	prev := m.current
	m.current = nil
	m.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
}

// Current returns the current client, or nil.
func (m *Manager) Current() *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// IsConnected returns true if connected to a server.
func (m *Manager) IsConnected() bool {
	return m.Current() != nil
}
