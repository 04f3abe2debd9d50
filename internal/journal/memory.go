package journal

import (
	"context"
	"sync"

	"github.com/sweeney/door-controller/internal/logic"
)

// Memory is an in-memory journal for tests and runs without --journal.
type Memory struct {
	mu      sync.Mutex
	hasher  *Hasher
	entries []Entry
	closed  bool
}

// NewMemory returns an empty in-memory journal.
func NewMemory(h *Hasher) *Memory {
	return &Memory{hasher: h}
}

// Record appends a.
func (m *Memory) Record(_ context.Context, a logic.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	e := m.hasher.entryFor(a)
	e.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, e)
	return nil
}

// Recent returns up to n entries, newest first.
func (m *Memory) Recent(_ context.Context, n int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.entries) {
		n = len(m.entries)
	}
	out := make([]Entry, 0, n)
	for i := len(m.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

// Entries returns a copy of all entries in recording order.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Dropped is always 0; Record never queues.
func (m *Memory) Dropped() uint64 { return 0 }

// Close marks the journal closed.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
