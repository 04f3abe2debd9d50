package eeprom

import (
	"sync"

	"github.com/sweeney/door-controller/internal/logic"
)

// Shared serializes access to a store used from more than one goroutine:
// the control loop writes it while the status server reads the access log.
type Shared struct {
	mu sync.Mutex
	s  logic.Store
}

// NewShared wraps s.
func NewShared(s logic.Store) *Shared {
	return &Shared{s: s}
}

// Read reads from the wrapped store.
func (m *Shared) Read(offset, length int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.Read(offset, length)
}

// Write writes to the wrapped store.
func (m *Shared) Write(offset int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s.Write(offset, data)
}

// AccessLog reads the whole access log under one lock, so a sequencer
// write cannot land between the count and the records.
func (m *Shared) AccessLog() ([]logic.LogRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return logic.ReadAccessLog(m.s)
}
