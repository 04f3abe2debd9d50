package lcd

import (
	"strings"
	"sync"
)

// Grid is an in-memory character display. It is safe to read from other
// goroutines while the control loop writes to it, so the status page can
// mirror the panel.
type Grid struct {
	mu       sync.RWMutex
	rows     [][]byte
	row, col int
}

// NewGrid returns a blank rows x cols display.
func NewGrid(rows, cols int) *Grid {
	g := &Grid{rows: make([][]byte, rows)}
	for i := range g.rows {
		g.rows[i] = make([]byte, cols)
	}
	g.Clear()
	return g
}

// Clear blanks every cell and homes the cursor.
func (g *Grid) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range g.rows {
		for i := range r {
			r[i] = ' '
		}
	}
	g.row, g.col = 0, 0
}

// SetCursor moves to row, col.
func (g *Grid) SetCursor(row, col int) {
	g.mu.Lock()
	g.row, g.col = row, col
	g.mu.Unlock()
}

// Write stores text from the cursor, dropping characters past the edge.
func (g *Grid) Write(text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.row < 0 || g.row >= len(g.rows) {
		return
	}
	r := g.rows[g.row]
	for i := 0; i < len(text); i++ {
		if g.col >= 0 && g.col < len(r) {
			r[g.col] = text[i]
		}
		g.col++
	}
}

// Lines returns the display contents with trailing spaces trimmed.
func (g *Grid) Lines() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.rows))
	for i, r := range g.rows {
		out[i] = strings.TrimRight(string(r), " ")
	}
	return out
}

// Mirror writes to every display in order. It lets the panel and the
// status grid show the same text.
type Mirror []interface {
	Clear()
	SetCursor(row, col int)
	Write(text string)
}

// Clear clears every display.
func (m Mirror) Clear() {
	for _, d := range m {
		d.Clear()
	}
}

// SetCursor moves every cursor.
func (m Mirror) SetCursor(row, col int) {
	for _, d := range m {
		d.SetCursor(row, col)
	}
}

// Write writes to every display.
func (m Mirror) Write(text string) {
	for _, d := range m {
		d.Write(text)
	}
}
