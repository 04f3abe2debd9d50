package logic

// Timer is a countdown measured in controller cycles.
type Timer struct {
	remaining uint32
	reload    uint32
}

// NewTimer returns a timer that starts at n and reloads to n.
func NewTimer(n uint32) Timer {
	return Timer{remaining: n, reload: n}
}

// Tick counts down one cycle and reports whether the timer reached zero on
// this cycle. A timer already at zero stays there and never fires again
// until it is reset.
func (t *Timer) Tick() bool {
	if t.remaining == 0 {
		return false
	}
	t.remaining--
	return t.remaining == 0
}

// Reset reloads the timer.
func (t *Timer) Reset() {
	t.remaining = t.reload
}

// Set loads n without changing the reload value.
func (t *Timer) Set(n uint32) {
	t.remaining = n
}

// Stop parks the timer at zero.
func (t *Timer) Stop() {
	t.remaining = 0
}

// Remaining returns the cycles left.
func (t *Timer) Remaining() uint32 {
	return t.remaining
}
