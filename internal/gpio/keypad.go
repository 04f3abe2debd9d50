package gpio

import (
	"context"
	"log"
	"time"
)

// Debouncer turns raw matrix scans into key presses. A reading must stay
// unchanged for the debounce duration before it counts, and a held key is
// reported once per press.
type Debouncer struct {
	debounce time.Duration

	key      rune
	down     bool
	since    time.Time
	reported bool
	started  bool
}

// NewDebouncer returns a debouncer with the given settle time.
func NewDebouncer(debounce time.Duration) *Debouncer {
	return &Debouncer{debounce: debounce}
}

// Process observes one scan and returns a key when a press has settled.
func (d *Debouncer) Process(key rune, down bool, now time.Time) (rune, bool) {
	if !down {
		key = 0
	}
	if !d.started || key != d.key || down != d.down {
		d.started = true
		d.key = key
		d.down = down
		d.since = now
		d.reported = false
	}
	if !d.down || d.reported {
		return 0, false
	}
	if now.Sub(d.since) >= d.debounce {
		d.reported = true
		return d.key, true
	}
	return 0, false
}

// Keypad scans a matrix in the background and queues settled key presses
// for the control loop.
type Keypad struct {
	matrix Matrix
	keys   chan rune
	now    func() time.Time
	deb    *Debouncer
}

// NewKeypad wraps m. Up to buffer presses are held between polls.
func NewKeypad(m Matrix, debounce time.Duration, buffer int) *Keypad {
	if buffer <= 0 {
		buffer = 8
	}
	return &Keypad{
		matrix: m,
		keys:   make(chan rune, buffer),
		now:    time.Now,
		deb:    NewDebouncer(debounce),
	}
}

// Run scans every interval until ctx is cancelled.
func (k *Keypad) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	var lastErr error
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		key, down, err := k.matrix.Scan()
		if err != nil {
			if lastErr == nil {
				log.Printf("keypad: scan error: %v", err)
			}
			lastErr = err
			continue
		}
		lastErr = nil
		k.observe(key, down)
	}
}

func (k *Keypad) observe(key rune, down bool) {
	r, ok := k.deb.Process(key, down, k.now())
	if !ok {
		return
	}
	select {
	case k.keys <- r:
	default:
		log.Printf("keypad: buffer full, dropped %q", r)
	}
}

// Poll returns the oldest pending key press without blocking.
func (k *Keypad) Poll() (rune, bool) {
	select {
	case r := <-k.keys:
		return r, true
	default:
		return 0, false
	}
}

// Inject queues a key press as if it had been typed. Remote keypads and
// tests use it.
func (k *Keypad) Inject(r rune) bool {
	select {
	case k.keys <- r:
		return true
	default:
		return false
	}
}

// Close releases the matrix.
func (k *Keypad) Close() error {
	return k.matrix.Close()
}
