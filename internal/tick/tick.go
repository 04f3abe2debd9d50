// Package tick provides the periodic tick counter that paces the control
// loop. A producer goroutine increments the counter; the control loop drains
// it one tick at a time with a guarded decrement so no tick is lost or run
// twice.
package tick

import (
	"context"
	"math"
	"sync/atomic"
	"time"
)

// Counter is a tick counter shared between one producer and one consumer.
type Counter struct {
	n    atomic.Uint32
	wake chan struct{}

	// ticks dropped because the counter was saturated
	dropped atomic.Uint64
	limit   uint32
}

// DefaultLimit only keeps the counter from wrapping. At a 1 ms tick it is
// about 49 days of backlog, so a stalled consumer replays every cycle it
// missed when it resumes.
const DefaultLimit = math.MaxUint32

// NewCounter returns a counter that holds at most limit pending ticks.
// A limit of 0 selects DefaultLimit.
func NewCounter(limit uint32) *Counter {
	if limit == 0 {
		limit = DefaultLimit
	}
	return &Counter{wake: make(chan struct{}, 1), limit: limit}
}

// Add records one tick and wakes the consumer.
func (c *Counter) Add() {
	for {
		v := c.n.Load()
		if v >= c.limit {
			c.dropped.Add(1)
			break
		}
		if c.n.CompareAndSwap(v, v+1) {
			break
		}
	}
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Take consumes one pending tick. It reports false when none is pending.
func (c *Counter) Take() bool {
	for {
		v := c.n.Load()
		if v == 0 {
			return false
		}
		if c.n.CompareAndSwap(v, v-1) {
			return true
		}
	}
}

// Drain runs fn once per pending tick, including ticks that arrive while it
// is draining, and returns how many cycles ran.
func (c *Counter) Drain(fn func()) int {
	n := 0
	for c.Take() {
		fn()
		n++
	}
	return n
}

// Pending returns the number of ticks not yet consumed.
func (c *Counter) Pending() uint32 { return c.n.Load() }

// Dropped returns the number of ticks lost to saturation.
func (c *Counter) Dropped() uint64 { return c.dropped.Load() }

// Wake is signalled after every Add. Several Adds may share one signal.
func (c *Counter) Wake() <-chan struct{} { return c.wake }

// Run adds one tick every period until ctx is cancelled.
func (c *Counter) Run(ctx context.Context, period time.Duration) {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Add()
		}
	}
}
