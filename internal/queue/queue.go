// Package queue is the bounded event FIFO between asynchronous producers
// (door button edges, remote commands) and the control loop.
package queue

import (
	"errors"
	"sync/atomic"

	"github.com/sweeney/door-controller/internal/logic"
)

// ErrFull is returned by Push when the queue is at capacity.
var ErrFull = errors.New("event queue full")

// DefaultCapacity is the queue depth used when none is given.
const DefaultCapacity = 16

// Queue is safe for many producers and a single consumer.
type Queue struct {
	ch      chan logic.Event
	dropped atomic.Uint64
}

// New returns a queue holding up to capacity events.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{ch: make(chan logic.Event, capacity)}
}

// Push enqueues ev without blocking.
func (q *Queue) Push(ev logic.Event) error {
	select {
	case q.ch <- ev:
		return nil
	default:
		q.dropped.Add(1)
		return ErrFull
	}
}

// HasEvent reports whether an event is waiting.
func (q *Queue) HasEvent() bool { return len(q.ch) > 0 }

// TakeEvent dequeues the oldest event. It must only be called after
// HasEvent reported true, from the consumer goroutine.
func (q *Queue) TakeEvent() logic.Event {
	select {
	case ev := <-q.ch:
		return ev
	default:
		return logic.Event{}
	}
}

// Len returns the number of queued events.
func (q *Queue) Len() int { return len(q.ch) }

// Dropped returns how many events were rejected because the queue was full.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
