package tick

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestTakeNeverGoesNegative(t *testing.T) {
	c := NewCounter(0)
	if c.Take() {
		t.Fatal("Take on empty counter should report false")
	}
	c.Add()
	c.Add()
	if !c.Take() || !c.Take() {
		t.Fatal("expected two ticks")
	}
	if c.Take() {
		t.Error("third Take should report false")
	}
	if c.Pending() != 0 {
		t.Errorf("expected 0 pending, got %d", c.Pending())
	}
}

func TestDrainRunsOncePerTick(t *testing.T) {
	c := NewCounter(0)
	for i := 0; i < 5; i++ {
		c.Add()
	}
	calls := 0
	n := c.Drain(func() { calls++ })
	if n != 5 || calls != 5 {
		t.Errorf("expected 5 cycles, got n=%d calls=%d", n, calls)
	}
}

func TestDrainPicksUpTicksAddedDuringDrain(t *testing.T) {
	c := NewCounter(0)
	c.Add()
	calls := 0
	c.Drain(func() {
		calls++
		if calls < 3 {
			c.Add()
		}
	})
	if calls != 3 {
		t.Errorf("expected 3 cycles, got %d", calls)
	}
}

func TestSaturation(t *testing.T) {
	c := NewCounter(3)
	for i := 0; i < 5; i++ {
		c.Add()
	}
	if c.Pending() != 3 {
		t.Errorf("expected 3 pending, got %d", c.Pending())
	}
	if c.Dropped() != 2 {
		t.Errorf("expected 2 dropped, got %d", c.Dropped())
	}
}

func TestLongStallLosesNoTicks(t *testing.T) {
	c := NewCounter(0)
	// Two seconds of 1 ms ticks while the consumer is busy.
	const stalled = 2000
	for i := 0; i < stalled; i++ {
		c.Add()
	}
	if n := c.Drain(func() {}); n != stalled {
		t.Errorf("drained %d cycles, want %d", n, stalled)
	}
	if c.Dropped() != 0 {
		t.Errorf("expected no dropped ticks, got %d", c.Dropped())
	}
}

func TestWakeCoalesces(t *testing.T) {
	c := NewCounter(0)
	c.Add()
	c.Add()
	select {
	case <-c.Wake():
	default:
		t.Fatal("expected wake signal")
	}
	select {
	case <-c.Wake():
		t.Fatal("wake signals should coalesce")
	default:
	}
}

func TestConcurrentProducerConsumer(t *testing.T) {
	c := NewCounter(100000)
	const total = 10000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			c.Add()
		}
	}()

	taken := 0
	deadline := time.After(5 * time.Second)
	for taken < total {
		select {
		case <-deadline:
			t.Fatalf("took %d of %d ticks", taken, total)
		default:
		}
		taken += c.Drain(func() {})
	}
	wg.Wait()
	if c.Pending() != 0 {
		t.Errorf("expected 0 pending, got %d", c.Pending())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	c := NewCounter(0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Millisecond)
		close(done)
	}()

	select {
	case <-c.Wake():
	case <-time.After(time.Second):
		t.Fatal("no tick produced")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
