package queue

import (
	"errors"
	"sync"
	"testing"

	"github.com/sweeney/door-controller/internal/logic"
)

var _ logic.EventSource = (*Queue)(nil)

func TestFIFO(t *testing.T) {
	q := New(4)
	if q.HasEvent() {
		t.Fatal("new queue should be empty")
	}
	q.Push(logic.Event{Type: logic.EventDoorButton, Source: "gpio"})
	q.Push(logic.Event{Type: logic.EventDoorClosed, Source: "mqtt"})

	if !q.HasEvent() || q.Len() != 2 {
		t.Fatalf("expected 2 events, got %d", q.Len())
	}
	if ev := q.TakeEvent(); ev.Type != logic.EventDoorButton {
		t.Errorf("first event %s", ev.Type)
	}
	if ev := q.TakeEvent(); ev.Type != logic.EventDoorClosed || ev.Source != "mqtt" {
		t.Errorf("second event %+v", ev)
	}
	if q.HasEvent() {
		t.Error("queue should be empty")
	}
}

func TestPushFull(t *testing.T) {
	q := New(1)
	if err := q.Push(logic.Event{Type: logic.EventDoorButton}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	err := q.Push(logic.Event{Type: logic.EventDoorButton})
	if !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	if q.Dropped() != 1 {
		t.Errorf("expected 1 dropped, got %d", q.Dropped())
	}
}

func TestTakeEmptyReturnsZero(t *testing.T) {
	q := New(0)
	if ev := q.TakeEvent(); ev.Type != "" {
		t.Errorf("expected zero event, got %+v", ev)
	}
}

func TestConcurrentProducers(t *testing.T) {
	q := New(100)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				q.Push(logic.Event{Type: logic.EventDoorButton})
			}
		}()
	}
	wg.Wait()
	if q.Len() != 100 {
		t.Errorf("expected 100 events, got %d", q.Len())
	}
}
