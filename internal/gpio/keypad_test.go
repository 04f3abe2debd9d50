package gpio

import (
	"sync"
	"testing"
	"time"

	"github.com/sweeney/door-controller/internal/logic"
)

var _ logic.Keypad = (*Keypad)(nil)

func TestDebouncerSettles(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(30 * time.Millisecond)

	if _, ok := d.Process('5', true, now); ok {
		t.Error("press reported before settling")
	}
	if _, ok := d.Process('5', true, now.Add(20*time.Millisecond)); ok {
		t.Error("press reported before debounce elapsed")
	}
	key, ok := d.Process('5', true, now.Add(30*time.Millisecond))
	if !ok || key != '5' {
		t.Fatalf("expected '5' at exactly the debounce time, got %q %v", key, ok)
	}
	if _, ok := d.Process('5', true, now.Add(500*time.Millisecond)); ok {
		t.Error("held key reported twice")
	}
}

func TestDebouncerBounce(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(30 * time.Millisecond)

	d.Process('1', true, now)
	d.Process('1', false, now.Add(10*time.Millisecond))
	d.Process('1', true, now.Add(20*time.Millisecond))
	if _, ok := d.Process('1', true, now.Add(40*time.Millisecond)); ok {
		t.Error("bounce should restart the settle time")
	}
	if _, ok := d.Process('1', true, now.Add(50*time.Millisecond)); !ok {
		t.Error("expected press once stable")
	}
}

func TestDebouncerRepeatedPresses(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(10 * time.Millisecond)

	var got []rune
	scans := []struct {
		key  rune
		down bool
		at   time.Duration
	}{
		{'1', true, 0},
		{'1', true, 10},
		{0, false, 20},
		{0, false, 30},
		{'1', true, 40},
		{'1', true, 50},
		{'2', true, 60},
		{'2', true, 70},
	}
	for _, s := range scans {
		if k, ok := d.Process(s.key, s.down, now.Add(s.at*time.Millisecond)); ok {
			got = append(got, k)
		}
	}
	if string(got) != "112" {
		t.Errorf("expected presses 112, got %q", string(got))
	}
}

func TestDebouncerReleaseNeverReports(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(0)
	for i := 0; i < 5; i++ {
		if _, ok := d.Process('9', false, now.Add(time.Duration(i)*time.Second)); ok {
			t.Fatal("released key reported")
		}
	}
}

func TestKeypadObserveAndPoll(t *testing.T) {
	k := NewKeypad(NewFakeMatrix(nil), 10*time.Millisecond, 2)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	k.now = func() time.Time { return now }

	if _, ok := k.Poll(); ok {
		t.Fatal("empty keypad returned a key")
	}

	k.observe('7', true)
	now = now.Add(10 * time.Millisecond)
	k.observe('7', true)

	key, ok := k.Poll()
	if !ok || key != '7' {
		t.Errorf("Poll = %q %v", key, ok)
	}
	if _, ok := k.Poll(); ok {
		t.Error("key returned twice")
	}
}

func TestKeypadInjectBuffer(t *testing.T) {
	k := NewKeypad(NewFakeMatrix(nil), 0, 2)
	if !k.Inject('1') || !k.Inject('2') {
		t.Fatal("inject into empty buffer failed")
	}
	if k.Inject('3') {
		t.Error("inject into full buffer should fail")
	}
	a, _ := k.Poll()
	b, _ := k.Poll()
	if a != '1' || b != '2' {
		t.Errorf("order %q %q", a, b)
	}
}

func TestKeypadClose(t *testing.T) {
	m := NewFakeMatrix(nil)
	k := NewKeypad(m, 0, 0)
	k.Close()
	if !m.Closed {
		t.Error("Close should close the matrix")
	}
}

type recorder struct {
	mu     sync.Mutex
	values []int
}

func (r *recorder) set(v int) error {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
	return nil
}

func (r *recorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.values...)
}

func TestOutputOnOff(t *testing.T) {
	r := &recorder{}
	o := newOutput("lock", r.set)

	o.apply(logic.CommandOn)
	o.apply(logic.CommandOn)
	o.apply(logic.CommandOff)

	got := r.snapshot()
	if len(got) != 2 || got[0] != 1 || got[1] != 0 {
		t.Errorf("line values %v", got)
	}
}

func TestOutputBlinkStops(t *testing.T) {
	r := &recorder{}
	o := newOutput("buzzer", r.set)

	o.apply(logic.CommandFastBlink)
	if o.command() != logic.CommandFastBlink {
		t.Errorf("command %s", o.command())
	}
	time.Sleep(3 * FastBlinkPeriod)
	o.apply(logic.CommandOff)

	got := r.snapshot()
	if len(got) < 3 {
		t.Fatalf("expected the line to toggle, got %v", got)
	}
	if got[0] != 1 {
		t.Error("blink should start high")
	}
	if got[len(got)-1] != 0 {
		t.Error("Off should leave the line low")
	}

	n := len(got)
	time.Sleep(2 * FastBlinkPeriod)
	if len(r.snapshot()) != n {
		t.Error("line kept toggling after Off")
	}
}

func TestOutputClose(t *testing.T) {
	r := &recorder{}
	o := newOutput("armed", r.set)
	o.apply(logic.CommandBlink)
	o.close()
	got := r.snapshot()
	if got[len(got)-1] != 0 || o.command() != logic.CommandOff {
		t.Errorf("close left %v %s", got, o.command())
	}
}
