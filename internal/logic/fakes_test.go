package logic

import (
	"errors"
	"strings"
)

type fakeDisplay struct {
	grid   [DisplayRows][DisplayCols]byte
	row    int
	col    int
	clears int
}

func newFakeDisplay() *fakeDisplay {
	d := &fakeDisplay{}
	d.Clear()
	d.clears = 0
	return d
}

func (d *fakeDisplay) Clear() {
	for r := range d.grid {
		for c := range d.grid[r] {
			d.grid[r][c] = ' '
		}
	}
	d.row, d.col = 0, 0
	d.clears++
}

func (d *fakeDisplay) SetCursor(row, col int) { d.row, d.col = row, col }

func (d *fakeDisplay) Write(text string) {
	for i := 0; i < len(text); i++ {
		if d.row < DisplayRows && d.col < DisplayCols {
			d.grid[d.row][d.col] = text[i]
		}
		d.col++
	}
}

func (d *fakeDisplay) Line(row int) string {
	return strings.TrimRight(string(d.grid[row][:]), " ")
}

type fakeKeypad struct {
	keys []rune
}

func (k *fakeKeypad) Press(keys string) {
	k.keys = append(k.keys, []rune(keys)...)
}

func (k *fakeKeypad) Poll() (rune, bool) {
	if len(k.keys) == 0 {
		return 0, false
	}
	r := k.keys[0]
	k.keys = k.keys[1:]
	return r, true
}

type fakeCards struct {
	uid     []byte
	present bool
	reads   int
	halts   int
}

func (c *fakeCards) Present(uid []byte) {
	c.uid = uid
	c.present = true
}

func (c *fakeCards) CardPresent() bool { return c.present }

func (c *fakeCards) ReadUID() ([]byte, bool) {
	c.reads++
	c.present = false
	return c.uid, c.uid != nil
}

func (c *fakeCards) Halt() { c.halts++ }

type fakeClock struct{}

func (fakeClock) ReadDate() (int, int, int, int) { return 7, 3, 25, 5 }
func (fakeClock) ReadTime() (int, int, int)      { return 14, 5, 9 }

type write struct {
	offset int
	data   []byte
}

type memStore struct {
	data    []byte
	writes  []write
	failErr error
}

func newMemStore() *memStore {
	return &memStore{data: make([]byte, 32*1024)}
}

func (s *memStore) Read(offset, length int) ([]byte, error) {
	if s.failErr != nil {
		return nil, s.failErr
	}
	if offset < 0 || offset+length > len(s.data) {
		return nil, errors.New("out of range")
	}
	out := make([]byte, length)
	copy(out, s.data[offset:])
	return out, nil
}

func (s *memStore) Write(offset int, data []byte) error {
	s.writes = append(s.writes, write{offset, append([]byte(nil), data...)})
	if s.failErr != nil {
		return s.failErr
	}
	copy(s.data[offset:], data)
	return nil
}

type command struct {
	out Output
	cmd Command
}

type recActuators struct {
	cmds  []command
	state map[Output]Command
}

func newRecActuators() *recActuators {
	return &recActuators{state: make(map[Output]Command)}
}

func (a *recActuators) Set(out Output, cmd Command) {
	a.cmds = append(a.cmds, command{out, cmd})
	a.state[out] = cmd
}

func (a *recActuators) count(out Output, cmd Command) int {
	n := 0
	for _, c := range a.cmds {
		if c.out == out && c.cmd == cmd {
			n++
		}
	}
	return n
}

type fakeLight struct {
	level int
	err   error
	reads int
}

func (l *fakeLight) Level() (int, error) {
	l.reads++
	return l.level, l.err
}

type fakeEvents struct {
	events []Event
}

func (e *fakeEvents) Push(t EventType) {
	e.events = append(e.events, Event{Type: t, Source: "test"})
}

func (e *fakeEvents) HasEvent() bool { return len(e.events) > 0 }

func (e *fakeEvents) TakeEvent() Event {
	ev := e.events[0]
	e.events = e.events[1:]
	return ev
}

// rig wires a controller to fakes.
type rig struct {
	c       *Controller
	display *fakeDisplay
	keys    *fakeKeypad
	cards   *fakeCards
	store   *memStore
	act     *recActuators
	light   *fakeLight
	events  *fakeEvents
	log     []Activity
}

var testCard = UID{0xDE, 0xAD, 0xBE, 0xEF}

func newRig(cfg SystemConfig, opts Options) *rig {
	r := &rig{
		display: newFakeDisplay(),
		keys:    &fakeKeypad{},
		cards:   &fakeCards{},
		store:   newMemStore(),
		act:     newRecActuators(),
		light:   &fakeLight{level: 0},
		events:  &fakeEvents{},
	}
	r.c = NewController(Peripherals{
		Display:   r.display,
		Keypad:    r.keys,
		Cards:     r.cards,
		Clock:     fakeClock{},
		Store:     r.store,
		Actuators: r.act,
		Light:     r.light,
		Events:    r.events,
	}, cfg, opts)
	return r
}

// testOptions shortens the timers so scenarios stay readable.
func testOptions() Options {
	return Options{
		InitDelay:           1,
		LightSampleInterval: 1000,
		IdleTimeout:         50,
		CardPollInterval:    1,
		LockoutTicks:        20,
		LightBaseline:       DefaultLightBaseline,
		LightStep:           DefaultLightStep,
		AllowedCards:        []UID{testCard},
	}
}

func initializedConfig(password string) SystemConfig {
	cfg := DefaultConfig()
	cfg.Initialized = true
	cfg.Password = password
	return cfg
}

func (r *rig) step(n int) {
	for i := 0; i < n; i++ {
		r.log = append(r.log, r.c.Step()...)
	}
}

// press queues keys and runs one cycle per key.
func (r *rig) press(keys string) {
	r.keys.Press(keys)
	r.step(len([]rune(keys)))
}

func (r *rig) activities(t ActivityType) []Activity {
	var out []Activity
	for _, a := range r.log {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}
