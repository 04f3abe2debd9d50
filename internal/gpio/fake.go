package gpio

import (
	"errors"
	"sync"

	"github.com/sweeney/door-controller/internal/logic"
)

// FakeMatrix is a test double that returns scripted keypad scans.
type FakeMatrix struct {
	// Samples contains scripted scans to return.
	// Each call to Scan() consumes the next sample.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ScanError, if set, will be returned by Scan()
	ScanError error
}

// Sample is a single matrix scan.
type Sample struct {
	Key  rune
	Down bool
}

// NewFakeMatrix creates a FakeMatrix with the given samples.
func NewFakeMatrix(samples []Sample) *FakeMatrix {
	return &FakeMatrix{Samples: samples}
}

// Scan returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeMatrix) Scan() (rune, bool, error) {
	if f.ScanError != nil {
		return 0, false, f.ScanError
	}
	if len(f.Samples) == 0 {
		return 0, false, errors.New("no samples configured")
	}

	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s.Key, s.Down, nil
}

// Close marks the matrix as closed.
func (f *FakeMatrix) Close() error {
	f.Closed = true
	return nil
}

// FakeActuators records actuator commands.
type FakeActuators struct {
	mu       sync.Mutex
	Commands []Command
	state    map[logic.Output]logic.Command
}

// Command is one recorded actuator command.
type Command struct {
	Output logic.Output
	Cmd    logic.Command
}

// NewFakeActuators returns actuators with every output off.
func NewFakeActuators() *FakeActuators {
	return &FakeActuators{state: make(map[logic.Output]logic.Command)}
}

// Set records cmd.
func (f *FakeActuators) Set(out logic.Output, cmd logic.Command) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Commands = append(f.Commands, Command{out, cmd})
	f.state[out] = cmd
}

// State returns the last command sent to out.
func (f *FakeActuators) State(out logic.Output) logic.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.state[out]; ok {
		return c
	}
	return logic.CommandOff
}

// Count returns how many times cmd was sent to out.
func (f *FakeActuators) Count(out logic.Output, cmd logic.Command) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Commands {
		if c.Output == out && c.Cmd == cmd {
			n++
		}
	}
	return n
}

// Snapshot returns the current command of every output.
func (f *FakeActuators) Snapshot() map[logic.Output]logic.Command {
	out := make(map[logic.Output]logic.Command, len(logic.Outputs))
	for _, o := range logic.Outputs {
		out[o] = f.State(o)
	}
	return out
}
