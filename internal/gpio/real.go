//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/door-controller/internal/logic"
)

// Chip is the GPIO character device on a Raspberry Pi.
const Chip = "gpiochip0"

// ButtonDebounce is the kernel debounce applied to the door button.
const ButtonDebounce = 20 * time.Millisecond

// RealActuators drives the outputs from actual hardware.
type RealActuators struct {
	chip    *gpiocdev.Chip
	lines   []*gpiocdev.Line
	outputs map[logic.Output]*output
}

// NewRealActuators requests every output line, driven low.
func NewRealActuators(pins Pins) (*RealActuators, error) {
	chip, err := gpiocdev.NewChip(Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	a := &RealActuators{chip: chip, outputs: make(map[logic.Output]*output)}
	for _, out := range logic.Outputs {
		pin := pins.outputPin(out)
		line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", out, pin, err)
		}
		a.lines = append(a.lines, line)
		a.outputs[out] = newOutput(string(out), line.SetValue)
	}
	return a, nil
}

// Set applies cmd to out.
func (a *RealActuators) Set(out logic.Output, cmd logic.Command) {
	if o, ok := a.outputs[out]; ok {
		o.apply(cmd)
	}
}

// Close stops blinking, drives every output low and releases the lines.
// Lines are returned to inputs with pull-down to match Pi boot defaults.
func (a *RealActuators) Close() error {
	var errs []error
	for _, o := range a.outputs {
		o.close()
	}
	for _, l := range a.lines {
		if err := l.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	if a.chip != nil {
		if err := a.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealButton watches the inside door button. The button pulls the line low.
type RealButton struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealButton calls onPress from the gpiocdev event goroutine for every
// debounced press.
func NewRealButton(pin int, onPress func(logic.Event)) (*RealButton, error) {
	chip, err := gpiocdev.NewChip(Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	handler := func(evt gpiocdev.LineEvent) {
		if evt.Type == gpiocdev.LineEventFallingEdge {
			onPress(logic.Event{Type: logic.EventDoorButton, Source: "gpio"})
		}
	}
	line, err := chip.RequestLine(pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithDebounce(ButtonDebounce),
		gpiocdev.WithEventHandler(handler))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pin, err)
	}
	return &RealButton{chip: chip, line: line}, nil
}

// Close releases the button line.
func (b *RealButton) Close() error {
	var errs []error
	if err := b.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close button line: %w", err))
	}
	if err := b.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealMatrix scans a keypad wired rows-to-outputs, columns-to-inputs.
// Columns are pulled up; a pressed key pulls its column low while its row
// is driven low.
type RealMatrix struct {
	chip *gpiocdev.Chip
	rows *gpiocdev.Lines
	cols *gpiocdev.Lines
	nr   int
	nc   int
}

// NewRealMatrix requests the row and column lines.
func NewRealMatrix(rows, cols []int) (*RealMatrix, error) {
	if len(rows) != len(Layout) || len(cols) != len(Layout[0]) {
		return nil, fmt.Errorf("keypad needs %d rows and %d cols, got %d and %d",
			len(Layout), len(Layout[0]), len(rows), len(cols))
	}
	chip, err := gpiocdev.NewChip(Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	high := make([]int, len(rows))
	for i := range high {
		high[i] = 1
	}
	rl, err := chip.RequestLines(rows, gpiocdev.AsOutput(high...))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request keypad rows %v: %w", rows, err)
	}
	cl, err := chip.RequestLines(cols, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		rl.Close()
		chip.Close()
		return nil, fmt.Errorf("request keypad cols %v: %w", cols, err)
	}
	return &RealMatrix{chip: chip, rows: rl, cols: cl, nr: len(rows), nc: len(cols)}, nil
}

// Scan drives each row low in turn and returns the first key found.
func (m *RealMatrix) Scan() (rune, bool, error) {
	drive := make([]int, m.nr)
	sense := make([]int, m.nc)
	defer func() {
		for i := range drive {
			drive[i] = 1
		}
		m.rows.SetValues(drive)
	}()

	for r := 0; r < m.nr; r++ {
		for i := range drive {
			drive[i] = 1
		}
		drive[r] = 0
		if err := m.rows.SetValues(drive); err != nil {
			return 0, false, fmt.Errorf("drive row %d: %w", r, err)
		}
		if err := m.cols.Values(sense); err != nil {
			return 0, false, fmt.Errorf("read cols: %w", err)
		}
		for c, v := range sense {
			if v == 0 {
				return Layout[r][c], true, nil
			}
		}
	}
	return 0, false, nil
}

// Close releases the keypad lines.
func (m *RealMatrix) Close() error {
	var errs []error
	if err := m.rows.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close rows: %w", err))
	}
	if err := m.cols.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close cols: %w", err))
	}
	if err := m.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealLight reads a comparator-output light module. The module pulls its
// output high when the light falls below its trimmer setting.
type RealLight struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealLight requests the light module's output line.
func NewRealLight(pin int) (*RealLight, error) {
	chip, err := gpiocdev.NewChip(Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request light pin %d: %w", pin, err)
	}
	return &RealLight{chip: chip, line: line}, nil
}

// Level maps the digital reading onto the raw light scale.
func (l *RealLight) Level() (int, error) {
	v, err := l.line.Value()
	if err != nil {
		return 0, fmt.Errorf("read light pin: %w", err)
	}
	return DigitalLevel(v), nil
}

// Close releases the light line.
func (l *RealLight) Close() error {
	var errs []error
	if err := l.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close light line: %w", err))
	}
	if err := l.chip.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close chip: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
