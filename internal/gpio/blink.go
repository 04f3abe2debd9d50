package gpio

import (
	"log"
	"sync"
	"time"

	"github.com/sweeney/door-controller/internal/logic"
)

// Blink half-periods.
const (
	BlinkPeriod     = 500 * time.Millisecond
	FastBlinkPeriod = 125 * time.Millisecond
)

// setter drives one physical line.
type setter func(value int) error

// output runs one actuator. Blinking happens on its own goroutine so the
// control loop only ever issues commands.
type output struct {
	name string
	set  setter

	mu   sync.Mutex
	cmd  logic.Command
	stop chan struct{}
	done chan struct{}
}

func newOutput(name string, set setter) *output {
	return &output{name: name, set: set, cmd: logic.CommandOff}
}

// apply switches the output to cmd. Repeating the current command is a no-op
// so a blink keeps its phase.
func (o *output) apply(cmd logic.Command) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cmd == o.cmd {
		return
	}
	o.halt()
	o.cmd = cmd

	switch cmd {
	case logic.CommandOn:
		o.write(1)
	case logic.CommandOff:
		o.write(0)
	case logic.CommandBlink:
		o.blink(BlinkPeriod)
	case logic.CommandFastBlink:
		o.blink(FastBlinkPeriod)
	default:
		log.Printf("gpio: %s: unknown command %q", o.name, cmd)
	}
}

// close stops any blink and drives the line low.
func (o *output) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.halt()
	o.cmd = logic.CommandOff
	o.write(0)
}

func (o *output) blink(period time.Duration) {
	stop := make(chan struct{})
	done := make(chan struct{})
	o.stop, o.done = stop, done
	go func() {
		defer close(done)
		t := time.NewTicker(period)
		defer t.Stop()
		v := 1
		o.write(v)
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				v ^= 1
				o.write(v)
			}
		}
	}()
}

// halt stops the blink goroutine. The caller holds mu.
func (o *output) halt() {
	if o.stop == nil {
		return
	}
	close(o.stop)
	<-o.done
	o.stop, o.done = nil, nil
}

func (o *output) write(v int) {
	if err := o.set(v); err != nil {
		log.Printf("gpio: %s: set %d: %v", o.name, v, err)
	}
}

func (o *output) command() logic.Command {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cmd
}
