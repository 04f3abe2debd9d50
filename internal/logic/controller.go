package logic

// Options tunes the controller. Durations are in cycles (ticks).
type Options struct {
	InitDelay           uint32
	LightSampleInterval uint32
	IdleTimeout         uint32
	CardPollInterval    uint32
	LockoutTicks        uint32

	// Arming threshold is LightBaseline + LightStep*sensitivity.
	LightBaseline int
	LightStep     int

	AllowedCards []UID
}

// Default timing for a 1 ms tick.
const (
	DefaultInitDelay           = 1500
	DefaultLightSampleInterval = 5000
	DefaultIdleTimeout         = 5000
	DefaultCardPollInterval    = 200
	DefaultLockoutTicks        = 3000
	DefaultLightBaseline       = 1500
	DefaultLightStep           = 200
)

// DefaultOptions returns the standard timing with an empty allow-list.
func DefaultOptions() Options {
	return Options{
		InitDelay:           DefaultInitDelay,
		LightSampleInterval: DefaultLightSampleInterval,
		IdleTimeout:         DefaultIdleTimeout,
		CardPollInterval:    DefaultCardPollInterval,
		LockoutTicks:        DefaultLockoutTicks,
		LightBaseline:       DefaultLightBaseline,
		LightStep:           DefaultLightStep,
	}
}

// withDefaults fills zero periodic timers, which would otherwise never fire.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.LightSampleInterval == 0 {
		o.LightSampleInterval = d.LightSampleInterval
	}
	if o.IdleTimeout == 0 {
		o.IdleTimeout = d.IdleTimeout
	}
	if o.CardPollInterval == 0 {
		o.CardPollInterval = d.CardPollInterval
	}
	if o.LockoutTicks == 0 {
		o.LockoutTicks = d.LockoutTicks
	}
	if o.LightStep == 0 {
		o.LightStep = d.LightStep
	}
	return o
}

// Controller is the access-control state machine. It owns every piece of
// runtime state and must only be driven from one goroutine.
type Controller struct {
	p    Peripherals
	opts Options
	cfg  SystemConfig

	state        State
	event        Event
	eventPending bool

	buf   Buffer
	auth  *Authenticator
	light *LightMonitor
	seq   *Sequencer

	initDelay Timer
	idle      Timer
	card      Timer
	lockout   Timer
	cardDue   bool

	openedBy   Method
	activities []Activity
}

// NewController builds a controller in StateInit from a loaded config.
// Display, Keypad, Store and Actuators are required.
func NewController(p Peripherals, cfg SystemConfig, opts Options) *Controller {
	opts = opts.withDefaults()
	c := &Controller{
		p:         p,
		opts:      opts,
		cfg:       cfg,
		state:     StateInit,
		auth:      NewAuthenticator(opts.AllowedCards),
		light:     NewLightMonitor(p.Light, opts.LightSampleInterval, opts.LightBaseline, opts.LightStep),
		seq:       NewSequencer(p.Store),
		initDelay: NewTimer(opts.InitDelay),
		idle:      NewTimer(opts.IdleTimeout),
		card:      NewTimer(opts.CardPollInterval),
		lockout:   NewTimer(opts.LockoutTicks),
	}
	c.draw()
	return c
}

// Step runs one cycle: latch at most one event, sample light on its own
// cadence, run the current state's handler, then service persistence.
// It returns the activities produced during the cycle.
func (c *Controller) Step() []Activity {
	c.activities = nil

	if c.p.Events != nil && c.p.Events.HasEvent() {
		c.event = c.p.Events.TakeEvent()
		c.eventPending = true
	}

	if s, ok := c.light.Tick(c.cfg.LightSensitivity); ok {
		c.applyLight(s)
	}

	c.cardDue = c.card.Tick()
	if c.cardDue {
		c.card.Reset()
	}

	next := handlers[c.state](c)
	if next != c.state {
		c.enter(next)
	}
	// Events nobody consumed this cycle are dropped.
	c.eventPending = false

	c.seq.Service(&c.cfg)
	return c.activities
}

// enter performs the side effects of moving to next.
func (c *Controller) enter(next State) {
	prev := c.state
	c.state = next
	c.buf.Reset()

	if prev == StateDoorOpen {
		c.set(OutputDoorLock, CommandOff)
		c.emit(Activity{Type: ActivityDoorClosed})
	}

	switch next {
	case StateAwaitingCredential, StateOptionsAuth, StateOptionsMenu:
		c.idle.Reset()
	case StateLockout:
		c.lockout.Reset()
	case StateDoorOpen:
		c.set(OutputDoorLock, CommandOn)
	}
	c.draw()
}

// baseline is the resting state for the current armed flag.
func (c *Controller) baseline() State {
	if c.cfg.AlarmArmed {
		return StateAwaitingCredential
	}
	return StateDisarmed
}

func (c *Controller) applyLight(s LightSample) {
	if s.Changed {
		if s.Low {
			c.set(OutputLowLight, CommandOn)
		} else {
			c.set(OutputLowLight, CommandOff)
		}
	}
	if c.cfg.SystemEnabled && c.cfg.LightMode {
		c.setArmed(s.Low)
	}
}

// setArmed stores the armed flag and drives the two indicators. The
// activity is only emitted on a change.
func (c *Controller) setArmed(armed bool) {
	changed := c.cfg.AlarmArmed != armed
	c.cfg.AlarmArmed = armed
	if armed {
		c.set(OutputArmed, CommandOn)
		c.set(OutputDisarmed, CommandOff)
	} else {
		c.set(OutputDisarmed, CommandOn)
		c.set(OutputArmed, CommandOff)
	}
	if changed {
		if armed {
			c.emit(Activity{Type: ActivityArmed})
		} else {
			c.emit(Activity{Type: ActivityDisarmed})
		}
	}
}

func (c *Controller) set(out Output, cmd Command) {
	c.p.Actuators.Set(out, cmd)
}

func (c *Controller) emit(a Activity) {
	a.Timestamp = clockTime(c.p.Clock)
	if a.State == "" {
		a.State = c.state
	}
	a.Armed = c.cfg.AlarmArmed
	c.activities = append(c.activities, a)
}

// takeEvent consumes the latched event if it has type t.
func (c *Controller) takeEvent(t EventType) bool {
	if c.eventPending && c.event.Type == t {
		c.eventPending = false
		return true
	}
	return false
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Config returns a copy of the configuration.
func (c *Controller) Config() SystemConfig { return c.cfg }

// WrongAttempts returns the consecutive failure count.
func (c *Controller) WrongAttempts() int { return c.auth.Attempts() }

// EntryLength returns the number of digits in the entry buffer.
func (c *Controller) EntryLength() int { return c.buf.Len() }

// LockoutRemaining returns the cycles left in the lockout cooldown.
func (c *Controller) LockoutRemaining() uint32 { return c.lockout.Remaining() }

// PendingWrite returns the in-flight persistence transaction.
func (c *Controller) PendingWrite() WriteKind { return c.seq.Pending() }

// Snapshot returns a status view of the controller.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		State:            c.state,
		SystemEnabled:    c.cfg.SystemEnabled,
		Armed:            c.cfg.AlarmArmed,
		LightMode:        c.cfg.LightMode,
		LightSensitivity: c.cfg.LightSensitivity,
		LowLight:         c.light.Low(),
		LightLevel:       c.light.Level(),
		WrongAttempts:    c.auth.Attempts(),
		AlertLatched:     c.auth.AlertLatched(),
		LogEntries:       c.cfg.LogEntryCount,
		PendingWrite:     c.seq.Pending(),
		Initialized:      c.cfg.Initialized,
	}
}
