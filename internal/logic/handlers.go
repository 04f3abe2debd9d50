package logic

// handler runs one cycle of a state and returns the next state.
type handler func(*Controller) State

var handlers = map[State]handler{
	StateInit:               (*Controller).handleInit,
	StateSetPassword:        (*Controller).handleSetPassword,
	StateAwaitingCredential: (*Controller).handleAwaitingCredential,
	StateDisarmed:           (*Controller).handleDisarmed,
	StateOptionsAuth:        (*Controller).handleOptionsAuth,
	StateOptionsMenu:        (*Controller).handleOptionsMenu,
	StateDoorOpen:           (*Controller).handleDoorOpen,
	StateLockout:            (*Controller).handleLockout,
}

func (c *Controller) handleInit() State {
	if c.initDelay.Remaining() > 0 && !c.initDelay.Tick() {
		return StateInit
	}
	if !c.cfg.Initialized {
		return StateSetPassword
	}
	c.setArmed(c.cfg.SystemEnabled)
	return StateAwaitingCredential
}

func (c *Controller) handleSetPassword() State {
	key, ok := c.p.Keypad.Poll()
	if !ok {
		return StateSetPassword
	}

	switch {
	case isDigit(key):
		if c.buf.Push(key) {
			c.drawBuffer()
		}
	case key == KeyClear:
		if c.buf.Pop() {
			c.drawBuffer()
		}
	case key == KeyConfirm:
		if !c.buf.Full() {
			break
		}
		c.cfg.Initialized = true
		c.cfg.Password = c.buf.String()
		c.cfg.SystemEnabled = true
		c.cfg.LightMode = false
		c.cfg.LightSensitivity = DefaultSensitivity
		c.setArmed(true)
		c.seq.StartPassword()
		c.emit(Activity{Type: ActivityPasswordSet})
		return StateAwaitingCredential
	}
	return StateSetPassword
}

func (c *Controller) handleAwaitingCredential() State {
	if !c.cfg.AlarmArmed {
		return StateDisarmed
	}
	if c.takeEvent(EventDoorButton) {
		return c.openDoor(MethodButton, nil)
	}

	switch uid, res := c.pollCard(); res {
	case CardAccepted:
		return c.grantCard(uid)
	case CardRejected:
		return c.deny(MethodCard, uid)
	}

	if key, ok := c.p.Keypad.Poll(); ok {
		c.idle.Reset()
		switch {
		case isDigit(key):
			if c.buf.Push(key) {
				c.drawBuffer()
			}
		case key == KeyClear:
			if c.buf.Pop() {
				c.drawBuffer()
			}
		case key == KeyOptions:
			return StateOptionsAuth
		case key == KeyConfirm:
			if c.buf.Len() == 0 {
				break
			}
			if c.auth.CheckPassword(c.cfg.Password, &c.buf) {
				c.succeed()
				return c.openDoor(MethodPassword, nil)
			}
			return c.deny(MethodPassword, nil)
		}
	}

	if c.idle.Tick() {
		c.idle.Reset()
		c.buf.Reset()
		c.drawBuffer()
	}
	return StateAwaitingCredential
}

func (c *Controller) handleDisarmed() State {
	if c.cfg.AlarmArmed {
		return StateAwaitingCredential
	}
	if c.takeEvent(EventDoorButton) {
		return c.openDoor(MethodButton, nil)
	}
	switch uid, res := c.pollCard(); res {
	case CardAccepted:
		return c.grantCard(uid)
	case CardRejected:
		return c.deny(MethodCard, uid)
	}

	if key, ok := c.p.Keypad.Poll(); ok {
		switch {
		case isDigit(key):
			return c.openDoor(MethodFree, nil)
		case key == KeyOptions:
			return StateOptionsAuth
		}
	}
	return StateDisarmed
}

func (c *Controller) handleOptionsAuth() State {
	if c.takeEvent(EventDoorButton) {
		return c.openDoor(MethodButton, nil)
	}

	if key, ok := c.p.Keypad.Poll(); ok {
		c.idle.Reset()
		switch {
		case isDigit(key):
			if c.buf.Push(key) {
				c.drawBuffer()
			}
		case key == KeyClear:
			if c.buf.Pop() {
				c.drawBuffer()
			}
		case key == KeyOptions:
			return c.baseline()
		case key == KeyConfirm:
			if c.buf.Len() == 0 {
				break
			}
			if c.auth.CheckPassword(c.cfg.Password, &c.buf) {
				c.succeed()
				return StateOptionsMenu
			}
			return c.deny(MethodPassword, nil)
		}
	}

	if c.idle.Tick() {
		return c.baseline()
	}
	return StateOptionsAuth
}

func (c *Controller) handleOptionsMenu() State {
	if c.takeEvent(EventDoorButton) {
		return c.openDoor(MethodButton, nil)
	}

	if key, ok := c.p.Keypad.Poll(); ok {
		c.idle.Reset()
		switch key {
		case KeyClear:
			c.cfg.SystemEnabled = !c.cfg.SystemEnabled
			c.setArmed(c.cfg.SystemEnabled)
			c.drawMenuLine(0)
			c.emit(Activity{Type: ActivitySettings})
		case KeyLightMode:
			c.cfg.LightMode = !c.cfg.LightMode
			if c.cfg.SystemEnabled && !c.cfg.LightMode {
				c.setArmed(true)
			}
			c.drawMenuLine(1)
			c.emit(Activity{Type: ActivitySettings})
		case KeyOptions:
			c.cfg.LightSensitivity = CycleSensitivity(c.cfg.LightSensitivity)
			c.drawMenuLine(2)
			c.emit(Activity{Type: ActivitySettings})
		case KeyConfirm:
			return c.baseline()
		case KeyReset:
			c.resetCredentials()
			return StateSetPassword
		}
	}

	if c.idle.Tick() {
		return c.baseline()
	}
	return StateOptionsMenu
}

func (c *Controller) handleDoorOpen() State {
	c.p.Keypad.Poll()
	if c.takeEvent(EventDoorButton) || c.takeEvent(EventDoorClosed) {
		return c.baseline()
	}
	return StateDoorOpen
}

func (c *Controller) handleLockout() State {
	c.p.Keypad.Poll()
	if c.takeEvent(EventDoorButton) {
		return c.openDoor(MethodButton, nil)
	}
	if c.lockout.Tick() {
		return c.baseline()
	}
	return StateLockout
}

// pollCard reads the card reader when its poll timer fired this cycle.
func (c *Controller) pollCard() ([]byte, CardResult) {
	if !c.cardDue {
		return nil, CardNone
	}
	return c.auth.ReadCard(c.p.Cards)
}

func (c *Controller) succeed() {
	if c.auth.Succeed() {
		c.set(OutputBuzzer, CommandOff)
	}
}

func (c *Controller) grantCard(uid []byte) State {
	c.succeed()
	c.logAccess(uid)
	return c.openDoor(MethodCard, uid)
}

// logAccess appends a record to the ring and queues its persistence.
func (c *Controller) logAccess(uid []byte) {
	rec := FormatRecord(clockTime(c.p.Clock), uid)
	idx := c.cfg.LogEntryCount
	c.cfg.LogEntryCount = NextLogIndex(idx)
	c.seq.StartLogEntry(idx, rec)
}

func (c *Controller) openDoor(m Method, uid []byte) State {
	c.openedBy = m
	a := Activity{Type: ActivityDoorOpened, Method: m}
	if uid != nil {
		a.UID = FormatUID(uid)
	}
	c.emit(a)
	return StateDoorOpen
}

func (c *Controller) deny(m Method, uid []byte) State {
	alert := c.auth.Fail()
	a := Activity{Type: ActivityDenied, Method: m, Attempts: c.auth.Attempts()}
	if uid != nil {
		a.UID = FormatUID(uid)
	}
	c.emit(a)
	if alert {
		c.set(OutputBuzzer, CommandBlink)
		c.emit(Activity{Type: ActivityAlert, Method: m, Attempts: c.auth.Attempts()})
	}
	return StateLockout
}

// resetCredentials forgets the password and queues the factory reset.
func (c *Controller) resetCredentials() {
	c.cfg = DefaultConfig()
	c.seq.StartClearAll()
	c.set(OutputArmed, CommandOff)
	c.set(OutputDisarmed, CommandOff)
	c.emit(Activity{Type: ActivityReset})
}
