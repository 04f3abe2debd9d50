package logic

import "fmt"

// Display geometry (HD44780 20x4).
const (
	DisplayRows = 4
	DisplayCols = 20
)

const (
	hintEntry   = "A-Del D-Confirm"
	hintOptions = "C-Options"
	hintBack    = "C-Back"
)

// draw repaints the whole screen for the current state.
func (c *Controller) draw() {
	d := c.p.Display
	d.Clear()

	switch c.state {
	case StateInit:
		c.line(0, 5, "WELCOME")
		c.line(1, 1, "Starting system")
	case StateSetPassword:
		c.line(0, 0, "New password:")
		c.drawBuffer()
		c.line(3, 0, hintEntry)
	case StateAwaitingCredential:
		c.line(0, 0, "Enter password:")
		c.drawBuffer()
		c.line(2, 0, hintEntry)
		c.line(3, 0, hintOptions)
	case StateDisarmed:
		c.line(0, 0, "Press any number")
		c.line(1, 0, "to enter.")
		c.line(3, 0, hintOptions)
	case StateOptionsAuth:
		c.line(0, 0, "Password (options):")
		c.drawBuffer()
		c.line(2, 0, hintEntry)
		c.line(3, 0, hintBack)
	case StateOptionsMenu:
		for i := 0; i < DisplayRows; i++ {
			c.drawMenuLine(i)
		}
	case StateDoorOpen:
		if c.openedBy == MethodPassword || c.openedBy == MethodCard {
			c.line(0, 0, "Access granted.")
		}
		c.line(2, 0, "Door open.")
	case StateLockout:
		c.line(0, 0, "Access denied.")
		c.line(2, 0, fmt.Sprintf("Attempts: %d", c.auth.Attempts()))
	}
}

// drawBuffer repaints the entry line. Only the new password is shown in clear.
func (c *Controller) drawBuffer() {
	c.line(1, 0, c.buf.Render(c.state != StateSetPassword))
}

// drawMenuLine repaints one row of the options menu.
func (c *Controller) drawMenuLine(row int) {
	switch row {
	case 0:
		c.line(0, 0, pad("A-System "+onOff(c.cfg.SystemEnabled)))
	case 1:
		c.line(1, 0, pad("B-Light mode "+onOff(c.cfg.LightMode)))
	case 2:
		c.line(2, 0, pad(fmt.Sprintf("C-Light adj %d", c.cfg.LightSensitivity)))
	case 3:
		c.line(3, 0, "D-Back     *-Reset")
	}
}

func (c *Controller) line(row, col int, text string) {
	c.p.Display.SetCursor(row, col)
	c.p.Display.Write(text)
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

// pad right-fills text so a shorter value overwrites a longer one.
func pad(s string) string {
	return fmt.Sprintf("%-*s", DisplayCols, s)
}
