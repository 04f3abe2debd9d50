package rfid

import "github.com/sweeney/door-controller/internal/logic"

// Chain polls several readers in order. The reader that reported a card
// serves the following ReadUID and Halt.
type Chain struct {
	readers []logic.CardReader
	active  logic.CardReader
}

// NewChain returns a reader over rs. Nil readers are skipped.
func NewChain(rs ...logic.CardReader) *Chain {
	c := &Chain{}
	for _, r := range rs {
		if r != nil {
			c.readers = append(c.readers, r)
		}
	}
	return c
}

// CardPresent reports whether any reader has a card.
func (c *Chain) CardPresent() bool {
	c.active = nil
	for _, r := range c.readers {
		if r.CardPresent() {
			c.active = r
			return true
		}
	}
	return false
}

// ReadUID reads from the reader that found the card.
func (c *Chain) ReadUID() ([]byte, bool) {
	if c.active == nil {
		return nil, false
	}
	return c.active.ReadUID()
}

// Halt halts the reader that found the card.
func (c *Chain) Halt() {
	if c.active != nil {
		c.active.Halt()
		c.active = nil
	}
}
