//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/door-controller/internal/logic"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealActuators is not available on non-Linux platforms.
type RealActuators struct{}

// NewRealActuators returns an error on non-Linux platforms.
func NewRealActuators(Pins) (*RealActuators, error) { return nil, errUnsupported }

// Set is not implemented on non-Linux platforms.
func (a *RealActuators) Set(logic.Output, logic.Command) {}

// Close is not implemented on non-Linux platforms.
func (a *RealActuators) Close() error { return nil }

// RealButton is not available on non-Linux platforms.
type RealButton struct{}

// NewRealButton returns an error on non-Linux platforms.
func NewRealButton(int, func(logic.Event)) (*RealButton, error) { return nil, errUnsupported }

// Close is not implemented on non-Linux platforms.
func (b *RealButton) Close() error { return nil }

// RealMatrix is not available on non-Linux platforms.
type RealMatrix struct{}

// NewRealMatrix returns an error on non-Linux platforms.
func NewRealMatrix(rows, cols []int) (*RealMatrix, error) { return nil, errUnsupported }

// Scan is not implemented on non-Linux platforms.
func (m *RealMatrix) Scan() (rune, bool, error) { return 0, false, errUnsupported }

// Close is not implemented on non-Linux platforms.
func (m *RealMatrix) Close() error { return nil }

// RealLight is not available on non-Linux platforms.
type RealLight struct{}

// NewRealLight returns an error on non-Linux platforms.
func NewRealLight(int) (*RealLight, error) { return nil, errUnsupported }

// Level is not implemented on non-Linux platforms.
func (l *RealLight) Level() (int, error) { return 0, errUnsupported }

// Close is not implemented on non-Linux platforms.
func (l *RealLight) Close() error { return nil }
