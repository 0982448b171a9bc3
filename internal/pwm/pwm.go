// Package pwm drives digital outputs through the PWM peripheral.
// A static level is a degenerate duty cycle (all on or all off); a real
// waveform is programmed with ConfigurePin.
// The real implementation uses the memory-mapped BCM PWM block.
// The fake implementation allows testing without hardware.
package pwm

import "errors"

// Clock selects the PWM source clock. Values are the clock rate in Hz.
type Clock uint32

const (
	ClockNone Clock = 0
	Clock32K  Clock = 32768
	Clock2M   Clock = 2000000
	ClockXTAL Clock = 26000000
)

// Sink is the hardware output primitive used by the output controllers.
type Sink interface {
	// WriteOutput holds pin at a static level.
	WriteOutput(pin int, level bool) error

	// ReadOutput decodes the programmed duty back to a level.
	// Returns ErrUnsupportedPin for pins outside the PWM block.
	ReadOutput(pin int) (bool, error)

	// ConfigurePin programs a duty waveform of onTicks high and offTicks low,
	// counted at the given clock.
	ConfigurePin(pin int, clock Clock, onTicks, offTicks uint32) error
}

var (
	// ErrUnsupportedPin is returned for pins that are not wired to a PWM channel.
	ErrUnsupportedPin = errors.New("pwm: pin not in a supported PWM block")

	// ErrUnsupportedClock is returned for clocks the PWM block cannot produce.
	ErrUnsupportedClock = errors.New("pwm: unsupported clock")
)

// Default output pins (BCM numbering). 18 is PWM0, 19 is PWM1.
const (
	DefaultPinDO0 = 18
	DefaultPinDO1 = 19
)

// SupportedPins lists the BCM pins that route to a hardware PWM channel.
var SupportedPins = []int{12, 13, 18, 19}

// IsSupported reports whether pin routes to a hardware PWM channel.
func IsSupported(pin int) bool {
	for _, p := range SupportedPins {
		if p == pin {
			return true
		}
	}
	return false
}

// Usable reports whether the PWM block can run from clock.
func (c Clock) Usable() bool {
	return c == Clock32K || c == Clock2M
}

// channelState is the programmed configuration of one PWM channel.
type channelState struct {
	enabled  bool
	clock    Clock
	onTicks  uint32
	offTicks uint32
}

// level decodes a duty configuration: high iff enabled and on > off.
func (c channelState) level() bool {
	return c.enabled && c.onTicks > c.offTicks
}

func staticTicks(level bool) (on, off uint32) {
	if level {
		return 1, 0
	}
	return 0, 1
}
