//go:build linux

package pwm

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/stianeikeland/go-rpio/v4"
)

// RealSink drives the BCM PWM block through /dev/gpiomem.
// The PWM registers cannot be read back through go-rpio, so the last
// programmed duty of every pin is kept as a shadow for ReadOutput.
type RealSink struct {
	mu     sync.Mutex
	pins   []int
	shadow map[int]channelState
}

// NewRealSink maps GPIO memory and switches pins to their PWM function.
func NewRealSink(pins ...int) (*RealSink, error) {
	for _, p := range pins {
		if !IsSupported(p) {
			return nil, errors.Wrapf(ErrUnsupportedPin, "output pin %d", p)
		}
	}
	if err := rpio.Open(); err != nil {
		return nil, errors.Wrapf(err, "failed to open gpio memory for pwm pins %v", pins)
	}
	for _, p := range pins {
		rpio.Pin(p).Mode(rpio.Pwm)
	}
	rpio.StartPwm()

	return &RealSink{
		pins:   pins,
		shadow: make(map[int]channelState),
	}, nil
}

// WriteOutput holds pin at a static level at the 32 kHz reference clock.
func (s *RealSink) WriteOutput(pin int, level bool) error {
	on, off := staticTicks(level)
	return s.ConfigurePin(pin, Clock32K, on, off)
}

// ReadOutput decodes the shadowed duty of pin.
func (s *RealSink) ReadOutput(pin int) (bool, error) {
	if !IsSupported(pin) {
		return false, ErrUnsupportedPin
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shadow[pin].level(), nil
}

// ConfigurePin programs onTicks high and offTicks low at clock.
func (s *RealSink) ConfigurePin(pin int, clock Clock, onTicks, offTicks uint32) error {
	if !IsSupported(pin) {
		return ErrUnsupportedPin
	}
	if !clock.Usable() {
		return errors.Wrapf(ErrUnsupportedClock, "pin %d clock %d", pin, clock)
	}
	cycle := onTicks + offTicks
	if cycle == 0 {
		return errors.Errorf("pin %d: empty pwm cycle", pin)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := rpio.Pin(pin)
	p.Freq(int(clock))
	p.DutyCycle(onTicks, cycle)
	s.shadow[pin] = channelState{enabled: true, clock: clock, onTicks: onTicks, offTicks: offTicks}
	return nil
}

// Close drives every output low, stops the PWM block and unmaps memory.
func (s *RealSink) Close() error {
	s.mu.Lock()
	for _, p := range s.pins {
		rpio.Pin(p).DutyCycle(0, 1)
	}
	s.mu.Unlock()
	rpio.StopPwm()
	return errors.Wrap(rpio.Close(), "close gpio memory")
}
