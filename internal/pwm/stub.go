//go:build !linux

package pwm

import "errors"

// RealSink is not available on non-Linux platforms.
type RealSink struct{}

// NewRealSink returns an error on non-Linux platforms.
func NewRealSink(pins ...int) (*RealSink, error) {
	return nil, errors.New("pwm: not supported on this platform (requires Linux)")
}

// WriteOutput is not implemented on non-Linux platforms.
func (s *RealSink) WriteOutput(pin int, level bool) error {
	return errors.New("pwm: not supported")
}

// ReadOutput is not implemented on non-Linux platforms.
func (s *RealSink) ReadOutput(pin int) (bool, error) {
	return false, errors.New("pwm: not supported")
}

// ConfigurePin is not implemented on non-Linux platforms.
func (s *RealSink) ConfigurePin(pin int, clock Clock, onTicks, offTicks uint32) error {
	return errors.New("pwm: not supported")
}

// Close is not implemented on non-Linux platforms.
func (s *RealSink) Close() error {
	return nil
}
