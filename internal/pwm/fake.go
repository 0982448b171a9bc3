package pwm

import "sync"

// Write records one call made against a FakeSink.
type Write struct {
	Pin      int
	Clock    Clock
	OnTicks  uint32
	OffTicks uint32
}

// Level returns the static level this write encodes.
func (w Write) Level() bool {
	return channelState{enabled: true, onTicks: w.OnTicks, offTicks: w.OffTicks}.level()
}

// FakeSink is a deterministic Sink for tests. Only SupportedPins are accepted.
type FakeSink struct {
	mu     sync.Mutex
	state  map[int]channelState
	writes []Write

	// WriteError, if set, is returned by WriteOutput and ConfigurePin
	// and nothing is recorded.
	WriteError error
}

// NewFakeSink creates an empty FakeSink.
func NewFakeSink() *FakeSink {
	return &FakeSink{state: make(map[int]channelState)}
}

// WriteOutput records a static level.
func (f *FakeSink) WriteOutput(pin int, level bool) error {
	on, off := staticTicks(level)
	return f.ConfigurePin(pin, Clock32K, on, off)
}

// ReadOutput returns the level last programmed on pin.
func (f *FakeSink) ReadOutput(pin int) (bool, error) {
	if !IsSupported(pin) {
		return false, ErrUnsupportedPin
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state[pin].level(), nil
}

// ConfigurePin records a duty waveform.
func (f *FakeSink) ConfigurePin(pin int, clock Clock, onTicks, offTicks uint32) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	if !IsSupported(pin) {
		return ErrUnsupportedPin
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state[pin] = channelState{enabled: true, clock: clock, onTicks: onTicks, offTicks: offTicks}
	f.writes = append(f.writes, Write{Pin: pin, Clock: clock, OnTicks: onTicks, OffTicks: offTicks})
	return nil
}

// Writes returns a copy of every recorded write, oldest first.
func (f *FakeSink) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Write, len(f.writes))
	copy(out, f.writes)
	return out
}

// WritesFor returns the recorded writes for one pin.
func (f *FakeSink) WritesFor(pin int) []Write {
	var out []Write
	for _, w := range f.Writes() {
		if w.Pin == pin {
			out = append(out, w)
		}
	}
	return out
}

// Reset clears recorded writes and programmed state.
func (f *FakeSink) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = make(map[int]channelState)
	f.writes = nil
	f.WriteError = nil
}
