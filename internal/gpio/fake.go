package gpio

import (
	"fmt"
	"sync"
)

// FakeReader is a test double that returns scripted input levels.
type FakeReader struct {
	mu      sync.Mutex
	scripts map[int][]bool
	index   map[int]int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeReader creates a FakeReader that knows the given pins.
// Every pin starts low.
func NewFakeReader(pins ...int) *FakeReader {
	f := &FakeReader{
		scripts: make(map[int][]bool),
		index:   make(map[int]int),
	}
	for _, p := range pins {
		f.scripts[p] = []bool{false}
	}
	return f
}

// Script replaces the samples returned for pin. Each Read consumes the
// next sample; once exhausted the last sample repeats.
func (f *FakeReader) Script(pin int, levels ...bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[pin] = levels
	f.index[pin] = 0
}

// Set holds pin at a constant level.
func (f *FakeReader) Set(pin int, level bool) {
	f.Script(pin, level)
}

// Read returns the next scripted sample for pin.
func (f *FakeReader) Read(pin int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return false, f.ReadError
	}

	samples, ok := f.scripts[pin]
	if !ok || len(samples) == 0 {
		return false, fmt.Errorf("no samples configured for pin %d", pin)
	}

	i := f.index[pin]
	if i < len(samples)-1 {
		f.index[pin] = i + 1
	}
	return samples[i], nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
