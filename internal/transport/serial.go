package transport

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/tarm/serial"
)

// DefaultBaud is the serial link speed when none is configured.
const DefaultBaud = 115200

// pollInterval bounds how long a serial read blocks before rechecking
// whether the port was closed.
const pollInterval = 100 * time.Millisecond

// SerialConfig selects the serial device.
type SerialConfig struct {
	Device string
	Baud   int
}

// OpenSerial opens the serial link to the high-level application.
func OpenSerial(cfg SerialConfig) (*Stream, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("serial device not set")
	}
	if cfg.Baud == 0 {
		cfg.Baud = DefaultBaud
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: pollInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	return NewStream(&serialPort{port: port}), nil
}

// serialPort turns read timeouts back into blocking reads until closed.
type serialPort struct {
	port   *serial.Port
	closed atomic.Bool
}

func (p *serialPort) Read(b []byte) (int, error) {
	for {
		n, err := p.port.Read(b)
		if n > 0 || (err != nil && err != io.EOF) {
			return n, err
		}
		if p.closed.Load() {
			return 0, ErrClosed
		}
	}
}

func (p *serialPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *serialPort) Close() error {
	p.closed.Store(true)
	return p.port.Close()
}
