package transport

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sweeney/dio-controller/internal/protocol"
)

// Stream frames requests over a single byte stream, such as a serial port.
type Stream struct {
	rw io.ReadWriteCloser

	mu     sync.Mutex
	closed bool
}

// NewStream wraps rw. Closing the stream closes rw.
func NewStream(rw io.ReadWriteCloser) *Stream {
	return &Stream{rw: rw}
}

// WaitAndReceive reads the next request. Cancelling ctx closes the stream.
func (s *Stream) WaitAndReceive(ctx context.Context) (protocol.Request, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	req, err := readFrame(s.rw)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return req, nil
}

// SendInt writes an integer reply.
func (s *Stream) SendInt(v int32) error {
	return s.SendBytes(protocol.IntResponse(v))
}

// SendBytes writes b in full.
func (s *Stream) SendBytes(b []byte) error {
	if s.isClosed() {
		return ErrClosed
	}
	if _, err := s.rw.Write(b); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}
	return nil
}

// Close closes the underlying stream. It is safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.rw.Close()
}

func (s *Stream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
