// Package transport carries protocol frames between the controller and the
// high-level application.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sweeney/dio-controller/internal/protocol"
)

// ErrClosed is returned by operations on a closed transport.
var ErrClosed = errors.New("transport closed")

// ErrNoPeer is returned when replying with no connected peer.
var ErrNoPeer = errors.New("no peer connected")

// errOversize marks a header longer than protocol.MaxBodySize. Its body is
// left unread.
var errOversize = errors.New("oversize frame")

// Transport receives requests and sends replies, one reply per request.
type Transport interface {
	// WaitAndReceive blocks until a full request arrives or ctx is done.
	// A frame whose length does not match its code returns an error
	// wrapping protocol.ErrMalformed; the frame is consumed. A header
	// longer than protocol.MaxBodySize is rejected without reading its
	// body.
	WaitAndReceive(ctx context.Context) (protocol.Request, error)

	// SendInt sends an integer reply.
	SendInt(v int32) error

	// SendBytes sends a raw reply.
	SendBytes(b []byte) error

	// Close releases the underlying link.
	Close() error
}

// readFrame reads one header and body from r.
func readFrame(r io.Reader) (protocol.Request, error) {
	var hdr [protocol.HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	h, err := protocol.ParseHeader(hdr[:])
	if err != nil {
		return nil, err
	}

	if h.Len > protocol.MaxBodySize {
		_, err := protocol.Decode(h, nil)
		return nil, fmt.Errorf("%w: %w", errOversize, err)
	}

	body := make([]byte, h.Len)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return protocol.Decode(h, body)
}
