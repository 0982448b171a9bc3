package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sweeney/dio-controller/internal/protocol"
)

type fakeFrame struct {
	req protocol.Request
	err error
}

// Fake is a scripted transport for tests.
type Fake struct {
	requests chan fakeFrame
	replies  chan []byte

	mu sync.Mutex

	// SendError, if set, is returned by SendInt and SendBytes.
	SendError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFake creates a Fake with room for n queued requests and replies.
func NewFake(n int) *Fake {
	return &Fake{
		requests: make(chan fakeFrame, n),
		replies:  make(chan []byte, n),
	}
}

// Push queues a request for WaitAndReceive.
func (f *Fake) Push(req protocol.Request) {
	f.requests <- fakeFrame{req: req}
}

// PushError queues a receive error, such as a malformed frame.
func (f *Fake) PushError(err error) {
	f.requests <- fakeFrame{err: err}
}

// WaitAndReceive returns the next queued request.
func (f *Fake) WaitAndReceive(ctx context.Context) (protocol.Request, error) {
	select {
	case fr := <-f.requests:
		return fr.req, fr.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendInt records an integer reply.
func (f *Fake) SendInt(v int32) error {
	return f.SendBytes(protocol.IntResponse(v))
}

// SendBytes records a raw reply.
func (f *Fake) SendBytes(b []byte) error {
	f.mu.Lock()
	err := f.SendError
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.replies <- append([]byte(nil), b...)
	return nil
}

// Close marks the transport as closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Reply waits up to timeout for the next reply.
func (f *Fake) Reply(timeout time.Duration) ([]byte, error) {
	select {
	case b := <-f.replies:
		return b, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("no reply within %v", timeout)
	}
}

// Pending returns the number of replies not yet read.
func (f *Fake) Pending() int {
	return len(f.replies)
}
