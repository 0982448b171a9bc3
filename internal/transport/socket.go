package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"

	"go.uber.org/multierr"

	"github.com/sweeney/dio-controller/internal/protocol"
)

// Listener serves one peer at a time on a unix socket. When a peer
// disconnects the next WaitAndReceive accepts a new one.
type Listener struct {
	ln net.Listener

	mu      sync.Mutex
	conn    net.Conn
	discard net.Conn // peer to drop before the next read
	closed  bool
}

// Listen creates the socket at path, replacing any stale socket file.
func Listen(path string) (*Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	return &Listener{ln: ln}, nil
}

// Addr returns the socket address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// WaitAndReceive accepts a peer if needed and reads its next request.
// Cancelling ctx closes the listener.
func (l *Listener) WaitAndReceive(ctx context.Context) (protocol.Request, error) {
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	for {
		if conn := l.takeDiscard(); conn != nil {
			l.dropPeer(conn)
		}

		conn, err := l.peer()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		req, err := readFrame(conn)
		if errors.Is(err, errOversize) {
			// the stream is out of step; drop the peer after the reply
			l.mu.Lock()
			l.discard = conn
			l.mu.Unlock()
			return nil, err
		}
		if err == nil || errors.Is(err, protocol.ErrMalformed) {
			return req, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			log.Printf("transport: peer read failed: %v", err)
		}
		l.dropPeer(conn)
	}
}

// peer returns the connected peer, accepting one if there is none.
func (l *Listener) peer() (net.Conn, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrClosed
	}
	if l.conn != nil {
		conn := l.conn
		l.mu.Unlock()
		return conn, nil
	}
	l.mu.Unlock()

	conn, err := l.ln.Accept()
	if err != nil {
		if l.isClosed() {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("accept: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		conn.Close()
		return nil, ErrClosed
	}
	l.conn = conn
	return conn, nil
}

func (l *Listener) takeDiscard() net.Conn {
	l.mu.Lock()
	defer l.mu.Unlock()
	conn := l.discard
	l.discard = nil
	return conn
}

func (l *Listener) dropPeer(conn net.Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == conn {
		l.conn = nil
	}
	conn.Close()
}

// SendInt sends an integer reply to the current peer.
func (l *Listener) SendInt(v int32) error {
	return l.SendBytes(protocol.IntResponse(v))
}

// SendBytes sends b to the current peer.
func (l *Listener) SendBytes(b []byte) error {
	l.mu.Lock()
	conn := l.conn
	closed := l.closed
	l.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if conn == nil {
		return ErrNoPeer
	}
	if _, err := conn.Write(b); err != nil {
		return fmt.Errorf("write reply: %w", err)
	}
	return nil
}

// Close closes the listener and any connected peer.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	var err error
	if l.conn != nil {
		err = l.conn.Close()
		l.conn = nil
	}
	return multierr.Append(err, l.ln.Close())
}

func (l *Listener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
