package transport

import (
	"bytes"
	"context"
	"io"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sweeney/dio-controller/internal/protocol"
)

// pipe is an in-memory ReadWriteCloser fed from a buffer.
type pipe struct {
	mu     sync.Mutex
	in     *bytes.Reader
	out    bytes.Buffer
	closed bool
}

func newPipe(frames ...[]byte) *pipe {
	return &pipe{in: bytes.NewReader(bytes.Join(frames, nil))}
}

func (p *pipe) Read(b []byte) (int, error) {
	return p.in.Read(b)
}

func (p *pipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Write(b)
}

func (p *pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func TestStreamReceive(t *testing.T) {
	p := newPipe(
		protocol.Encode(protocol.ReadCount{Pin: 22}),
		protocol.Encode(protocol.TriggerNow{All: true}),
	)
	s := NewStream(p)
	ctx := context.Background()

	req, err := s.WaitAndReceive(ctx)
	require.NoError(t, err)
	require.Equal(t, protocol.ReadCount{Pin: 22}, req)

	req, err = s.WaitAndReceive(ctx)
	require.NoError(t, err)
	require.Equal(t, protocol.TriggerNow{All: true}, req)

	_, err = s.WaitAndReceive(ctx)
	require.ErrorIs(t, err, io.EOF)
}

func TestStreamMalformedFrameConsumed(t *testing.T) {
	bad := protocol.Header{Code: protocol.CodeReadCount, Len: 6}.Bytes()
	bad = append(bad, 1, 2, 3, 4, 5, 6)
	p := newPipe(bad, protocol.Encode(protocol.ReadVersion{}))
	s := NewStream(p)

	_, err := s.WaitAndReceive(context.Background())
	require.ErrorIs(t, err, protocol.ErrMalformed)

	req, err := s.WaitAndReceive(context.Background())
	require.NoError(t, err)
	require.Equal(t, protocol.ReadVersion{}, req)
}

func TestStreamOversizeRejectedWithoutReading(t *testing.T) {
	bad := protocol.Header{Code: protocol.CodeReadCount, Len: 0xFFFFFFFF}.Bytes()
	p := newPipe(bad, protocol.Encode(protocol.ReadLevels{}))
	s := NewStream(p)

	_, err := s.WaitAndReceive(context.Background())
	require.ErrorIs(t, err, protocol.ErrMalformed)

	// nothing past the header was consumed
	req, err := s.WaitAndReceive(context.Background())
	require.NoError(t, err)
	require.Equal(t, protocol.ReadLevels{}, req)
}

func TestStreamSend(t *testing.T) {
	p := newPipe()
	s := NewStream(p)

	require.NoError(t, s.SendInt(protocol.NG))
	require.NoError(t, s.SendBytes([]byte{9, 8}))
	require.Equal(t, []byte{0xff, 0xff, 0xff, 0xff, 9, 8}, p.out.Bytes())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.True(t, p.closed)
	require.ErrorIs(t, s.SendInt(protocol.OK), ErrClosed)
	_, err := s.WaitAndReceive(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestListenerServesPeersInTurn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dio.sock")
	l, err := Listen(path)
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, pin := range []uint32{22, 27} {
		conn, err := net.Dial("unix", path)
		require.NoError(t, err)

		_, err = conn.Write(protocol.Encode(protocol.ReadCount{Pin: pin}))
		require.NoError(t, err)

		req, err := l.WaitAndReceive(ctx)
		require.NoError(t, err)
		require.Equal(t, protocol.ReadCount{Pin: pin}, req)

		require.NoError(t, l.SendInt(int32(pin)))
		reply := make([]byte, protocol.IntSize)
		_, err = io.ReadFull(conn, reply)
		require.NoError(t, err)
		v, err := protocol.ParseInt(reply)
		require.NoError(t, err)
		require.Equal(t, int32(pin), v)

		conn.Close()
	}
}

func TestListenerDropsPeerAfterOversizeFrame(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dio.sock")
	l, err := Listen(path)
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer first.Close()
	_, err = first.Write(protocol.Header{Code: protocol.CodeReadCount, Len: 0xFFFFFFFF}.Bytes())
	require.NoError(t, err)

	_, err = l.WaitAndReceive(ctx)
	require.ErrorIs(t, err, protocol.ErrMalformed)

	// the reply still reaches the offending peer
	require.NoError(t, l.SendInt(protocol.NG))
	reply := make([]byte, protocol.IntSize)
	_, err = io.ReadFull(first, reply)
	require.NoError(t, err)
	v, err := protocol.ParseInt(reply)
	require.NoError(t, err)
	require.Equal(t, protocol.NG, v)

	second, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer second.Close()
	_, err = second.Write(protocol.Encode(protocol.ReadCount{Pin: 27}))
	require.NoError(t, err)

	req, err := l.WaitAndReceive(ctx)
	require.NoError(t, err)
	require.Equal(t, protocol.ReadCount{Pin: 27}, req)

	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = first.Read(reply)
	require.ErrorIs(t, err, io.EOF)
}

func TestListenerCancel(t *testing.T) {
	l, err := Listen(filepath.Join(t.TempDir(), "dio.sock"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := l.WaitAndReceive(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitAndReceive did not return after cancel")
	}
	require.ErrorIs(t, l.SendInt(protocol.OK), ErrClosed)
}

func TestListenerNoPeer(t *testing.T) {
	l, err := Listen(filepath.Join(t.TempDir(), "dio.sock"))
	require.NoError(t, err)
	defer l.Close()

	require.ErrorIs(t, l.SendInt(protocol.OK), ErrNoPeer)
}
