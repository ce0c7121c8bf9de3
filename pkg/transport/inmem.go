package transport

import (
	"context"
	"sync"
)

// InMemTransport is one end of an in-process transport pair. It is used by
// tests and by hosts embedding a server and client in the same process.
type InMemTransport struct {
	in  chan []byte
	out chan []byte

	closeOnce sync.Once
	closed    chan struct{}
	peer      *InMemTransport
}

// NewInMemPair creates two connected transports. A frame sent on one end is
// received on the other.
func NewInMemPair() (*InMemTransport, *InMemTransport) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)

	a := &InMemTransport{in: ba, out: ab, closed: make(chan struct{})}
	b := &InMemTransport{in: ab, out: ba, closed: make(chan struct{})}
	a.peer = b
	b.peer = a
	return a, b
}

// Send delivers one frame to the peer.
func (t *InMemTransport) Send(ctx context.Context, frame []byte) error {
	// Frames are copied so a sender reusing its buffer cannot corrupt a
	// frame in flight.
	buf := make([]byte, len(frame))
	copy(buf, frame)

	select {
	case t.out <- buf:
		return nil
	case <-t.closed:
		return ErrClosed
	case <-t.peer.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks for the next frame from the peer.
func (t *InMemTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-t.in:
		return frame, nil
	case <-t.closed:
		return nil, ErrClosed
	case <-t.peer.closed:
		// Drain frames the peer sent before closing.
		select {
		case frame := <-t.in:
			return frame, nil
		default:
			return nil, ErrClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts this end down. The peer observes ErrClosed once the channel
// drains.
func (t *InMemTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
	})
	return nil
}
