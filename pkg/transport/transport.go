// Package transport provides framed byte transports for protocol sessions.
//
// A transport moves opaque frames; it never inspects envelopes. Framing,
// retries, and connection management live here so the session layer can
// stay transport-agnostic.
package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed transport.
var ErrClosed = errors.New("transport is closed")

// Transport is one bidirectional frame channel. Send and Receive honor
// context cancellation; Close unblocks any pending Receive with ErrClosed.
type Transport interface {
	// Send writes one frame.
	Send(ctx context.Context, frame []byte) error

	// Receive blocks for the next inbound frame.
	Receive(ctx context.Context) ([]byte, error)

	// Close shuts the transport down. Idempotent.
	Close() error
}
