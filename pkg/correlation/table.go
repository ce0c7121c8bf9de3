// Package correlation tracks in-flight outbound requests and links each one
// to the response, cancellation, or timeout that eventually settles it.
package correlation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mcperrors "github.com/mcpkit/mcp-engine-go/pkg/errors"
	"github.com/mcpkit/mcp-engine-go/pkg/logging"
	"github.com/mcpkit/mcp-engine-go/pkg/protocol"
)

// Outcome is the single settlement of a pending request: a result, or an
// error (remote error object, cancellation, or timeout).
type Outcome struct {
	Result json.RawMessage
	Err    error
}

// Pending is the caller's handle on an outstanding request. It is settled
// exactly once.
type Pending struct {
	id interface{}
	ch chan Outcome
}

// ID returns the request identifier this handle tracks.
func (p *Pending) ID() interface{} {
	return p.id
}

// Wait blocks until the request settles or the context ends. A context end
// does not settle the entry; the table's timeout policy or an explicit
// Cancel still owns that.
func (p *Pending) Wait(ctx context.Context) (json.RawMessage, error) {
	select {
	case outcome := <-p.ch:
		return outcome.Result, outcome.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type entry struct {
	pending *Pending
	timer   *time.Timer
}

// Table correlates outbound request identifiers with their settlements.
// Insert and settle are atomic: when a late response races a timeout, the
// first settler wins and the loser observes AlreadySettled.
type Table struct {
	mu      sync.Mutex
	pending map[string]*entry
	timeout time.Duration
	logger  logging.Logger
	closed  bool
}

// Option configures a Table
type Option func(*Table)

// WithTimeout installs the session timeout policy: any request still
// outstanding after d settles with a Timeout outcome. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(t *Table) {
		t.timeout = d
	}
}

// WithLogger sets the logger used for stray-response reporting
func WithLogger(logger logging.Logger) Option {
	return func(t *Table) {
		t.logger = logger
	}
}

// NewTable creates an empty correlation table
func NewTable(options ...Option) *Table {
	t := &Table{
		pending: make(map[string]*entry),
		logger:  logging.Discard(),
	}
	for _, option := range options {
		option(t)
	}
	return t
}

// Identifiers of any JSON-RPC type are tracked under one key space.
func key(id interface{}) string {
	return fmt.Sprintf("%v", id)
}

// Register creates a pending handle for an outbound request identifier.
// Fails with DuplicateIdentifier while the identifier is still outstanding;
// the identifier becomes reusable once its handle settles.
func (t *Table) Register(id interface{}) (*Pending, error) {
	k := key(id)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, mcperrors.SessionClosed()
	}
	if _, exists := t.pending[k]; exists {
		return nil, mcperrors.DuplicateIdentifier(id)
	}

	p := &Pending{
		id: id,
		ch: make(chan Outcome, 1),
	}
	e := &entry{pending: p}
	if t.timeout > 0 {
		e.timer = time.AfterFunc(t.timeout, func() {
			_ = t.settle(k, Outcome{Err: mcperrors.Timeout(id)})
		})
	}
	t.pending[k] = e
	return p, nil
}

// Resolve settles an identifier with a response. A stray response (unknown
// identifier) is reported through the returned error and the log; it never
// tears the session down.
func (t *Table) Resolve(id interface{}, result json.RawMessage, protoErr *protocol.Error) error {
	outcome := Outcome{Result: result}
	if protoErr != nil {
		outcome = Outcome{Err: mcperrors.FromProtocolError(protoErr)}
	}

	if err := t.settle(key(id), outcome); err != nil {
		t.logger.Warn("discarding stray response", logging.Any("id", id))
		return mcperrors.UnknownIdentifier(id)
	}
	return nil
}

// Cancel settles an identifier with a Cancelled outcome. Cancelling an
// identifier that already settled is a no-op reported as AlreadySettled.
func (t *Table) Cancel(id interface{}) error {
	if err := t.settle(key(id), Outcome{Err: mcperrors.Cancelled(id)}); err != nil {
		return mcperrors.AlreadySettled(id)
	}
	return nil
}

// settle delivers the outcome for an identifier exactly once.
func (t *Table) settle(k string, outcome Outcome) error {
	t.mu.Lock()
	e, ok := t.pending[k]
	if !ok {
		t.mu.Unlock()
		return mcperrors.AlreadySettled(k)
	}
	delete(t.pending, k)
	t.mu.Unlock()

	if e.timer != nil {
		e.timer.Stop()
	}
	e.pending.ch <- outcome
	return nil
}

// Outstanding returns the number of unsettled requests
func (t *Table) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Close settles every outstanding request with SessionClosed and rejects
// further registrations. No awaiting caller is left in silence.
func (t *Table) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	remaining := t.pending
	t.pending = make(map[string]*entry)
	t.mu.Unlock()

	for _, e := range remaining {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.pending.ch <- Outcome{Err: mcperrors.SessionClosed()}
	}
}
