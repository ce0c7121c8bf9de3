package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcpkit/mcp-engine-go/pkg/logging"
	"github.com/mcpkit/mcp-engine-go/pkg/protocol"
)

// Notifier sends one notification to the peer. The server and client each
// supply their transport-backed implementation.
type Notifier func(ctx context.Context, method string, params interface{}) error

// Tracker maintains the cancellation scope of each in-flight inbound
// request and relays progress reports for them. Begin derives a cancellable
// context per request id; $/cancelRequest cancels it; completion of the
// handler ends the scope.
type Tracker struct {
	mu     sync.Mutex
	active map[string]context.CancelFunc
	notify Notifier
	logger logging.Logger
}

// NewTracker creates a tracker. notify may be nil when progress reporting
// is not wired, in which case Progress drops reports.
func NewTracker(notify Notifier, logger logging.Logger) *Tracker {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Tracker{
		active: make(map[string]context.CancelFunc),
		notify: notify,
		logger: logger.WithFields(logging.String("component", "tracker")),
	}
}

func trackerKey(id interface{}) string {
	return fmt.Sprintf("%v", id)
}

// Begin opens the cancellation scope for a request id and returns the
// context its handler runs under.
func (t *Tracker) Begin(ctx context.Context, id interface{}) context.Context {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	t.active[trackerKey(id)] = cancel
	t.mu.Unlock()

	return ctx
}

// End closes the scope for a request id. Safe to call after Cancel; the
// scope is gone either way.
func (t *Tracker) End(id interface{}) {
	t.mu.Lock()
	cancel, ok := t.active[trackerKey(id)]
	delete(t.active, trackerKey(id))
	t.mu.Unlock()

	if ok {
		cancel()
	}
}

// Cancel cancels the scope for a request id. Cancelling an id that is not
// in flight, including one already finished, is a harmless no-op: false
// reports that nothing was cancelled.
func (t *Tracker) Cancel(id interface{}, reason string) bool {
	t.mu.Lock()
	cancel, ok := t.active[trackerKey(id)]
	delete(t.active, trackerKey(id))
	t.mu.Unlock()

	if !ok {
		return false
	}
	cancel()
	t.logger.Debug("request cancelled",
		logging.Any("id", id),
		logging.String("reason", reason))
	return true
}

// InFlight returns the number of open cancellation scopes.
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// Progress relays a progress report for an in-flight request. Reports for
// ids with no open scope are dropped; a finished request emits no further
// progress.
func (t *Tracker) Progress(ctx context.Context, id interface{}, message string, percent *float64) error {
	t.mu.Lock()
	_, ok := t.active[trackerKey(id)]
	t.mu.Unlock()

	if !ok || t.notify == nil {
		return nil
	}
	return t.notify(ctx, protocol.MethodProgress, &protocol.ProgressParams{
		ID:      id,
		Message: message,
		Percent: percent,
	})
}

// CloseAll cancels every open scope. Used on session teardown.
func (t *Tracker) CloseAll() {
	t.mu.Lock()
	remaining := t.active
	t.active = make(map[string]context.CancelFunc)
	t.mu.Unlock()

	for _, cancel := range remaining {
		cancel()
	}
}
