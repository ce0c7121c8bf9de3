package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpkit/mcp-engine-go/pkg/protocol"
)

type notifyRecorder struct {
	mu    sync.Mutex
	sent  []string
	param []interface{}
}

func (r *notifyRecorder) notify(ctx context.Context, method string, params interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, method)
	r.param = append(r.param, params)
	return nil
}

func TestTrackerCancelInFlight(t *testing.T) {
	tr := NewTracker(nil, nil)

	ctx := tr.Begin(context.Background(), 42)
	assert.Equal(t, 1, tr.InFlight())

	require.True(t, tr.Cancel(42, "user request"))
	select {
	case <-ctx.Done():
	default:
		t.Fatal("cancel did not propagate to the handler context")
	}
	assert.Equal(t, 0, tr.InFlight())
}

func TestTrackerCancelIsIdempotent(t *testing.T) {
	tr := NewTracker(nil, nil)

	tr.Begin(context.Background(), "req-1")
	assert.True(t, tr.Cancel("req-1", ""))
	assert.False(t, tr.Cancel("req-1", ""))
	assert.False(t, tr.Cancel("never-started", ""))
}

func TestTrackerCancelAfterEndIsNoop(t *testing.T) {
	tr := NewTracker(nil, nil)

	tr.Begin(context.Background(), 7)
	tr.End(7)
	assert.False(t, tr.Cancel(7, "too late"))
}

func TestTrackerProgressOnlyWhileInFlight(t *testing.T) {
	rec := &notifyRecorder{}
	tr := NewTracker(rec.notify, nil)

	tr.Begin(context.Background(), 9)
	percent := 40.0
	require.NoError(t, tr.Progress(context.Background(), 9, "halfway-ish", &percent))

	tr.End(9)
	require.NoError(t, tr.Progress(context.Background(), 9, "after the fact", nil))

	require.Len(t, rec.sent, 1)
	assert.Equal(t, protocol.MethodProgress, rec.sent[0])
	params := rec.param[0].(*protocol.ProgressParams)
	assert.Equal(t, 9, params.ID)
	assert.Equal(t, "halfway-ish", params.Message)
	require.NotNil(t, params.Percent)
	assert.Equal(t, 40.0, *params.Percent)
}

func TestTrackerCloseAllCancelsEverything(t *testing.T) {
	tr := NewTracker(nil, nil)

	ctxs := make([]context.Context, 5)
	for i := range ctxs {
		ctxs[i] = tr.Begin(context.Background(), i)
	}
	tr.CloseAll()

	for i, ctx := range ctxs {
		select {
		case <-ctx.Done():
		default:
			t.Fatalf("scope %d not cancelled", i)
		}
	}
	assert.Equal(t, 0, tr.InFlight())
}
