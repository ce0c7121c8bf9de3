package correlation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/mcpkit/mcp-engine-go/pkg/errors"
	"github.com/mcpkit/mcp-engine-go/pkg/protocol"
)

func TestResolveSettlesPending(t *testing.T) {
	table := NewTable()

	pending, err := table.Register(1)
	require.NoError(t, err)
	require.NoError(t, table.Resolve(1, json.RawMessage(`{"ok":true}`), nil))

	result, err := pending.Wait(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(result))
	assert.Equal(t, 0, table.Outstanding())
}

func TestResolveWithRemoteError(t *testing.T) {
	table := NewTable()

	pending, err := table.Register("r1")
	require.NoError(t, err)
	require.NoError(t, table.Resolve("r1", nil, &protocol.Error{Code: -32601, Message: "unknown"}))

	_, err = pending.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeMethodNotFound))
}

func TestDuplicateIdentifierWhileOutstanding(t *testing.T) {
	table := NewTable()

	_, err := table.Register(5)
	require.NoError(t, err)

	_, err = table.Register(5)
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeDuplicateIdentifier))

	// Settlement frees the identifier for reuse.
	require.NoError(t, table.Resolve(5, nil, nil))
	_, err = table.Register(5)
	assert.NoError(t, err)
}

func TestNumericAndStringIdentifiersShareKeySpace(t *testing.T) {
	table := NewTable()

	pending, err := table.Register(int64(3))
	require.NoError(t, err)

	// Responses decode numeric ids as float64; they must still settle the
	// request registered under int64.
	require.NoError(t, table.Resolve(float64(3), json.RawMessage(`{}`), nil))

	_, err = pending.Wait(context.Background())
	assert.NoError(t, err)
}

func TestStrayResponseReportedNotFatal(t *testing.T) {
	table := NewTable()

	err := table.Resolve(99, json.RawMessage(`{}`), nil)
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeUnknownIdentifier))
}

func TestCancelSettlesWithCancelledOutcome(t *testing.T) {
	table := NewTable()

	pending, err := table.Register(8)
	require.NoError(t, err)
	require.NoError(t, table.Cancel(8))

	_, err = pending.Wait(context.Background())
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeCancelled))

	// Second settlement attempt loses.
	assert.True(t, mcperrors.IsCode(table.Cancel(8), mcperrors.CodeAlreadySettled))
}

func TestTimeoutPolicy(t *testing.T) {
	table := NewTable(WithTimeout(30 * time.Millisecond))

	pending, err := table.Register("slow")
	require.NoError(t, err)

	_, err = pending.Wait(context.Background())
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeTimeout))

	// The late response is now stray.
	err = table.Resolve("slow", json.RawMessage(`{}`), nil)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeUnknownIdentifier))
}

func TestWaitContextEndDoesNotSettle(t *testing.T) {
	table := NewTable()

	pending, err := table.Register(11)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pending.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The entry is still outstanding and can settle normally.
	assert.Equal(t, 1, table.Outstanding())
	require.NoError(t, table.Resolve(11, json.RawMessage(`{}`), nil))
}

func TestCloseSettlesEverything(t *testing.T) {
	table := NewTable()

	pendings := make([]*Pending, 4)
	for i := range pendings {
		p, err := table.Register(i)
		require.NoError(t, err)
		pendings[i] = p
	}

	table.Close()
	for _, p := range pendings {
		_, err := p.Wait(context.Background())
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeSessionClosed))
	}

	_, err := table.Register("late")
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeSessionClosed))
}

func TestConcurrentSettlementIsExactlyOnce(t *testing.T) {
	const requests = 100

	table := NewTable(WithTimeout(5 * time.Millisecond))

	var settled atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		id := fmt.Sprintf("req-%d", i)
		pending, err := table.Register(id)
		require.NoError(t, err)

		// Race a resolve, a cancel, and the timeout for each entry.
		wg.Add(3)
		go func() {
			defer wg.Done()
			_ = table.Resolve(id, json.RawMessage(`{}`), nil)
		}()
		go func() {
			defer wg.Done()
			_ = table.Cancel(id)
		}()
		go func() {
			defer wg.Done()
			_, _ = pending.Wait(context.Background())
			settled.Add(1)
		}()
	}

	wg.Wait()
	assert.Equal(t, int64(requests), settled.Load())
	assert.Equal(t, 0, table.Outstanding())
}
