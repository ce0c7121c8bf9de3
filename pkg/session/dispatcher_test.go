package session

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/mcpkit/mcp-engine-go/pkg/errors"
	"github.com/mcpkit/mcp-engine-go/pkg/protocol"
)

func activeSession(t *testing.T) *Session {
	t.Helper()

	s := New(RoleServer, toolsOnly(), nil)
	_, err := s.BeginHandshake(initParams(protocol.LatestVersion()))
	require.NoError(t, err)
	require.NoError(t, s.Activate())
	return s
}

func TestDispatchSuccess(t *testing.T) {
	d := NewDispatcher(activeSession(t), nil)
	d.RegisterHandler(protocol.MethodListTools, func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return &protocol.ListToolsResult{Tools: []protocol.Tool{}}, nil
	})

	req, err := protocol.NewRequest(1, protocol.MethodListTools, nil)
	require.NoError(t, err)

	resp := d.Dispatch(context.Background(), req)
	require.Nil(t, resp.Error)
	assert.Equal(t, 1, resp.ID)
	assert.JSONEq(t, `{"tools":[]}`, string(resp.Result))
}

func TestDispatchGatesBeforeHandlerLookup(t *testing.T) {
	// prompts/list has a handler, but the session never negotiated the
	// prompts capability. The gate wins.
	d := NewDispatcher(activeSession(t), nil)
	d.RegisterHandler(protocol.MethodListPrompts, func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		t.Fatal("handler must not run")
		return nil, nil
	})

	req, err := protocol.NewRequest(2, protocol.MethodListPrompts, nil)
	require.NoError(t, err)

	resp := d.Dispatch(context.Background(), req)
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcperrors.CodeCapabilityNotNegotiated, resp.Error.Code)
}

func TestDispatchUngatedUnregisteredMethodIsUnknown(t *testing.T) {
	// completion/complete is gated; with no completion capability the
	// rejection is capability-shaped even though no handler exists either.
	d := NewDispatcher(activeSession(t), nil)

	req, err := protocol.NewRequest(3, protocol.MethodComplete, nil)
	require.NoError(t, err)
	resp := d.Dispatch(context.Background(), req)
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcperrors.CodeCapabilityNotNegotiated, resp.Error.Code)

	// An ungated method with no handler is a plain unknown method.
	req, err = protocol.NewRequest(4, "no/such/method", nil)
	require.NoError(t, err)
	resp = d.Dispatch(context.Background(), req)
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcperrors.CodeMethodNotFound, resp.Error.Code)
}

func TestDispatchBeforeInitialization(t *testing.T) {
	s := New(RoleServer, toolsOnly(), nil)
	d := NewDispatcher(s, nil)
	d.RegisterHandler(protocol.MethodListTools, func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		t.Fatal("handler must not run")
		return nil, nil
	})

	req, err := protocol.NewRequest(5, protocol.MethodListTools, nil)
	require.NoError(t, err)

	resp := d.Dispatch(context.Background(), req)
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcperrors.CodeNotInitialized, resp.Error.Code)
}

func TestDispatchPanicContainment(t *testing.T) {
	d := NewDispatcher(activeSession(t), nil)
	d.RegisterHandler(protocol.MethodCallTool, func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		panic("handler exploded")
	})
	d.RegisterHandler(protocol.MethodListTools, func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		return &protocol.ListToolsResult{Tools: []protocol.Tool{}}, nil
	})

	req, err := protocol.NewRequest(6, protocol.MethodCallTool, nil)
	require.NoError(t, err)
	resp := d.Dispatch(context.Background(), req)
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcperrors.CodeInternalError, resp.Error.Code)

	// The panic failed only its own request; the session still serves.
	req, err = protocol.NewRequest(7, protocol.MethodListTools, nil)
	require.NoError(t, err)
	resp = d.Dispatch(context.Background(), req)
	assert.Nil(t, resp.Error)
}

func TestDispatchNotificationSwallowsFailure(t *testing.T) {
	d := NewDispatcher(activeSession(t), nil)

	called := false
	d.RegisterNotificationHandler(protocol.MethodToolsListChanged, func(ctx context.Context, params json.RawMessage) error {
		called = true
		panic("notification handler exploded")
	})

	note, err := protocol.NewNotification(protocol.MethodToolsListChanged, nil)
	require.NoError(t, err)

	// Must not panic and must not produce any response.
	d.DispatchNotification(context.Background(), note)
	assert.True(t, called)
}

func TestDispatchErrorCarriesStructuredData(t *testing.T) {
	d := NewDispatcher(activeSession(t), nil)

	req, err := protocol.NewRequest(8, protocol.MethodListPrompts, nil)
	require.NoError(t, err)
	resp := d.Dispatch(context.Background(), req)
	require.NotNil(t, resp.Error)

	data, ok := resp.Error.Data.(*mcperrors.CapabilityErrorData)
	require.True(t, ok)
	assert.Equal(t, "prompts", data.Capability)
}
