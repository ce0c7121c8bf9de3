package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/mcpkit/mcp-engine-go/pkg/errors"
	"github.com/mcpkit/mcp-engine-go/pkg/protocol"
)

func toolsOnly() protocol.Capabilities {
	return protocol.Capabilities{"tools": json.RawMessage(`{}`)}
}

func initParams(version string) *protocol.InitializeParams {
	return &protocol.InitializeParams{
		ProtocolVersion: version,
		Capabilities:    protocol.Capabilities{"sampling": json.RawMessage(`{}`)},
		ClientInfo:      protocol.ClientInfo{Name: "test-client", Version: "1.0.0"},
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := New(RoleServer, toolsOnly(), nil)
	assert.Equal(t, StateUninitialized, s.State())
	assert.NotEmpty(t, s.ID())

	version, err := s.BeginHandshake(initParams(protocol.LatestVersion()))
	require.NoError(t, err)
	assert.Equal(t, protocol.LatestVersion(), version)
	assert.Equal(t, StateNegotiating, s.State())

	require.NoError(t, s.Activate())
	assert.Equal(t, StateActive, s.State())

	s.Close()
	assert.Equal(t, StateClosed, s.State())
	s.Close()
	assert.Equal(t, StateClosed, s.State())
}

func TestSessionDoubleInitialize(t *testing.T) {
	s := New(RoleServer, toolsOnly(), nil)
	_, err := s.BeginHandshake(initParams(protocol.LatestVersion()))
	require.NoError(t, err)

	_, err = s.BeginHandshake(initParams(protocol.LatestVersion()))
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidRequest))
}

func TestSessionVersionNegotiation(t *testing.T) {
	t.Run("exact match", func(t *testing.T) {
		s := New(RoleServer, toolsOnly(), nil)
		version, err := s.BeginHandshake(initParams("2024-11-05"))
		require.NoError(t, err)
		assert.Equal(t, "2024-11-05", version)
		assert.Equal(t, "2024-11-05", s.Version())
	})

	t.Run("newer than supported falls back", func(t *testing.T) {
		s := New(RoleServer, toolsOnly(), nil)
		version, err := s.BeginHandshake(initParams("2099-01-01"))
		require.NoError(t, err)
		assert.Equal(t, protocol.LatestVersion(), version)
	})

	t.Run("older than supported is fatal", func(t *testing.T) {
		s := New(RoleServer, toolsOnly(), nil)
		_, err := s.BeginHandshake(initParams("2020-01-01"))
		require.Error(t, err)
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeIncompatibleVersion))
		assert.Equal(t, StateClosed, s.State())
	})
}

func TestSessionFreezesRemoteCapabilities(t *testing.T) {
	s := New(RoleServer, toolsOnly(), nil)
	params := initParams(protocol.LatestVersion())
	_, err := s.BeginHandshake(params)
	require.NoError(t, err)

	// Mutating the caller's map after the handshake must not leak in.
	params.Capabilities["tools"] = json.RawMessage(`{}`)

	remote := s.RemoteCapabilities()
	assert.True(t, remote.Has(protocol.CapabilitySampling))
	assert.False(t, remote.Has(protocol.CapabilityTools))
}

func TestSessionExperimentalCapabilityPassthrough(t *testing.T) {
	s := New(RoleServer, toolsOnly(), nil)
	params := initParams(protocol.LatestVersion())
	params.Capabilities["experimental/batching"] = json.RawMessage(`{"maxSize":16}`)
	_, err := s.BeginHandshake(params)
	require.NoError(t, err)

	remote := s.RemoteCapabilities()
	assert.Equal(t, json.RawMessage(`{"maxSize":16}`), remote["experimental/batching"])
}

func TestCheckInboundGatingOrder(t *testing.T) {
	s := New(RoleServer, toolsOnly(), nil)

	t.Run("feature methods rejected before handshake", func(t *testing.T) {
		err := s.CheckInbound(protocol.MethodListTools)
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeNotInitialized))
	})

	t.Run("lifecycle methods allowed before handshake", func(t *testing.T) {
		assert.NoError(t, s.CheckInbound(protocol.MethodInitialize))
		assert.NoError(t, s.CheckInbound(protocol.MethodPing))
		assert.NoError(t, s.CheckInbound(protocol.MethodCancelRequest))
	})

	_, err := s.BeginHandshake(initParams(protocol.LatestVersion()))
	require.NoError(t, err)
	require.NoError(t, s.Activate())

	t.Run("declared capability passes", func(t *testing.T) {
		assert.NoError(t, s.CheckInbound(protocol.MethodListTools))
		assert.NoError(t, s.CheckInbound(protocol.MethodCallTool))
	})

	t.Run("undeclared capability rejected", func(t *testing.T) {
		err := s.CheckInbound(protocol.MethodListPrompts)
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeCapabilityNotNegotiated))
	})

	t.Run("ungated utility methods pass", func(t *testing.T) {
		assert.NoError(t, s.CheckInbound(protocol.MethodPing))
	})

	s.Close()
	t.Run("everything rejected after close", func(t *testing.T) {
		err := s.CheckInbound(protocol.MethodPing)
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeSessionClosed))
	})
}

func TestCheckOutboundCapabilityOwnership(t *testing.T) {
	s := New(RoleServer, toolsOnly(), nil)
	_, err := s.BeginHandshake(initParams(protocol.LatestVersion()))
	require.NoError(t, err)
	require.NoError(t, s.Activate())

	// Sampling is the client's declaration; the peer made it.
	assert.NoError(t, s.CheckOutbound(protocol.MethodCreateMessage))

	// Tools are this server's own declaration; list_changed may go out.
	assert.NoError(t, s.CheckOutbound(protocol.MethodToolsListChanged))

	// Prompts were never declared by anyone; their traffic stays home.
	err = s.CheckOutbound(protocol.MethodPromptsListChanged)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeCapabilityNotNegotiated))
}

func TestClientSideHandshake(t *testing.T) {
	s := New(RoleClient, protocol.Capabilities{"sampling": json.RawMessage(`{}`)}, nil)

	err := s.CompleteHandshake(&protocol.InitializeResult{
		ProtocolVersion: protocol.LatestVersion(),
		Capabilities:    toolsOnly(),
		ServerInfo:      protocol.ServerInfo{Name: "test-server", Version: "1.0.0"},
	})
	require.NoError(t, err)
	require.NoError(t, s.Activate())

	assert.NoError(t, s.CheckOutbound(protocol.MethodListTools))
	assert.NoError(t, s.CheckInbound(protocol.MethodCreateMessage))
}

func TestClientSideHandshakeUnsupportedVersion(t *testing.T) {
	s := New(RoleClient, nil, nil)
	err := s.CompleteHandshake(&protocol.InitializeResult{ProtocolVersion: "1999-01-01"})
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeIncompatibleVersion))
	assert.Equal(t, StateClosed, s.State())
}
