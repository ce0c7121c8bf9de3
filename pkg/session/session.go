// Package session implements the per-connection lifecycle: the
// initialization handshake with version and capability negotiation, the
// method gate that every inbound and outbound message passes through, and
// the dispatch of gated requests to their handlers.
package session

import (
	"sync"

	"github.com/google/uuid"

	mcperrors "github.com/mcpkit/mcp-engine-go/pkg/errors"
	"github.com/mcpkit/mcp-engine-go/pkg/logging"
	"github.com/mcpkit/mcp-engine-go/pkg/protocol"
)

// State is the lifecycle phase of a session.
type State int

const (
	// StateUninitialized is the phase before the initialize request.
	StateUninitialized State = iota
	// StateNegotiating spans the initialize exchange, up to the
	// initialized notification.
	StateNegotiating
	// StateActive is the operational phase. Only here are feature methods
	// dispatched.
	StateActive
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateNegotiating:
		return "negotiating"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Role is the side of the session this endpoint plays. Capability gating
// consults the declaring side: tools, resources, prompts, completion, and
// logging are declared by the server; sampling by the client.
type Role int

const (
	// RoleServer serves feature areas to the peer.
	RoleServer Role = iota
	// RoleClient consumes feature areas and may serve sampling.
	RoleClient
)

func (r Role) String() string {
	if r == RoleClient {
		return "client"
	}
	return "server"
}

// alwaysAllowed are the methods exempt from the initialization gate:
// lifecycle, liveness, and cancellation must work in every phase short of
// closed.
var alwaysAllowed = map[string]bool{
	protocol.MethodInitialize:    true,
	protocol.MethodInitialized:   true,
	protocol.MethodPing:          true,
	protocol.MethodCancelRequest: true,
}

// Session tracks one connection's negotiated contract: its lifecycle state,
// the protocol revision in force, and the frozen capability sets of both
// sides. All methods are safe for concurrent use.
type Session struct {
	mu     sync.RWMutex
	id     string
	role   Role
	state  State
	vers   string
	local  protocol.Capabilities
	remote protocol.Capabilities
	peer   protocol.ClientInfo
	logger logging.Logger
}

// New creates a session in the uninitialized state. local is the capability
// set this side declares during the handshake.
func New(role Role, local protocol.Capabilities, logger logging.Logger) *Session {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Session{
		id:     uuid.NewString(),
		role:   role,
		state:  StateUninitialized,
		local:  local.Clone(),
		logger: logger.WithFields(logging.String("component", "session")),
	}
}

// Role returns the side this endpoint plays.
func (s *Session) Role() Role {
	return s.role
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Version returns the negotiated protocol revision, or "" before
// negotiation.
func (s *Session) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vers
}

// LocalCapabilities returns a copy of this side's capability set.
func (s *Session) LocalCapabilities() protocol.Capabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.local.Clone()
}

// RemoteCapabilities returns a copy of the peer's frozen capability set.
func (s *Session) RemoteCapabilities() protocol.Capabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remote.Clone()
}

// PeerInfo returns the peer identification captured during the handshake.
func (s *Session) PeerInfo() protocol.ClientInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.peer
}

// BeginHandshake negotiates the protocol revision and freezes the peer's
// capability set. The server calls this on receipt of initialize; the
// session enters negotiating and stays there until Activate. A second
// initialize on the same session is rejected. A version mismatch closes the
// session; it is not recoverable in place.
func (s *Session) BeginHandshake(params *protocol.InitializeParams) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return "", mcperrors.SessionClosed()
	case StateUninitialized:
	default:
		return "", mcperrors.New(mcperrors.CodeInvalidRequest,
			"session already initialized", mcperrors.CategorySession, mcperrors.SeverityError)
	}

	version, err := protocol.NegotiateVersion(params.ProtocolVersion)
	if err != nil {
		s.state = StateClosed
		return "", mcperrors.IncompatibleVersion(params.ProtocolVersion, protocol.SupportedVersions)
	}

	s.state = StateNegotiating
	s.vers = version
	s.remote = params.Capabilities.Clone()
	s.peer = params.ClientInfo

	s.logger.Debug("handshake begun",
		logging.String("session_id", s.id),
		logging.String("version", version),
		logging.String("peer", params.ClientInfo.Name))
	return version, nil
}

// Activate moves a negotiating session into the active phase. The server
// calls this on the initialized notification; the client after sending it.
func (s *Session) Activate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateNegotiating:
		s.state = StateActive
		s.logger.Debug("session active", logging.String("session_id", s.id))
		return nil
	case StateClosed:
		return mcperrors.SessionClosed()
	default:
		return mcperrors.NotInitialized(protocol.MethodInitialized)
	}
}

// CompleteHandshake records the server's negotiation outcome on the client
// side and enters the negotiating phase. Rejects a revision this side does
// not support itself.
func (s *Session) CompleteHandshake(result *protocol.InitializeResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return mcperrors.SessionClosed()
	}
	if !protocol.IsSupportedVersion(result.ProtocolVersion) {
		s.state = StateClosed
		return mcperrors.IncompatibleVersion(result.ProtocolVersion, protocol.SupportedVersions)
	}

	s.state = StateNegotiating
	s.vers = result.ProtocolVersion
	s.remote = result.Capabilities.Clone()
	return nil
}

// Close moves the session to its terminal state. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}
	s.state = StateClosed
	s.logger.Debug("session closed", logging.String("session_id", s.id))
}

// CheckInbound gates an inbound method: lifecycle state first, then the
// capability declared for its feature area. The capability table is
// consulted before any handler lookup, so an undeclared feature area is
// rejected the same way whether or not a handler exists for the method.
func (s *Session) CheckInbound(method string) error {
	return s.check(method)
}

// CheckOutbound gates an outbound method with the same rules, so a message
// the peer would reject fails at home instead of on the wire.
func (s *Session) CheckOutbound(method string) error {
	return s.check(method)
}

// check consults the capability set of the side that declares the method's
// feature area: sampling is the client's declaration, the rest are the
// server's. Direction does not matter; a tools/list_changed notification is
// gated on the server's tools declaration whether it is being sent or
// received.
func (s *Session) check(method string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == StateClosed {
		return mcperrors.SessionClosed()
	}
	if s.state != StateActive && !alwaysAllowed[method] {
		return mcperrors.NotInitialized(method)
	}

	required := protocol.RequiredCapability(method)
	if required == "" {
		return nil
	}

	declaredByClient := protocol.ClientOwnedCapability(required)
	caps := s.local
	if declaredByClient != (s.role == RoleClient) {
		caps = s.remote
	}
	if !caps.Has(required) {
		return mcperrors.CapabilityNotNegotiated(string(required))
	}
	return nil
}
