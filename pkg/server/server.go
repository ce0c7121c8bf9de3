// Package server assembles the engine's server side: one session over one
// transport, serving the negotiated feature areas from its registries.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mcpkit/mcp-engine-go/pkg/completion"
	"github.com/mcpkit/mcp-engine-go/pkg/correlation"
	mcperrors "github.com/mcpkit/mcp-engine-go/pkg/errors"
	"github.com/mcpkit/mcp-engine-go/pkg/logging"
	"github.com/mcpkit/mcp-engine-go/pkg/observability"
	"github.com/mcpkit/mcp-engine-go/pkg/protocol"
	"github.com/mcpkit/mcp-engine-go/pkg/registry"
	"github.com/mcpkit/mcp-engine-go/pkg/session"
	"github.com/mcpkit/mcp-engine-go/pkg/transport"
)

// Server serves one protocol session. The feature areas it declares during
// the handshake follow from the registries it was built with: a server
// without a prompt registry never advertises prompts and rejects prompt
// methods at the gate.
type Server struct {
	info         protocol.ServerInfo
	instructions string

	transport  transport.Transport
	session    *session.Session
	dispatcher *session.Dispatcher
	tracker    *session.Tracker
	pending    *correlation.Table

	tools     *registry.ToolRegistry
	resources *registry.ResourceRegistry
	prompts   *registry.PromptRegistry
	completer *completion.Engine
	subs      *subscriptionSet

	logger        logging.Logger
	metrics       observability.MetricsProvider
	tracing       *observability.TracingProvider
	logForwarding bool

	requestTimeout time.Duration
	nextID         atomic.Int64

	wg sync.WaitGroup
}

// Option configures a Server
type Option func(*Server)

// WithServerInfo sets the identification reported during the handshake
func WithServerInfo(name, version string) Option {
	return func(s *Server) {
		s.info = protocol.ServerInfo{Name: name, Version: version}
	}
}

// WithInstructions sets the usage hint returned from initialize
func WithInstructions(instructions string) Option {
	return func(s *Server) {
		s.instructions = instructions
	}
}

// WithToolRegistry serves tools from the given registry and declares the
// tools capability.
func WithToolRegistry(r *registry.ToolRegistry) Option {
	return func(s *Server) {
		s.tools = r
	}
}

// WithResourceRegistry serves resources from the given registry and
// declares the resources capability.
func WithResourceRegistry(r *registry.ResourceRegistry) Option {
	return func(s *Server) {
		s.resources = r
	}
}

// WithPromptRegistry serves prompts from the given registry and declares
// the prompts capability.
func WithPromptRegistry(r *registry.PromptRegistry) Option {
	return func(s *Server) {
		s.prompts = r
	}
}

// WithLogger sets the server logger
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithLogForwarding declares the logging capability so Log can forward
// messages to the client.
func WithLogForwarding() Option {
	return func(s *Server) {
		s.logForwarding = true
	}
}

// WithMetrics installs a metrics provider
func WithMetrics(metrics observability.MetricsProvider) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithTracing installs a tracing provider; every inbound request runs
// inside a span named after its method.
func WithTracing(tp *observability.TracingProvider) Option {
	return func(s *Server) {
		s.tracing = tp
	}
}

// WithRequestTimeout bounds outbound server-to-client requests. Zero
// disables the timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.requestTimeout = d
	}
}

// New creates a server over a transport.
func New(t transport.Transport, options ...Option) *Server {
	s := &Server{
		info:           protocol.ServerInfo{Name: "mcp-engine", Version: "0.1.0"},
		transport:      t,
		logger:         logging.Discard(),
		metrics:        observability.NoopMetricsProvider{},
		requestTimeout: 30 * time.Second,
		subs:           newSubscriptionSet(),
	}
	for _, option := range options {
		option(s)
	}

	s.session = session.New(session.RoleServer, s.capabilities(), s.logger)
	s.dispatcher = session.NewDispatcher(s.session, s.logger)
	s.tracker = session.NewTracker(s.notify, s.logger)
	s.pending = correlation.NewTable(
		correlation.WithTimeout(s.requestTimeout),
		correlation.WithLogger(s.logger),
	)
	s.logger = s.logger.WithFields(logging.String("component", "server"))

	s.registerHandlers()
	s.wireListChanged()
	return s
}

// capabilities derives the declared capability set from the configured
// registries. Completion rides along whenever prompts or resources exist;
// it completes their arguments.
func (s *Server) capabilities() protocol.Capabilities {
	caps := protocol.Capabilities{}
	if s.tools != nil {
		caps[string(protocol.CapabilityTools)] = json.RawMessage(`{"listChanged":true}`)
	}
	if s.resources != nil {
		caps[string(protocol.CapabilityResources)] = json.RawMessage(`{"subscribe":true,"listChanged":true}`)
	}
	if s.prompts != nil {
		caps[string(protocol.CapabilityPrompts)] = json.RawMessage(`{"listChanged":true}`)
	}
	if s.prompts != nil || s.resources != nil {
		caps[string(protocol.CapabilityCompletion)] = json.RawMessage(`{}`)
		s.completer = completion.NewEngine(s.prompts, s.resources)
	}
	if s.logForwarding {
		caps[string(protocol.CapabilityLogging)] = json.RawMessage(`{}`)
	}
	return caps
}

// Session exposes the server's session for inspection.
func (s *Server) Session() *session.Session {
	return s.session
}

// Serve runs the receive loop until the context ends or the transport
// closes. Each request is handled on its own goroutine; responses from the
// client settle the correlation table.
func (s *Server) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer s.shutdown()
		for {
			frame, err := s.transport.Receive(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, transport.ErrClosed) {
					return nil
				}
				return fmt.Errorf("receive failed: %w", err)
			}
			s.handleFrame(ctx, frame)
		}
	})

	return g.Wait()
}

func (s *Server) shutdown() {
	s.wg.Wait()
	s.tracker.CloseAll()
	s.pending.Close()
	s.session.Close()
}

// handleFrame decodes one frame and routes it. A malformed frame is
// answered with ParseError when it carried an id we could see, otherwise
// logged and dropped; it never stops the loop.
func (s *Server) handleFrame(ctx context.Context, frame []byte) {
	msg, err := protocol.DecodeMessage(frame)
	if err != nil {
		s.logger.Warn("dropping malformed frame", logging.ErrorField(err))
		resp := protocol.NewErrorResponse(nil, mcperrors.CodeParseError, "parse error", nil)
		s.send(ctx, resp)
		return
	}

	switch m := msg.(type) {
	case *protocol.Request:
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleRequest(ctx, m)
		}()

	case *protocol.Notification:
		// Notifications run on the receive loop so their ordering against
		// subsequent requests holds: initialized must activate the session
		// before the request behind it is gated, and cancellation must be
		// able to reach a handler that is still running.
		s.dispatcher.DispatchNotification(ctx, m)
		s.metrics.RecordNotification(ctx, m.Method)

	case *protocol.Response:
		if err := s.pending.Resolve(m.ID, m.Result, m.Error); err != nil {
			s.metrics.RecordCounter("stray_response_total", nil)
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req *protocol.Request) {
	start := time.Now()
	ctx = s.tracker.Begin(ctx, req.ID)
	defer s.tracker.End(req.ID)

	if s.tracing != nil {
		var span trace.Span
		ctx, span = s.tracing.StartMethodSpan(ctx, req.Method, trace.SpanKindServer)
		defer span.End()
	}

	resp := s.dispatcher.Dispatch(ctx, req)

	status := "ok"
	if resp.Error != nil {
		status = mcperrors.CodeName(resp.Error.Code)
		if s.tracing != nil {
			s.tracing.RecordError(ctx, resp.Error)
		}
	}
	s.metrics.RecordRequest(ctx, req.Method, status, time.Since(start))

	s.send(ctx, resp)
}

func (s *Server) send(ctx context.Context, msg protocol.Message) {
	frame, err := protocol.EncodeMessage(msg)
	if err != nil {
		s.logger.Error("failed to encode message", logging.ErrorField(err))
		return
	}
	if err := s.transport.Send(ctx, frame); err != nil {
		s.logger.Warn("failed to send message", logging.ErrorField(err))
	}
}

// notify sends one notification if the peer negotiated its capability.
func (s *Server) notify(ctx context.Context, method string, params interface{}) error {
	if err := s.session.CheckOutbound(method); err != nil {
		return err
	}
	note, err := protocol.NewNotification(method, params)
	if err != nil {
		return err
	}
	s.send(ctx, note)
	return nil
}

// call sends one server-to-client request and blocks for its settlement.
func (s *Server) call(ctx context.Context, method string, params, result interface{}) error {
	if err := s.session.CheckOutbound(method); err != nil {
		return err
	}

	id := fmt.Sprintf("s-%d", s.nextID.Add(1))
	pending, err := s.pending.Register(id)
	if err != nil {
		return err
	}
	s.metrics.RecordOutstanding(ctx, 1)
	defer s.metrics.RecordOutstanding(ctx, -1)

	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		s.pending.Cancel(id)
		return err
	}
	frame, err := protocol.EncodeMessage(req)
	if err != nil {
		s.pending.Cancel(id)
		return err
	}
	if err := s.transport.Send(ctx, frame); err != nil {
		s.pending.Cancel(id)
		return err
	}

	raw, err := pending.Wait(ctx)
	if err != nil {
		return err
	}
	if result != nil {
		if err := json.Unmarshal(raw, result); err != nil {
			return mcperrors.Internal(method, err)
		}
	}
	return nil
}

// CreateMessage asks the client to sample a model response. Requires the
// client to have declared the sampling capability.
func (s *Server) CreateMessage(ctx context.Context, params *protocol.CreateMessageParams) (*protocol.CreateMessageResult, error) {
	var result protocol.CreateMessageResult
	if err := s.call(ctx, protocol.MethodCreateMessage, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ping checks client liveness.
func (s *Server) Ping(ctx context.Context) error {
	return s.call(ctx, protocol.MethodPing,
		&protocol.PingParams{Timestamp: time.Now().UnixMilli()},
		&protocol.PingResult{})
}

// NotifyResourceUpdated tells every subscriber whose pattern matches the
// URI that the resource changed.
func (s *Server) NotifyResourceUpdated(ctx context.Context, uri string) {
	if !s.subs.matches(uri) {
		return
	}
	if err := s.notify(ctx, protocol.MethodResourceUpdated, &protocol.ResourceUpdatedParams{URI: uri}); err != nil {
		s.logger.Debug("resource update not delivered",
			logging.String("uri", uri),
			logging.ErrorField(err))
	}
}

// Log forwards a log message to the client when the logging capability was
// negotiated.
func (s *Server) Log(ctx context.Context, level protocol.LogLevel, message, source string) {
	err := s.notify(ctx, protocol.MethodLog, &protocol.LogParams{
		Level:   level,
		Message: message,
		Source:  source,
	})
	if err != nil {
		s.logger.Debug("log notification not delivered", logging.ErrorField(err))
	}
}

// wireListChanged forwards registry mutations to the peer as list_changed
// notifications. Sends are gated on the session being active, so changes
// made while registering providers before the handshake stay silent.
func (s *Server) wireListChanged() {
	background := context.Background()
	if s.tools != nil {
		s.tools.OnListChanged(func() {
			_ = s.notify(background, protocol.MethodToolsListChanged, &protocol.ToolsListChangedParams{})
		})
	}
	if s.resources != nil {
		s.resources.OnListChanged(func() {
			_ = s.notify(background, protocol.MethodResourcesListChanged, &protocol.ResourcesListChangedParams{})
		})
	}
	if s.prompts != nil {
		s.prompts.OnListChanged(func() {
			_ = s.notify(background, protocol.MethodPromptsListChanged, &protocol.PromptsListChangedParams{})
		})
	}
}
