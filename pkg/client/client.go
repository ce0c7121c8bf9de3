// Package client assembles the engine's client side: it drives the
// initialization handshake, issues typed feature requests, and serves the
// callbacks a server may invoke back across the session.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcpkit/mcp-engine-go/pkg/correlation"
	mcperrors "github.com/mcpkit/mcp-engine-go/pkg/errors"
	"github.com/mcpkit/mcp-engine-go/pkg/logging"
	"github.com/mcpkit/mcp-engine-go/pkg/protocol"
	"github.com/mcpkit/mcp-engine-go/pkg/session"
	"github.com/mcpkit/mcp-engine-go/pkg/transport"
)

// SamplingHandler answers a server's createMessage request. Installing one
// declares the sampling capability during the handshake.
type SamplingHandler func(ctx context.Context, params *protocol.CreateMessageParams) (*protocol.CreateMessageResult, error)

// Client is one protocol session's requesting side.
type Client struct {
	info protocol.ClientInfo

	transport  transport.Transport
	session    *session.Session
	dispatcher *session.Dispatcher
	pending    *correlation.Table

	sampling SamplingHandler

	onToolsChanged     func()
	onResourcesChanged func()
	onPromptsChanged   func()
	onResourceUpdated  func(uri string)
	onProgress         func(params *protocol.ProgressParams)
	onLog              func(params *protocol.LogParams)

	logger         logging.Logger
	requestTimeout time.Duration
	nextID         atomic.Int64

	serverInfo protocol.ServerInfo
}

// Option configures a Client
type Option func(*Client)

// WithClientInfo sets the identification sent during the handshake
func WithClientInfo(name, version string) Option {
	return func(c *Client) {
		c.info = protocol.ClientInfo{Name: name, Version: version}
	}
}

// WithSamplingHandler installs the createMessage handler and declares the
// sampling capability.
func WithSamplingHandler(handler SamplingHandler) Option {
	return func(c *Client) {
		c.sampling = handler
	}
}

// WithLogger sets the client logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRequestTimeout bounds outbound requests. Zero disables the timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.requestTimeout = d
	}
}

// OnToolsListChanged registers a callback for the tools list_changed
// notification.
func OnToolsListChanged(fn func()) Option {
	return func(c *Client) {
		c.onToolsChanged = fn
	}
}

// OnResourcesListChanged registers a callback for the resources
// list_changed notification.
func OnResourcesListChanged(fn func()) Option {
	return func(c *Client) {
		c.onResourcesChanged = fn
	}
}

// OnPromptsListChanged registers a callback for the prompts list_changed
// notification.
func OnPromptsListChanged(fn func()) Option {
	return func(c *Client) {
		c.onPromptsChanged = fn
	}
}

// OnResourceUpdated registers a callback for resource update notifications.
func OnResourceUpdated(fn func(uri string)) Option {
	return func(c *Client) {
		c.onResourceUpdated = fn
	}
}

// OnProgress registers a callback for progress notifications.
func OnProgress(fn func(params *protocol.ProgressParams)) Option {
	return func(c *Client) {
		c.onProgress = fn
	}
}

// OnLog registers a callback for server log notifications.
func OnLog(fn func(params *protocol.LogParams)) Option {
	return func(c *Client) {
		c.onLog = fn
	}
}

// New creates a client over a transport.
func New(t transport.Transport, options ...Option) *Client {
	c := &Client{
		info:           protocol.ClientInfo{Name: "mcp-engine-client", Version: "0.1.0"},
		transport:      t,
		logger:         logging.Discard(),
		requestTimeout: 30 * time.Second,
	}
	for _, option := range options {
		option(c)
	}

	caps := protocol.Capabilities{}
	if c.sampling != nil {
		caps[string(protocol.CapabilitySampling)] = json.RawMessage(`{}`)
	}

	c.session = session.New(session.RoleClient, caps, c.logger)
	c.dispatcher = session.NewDispatcher(c.session, c.logger)
	c.pending = correlation.NewTable(
		correlation.WithTimeout(c.requestTimeout),
		correlation.WithLogger(c.logger),
	)
	c.logger = c.logger.WithFields(logging.String("component", "client"))

	c.registerHandlers()
	return c
}

// Session exposes the client's session for inspection.
func (c *Client) Session() *session.Session {
	return c.session
}

// ServerInfo returns the server identification captured during the
// handshake.
func (c *Client) ServerInfo() protocol.ServerInfo {
	return c.serverInfo
}

// Run processes inbound traffic until the context ends or the transport
// closes. It must be running for any call to settle.
func (c *Client) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer func() {
			c.pending.Close()
			c.session.Close()
		}()
		for {
			frame, err := c.transport.Receive(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, transport.ErrClosed) {
					return nil
				}
				return fmt.Errorf("receive failed: %w", err)
			}
			c.handleFrame(ctx, frame)
		}
	})

	return g.Wait()
}

func (c *Client) handleFrame(ctx context.Context, frame []byte) {
	msg, err := protocol.DecodeMessage(frame)
	if err != nil {
		c.logger.Warn("dropping malformed frame", logging.ErrorField(err))
		return
	}

	switch m := msg.(type) {
	case *protocol.Response:
		_ = c.pending.Resolve(m.ID, m.Result, m.Error)

	case *protocol.Request:
		go func() {
			resp := c.dispatcher.Dispatch(ctx, m)
			c.send(ctx, resp)
		}()

	case *protocol.Notification:
		c.dispatcher.DispatchNotification(ctx, m)
	}
}

func (c *Client) send(ctx context.Context, msg protocol.Message) {
	frame, err := protocol.EncodeMessage(msg)
	if err != nil {
		c.logger.Error("failed to encode message", logging.ErrorField(err))
		return
	}
	if err := c.transport.Send(ctx, frame); err != nil {
		c.logger.Warn("failed to send message", logging.ErrorField(err))
	}
}

// call issues one request and blocks for its settlement. Outbound gating
// runs against the server's frozen capability set, so a feature the server
// never declared fails at home instead of on the wire.
func (c *Client) call(ctx context.Context, method string, params, result interface{}) error {
	if err := c.session.CheckOutbound(method); err != nil {
		return err
	}

	id := c.nextID.Add(1)
	pending, err := c.pending.Register(id)
	if err != nil {
		return err
	}

	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		c.pending.Cancel(id)
		return err
	}
	frame, err := protocol.EncodeMessage(req)
	if err != nil {
		c.pending.Cancel(id)
		return err
	}
	if err := c.transport.Send(ctx, frame); err != nil {
		c.pending.Cancel(id)
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

// Initialize performs the full handshake: initialize, version and
// capability agreement, then the initialized notification. The session is
// active when it returns.
func (c *Client) Initialize(ctx context.Context) (*protocol.InitializeResult, error) {
	params := &protocol.InitializeParams{
		ProtocolVersion: protocol.LatestVersion(),
		Capabilities:    c.session.LocalCapabilities(),
		ClientInfo:      c.info,
	}

	var result protocol.InitializeResult
	if err := c.call(ctx, protocol.MethodInitialize, params, &result); err != nil {
		return nil, err
	}
	if err := c.session.CompleteHandshake(&result); err != nil {
		return nil, err
	}
	c.serverInfo = result.ServerInfo

	note, err := protocol.NewNotification(protocol.MethodInitialized, &protocol.InitializedParams{})
	if err != nil {
		return nil, err
	}
	c.send(ctx, note)

	if err := c.session.Activate(); err != nil {
		return nil, err
	}
	c.logger.Info("session established",
		logging.String("version", result.ProtocolVersion),
		logging.String("server", result.ServerInfo.Name))
	return &result, nil
}

// Close shuts the client down.
func (c *Client) Close() error {
	c.pending.Close()
	c.session.Close()
	return c.transport.Close()
}

// ListTools fetches one page of tools.
func (c *Client) ListTools(ctx context.Context, cursor string) (*protocol.ListToolsResult, error) {
	var result protocol.ListToolsResult
	err := c.call(ctx, protocol.MethodListTools, &protocol.ListToolsParams{Cursor: cursor}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CallTool invokes a tool by name.
func (c *Client) CallTool(ctx context.Context, name string, arguments interface{}) (*protocol.CallToolResult, error) {
	args, err := json.Marshal(arguments)
	if err != nil {
		return nil, mcperrors.InvalidParams(protocol.MethodCallTool, err)
	}

	var result protocol.CallToolResult
	err = c.call(ctx, protocol.MethodCallTool, &protocol.CallToolParams{Name: name, Arguments: args}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListResources fetches one page of resources.
func (c *Client) ListResources(ctx context.Context, cursor string) (*protocol.ListResourcesResult, error) {
	var result protocol.ListResourcesResult
	err := c.call(ctx, protocol.MethodListResources, &protocol.ListResourcesParams{Cursor: cursor}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListResourceTemplates fetches one page of resource templates.
func (c *Client) ListResourceTemplates(ctx context.Context, cursor string) (*protocol.ListResourceTemplatesResult, error) {
	var result protocol.ListResourceTemplatesResult
	err := c.call(ctx, protocol.MethodListResourceTemplates, &protocol.ListResourceTemplatesParams{Cursor: cursor}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ReadResource reads one resource by URI.
func (c *Client) ReadResource(ctx context.Context, uri string) (*protocol.ReadResourceResult, error) {
	var result protocol.ReadResourceResult
	err := c.call(ctx, protocol.MethodReadResource, &protocol.ReadResourceParams{URI: uri}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// SubscribeResource subscribes to updates for a URI or glob pattern.
func (c *Client) SubscribeResource(ctx context.Context, uri string) error {
	return c.call(ctx, protocol.MethodSubscribeResource, &protocol.SubscribeResourceParams{URI: uri}, nil)
}

// UnsubscribeResource drops a subscription.
func (c *Client) UnsubscribeResource(ctx context.Context, uri string) error {
	return c.call(ctx, protocol.MethodUnsubscribeResource, &protocol.UnsubscribeResourceParams{URI: uri}, nil)
}

// ListPrompts fetches one page of prompts.
func (c *Client) ListPrompts(ctx context.Context, cursor string) (*protocol.ListPromptsResult, error) {
	var result protocol.ListPromptsResult
	err := c.call(ctx, protocol.MethodListPrompts, &protocol.ListPromptsParams{Cursor: cursor}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetPrompt renders a prompt with arguments.
func (c *Client) GetPrompt(ctx context.Context, name string, arguments map[string]string) (*protocol.GetPromptResult, error) {
	var result protocol.GetPromptResult
	err := c.call(ctx, protocol.MethodGetPrompt, &protocol.GetPromptParams{Name: name, Arguments: arguments}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Complete requests argument completion for a prompt or resource template.
func (c *Client) Complete(ctx context.Context, ref protocol.CompletionReference, argument protocol.CompletionArgument) (*protocol.CompleteResult, error) {
	var result protocol.CompleteResult
	err := c.call(ctx, protocol.MethodComplete, &protocol.CompleteParams{Ref: ref, Argument: argument}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Ping checks server liveness.
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, protocol.MethodPing,
		&protocol.PingParams{Timestamp: time.Now().UnixMilli()},
		&protocol.PingResult{})
}

// CancelRequest asks the server to abandon an in-flight request and settles
// the local handle with a Cancelled outcome.
func (c *Client) CancelRequest(ctx context.Context, id interface{}, reason string) error {
	note, err := protocol.NewNotification(protocol.MethodCancelRequest, &protocol.CancelParams{ID: id, Reason: reason})
	if err != nil {
		return err
	}
	c.send(ctx, note)
	return c.pending.Cancel(id)
}

func (c *Client) registerHandlers() {
	c.dispatcher.RegisterHandler(protocol.MethodPing, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		return &protocol.PingResult{Timestamp: time.Now().UnixMilli()}, nil
	})

	if c.sampling != nil {
		c.dispatcher.RegisterHandler(protocol.MethodCreateMessage, func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
			var params protocol.CreateMessageParams
			if err := json.Unmarshal(raw, &params); err != nil {
				return nil, mcperrors.InvalidParams(protocol.MethodCreateMessage, err)
			}
			return c.sampling(ctx, &params)
		})
	}

	c.dispatcher.RegisterNotificationHandler(protocol.MethodToolsListChanged, func(ctx context.Context, raw json.RawMessage) error {
		if c.onToolsChanged != nil {
			c.onToolsChanged()
		}
		return nil
	})
	c.dispatcher.RegisterNotificationHandler(protocol.MethodResourcesListChanged, func(ctx context.Context, raw json.RawMessage) error {
		if c.onResourcesChanged != nil {
			c.onResourcesChanged()
		}
		return nil
	})
	c.dispatcher.RegisterNotificationHandler(protocol.MethodPromptsListChanged, func(ctx context.Context, raw json.RawMessage) error {
		if c.onPromptsChanged != nil {
			c.onPromptsChanged()
		}
		return nil
	})
	c.dispatcher.RegisterNotificationHandler(protocol.MethodResourceUpdated, func(ctx context.Context, raw json.RawMessage) error {
		if c.onResourceUpdated == nil {
			return nil
		}
		var params protocol.ResourceUpdatedParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return mcperrors.InvalidParams(protocol.MethodResourceUpdated, err)
		}
		c.onResourceUpdated(params.URI)
		return nil
	})
	c.dispatcher.RegisterNotificationHandler(protocol.MethodProgress, func(ctx context.Context, raw json.RawMessage) error {
		if c.onProgress == nil {
			return nil
		}
		var params protocol.ProgressParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return mcperrors.InvalidParams(protocol.MethodProgress, err)
		}
		c.onProgress(&params)
		return nil
	})
	c.dispatcher.RegisterNotificationHandler(protocol.MethodLog, func(ctx context.Context, raw json.RawMessage) error {
		if c.onLog == nil {
			return nil
		}
		var params protocol.LogParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return mcperrors.InvalidParams(protocol.MethodLog, err)
		}
		c.onLog(&params)
		return nil
	})
}
