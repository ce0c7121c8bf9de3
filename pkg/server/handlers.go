package server

import (
	"context"
	"encoding/json"
	"time"

	mcperrors "github.com/mcpkit/mcp-engine-go/pkg/errors"
	"github.com/mcpkit/mcp-engine-go/pkg/logging"
	"github.com/mcpkit/mcp-engine-go/pkg/protocol"
)

func (s *Server) registerHandlers() {
	s.dispatcher.RegisterHandler(protocol.MethodInitialize, s.handleInitialize)
	s.dispatcher.RegisterHandler(protocol.MethodPing, s.handlePing)
	s.dispatcher.RegisterNotificationHandler(protocol.MethodInitialized, s.handleInitialized)
	s.dispatcher.RegisterNotificationHandler(protocol.MethodCancelRequest, s.handleCancel)

	if s.tools != nil {
		s.dispatcher.RegisterHandler(protocol.MethodListTools, s.handleListTools)
		s.dispatcher.RegisterHandler(protocol.MethodCallTool, s.handleCallTool)
	}
	if s.resources != nil {
		s.dispatcher.RegisterHandler(protocol.MethodListResources, s.handleListResources)
		s.dispatcher.RegisterHandler(protocol.MethodReadResource, s.handleReadResource)
		s.dispatcher.RegisterHandler(protocol.MethodListResourceTemplates, s.handleListResourceTemplates)
		s.dispatcher.RegisterHandler(protocol.MethodSubscribeResource, s.handleSubscribe)
		s.dispatcher.RegisterHandler(protocol.MethodUnsubscribeResource, s.handleUnsubscribe)
	}
	if s.prompts != nil {
		s.dispatcher.RegisterHandler(protocol.MethodListPrompts, s.handleListPrompts)
		s.dispatcher.RegisterHandler(protocol.MethodGetPrompt, s.handleGetPrompt)
	}
	if s.completer != nil {
		s.dispatcher.RegisterHandler(protocol.MethodComplete, s.handleComplete)
	}
}

func decodeParams[P any](method string, raw json.RawMessage) (*P, error) {
	var params P
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, mcperrors.InvalidParams(method, err)
		}
	}
	return &params, nil
}

func (s *Server) handleInitialize(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	params, err := decodeParams[protocol.InitializeParams](protocol.MethodInitialize, raw)
	if err != nil {
		return nil, err
	}

	version, err := s.session.BeginHandshake(params)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSessionState(ctx, s.session.State().String())

	return &protocol.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    s.session.LocalCapabilities(),
		ServerInfo:      s.info,
		Instructions:    s.instructions,
	}, nil
}

func (s *Server) handleInitialized(ctx context.Context, raw json.RawMessage) error {
	if err := s.session.Activate(); err != nil {
		return err
	}
	s.metrics.RecordSessionState(ctx, s.session.State().String())
	s.metrics.RecordActiveSessions(ctx, 1)
	s.logger.Info("session established",
		logging.String("session_id", s.session.ID()),
		logging.String("version", s.session.Version()),
		logging.String("client", s.session.PeerInfo().Name))
	return nil
}

func (s *Server) handlePing(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	return &protocol.PingResult{Timestamp: time.Now().UnixMilli()}, nil
}

func (s *Server) handleCancel(ctx context.Context, raw json.RawMessage) error {
	params, err := decodeParams[protocol.CancelParams](protocol.MethodCancelRequest, raw)
	if err != nil {
		return err
	}

	// Cancelling an id that already finished, or one that never existed,
	// is a quiet no-op.
	if s.tracker.Cancel(params.ID, params.Reason) {
		s.metrics.RecordCancellation(ctx, protocol.MethodCancelRequest)
	}
	return nil
}

func (s *Server) handleListTools(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	params, err := decodeParams[protocol.ListToolsParams](protocol.MethodListTools, raw)
	if err != nil {
		return nil, err
	}
	return s.tools.List(params.Cursor, 0), nil
}

func (s *Server) handleCallTool(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	params, err := decodeParams[protocol.CallToolParams](protocol.MethodCallTool, raw)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.tools.Call(ctx, params)
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordToolCall(ctx, params.Name, status, time.Since(start))
	return result, err
}

func (s *Server) handleListResources(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	params, err := decodeParams[protocol.ListResourcesParams](protocol.MethodListResources, raw)
	if err != nil {
		return nil, err
	}
	return s.resources.List(params.Cursor, 0), nil
}

func (s *Server) handleListResourceTemplates(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	params, err := decodeParams[protocol.ListResourceTemplatesParams](protocol.MethodListResourceTemplates, raw)
	if err != nil {
		return nil, err
	}
	return s.resources.ListTemplates(params.Cursor, 0), nil
}

func (s *Server) handleReadResource(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	params, err := decodeParams[protocol.ReadResourceParams](protocol.MethodReadResource, raw)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.resources.Read(ctx, params)
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordResourceRead(ctx, status, time.Since(start))
	return result, err
}

func (s *Server) handleSubscribe(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	params, err := decodeParams[protocol.SubscribeResourceParams](protocol.MethodSubscribeResource, raw)
	if err != nil {
		return nil, err
	}
	if err := s.subs.add(params.URI); err != nil {
		return nil, err
	}
	s.metrics.RecordGauge("mcp_resource_subscriptions", float64(s.subs.len()), nil)
	return struct{}{}, nil
}

func (s *Server) handleUnsubscribe(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	params, err := decodeParams[protocol.UnsubscribeResourceParams](protocol.MethodUnsubscribeResource, raw)
	if err != nil {
		return nil, err
	}
	s.subs.remove(params.URI)
	s.metrics.RecordGauge("mcp_resource_subscriptions", float64(s.subs.len()), nil)
	return struct{}{}, nil
}

func (s *Server) handleListPrompts(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	params, err := decodeParams[protocol.ListPromptsParams](protocol.MethodListPrompts, raw)
	if err != nil {
		return nil, err
	}
	return s.prompts.List(params.Cursor, 0), nil
}

func (s *Server) handleGetPrompt(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	params, err := decodeParams[protocol.GetPromptParams](protocol.MethodGetPrompt, raw)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.prompts.Render(ctx, params)
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordPromptRender(ctx, params.Name, status, time.Since(start))
	return result, err
}

func (s *Server) handleComplete(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	params, err := decodeParams[protocol.CompleteParams](protocol.MethodComplete, raw)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.completer.Complete(params)
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordCompletion(ctx, params.Ref.Type, status, time.Since(start))
	return result, err
}

// ReportProgress emits a progress notification for an in-flight inbound
// request. Tool and resource handlers call this with the id carried in
// their context.
func (s *Server) ReportProgress(ctx context.Context, id interface{}, message string, percent *float64) error {
	return s.tracker.Progress(ctx, id, message, percent)
}
