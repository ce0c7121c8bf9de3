package session

import (
	"context"
	"encoding/json"
	"fmt"

	mcperrors "github.com/mcpkit/mcp-engine-go/pkg/errors"
	"github.com/mcpkit/mcp-engine-go/pkg/logging"
	"github.com/mcpkit/mcp-engine-go/pkg/protocol"
)

// Handler processes one gated request and produces its result value.
type Handler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// NotificationHandler processes one gated notification. Errors are logged,
// never answered; notifications carry no reply path.
type NotificationHandler func(ctx context.Context, params json.RawMessage) error

// Dispatcher routes inbound envelopes to their handlers, applying the
// session gate first. Gating order is fixed: lifecycle state, then
// capability, then handler lookup. A request never reaches a handler the
// gate would reject, and every request produces exactly one response.
type Dispatcher struct {
	session       *Session
	handlers      map[string]Handler
	notifications map[string]NotificationHandler
	logger        logging.Logger
}

// NewDispatcher creates a dispatcher bound to a session. Handlers are
// registered before the session serves traffic; registration is not
// synchronized against dispatch.
func NewDispatcher(sess *Session, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Dispatcher{
		session:       sess,
		handlers:      make(map[string]Handler),
		notifications: make(map[string]NotificationHandler),
		logger:        logger.WithFields(logging.String("component", "dispatcher")),
	}
}

// RegisterHandler installs the handler for a request method.
func (d *Dispatcher) RegisterHandler(method string, handler Handler) {
	d.handlers[method] = handler
}

// RegisterNotificationHandler installs the handler for a notification
// method.
func (d *Dispatcher) RegisterNotificationHandler(method string, handler NotificationHandler) {
	d.notifications[method] = handler
}

// Dispatch runs one request through the gate and its handler and always
// returns a response carrying the request's id.
func (d *Dispatcher) Dispatch(ctx context.Context, req *protocol.Request) *protocol.Response {
	ctx = logging.ContextWithRequestID(ctx, fmt.Sprintf("%v", req.ID))

	if err := d.session.CheckInbound(req.Method); err != nil {
		return d.errorResponse(req, err)
	}

	handler, ok := d.handlers[req.Method]
	if !ok {
		return d.errorResponse(req, mcperrors.UnknownMethod(req.Method))
	}

	result, err := d.invoke(ctx, req.Method, handler, req.Params)
	if err != nil {
		return d.errorResponse(req, err)
	}

	resp, err := protocol.NewResponse(req.ID, result)
	if err != nil {
		return d.errorResponse(req, mcperrors.Internal(req.Method, err))
	}
	return resp
}

// DispatchNotification runs one notification through the gate and its
// handler. Failures are logged and swallowed; a bad notification never
// becomes a wire error and never tears the session down.
func (d *Dispatcher) DispatchNotification(ctx context.Context, note *protocol.Notification) {
	if err := d.session.CheckInbound(note.Method); err != nil {
		d.logger.Warn("notification rejected",
			logging.String("method", note.Method),
			logging.ErrorField(err))
		return
	}

	handler, ok := d.notifications[note.Method]
	if !ok {
		d.logger.Debug("notification has no handler", logging.String("method", note.Method))
		return
	}

	if err := d.invokeNotification(ctx, note.Method, handler, note.Params); err != nil {
		d.logger.Warn("notification handler failed",
			logging.String("method", note.Method),
			logging.ErrorField(err))
	}
}

// invoke runs a handler with panic containment. A panicking handler fails
// its own request with InternalError and nothing else.
func (d *Dispatcher) invoke(ctx context.Context, method string, handler Handler, params json.RawMessage) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panicked",
				logging.String("method", method),
				logging.Any("panic", r))
			result = nil
			err = mcperrors.Internal(method, fmt.Errorf("handler panic: %v", r))
		}
	}()
	return handler(ctx, params)
}

func (d *Dispatcher) invokeNotification(ctx context.Context, method string, handler NotificationHandler, params json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = mcperrors.Internal(method, fmt.Errorf("handler panic: %v", r))
		}
	}()
	return handler(ctx, params)
}

func (d *Dispatcher) errorResponse(req *protocol.Request, err error) *protocol.Response {
	protoErr := mcperrors.ToProtocolError(err)
	d.logger.WithError(err).Debug("request failed",
		logging.String("method", req.Method),
		logging.Any("id", req.ID))
	return protocol.NewErrorResponse(req.ID, protoErr.Code, protoErr.Message, protoErr.Data)
}
