package errors

import (
	"github.com/mcpkit/mcp-engine-go/pkg/protocol"
)

// ToProtocolError converts any error into a wire error object. Non-engine
// errors become InternalError; their text is preserved in the message.
func ToProtocolError(err error) *protocol.Error {
	if err == nil {
		return nil
	}

	if protoErr, ok := err.(*protocol.Error); ok {
		return protoErr
	}

	if mcpErr, ok := AsMCPError(err); ok {
		return &protocol.Error{
			Code:    mcpErr.Code(),
			Message: mcpErr.Message(),
			Data:    mcpErr.Data(),
		}
	}

	return &protocol.Error{
		Code:    CodeInternalError,
		Message: err.Error(),
	}
}

// FromProtocolError converts a wire error object back into an MCPError so
// callers can classify it by code and category.
func FromProtocolError(protoErr *protocol.Error) MCPError {
	if protoErr == nil {
		return nil
	}

	category := CategoryProtocol
	severity := SeverityError
	switch protoErr.Code {
	case CodeCancelled:
		category, severity = CategoryCancelled, SeverityInfo
	case CodeTimeout:
		category = CategoryTimeout
	case CodeNotInitialized, CodeSessionClosed, CodeIncompatibleVersion:
		category = CategorySession
	case CodeInternalError:
		category = CategoryInternal
	}

	return New(protoErr.Code, protoErr.Message, category, severity).
		WithData(protoErr.Data)
}
