package registry

import (
	"context"
	"encoding/json"

	mcperrors "github.com/mcpkit/mcp-engine-go/pkg/errors"
	"github.com/mcpkit/mcp-engine-go/pkg/protocol"
)

// ToolHandler executes a tool call. Arguments have already passed schema
// validation. Returning an error yields a protocol-level failure; a
// tool-level failure is reported inside the result with IsError set.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (*protocol.CallToolResult, error)

// ToolEntry binds a tool descriptor to its handler.
type ToolEntry struct {
	Tool    protocol.Tool
	Handler ToolHandler
}

// ToolRegistry holds the session's callable tools.
type ToolRegistry struct {
	entries *collection[ToolEntry]
}

// NewToolRegistry creates an empty tool registry
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		entries: newCollection("tools", func(e ToolEntry) string { return e.Tool.Name }),
	}
}

// OnListChanged installs the listener fired after every register or
// unregister commit.
func (r *ToolRegistry) OnListChanged(listener ChangeListener) {
	r.entries.setChangeListener(listener)
}

// Register adds a tool under its unique name
func (r *ToolRegistry) Register(tool protocol.Tool, handler ToolHandler) error {
	if tool.Name == "" {
		return mcperrors.New(mcperrors.CodeArgumentValidation, "tool name must not be empty",
			mcperrors.CategoryValidation, mcperrors.SeverityError)
	}
	if handler == nil {
		return mcperrors.New(mcperrors.CodeArgumentValidation, "tool handler must not be nil",
			mcperrors.CategoryValidation, mcperrors.SeverityError)
	}
	return r.entries.register(ToolEntry{Tool: tool, Handler: handler})
}

// Unregister removes a tool by name
func (r *ToolRegistry) Unregister(name string) error {
	return r.entries.unregister(name)
}

// Get returns the entry for a tool name
func (r *ToolRegistry) Get(name string) (ToolEntry, error) {
	return r.entries.get(name)
}

// List returns one page of tool descriptors in registration order.
func (r *ToolRegistry) List(cursor string, limit int) *protocol.ListToolsResult {
	page, next := r.entries.page(cursor, limit)
	tools := make([]protocol.Tool, len(page))
	for i, e := range page {
		tools[i] = e.Tool
	}
	return &protocol.ListToolsResult{Tools: tools, NextCursor: next}
}

// Call validates the arguments against the tool's input schema and runs the
// handler. An unknown tool fails with EntryNotFound before any validation.
func (r *ToolRegistry) Call(ctx context.Context, params *protocol.CallToolParams) (*protocol.CallToolResult, error) {
	entry, err := r.entries.get(params.Name)
	if err != nil {
		return nil, err
	}

	args, err := validateArguments(params.Name, entry.Tool.InputSchema, params.Arguments)
	if err != nil {
		return nil, err
	}
	return entry.Handler(ctx, args)
}

// Len returns the number of registered tools
func (r *ToolRegistry) Len() int {
	return r.entries.len()
}

// RegisterTyped registers a tool whose input schema is generated from a
// typed argument struct.
func RegisterTyped[A any](r *ToolRegistry, name, description string, handler func(ctx context.Context, args A) (*protocol.CallToolResult, error)) error {
	var zero A
	schema, err := SchemaFor(zero)
	if err != nil {
		return err
	}
	return r.Register(protocol.Tool{
		Name:        name,
		Description: description,
		InputSchema: json.RawMessage(schema),
	}, func(ctx context.Context, raw map[string]interface{}) (*protocol.CallToolResult, error) {
		var args A
		if err := DecodeArguments(raw, &args); err != nil {
			return nil, mcperrors.ArgumentValidation(name, nil, nil).WithDetail(err.Error())
		}
		return handler(ctx, args)
	})
}
