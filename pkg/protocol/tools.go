package protocol

import "encoding/json"

// Tool represents a tool in the MCP protocol
type Tool struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description,omitempty"`
	InputSchema json.RawMessage            `json:"inputSchema"`
	Annotations map[string]json.RawMessage `json:"annotations,omitempty"`
}

// ListToolsParams defines parameters for listing tools
type ListToolsParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ListToolsResult defines the response for listing tools
type ListToolsResult struct {
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// CallToolParams defines parameters for calling a tool
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// CallToolResult defines the response for tool calls. IsError distinguishes
// a tool-level failure (reported in content) from a protocol error.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content is one role-free content block in a tool result or prompt message:
// text, image, audio, or an embedded resource.
type Content struct {
	Type     string           `json:"type"`
	Text     string           `json:"text,omitempty"`
	Data     string           `json:"data,omitempty"`
	MimeType string           `json:"mimeType,omitempty"`
	Resource *ResourceContent `json:"resource,omitempty"`
}

// TextContent builds a text content block
func TextContent(text string) Content {
	return Content{Type: "text", Text: text}
}

// ImageContent builds an image content block from base64 data
func ImageContent(data, mimeType string) Content {
	return Content{Type: "image", Data: data, MimeType: mimeType}
}

// ResourceContentBlock builds an embedded-resource content block
func ResourceContentBlock(resource ResourceContent) Content {
	return Content{Type: "resource", Resource: &resource}
}

// ToolsListChangedParams defines parameters for the tools list_changed
// notification
type ToolsListChangedParams struct{}
