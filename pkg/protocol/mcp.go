package protocol

import "encoding/json"

// Method names, as they appear on the wire.
const (
	// Lifecycle
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"

	// Tools
	MethodListTools        = "tools/list"
	MethodCallTool         = "tools/call"
	MethodToolsListChanged = "notifications/tools/list_changed"

	// Resources
	MethodListResources         = "resources/list"
	MethodReadResource          = "resources/read"
	MethodListResourceTemplates = "resources/templates/list"
	MethodSubscribeResource     = "resources/subscribe"
	MethodUnsubscribeResource   = "resources/unsubscribe"
	MethodResourceUpdated       = "notifications/resources/updated"
	MethodResourcesListChanged  = "notifications/resources/list_changed"

	// Prompts
	MethodListPrompts        = "prompts/list"
	MethodGetPrompt          = "prompts/get"
	MethodPromptsListChanged = "notifications/prompts/list_changed"

	// Completion
	MethodComplete = "completion/complete"

	// Sampling (server -> client)
	MethodCreateMessage = "sampling/createMessage"

	// Utilities
	MethodCancelRequest = "$/cancelRequest"
	MethodProgress      = "notifications/progress"
	MethodPing          = "ping"
	MethodLog           = "notifications/log"
)

// Capability names a negotiable feature area.
type Capability string

const (
	CapabilityTools      Capability = "tools"
	CapabilityResources  Capability = "resources"
	CapabilityPrompts    Capability = "prompts"
	CapabilityCompletion Capability = "completion"
	CapabilitySampling   Capability = "sampling"
	CapabilityLogging    Capability = "logging"
)

// methodCapabilities maps each method to the capability that must have been
// negotiated before it may be dispatched. Methods absent from the table
// require no capability. The table is consulted before handler lookup, so a
// gated method is rejected even when no handler is registered for it.
var methodCapabilities = map[string]Capability{
	MethodListTools:             CapabilityTools,
	MethodCallTool:              CapabilityTools,
	MethodToolsListChanged:      CapabilityTools,
	MethodListResources:         CapabilityResources,
	MethodReadResource:          CapabilityResources,
	MethodListResourceTemplates: CapabilityResources,
	MethodSubscribeResource:     CapabilityResources,
	MethodUnsubscribeResource:   CapabilityResources,
	MethodResourceUpdated:       CapabilityResources,
	MethodResourcesListChanged:  CapabilityResources,
	MethodListPrompts:           CapabilityPrompts,
	MethodGetPrompt:             CapabilityPrompts,
	MethodPromptsListChanged:    CapabilityPrompts,
	MethodComplete:              CapabilityCompletion,
	MethodCreateMessage:         CapabilitySampling,
	MethodLog:                   CapabilityLogging,
}

// RequiredCapability returns the capability gating a method, or "" when the
// method is ungated (lifecycle and utility methods).
func RequiredCapability(method string) Capability {
	return methodCapabilities[method]
}

// ClientOwnedCapability reports whether a capability is declared by the
// client side of a session. Everything else is declared by the server.
func ClientOwnedCapability(c Capability) bool {
	return c == CapabilitySampling
}

// Capabilities is the open capability map negotiated for a session: name to
// structured descriptor. Unrecognized names, including everything under the
// experimental namespace, are preserved and forwarded untouched.
type Capabilities map[string]json.RawMessage

// Has reports whether a capability was declared.
func (c Capabilities) Has(name Capability) bool {
	_, ok := c[string(name)]
	return ok
}

// Clone returns a copy sharing no top-level structure with the original.
func (c Capabilities) Clone() Capabilities {
	if c == nil {
		return nil
	}
	out := make(Capabilities, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// ClientInfo identifies the client implementation
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerInfo identifies the server implementation
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeParams defines the parameters for the initialize request
type InitializeParams struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ClientInfo      ClientInfo   `json:"clientInfo"`
}

// InitializeResult defines the response for the initialize request
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Instructions    string       `json:"instructions,omitempty"`
}

// InitializedParams is sent as a notification once the client is ready
type InitializedParams struct{}

// CancelParams defines parameters for the $/cancelRequest notification
type CancelParams struct {
	ID     interface{} `json:"id"`
	Reason string      `json:"reason,omitempty"`
}

// ProgressParams defines parameters for the progress notification. A nil
// Percent reports indeterminate progress.
type ProgressParams struct {
	ID      interface{} `json:"id"`
	Message string      `json:"message,omitempty"`
	Percent *float64    `json:"percent,omitempty"`
}

// PingParams defines parameters for the ping request
type PingParams struct {
	Timestamp int64 `json:"timestamp,omitempty"`
}

// PingResult is the response for ping
type PingResult struct {
	Timestamp int64 `json:"timestamp"`
}

// LogLevel specifies the severity of log notifications
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogParams defines parameters for the log notification
type LogParams struct {
	Level   LogLevel    `json:"level"`
	Message string      `json:"message"`
	Source  string      `json:"source,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
