// Package mcp provides a Golang implementation of the Model Context Protocol message engine
package mcp

import (
	"github.com/mcpkit/mcp-engine-go/pkg/client"
	"github.com/mcpkit/mcp-engine-go/pkg/protocol"
	"github.com/mcpkit/mcp-engine-go/pkg/registry"
	"github.com/mcpkit/mcp-engine-go/pkg/server"
	"github.com/mcpkit/mcp-engine-go/pkg/transport"
)

// Version represents the current version of the engine
const Version = "1.0.0"

// These exports provide direct access to the core components
var (
	// NewClient creates a new MCP client
	NewClient = client.New

	// NewServer creates a new MCP server
	NewServer = server.New

	// NewStdioTransport creates a new stdio transport
	NewStdioTransport = transport.NewStdioTransport

	// NewInMemPair creates a connected in-process transport pair
	NewInMemPair = transport.NewInMemPair

	// NewToolRegistry creates an empty tool registry
	NewToolRegistry = registry.NewToolRegistry

	// NewResourceRegistry creates an empty resource registry
	NewResourceRegistry = registry.NewResourceRegistry

	// NewPromptRegistry creates an empty prompt registry
	NewPromptRegistry = registry.NewPromptRegistry
)

// Protocol constants for capabilities
const (
	CapabilityTools      = protocol.CapabilityTools
	CapabilityResources  = protocol.CapabilityResources
	CapabilityPrompts    = protocol.CapabilityPrompts
	CapabilityCompletion = protocol.CapabilityCompletion
	CapabilitySampling   = protocol.CapabilitySampling
	CapabilityLogging    = protocol.CapabilityLogging
)

// Client options
var (
	WithClientInfo      = client.WithClientInfo
	WithSamplingHandler = client.WithSamplingHandler
	WithClientLogger    = client.WithLogger
	OnToolsListChanged  = client.OnToolsListChanged
	OnResourceUpdated   = client.OnResourceUpdated
	OnProgress          = client.OnProgress
	OnLog               = client.OnLog
)

// Server options
var (
	WithServerInfo       = server.WithServerInfo
	WithInstructions     = server.WithInstructions
	WithToolRegistry     = server.WithToolRegistry
	WithResourceRegistry = server.WithResourceRegistry
	WithPromptRegistry   = server.WithPromptRegistry
	WithServerLogger     = server.WithLogger
	WithLogForwarding    = server.WithLogForwarding
	WithMetrics          = server.WithMetrics
)
