// Package mcp implements the message-exchange engine of the Model Context
// Protocol: JSON-RPC envelopes, the initialize handshake with capability
// negotiation, request correlation, capability-gated dispatch, and the
// registries behind the tools, resources, prompts and completion features.
//
// # Overview
//
// The engine consists of several sub-packages:
//
//   - pkg/protocol: envelope codec, protocol types, version and capability tables
//   - pkg/correlation: outstanding-request table with exactly-once settlement
//   - pkg/session: handshake state machine and capability-gated dispatcher
//   - pkg/registry: tool, resource and prompt registries
//   - pkg/completion: argument completion over registry domains
//   - pkg/server, pkg/client: the two peers wired over a transport
//   - pkg/transport: stdio and in-process framing
//
// # Creating a Client
//
//	import (
//	    "context"
//	    mcp "github.com/mcpkit/mcp-engine-go"
//	)
//
//	func main() {
//	    c := mcp.NewClient(
//	        mcp.NewStdioTransport(),
//	        mcp.WithClientInfo("my-client", "1.0.0"),
//	    )
//
//	    ctx := context.Background()
//	    go c.Run(ctx)
//	    if _, err := c.Initialize(ctx); err != nil {
//	        // Handle error
//	    }
//	    defer c.Close()
//
//	    tools, err := c.ListTools(ctx, "")
//	    _ = tools
//	    _ = err
//	}
//
// # Creating a Server
//
//	func main() {
//	    tools := mcp.NewToolRegistry()
//	    tools.Register(protocol.Tool{
//	        Name:        "echo",
//	        Description: "Echoes its input back",
//	    }, func(ctx context.Context, args map[string]interface{}) (*protocol.CallToolResult, error) {
//	        return &protocol.CallToolResult{
//	            Content: []protocol.Content{protocol.TextContent(args["text"].(string))},
//	        }, nil
//	    })
//
//	    s := mcp.NewServer(
//	        mcp.NewStdioTransport(),
//	        mcp.WithServerInfo("my-server", "1.0.0"),
//	        mcp.WithToolRegistry(tools),
//	    )
//
//	    if err := s.Serve(context.Background()); err != nil {
//	        // Handle error
//	    }
//	}
//
// # Examples
//
// The examples directory contains runnable programs:
//
//   - simple-server: a stdio server exposing tools, resources and prompts
//   - simple-client: a client driving the full feature surface over stdio
package mcp
