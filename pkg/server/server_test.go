package server_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpkit/mcp-engine-go/pkg/client"
	mcperrors "github.com/mcpkit/mcp-engine-go/pkg/errors"
	"github.com/mcpkit/mcp-engine-go/pkg/protocol"
	"github.com/mcpkit/mcp-engine-go/pkg/registry"
	"github.com/mcpkit/mcp-engine-go/pkg/server"
	"github.com/mcpkit/mcp-engine-go/pkg/session"
	"github.com/mcpkit/mcp-engine-go/pkg/transport"
)

// harness wires a server and client over an in-memory transport pair and
// runs both loops for the duration of a test.
type harness struct {
	server *server.Server
	client *client.Client
	cancel context.CancelFunc
}

func newHarness(t *testing.T, serverOpts []server.Option, clientOpts []client.Option) *harness {
	t.Helper()

	st, ct := transport.NewInMemPair()
	srv := server.New(st, serverOpts...)
	cli := client.New(ct, clientOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Serve(ctx) }()
	go func() { _ = cli.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		_ = st.Close()
		_ = ct.Close()
	})
	return &harness{server: srv, client: cli, cancel: cancel}
}

func echoRegistry(t *testing.T) *registry.ToolRegistry {
	t.Helper()

	tools := registry.NewToolRegistry()
	err := tools.Register(protocol.Tool{
		Name:        "echo",
		Description: "echoes its input",
		InputSchema: []byte(`{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`),
	}, func(ctx context.Context, args map[string]interface{}) (*protocol.CallToolResult, error) {
		text, _ := args["text"].(string)
		return &protocol.CallToolResult{Content: []protocol.Content{protocol.TextContent(text)}}, nil
	})
	require.NoError(t, err)
	return tools
}

func TestToolsOnlySession(t *testing.T) {
	h := newHarness(t,
		[]server.Option{
			server.WithServerInfo("test-server", "1.2.3"),
			server.WithToolRegistry(echoRegistry(t)),
		},
		[]client.Option{client.WithClientInfo("test-client", "0.0.1")},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := h.client.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test-server", result.ServerInfo.Name)
	assert.True(t, result.Capabilities.Has(protocol.CapabilityTools))
	assert.False(t, result.Capabilities.Has(protocol.CapabilityPrompts))
	assert.Equal(t, session.StateActive, h.client.Session().State())

	t.Run("list and call", func(t *testing.T) {
		tools, err := h.client.ListTools(ctx, "")
		require.NoError(t, err)
		require.Len(t, tools.Tools, 1)
		assert.Equal(t, "echo", tools.Tools[0].Name)
		assert.Empty(t, tools.NextCursor)

		callResult, err := h.client.CallTool(ctx, "echo", map[string]interface{}{"text": "hello"})
		require.NoError(t, err)
		require.Len(t, callResult.Content, 1)
		assert.Equal(t, "hello", callResult.Content[0].Text)
	})

	t.Run("invalid arguments surface as validation errors", func(t *testing.T) {
		_, err := h.client.CallTool(ctx, "echo", map[string]interface{}{"text": 7})
		require.Error(t, err)
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeArgumentValidation))
	})

	t.Run("unnegotiated area rejected client side", func(t *testing.T) {
		_, err := h.client.ListPrompts(ctx, "")
		require.Error(t, err)
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeCapabilityNotNegotiated))

		_, err = h.client.ListResources(ctx, "")
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeCapabilityNotNegotiated))
	})

	t.Run("ping works both ways", func(t *testing.T) {
		require.NoError(t, h.client.Ping(ctx))
		require.NoError(t, h.server.Ping(ctx))
	})
}

func TestRequestBeforeInitializeRejected(t *testing.T) {
	h := newHarness(t,
		[]server.Option{server.WithToolRegistry(echoRegistry(t))},
		nil,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// No handshake yet; tools/list is rejected by the client's own gate
	// before it ever touches the wire.
	_, err := h.client.ListTools(ctx, "")
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeNotInitialized))
}

func TestPromptsAndCompletion(t *testing.T) {
	prompts := registry.NewPromptRegistry()
	require.NoError(t, prompts.Register(registry.PromptEntry{
		Prompt: protocol.Prompt{
			Name:        "code_review",
			Description: "Review a snippet of code",
			Arguments:   []protocol.PromptArgument{{Name: "language", Required: true}},
		},
		Messages: []protocol.PromptMessage{
			{Role: protocol.RoleUser, Content: protocol.TextContent("Review this {language} code.")},
		},
		ArgumentDomains: map[string][]string{
			"language": {"python", "go", "pytorch", "rust", "pyside"},
		},
	}))

	h := newHarness(t,
		[]server.Option{server.WithPromptRegistry(prompts)},
		nil,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := h.client.Initialize(ctx)
	require.NoError(t, err)
	assert.True(t, result.Capabilities.Has(protocol.CapabilityPrompts))
	assert.True(t, result.Capabilities.Has(protocol.CapabilityCompletion))

	rendered, err := h.client.GetPrompt(ctx, "code_review", map[string]string{"language": "go"})
	require.NoError(t, err)
	require.Len(t, rendered.Messages, 1)
	assert.Equal(t, "Review this go code.", rendered.Messages[0].Content.Text)

	completed, err := h.client.Complete(ctx,
		protocol.CompletionReference{Type: protocol.CompletionRefPrompt, Name: "code_review"},
		protocol.CompletionArgument{Name: "language", Value: "py"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"python", "pytorch", "pyside"}, completed.Completion.Values)
	assert.False(t, completed.Completion.HasMore)
}

func TestResourceSubscriptions(t *testing.T) {
	resources := registry.NewResourceRegistry()
	require.NoError(t, resources.Register(
		protocol.Resource{URI: "file:///logs/app.log", Name: "app log"},
		func(ctx context.Context, uri string, vars map[string]string) ([]protocol.ResourceContent, error) {
			return []protocol.ResourceContent{{URI: uri, Text: "log body"}}, nil
		},
	))

	var mu sync.Mutex
	var updated []string
	h := newHarness(t,
		[]server.Option{server.WithResourceRegistry(resources)},
		[]client.Option{client.OnResourceUpdated(func(uri string) {
			mu.Lock()
			updated = append(updated, uri)
			mu.Unlock()
		})},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := h.client.Initialize(ctx)
	require.NoError(t, err)

	read, err := h.client.ReadResource(ctx, "file:///logs/app.log")
	require.NoError(t, err)
	assert.Equal(t, "log body", read.Contents[0].Text)

	require.NoError(t, h.client.SubscribeResource(ctx, "file:///logs/*.log"))

	h.server.NotifyResourceUpdated(ctx, "file:///logs/app.log")
	h.server.NotifyResourceUpdated(ctx, "file:///config/app.yaml")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(updated) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"file:///logs/app.log"}, updated)
	mu.Unlock()

	require.NoError(t, h.client.UnsubscribeResource(ctx, "file:///logs/*.log"))
	h.server.NotifyResourceUpdated(ctx, "file:///logs/app.log")

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Len(t, updated, 1)
	mu.Unlock()
}

func TestSamplingRoundTrip(t *testing.T) {
	h := newHarness(t,
		[]server.Option{server.WithToolRegistry(echoRegistry(t))},
		[]client.Option{client.WithSamplingHandler(func(ctx context.Context, params *protocol.CreateMessageParams) (*protocol.CreateMessageResult, error) {
			return &protocol.CreateMessageResult{
				Role:    protocol.RoleAssistant,
				Content: protocol.TextContent("sampled reply"),
				Model:   "test-model",
			}, nil
		})},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := h.client.Initialize(ctx)
	require.NoError(t, err)

	result, err := h.server.CreateMessage(ctx, &protocol.CreateMessageParams{
		Messages: []protocol.SamplingMessage{
			{Role: protocol.RoleUser, Content: protocol.TextContent("say something")},
		},
		MaxTokens: 64,
	})
	require.NoError(t, err)
	assert.Equal(t, "sampled reply", result.Content.Text)
	assert.Equal(t, "test-model", result.Model)
}

func TestSamplingRequiresClientCapability(t *testing.T) {
	h := newHarness(t,
		[]server.Option{server.WithToolRegistry(echoRegistry(t))},
		nil, // no sampling handler, so no sampling capability
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := h.client.Initialize(ctx)
	require.NoError(t, err)

	_, err = h.server.CreateMessage(ctx, &protocol.CreateMessageParams{MaxTokens: 16})
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeCapabilityNotNegotiated))
}

func TestCancelLongRunningTool(t *testing.T) {
	started := make(chan struct{})
	tools := registry.NewToolRegistry()
	require.NoError(t, tools.Register(protocol.Tool{
		Name:        "slow",
		InputSchema: []byte(`{"type":"object"}`),
	}, func(ctx context.Context, args map[string]interface{}) (*protocol.CallToolResult, error) {
		close(started)
		<-ctx.Done()
		return nil, mcperrors.Cancelled("slow")
	}))

	h := newHarness(t,
		[]server.Option{server.WithToolRegistry(tools)},
		nil,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := h.client.Initialize(ctx)
	require.NoError(t, err)

	callErr := make(chan error, 1)
	go func() {
		_, err := h.client.CallTool(ctx, "slow", map[string]interface{}{})
		callErr <- err
	}()

	<-started
	// Request ids are assigned in call order: initialize was 1, the tool
	// call is 2.
	require.NoError(t, h.client.CancelRequest(ctx, int64(2), "test cancellation"))

	select {
	case err := <-callErr:
		require.Error(t, err)
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeCancelled))
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled call never settled")
	}
}

func TestListChangedNotification(t *testing.T) {
	tools := echoRegistry(t)

	changed := make(chan struct{}, 1)
	h := newHarness(t,
		[]server.Option{server.WithToolRegistry(tools)},
		[]client.Option{client.OnToolsListChanged(func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := h.client.Initialize(ctx)
	require.NoError(t, err)

	require.NoError(t, tools.Register(protocol.Tool{
		Name:        "added-later",
		InputSchema: []byte(`{"type":"object"}`),
	}, func(ctx context.Context, args map[string]interface{}) (*protocol.CallToolResult, error) {
		return &protocol.CallToolResult{}, nil
	}))

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("list_changed never arrived")
	}
}
