package registry

import (
	"context"
	"sort"
	"strings"

	mcperrors "github.com/mcpkit/mcp-engine-go/pkg/errors"
	"github.com/mcpkit/mcp-engine-go/pkg/protocol"
)

// PromptRenderer produces the messages for a prompt from its validated
// arguments. Entries without a renderer are rendered from their message
// templates by placeholder substitution.
type PromptRenderer func(ctx context.Context, args map[string]string) ([]protocol.PromptMessage, error)

// PromptEntry binds a prompt descriptor to its message templates or
// renderer, plus the candidate value domain each argument offers to
// completion.
type PromptEntry struct {
	Prompt   protocol.Prompt
	Messages []protocol.PromptMessage
	Renderer PromptRenderer

	// ArgumentDomains maps an argument name to its completable values in
	// preference order. Arguments without a domain complete to nothing.
	ArgumentDomains map[string][]string
}

// PromptRegistry holds the session's prompt templates.
type PromptRegistry struct {
	entries *collection[PromptEntry]
}

// NewPromptRegistry creates an empty prompt registry
func NewPromptRegistry() *PromptRegistry {
	return &PromptRegistry{
		entries: newCollection("prompts", func(e PromptEntry) string { return e.Prompt.Name }),
	}
}

// OnListChanged installs the listener fired after every register or
// unregister commit.
func (r *PromptRegistry) OnListChanged(listener ChangeListener) {
	r.entries.setChangeListener(listener)
}

// Register adds a prompt under its unique name
func (r *PromptRegistry) Register(entry PromptEntry) error {
	if entry.Prompt.Name == "" {
		return mcperrors.New(mcperrors.CodeArgumentValidation, "prompt name must not be empty",
			mcperrors.CategoryValidation, mcperrors.SeverityError)
	}
	return r.entries.register(entry)
}

// Unregister removes a prompt by name
func (r *PromptRegistry) Unregister(name string) error {
	return r.entries.unregister(name)
}

// Get returns the entry for a prompt name
func (r *PromptRegistry) Get(name string) (PromptEntry, error) {
	return r.entries.get(name)
}

// List returns one page of prompt descriptors in registration order.
func (r *PromptRegistry) List(cursor string, limit int) *protocol.ListPromptsResult {
	page, next := r.entries.page(cursor, limit)
	prompts := make([]protocol.Prompt, len(page))
	for i, e := range page {
		prompts[i] = e.Prompt
	}
	return &protocol.ListPromptsResult{Prompts: prompts, NextCursor: next}
}

// Render validates the supplied arguments against the prompt's declared
// argument list and produces the rendered messages. Missing required
// arguments and arguments the prompt never declared both fail validation.
func (r *PromptRegistry) Render(ctx context.Context, params *protocol.GetPromptParams) (*protocol.GetPromptResult, error) {
	entry, err := r.entries.get(params.Name)
	if err != nil {
		return nil, err
	}

	declared := make(map[string]bool, len(entry.Prompt.Arguments))
	var missing []string
	for _, arg := range entry.Prompt.Arguments {
		declared[arg.Name] = true
		if arg.Required {
			if _, ok := params.Arguments[arg.Name]; !ok {
				missing = append(missing, arg.Name)
			}
		}
	}
	var invalid []string
	for name := range params.Arguments {
		if !declared[name] {
			invalid = append(invalid, name)
		}
	}
	if len(missing) > 0 || len(invalid) > 0 {
		sort.Strings(missing)
		sort.Strings(invalid)
		return nil, mcperrors.ArgumentValidation(params.Name, missing, invalid)
	}

	messages := entry.Messages
	if entry.Renderer != nil {
		messages, err = entry.Renderer(ctx, params.Arguments)
		if err != nil {
			return nil, err
		}
	} else {
		messages = substituteMessages(messages, params.Arguments)
	}

	return &protocol.GetPromptResult{
		Description: entry.Prompt.Description,
		Messages:    messages,
	}, nil
}

// Len returns the number of registered prompts
func (r *PromptRegistry) Len() int {
	return r.entries.len()
}

// substituteMessages expands {name} placeholders in text content.
// Placeholders for absent optional arguments are left verbatim.
func substituteMessages(templates []protocol.PromptMessage, args map[string]string) []protocol.PromptMessage {
	pairs := make([]string, 0, len(args)*2)
	for name, value := range args {
		pairs = append(pairs, "{"+name+"}", value)
	}
	replacer := strings.NewReplacer(pairs...)

	out := make([]protocol.PromptMessage, len(templates))
	for i, msg := range templates {
		if msg.Content.Type == "text" {
			msg.Content.Text = replacer.Replace(msg.Content.Text)
		}
		out[i] = msg
	}
	return out
}
