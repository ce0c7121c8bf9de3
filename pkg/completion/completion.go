// Package completion implements argument autocompletion for prompts and
// resource templates.
//
// Candidate values come from the domains declared at registration time. A
// request names a prompt or resource template, the argument being typed, and
// the partial value; the engine answers with the domain values that start
// with the partial value, in the order the domain declared them.
package completion

import (
	"strings"

	mcperrors "github.com/mcpkit/mcp-engine-go/pkg/errors"
	"github.com/mcpkit/mcp-engine-go/pkg/protocol"
	"github.com/mcpkit/mcp-engine-go/pkg/registry"
)

// MaxValues caps the number of candidates returned in one response. The
// full match count is still reported through Total and HasMore.
const MaxValues = 100

// Engine resolves completion requests against the prompt and resource
// registries.
type Engine struct {
	prompts   *registry.PromptRegistry
	resources *registry.ResourceRegistry
}

// NewEngine creates a completion engine. Either registry may be nil when
// the session does not serve that feature area.
func NewEngine(prompts *registry.PromptRegistry, resources *registry.ResourceRegistry) *Engine {
	return &Engine{prompts: prompts, resources: resources}
}

// Complete answers one completion/complete request. A reference that names
// no registered prompt or template fails with UnknownReference; an argument
// without a declared domain completes to the empty set.
func (e *Engine) Complete(params *protocol.CompleteParams) (*protocol.CompleteResult, error) {
	domain, err := e.domainFor(params.Ref, params.Argument.Name)
	if err != nil {
		return nil, err
	}

	var matches []string
	for _, candidate := range domain {
		if strings.HasPrefix(candidate, params.Argument.Value) {
			matches = append(matches, candidate)
		}
	}

	total := len(matches)
	hasMore := false
	if total > MaxValues {
		matches = matches[:MaxValues]
		hasMore = true
	}
	if matches == nil {
		matches = []string{}
	}

	return &protocol.CompleteResult{
		Completion: protocol.CompletionResult{
			Values:  matches,
			Total:   total,
			HasMore: hasMore,
		},
	}, nil
}

func (e *Engine) domainFor(ref protocol.CompletionReference, argument string) ([]string, error) {
	switch ref.Type {
	case protocol.CompletionRefPrompt:
		if e.prompts == nil {
			return nil, mcperrors.UnknownReference(ref.Name)
		}
		entry, err := e.prompts.Get(ref.Name)
		if err != nil {
			return nil, mcperrors.UnknownReference(ref.Name)
		}
		return entry.ArgumentDomains[argument], nil

	case protocol.CompletionRefResource:
		if e.resources == nil {
			return nil, mcperrors.UnknownReference(ref.URI)
		}
		entry, err := e.resources.GetTemplate(ref.URI)
		if err != nil {
			return nil, mcperrors.UnknownReference(ref.URI)
		}
		return entry.VariableDomains[argument], nil

	default:
		return nil, mcperrors.UnknownReference(ref.Type)
	}
}
