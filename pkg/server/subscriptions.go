package server

import (
	"sync"

	"github.com/gobwas/glob"

	mcperrors "github.com/mcpkit/mcp-engine-go/pkg/errors"
)

// subscriptionSet holds the client's resource subscriptions. Patterns use
// glob syntax, so one subscription can cover a family of URIs; a plain URI
// is its own pattern.
type subscriptionSet struct {
	mu       sync.RWMutex
	patterns map[string]glob.Glob
}

func newSubscriptionSet() *subscriptionSet {
	return &subscriptionSet{patterns: make(map[string]glob.Glob)}
}

// add compiles and stores a pattern. Re-subscribing to the same pattern is
// a no-op.
func (s *subscriptionSet) add(pattern string) error {
	g, err := glob.Compile(pattern)
	if err != nil {
		return mcperrors.New(mcperrors.CodeInvalidParams, "invalid subscription pattern",
			mcperrors.CategoryValidation, mcperrors.SeverityError).WithDetail(err.Error())
	}

	s.mu.Lock()
	s.patterns[pattern] = g
	s.mu.Unlock()
	return nil
}

func (s *subscriptionSet) remove(pattern string) {
	s.mu.Lock()
	delete(s.patterns, pattern)
	s.mu.Unlock()
}

// matches reports whether any subscription covers the URI.
func (s *subscriptionSet) matches(uri string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.patterns {
		if g.Match(uri) {
			return true
		}
	}
	return false
}

func (s *subscriptionSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patterns)
}
