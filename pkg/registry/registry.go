// Package registry implements the per-session feature registries for tools,
// resources, and prompts.
//
// Every registry shares one discipline: entries are named, unique, and kept
// in stable registration order; mutations are applied atomically under the
// registry lock and bump a version counter; enumeration pages through a
// copy-on-read snapshot with opaque cursors scoped to the version that
// issued them. A cursor from a stale version deterministically restarts the
// enumeration at the first page.
package registry

import (
	"sync"

	mcperrors "github.com/mcpkit/mcp-engine-go/pkg/errors"
	"github.com/mcpkit/mcp-engine-go/pkg/pagination"
)

// ChangeListener is invoked after a structural change (register or
// unregister) commits. Registries use it to emit list_changed
// notifications; it runs outside the registry lock.
type ChangeListener func()

// collection is the ordered, versioned store behind each registry.
type collection[E any] struct {
	mu        sync.RWMutex
	kind      string
	entries   []E
	index     map[string]int
	version   uint64
	nameOf    func(E) string
	onChanged ChangeListener
}

func newCollection[E any](kind string, nameOf func(E) string) *collection[E] {
	return &collection[E]{
		kind:   kind,
		index:  make(map[string]int),
		nameOf: nameOf,
	}
}

func (c *collection[E]) setChangeListener(listener ChangeListener) {
	c.mu.Lock()
	c.onChanged = listener
	c.mu.Unlock()
}

func (c *collection[E]) register(e E) error {
	name := c.nameOf(e)

	c.mu.Lock()
	if _, exists := c.index[name]; exists {
		c.mu.Unlock()
		return mcperrors.DuplicateName(c.kind, name)
	}
	c.index[name] = len(c.entries)
	c.entries = append(c.entries, e)
	c.version++
	listener := c.onChanged
	c.mu.Unlock()

	if listener != nil {
		listener()
	}
	return nil
}

func (c *collection[E]) unregister(name string) error {
	c.mu.Lock()
	pos, exists := c.index[name]
	if !exists {
		c.mu.Unlock()
		return mcperrors.EntryNotFound(c.kind, name)
	}
	c.entries = append(c.entries[:pos:pos], c.entries[pos+1:]...)
	delete(c.index, name)
	for i := pos; i < len(c.entries); i++ {
		c.index[c.nameOf(c.entries[i])] = i
	}
	c.version++
	listener := c.onChanged
	c.mu.Unlock()

	if listener != nil {
		listener()
	}
	return nil
}

func (c *collection[E]) get(name string) (E, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pos, exists := c.index[name]
	if !exists {
		var zero E
		return zero, mcperrors.EntryNotFound(c.kind, name)
	}
	return c.entries[pos], nil
}

// page enumerates one page in registration order. An invalid cursor, or one
// issued by an earlier registry version, falls back to a fresh first page.
func (c *collection[E]) page(token string, limit int) ([]E, string) {
	limit = pagination.ClampLimit(limit)

	c.mu.RLock()
	defer c.mu.RUnlock()

	offset := 0
	if token != "" {
		cursor, err := pagination.Decode(token)
		if err == nil && cursor.Version == c.version && cursor.Offset <= len(c.entries) {
			offset = cursor.Offset
		}
	}

	end := offset + limit
	if end > len(c.entries) {
		end = len(c.entries)
	}
	out := make([]E, end-offset)
	copy(out, c.entries[offset:end])

	next := ""
	if end < len(c.entries) {
		next = pagination.Encode(pagination.Cursor{Offset: end, Version: c.version})
	}
	return out, next
}

// snapshot copies the full entry list in registration order.
func (c *collection[E]) snapshot() []E {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]E, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *collection[E]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
