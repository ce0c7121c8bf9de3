package registry

import (
	"context"

	"github.com/yosida95/uritemplate/v3"

	mcperrors "github.com/mcpkit/mcp-engine-go/pkg/errors"
	"github.com/mcpkit/mcp-engine-go/pkg/protocol"
)

// ResourceReader produces the contents for one resource URI. For template
// resources, vars carries the variables extracted from the matched URI.
type ResourceReader func(ctx context.Context, uri string, vars map[string]string) ([]protocol.ResourceContent, error)

// ResourceEntry binds a concrete resource descriptor to its reader.
type ResourceEntry struct {
	Resource protocol.Resource
	Reader   ResourceReader
}

// TemplateEntry binds a parameterized resource descriptor to its reader.
// The template is compiled once at registration.
type TemplateEntry struct {
	Template protocol.ResourceTemplate
	Reader   ResourceReader

	// VariableDomains maps a template variable name to its completable
	// values in preference order. Variables without a domain complete to
	// nothing.
	VariableDomains map[string][]string

	compiled *uritemplate.Template
}

// ResourceRegistry holds the session's readable resources: concrete entries
// keyed by URI and template entries keyed by their URI template.
type ResourceRegistry struct {
	static    *collection[ResourceEntry]
	templates *collection[TemplateEntry]
}

// NewResourceRegistry creates an empty resource registry
func NewResourceRegistry() *ResourceRegistry {
	return &ResourceRegistry{
		static:    newCollection("resources", func(e ResourceEntry) string { return e.Resource.URI }),
		templates: newCollection("resource templates", func(e TemplateEntry) string { return e.Template.URITemplate }),
	}
}

// OnListChanged installs the listener fired after any register or
// unregister commit, for concrete and template entries alike.
func (r *ResourceRegistry) OnListChanged(listener ChangeListener) {
	r.static.setChangeListener(listener)
	r.templates.setChangeListener(listener)
}

// Register adds a concrete resource under its unique URI
func (r *ResourceRegistry) Register(resource protocol.Resource, reader ResourceReader) error {
	if resource.URI == "" {
		return mcperrors.New(mcperrors.CodeArgumentValidation, "resource uri must not be empty",
			mcperrors.CategoryValidation, mcperrors.SeverityError)
	}
	if reader == nil {
		return mcperrors.New(mcperrors.CodeArgumentValidation, "resource reader must not be nil",
			mcperrors.CategoryValidation, mcperrors.SeverityError)
	}
	return r.static.register(ResourceEntry{Resource: resource, Reader: reader})
}

// RegisterTemplate adds a parameterized resource under its unique URI
// template. The template must be a valid RFC 6570 expression.
func (r *ResourceRegistry) RegisterTemplate(entry TemplateEntry) error {
	if entry.Reader == nil {
		return mcperrors.New(mcperrors.CodeArgumentValidation, "resource reader must not be nil",
			mcperrors.CategoryValidation, mcperrors.SeverityError)
	}
	compiled, err := uritemplate.New(entry.Template.URITemplate)
	if err != nil {
		return mcperrors.New(mcperrors.CodeArgumentValidation, "invalid uri template",
			mcperrors.CategoryValidation, mcperrors.SeverityError).WithDetail(err.Error())
	}
	entry.compiled = compiled
	return r.templates.register(entry)
}

// Unregister removes a concrete resource by URI
func (r *ResourceRegistry) Unregister(uri string) error {
	return r.static.unregister(uri)
}

// UnregisterTemplate removes a template entry by its URI template
func (r *ResourceRegistry) UnregisterTemplate(uriTemplate string) error {
	return r.templates.unregister(uriTemplate)
}

// Get returns the concrete entry for a URI
func (r *ResourceRegistry) Get(uri string) (ResourceEntry, error) {
	return r.static.get(uri)
}

// GetTemplate returns the template entry registered under a URI template
func (r *ResourceRegistry) GetTemplate(uriTemplate string) (TemplateEntry, error) {
	return r.templates.get(uriTemplate)
}

// List returns one page of concrete resource descriptors in registration
// order.
func (r *ResourceRegistry) List(cursor string, limit int) *protocol.ListResourcesResult {
	page, next := r.static.page(cursor, limit)
	resources := make([]protocol.Resource, len(page))
	for i, e := range page {
		resources[i] = e.Resource
	}
	return &protocol.ListResourcesResult{Resources: resources, NextCursor: next}
}

// ListTemplates returns one page of template descriptors in registration
// order.
func (r *ResourceRegistry) ListTemplates(cursor string, limit int) *protocol.ListResourceTemplatesResult {
	page, next := r.templates.page(cursor, limit)
	templates := make([]protocol.ResourceTemplate, len(page))
	for i, e := range page {
		templates[i] = e.Template
	}
	return &protocol.ListResourceTemplatesResult{ResourceTemplates: templates, NextCursor: next}
}

// Read resolves a URI and produces its contents. Concrete entries win over
// templates; templates are tried in registration order and the first match
// is read with its extracted variables. An unresolvable URI fails with
// ResourceNotFound.
func (r *ResourceRegistry) Read(ctx context.Context, params *protocol.ReadResourceParams) (*protocol.ReadResourceResult, error) {
	if entry, err := r.static.get(params.URI); err == nil {
		contents, err := entry.Reader(ctx, params.URI, nil)
		if err != nil {
			return nil, err
		}
		return &protocol.ReadResourceResult{Contents: contents}, nil
	}

	for _, entry := range r.templates.snapshot() {
		vars, ok := matchTemplate(entry.compiled, params.URI)
		if !ok {
			continue
		}
		contents, err := entry.Reader(ctx, params.URI, vars)
		if err != nil {
			return nil, err
		}
		return &protocol.ReadResourceResult{Contents: contents}, nil
	}

	return nil, mcperrors.ResourceNotFound(params.URI)
}

// Len returns the number of concrete resources
func (r *ResourceRegistry) Len() int {
	return r.static.len()
}

// TemplateLen returns the number of template entries
func (r *ResourceRegistry) TemplateLen() int {
	return r.templates.len()
}

// matchTemplate extracts string variables from a URI that matches the
// compiled template. List and map values from the RFC 6570 grammar are
// skipped; resource templates here only use simple string expansion.
func matchTemplate(tmpl *uritemplate.Template, uri string) (map[string]string, bool) {
	values := tmpl.Match(uri)
	if values == nil {
		return nil, false
	}
	vars := make(map[string]string)
	for _, name := range tmpl.Varnames() {
		value := values.Get(name)
		if value.Valid() && value.T == uritemplate.ValueTypeString {
			vars[name] = value.String()
		}
	}
	return vars, true
}
