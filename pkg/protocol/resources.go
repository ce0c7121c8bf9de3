package protocol

import "encoding/json"

// Resource represents a resource that can be read by the client
type Resource struct {
	URI         string                     `json:"uri"`
	Name        string                     `json:"name"`
	Description string                     `json:"description,omitempty"`
	MimeType    string                     `json:"mimeType,omitempty"`
	Size        int64                      `json:"size,omitempty"`
	Annotations map[string]json.RawMessage `json:"annotations,omitempty"`
}

// ResourceTemplate represents a parameterized resource identified by an
// RFC 6570 URI template
type ResourceTemplate struct {
	URITemplate string                     `json:"uriTemplate"`
	Name        string                     `json:"name"`
	Description string                     `json:"description,omitempty"`
	MimeType    string                     `json:"mimeType,omitempty"`
	Annotations map[string]json.RawMessage `json:"annotations,omitempty"`
}

// ResourceContent is the content of one resource: text or base64 binary
type ResourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// ListResourcesParams defines parameters for listing resources
type ListResourcesParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ListResourcesResult defines the response for listing resources
type ListResourcesResult struct {
	Resources  []Resource `json:"resources"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// ListResourceTemplatesParams defines parameters for listing resource
// templates
type ListResourceTemplatesParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ListResourceTemplatesResult defines the response for listing resource
// templates
type ListResourceTemplatesResult struct {
	ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
	NextCursor        string             `json:"nextCursor,omitempty"`
}

// ReadResourceParams defines parameters for reading a resource
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// ReadResourceResult defines the response for reading a resource
type ReadResourceResult struct {
	Contents []ResourceContent `json:"contents"`
}

// SubscribeResourceParams defines parameters for subscribing to resource
// updates. The URI may be a glob pattern.
type SubscribeResourceParams struct {
	URI string `json:"uri"`
}

// UnsubscribeResourceParams defines parameters for dropping a subscription
type UnsubscribeResourceParams struct {
	URI string `json:"uri"`
}

// ResourceUpdatedParams defines parameters for the resource updated
// notification
type ResourceUpdatedParams struct {
	URI string `json:"uri"`
}

// ResourcesListChangedParams defines parameters for the resources
// list_changed notification
type ResourcesListChangedParams struct{}
