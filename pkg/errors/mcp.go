package errors

import "fmt"

// CapabilityErrorData is attached to capability gating failures so the
// client can see which capability the session is missing.
type CapabilityErrorData struct {
	Capability string   `json:"capability"`
	Negotiated []string `json:"negotiated,omitempty"`
}

// VersionErrorData is attached to version negotiation failures as a
// recovery hint: the client may retry with one of the supported revisions.
type VersionErrorData struct {
	Requested string   `json:"requested"`
	Supported []string `json:"supported"`
}

// ValidationErrorData describes which arguments failed validation.
type ValidationErrorData struct {
	Entry   string   `json:"entry"`
	Missing []string `json:"missing,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
}

// NotInitialized reports a request dispatched before the initialization
// handshake completed.
func NotInitialized(method string) MCPError {
	return Newf(CodeNotInitialized, CategorySession, SeverityError,
		"session not initialized, cannot dispatch %q", method)
}

// SessionClosed reports an operation on a closed session.
func SessionClosed() MCPError {
	return New(CodeSessionClosed, "session is closed", CategorySession, SeverityError)
}

// IncompatibleVersion reports that version negotiation found no overlap.
// This is fatal to the session.
func IncompatibleVersion(requested string, supported []string) MCPError {
	return Newf(CodeIncompatibleVersion, CategorySession, SeverityCritical,
		"no mutually supported protocol version for %q", requested).
		WithData(&VersionErrorData{Requested: requested, Supported: supported})
}

// CapabilityNotNegotiated reports a request for a method whose capability is
// absent from the negotiated set. Request-level, never session-fatal.
func CapabilityNotNegotiated(capability string) MCPError {
	return Newf(CodeCapabilityNotNegotiated, CategoryProtocol, SeverityWarning,
		"capability %q was not negotiated for this session", capability).
		WithData(&CapabilityErrorData{Capability: capability})
}

// UnknownMethod reports a request for a method with no registered handler.
func UnknownMethod(method string) MCPError {
	return Newf(CodeMethodNotFound, CategoryProtocol, SeverityWarning,
		"unknown method %q", method)
}

// InvalidParams reports unparseable or missing request parameters.
func InvalidParams(method string, cause error) MCPError {
	return Wrap(cause, CodeInvalidParams,
		fmt.Sprintf("invalid parameters for %q", method),
		CategoryValidation, SeverityError)
}

// DuplicateIdentifier reports a request id registered while still
// outstanding.
func DuplicateIdentifier(id interface{}) MCPError {
	return Newf(CodeDuplicateIdentifier, CategoryProtocol, SeverityError,
		"request identifier %v is already outstanding", id)
}

// UnknownIdentifier reports a response for an id with no outstanding
// request. Stray responses are reported and discarded, never fatal.
func UnknownIdentifier(id interface{}) MCPError {
	return Newf(CodeUnknownIdentifier, CategoryProtocol, SeverityWarning,
		"no outstanding request with identifier %v", id)
}

// AlreadySettled reports a settlement attempt on an id that was already
// resolved, cancelled, or timed out.
func AlreadySettled(id interface{}) MCPError {
	return Newf(CodeAlreadySettled, CategoryProtocol, SeverityInfo,
		"request %v already settled", id)
}

// Cancelled reports a request settled by cancellation. This is an outcome,
// not a handler failure.
func Cancelled(id interface{}) MCPError {
	return Newf(CodeCancelled, CategoryCancelled, SeverityInfo,
		"request %v was cancelled", id)
}

// Timeout reports a request settled by the session timeout policy.
func Timeout(id interface{}) MCPError {
	return Newf(CodeTimeout, CategoryTimeout, SeverityError,
		"request %v timed out waiting for a response", id)
}

// DuplicateName reports a registration under a name that already exists in
// a registry.
func DuplicateName(registry, name string) MCPError {
	return Newf(CodeDuplicateName, CategoryValidation, SeverityError,
		"%s registry already holds an entry named %q", registry, name)
}

// EntryNotFound reports a lookup for a name absent from a registry.
func EntryNotFound(registry, name string) MCPError {
	return Newf(CodeEntryNotFound, CategoryNotFound, SeverityError,
		"%s %q not found", registry, name)
}

// ResourceNotFound reports a read of a URI no resource or template matches.
func ResourceNotFound(uri string) MCPError {
	return Newf(CodeResourceNotFound, CategoryNotFound, SeverityError,
		"resource %q not found", uri)
}

// InvalidCursor reports an unusable pagination cursor. Callers map this to
// a fresh first page rather than failing the enumeration.
func InvalidCursor(reason string) MCPError {
	return Newf(CodeInvalidCursor, CategoryValidation, SeverityWarning,
		"invalid pagination cursor: %s", reason)
}

// ArgumentValidation reports arguments that do not satisfy an entry's
// declared schema.
func ArgumentValidation(entry string, missing, invalid []string) MCPError {
	return Newf(CodeArgumentValidation, CategoryValidation, SeverityError,
		"arguments for %q failed validation", entry).
		WithData(&ValidationErrorData{Entry: entry, Missing: missing, Invalid: invalid})
}

// UnknownReference reports a completion reference naming a prompt,
// resource, or argument that does not exist.
func UnknownReference(ref string) MCPError {
	return Newf(CodeUnknownReference, CategoryNotFound, SeverityError,
		"unknown completion reference %s", ref)
}

// Internal reports an unexpected fault, including recovered handler panics.
func Internal(operation string, cause error) MCPError {
	return Wrap(cause, CodeInternalError,
		fmt.Sprintf("internal error in %s", operation),
		CategoryInternal, SeverityCritical)
}
