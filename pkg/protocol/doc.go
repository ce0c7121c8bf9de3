// Package protocol defines the wire representation of the Model Context
// Protocol: the JSON-RPC 2.0 envelope and codec, the method surface, the
// negotiable capability map, and the typed parameter/result shapes for each
// feature area.
//
// The codec is framing-agnostic. It turns one already-framed byte slice into
// exactly one envelope (request, response, or notification) and back; how
// frames cross a wire is the transport's concern.
package protocol
