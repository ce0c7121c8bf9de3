// Package errors provides structured error handling for the engine. Errors
// carry a JSON-RPC error code, a category for classification, a severity,
// and optional structured data surfaced to the peer as recovery hints.
package errors

import (
	"errors"
	"fmt"
)

// Category classifies an error for handling policy: transport errors are
// fatal to a single frame, protocol and handler errors to a single request,
// session errors to the whole session.
type Category string

const (
	CategoryTransport  Category = "transport"
	CategoryProtocol   Category = "protocol"
	CategorySession    Category = "session"
	CategoryHandler    Category = "handler"
	CategoryValidation Category = "validation"
	CategoryNotFound   Category = "not_found"
	CategoryCancelled  Category = "cancelled"
	CategoryTimeout    Category = "timeout"
	CategoryInternal   Category = "internal"
)

// Severity indicates how critical an error is
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// MCPError is the interface implemented by all engine errors
type MCPError interface {
	error

	// Code returns the JSON-RPC error code
	Code() int

	// Message returns a human-readable error message
	Message() string

	// Detail returns additional technical detail for debugging
	Detail() string

	// Data returns structured error data for the wire error object
	Data() interface{}

	// Category returns the error category for handling policy
	Category() Category

	// Severity returns the error severity level
	Severity() Severity

	// WithDetail returns a copy of the error with additional detail
	WithDetail(detail string) MCPError

	// WithData returns a copy of the error with structured data attached
	WithData(data interface{}) MCPError

	// Unwrap returns the underlying cause, if any
	Unwrap() error
}

type baseError struct {
	code     int
	message  string
	detail   string
	data     interface{}
	category Category
	severity Severity
	cause    error
}

func (e *baseError) Error() string {
	if e.detail != "" {
		return fmt.Sprintf("%s: %s", e.message, e.detail)
	}
	return e.message
}

func (e *baseError) Code() int          { return e.code }
func (e *baseError) Message() string    { return e.message }
func (e *baseError) Detail() string     { return e.detail }
func (e *baseError) Data() interface{}  { return e.data }
func (e *baseError) Category() Category { return e.category }
func (e *baseError) Severity() Severity { return e.severity }
func (e *baseError) Unwrap() error      { return e.cause }

func (e *baseError) WithDetail(detail string) MCPError {
	clone := *e
	if clone.detail != "" {
		clone.detail = fmt.Sprintf("%s; %s", clone.detail, detail)
	} else {
		clone.detail = detail
	}
	return &clone
}

func (e *baseError) WithData(data interface{}) MCPError {
	clone := *e
	clone.data = data
	return &clone
}

// New creates a new MCPError with the specified parameters
func New(code int, message string, category Category, severity Severity) MCPError {
	return &baseError{
		code:     code,
		message:  message,
		category: category,
		severity: severity,
	}
}

// Newf creates a new MCPError with a formatted message
func Newf(code int, category Category, severity Severity, format string, args ...interface{}) MCPError {
	return New(code, fmt.Sprintf(format, args...), category, severity)
}

// Wrap wraps an existing error as an MCPError
func Wrap(err error, code int, message string, category Category, severity Severity) MCPError {
	return &baseError{
		code:     code,
		message:  message,
		category: category,
		severity: severity,
		cause:    err,
	}
}

// AsMCPError extracts an MCPError from an error chain
func AsMCPError(err error) (MCPError, bool) {
	var mcpErr MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr, true
	}
	return nil, false
}

// IsCode checks if an error carries a specific error code
func IsCode(err error, code int) bool {
	if mcpErr, ok := AsMCPError(err); ok {
		return mcpErr.Code() == code
	}
	return false
}

// IsCategory checks if an error is of a specific category
func IsCategory(err error, category Category) bool {
	if mcpErr, ok := AsMCPError(err); ok {
		return mcpErr.Category() == category
	}
	return false
}
