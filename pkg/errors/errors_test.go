package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcpkit/mcp-engine-go/pkg/protocol"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternalError, "dispatch failed", CategoryInternal, SeverityError)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsCode(err, CodeInternalError))
	assert.True(t, IsCategory(err, CategoryInternal))
}

func TestIsCodeThroughWrapping(t *testing.T) {
	inner := CapabilityNotNegotiated("prompts")
	outer := fmt.Errorf("sending request: %w", inner)

	assert.True(t, IsCode(outer, CodeCapabilityNotNegotiated))
	assert.False(t, IsCode(outer, CodeMethodNotFound))

	mcpErr, ok := AsMCPError(outer)
	require.True(t, ok)
	assert.Equal(t, CodeCapabilityNotNegotiated, mcpErr.Code())
}

func TestWithDetailDoesNotMutateOriginal(t *testing.T) {
	base := UnknownMethod("tools/rename")
	detailed := base.WithDetail("no handler registered")

	assert.NotContains(t, base.Error(), "no handler registered")
	assert.Contains(t, detailed.Error(), "no handler registered")
}

func TestCapabilityErrorCarriesStructuredData(t *testing.T) {
	err := CapabilityNotNegotiated("sampling")

	data, ok := err.Data().(*CapabilityErrorData)
	require.True(t, ok)
	assert.Equal(t, "sampling", data.Capability)
}

func TestArgumentValidationData(t *testing.T) {
	err := ArgumentValidation("deploy", []string{"env"}, []string{"replicas"})

	data, ok := err.Data().(*ValidationErrorData)
	require.True(t, ok)
	assert.Equal(t, []string{"env"}, data.Missing)
	assert.Equal(t, []string{"replicas"}, data.Invalid)
}

func TestToProtocolErrorRoundTrip(t *testing.T) {
	original := EntryNotFound("tools", "missing")

	protoErr := ToProtocolError(original)
	require.NotNil(t, protoErr)
	assert.Equal(t, CodeEntryNotFound, protoErr.Code)

	back := FromProtocolError(protoErr)
	assert.True(t, IsCode(back, CodeEntryNotFound))
	assert.Equal(t, original.Message(), back.Message())
}

func TestToProtocolErrorPlainError(t *testing.T) {
	protoErr := ToProtocolError(errors.New("disk full"))
	require.NotNil(t, protoErr)
	assert.Equal(t, CodeInternalError, protoErr.Code)
	assert.Equal(t, "disk full", protoErr.Message)
}

func TestToProtocolErrorPassthrough(t *testing.T) {
	wire := &protocol.Error{Code: CodeMethodNotFound, Message: "unknown"}
	assert.Same(t, wire, ToProtocolError(wire))
	assert.Nil(t, ToProtocolError(nil))
}

func TestFromProtocolErrorCategories(t *testing.T) {
	cases := []struct {
		code     int
		category Category
	}{
		{CodeCancelled, CategoryCancelled},
		{CodeTimeout, CategoryTimeout},
		{CodeSessionClosed, CategorySession},
		{CodeInternalError, CategoryInternal},
		{CodeMethodNotFound, CategoryProtocol},
	}
	for _, tc := range cases {
		t.Run(CodeName(tc.code), func(t *testing.T) {
			err := FromProtocolError(&protocol.Error{Code: tc.code, Message: "x"})
			assert.True(t, IsCategory(err, tc.category))
		})
	}
}

func TestCodeName(t *testing.T) {
	assert.Equal(t, "MethodNotFound", CodeName(CodeMethodNotFound))
	assert.Equal(t, "Cancelled", CodeName(CodeCancelled))
	assert.Equal(t, "UnknownError", CodeName(-1))
}
