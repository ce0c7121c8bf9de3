package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/mcpkit/mcp-engine-go/pkg/errors"
)

func newBufferedLogger() (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(&buf, &TextFormatter{DisableTimestamp: true}), &buf
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferedLogger()

	logger.Debug("hidden")
	logger.Info("visible")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "visible")

	logger.SetLevel(DebugLevel)
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestWithFieldsAreInherited(t *testing.T) {
	logger, buf := newBufferedLogger()

	child := logger.WithFields(String("component", "server"), Int("attempt", 2))
	child.Info("retrying")

	line := buf.String()
	assert.Contains(t, line, "server: retrying")
	assert.Contains(t, line, "attempt=2")

	// The parent is unaffected.
	buf.Reset()
	logger.Info("plain")
	assert.NotContains(t, buf.String(), "server")
}

func TestWithContextCarriesRequestID(t *testing.T) {
	logger, buf := newBufferedLogger()

	ctx := ContextWithRequestID(context.Background(), "req-7")
	logger.WithContext(ctx).Info("handling")

	assert.Contains(t, buf.String(), "[req-7]")
}

func TestWithErrorAddsClassification(t *testing.T) {
	logger, buf := newBufferedLogger()

	logger.WithError(mcperrors.UnknownMethod("tools/rename")).Warn("dispatch failed")

	line := buf.String()
	assert.Contains(t, line, "error_code=MethodNotFound")
	assert.Contains(t, line, "error_category=protocol")
}

func TestJSONFormatterOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, NewJSONFormatter())

	logger.Info("tool called",
		String("tool", "echo"),
		ErrorField(errors.New("boom")))

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "tool called", record["msg"])
	assert.Equal(t, "echo", record["tool"])
	assert.Equal(t, "boom", record["error"])
}

func TestDiscardWritesNothing(t *testing.T) {
	logger := Discard()
	logger.Error("into the void")
}

func TestTextFormatterFieldOrderIsStable(t *testing.T) {
	logger, buf := newBufferedLogger()

	logger.Info("m", String("zebra", "z"), String("alpha", "a"))
	line := buf.String()
	assert.Less(t, strings.Index(line, "alpha=a"), strings.Index(line, "zebra=z"))
}
