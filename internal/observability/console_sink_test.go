package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bluzky/prana/internal/executor"
)

func TestConsoleSink_LogsAtInfoForNormalEvents(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf)

	sink.Handle(executor.EventNodeCompleted, map[string]any{"node_key": "start", "execution_id": "exec-1"})

	out := buf.String()
	assert.Contains(t, out, `"node_key":"start"`)
	assert.Contains(t, out, `"event":"node_completed"`)
	assert.Contains(t, out, `"level":"info"`)
}

func TestConsoleSink_LogsAtErrorForFailureEvents(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf)

	sink.Handle(executor.EventNodeFailed, map[string]any{"node_key": "flaky"})

	out := buf.String()
	assert.Contains(t, out, `"level":"error"`)
	assert.True(t, strings.Contains(out, "node_failed"))
}
