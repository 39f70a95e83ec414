package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bluzky/prana/internal/executor"
)

func TestTraceSink_OpensAndClosesSpanPerNode(t *testing.T) {
	sink := NewTraceSink("prana-test")
	payload := map[string]any{"execution_id": "exec-1", "node_key": "start", "execution_index": 0}

	sink.Handle(executor.EventNodeStarted, payload)
	assert.Len(t, sink.spans, 1)

	sink.Handle(executor.EventNodeCompleted, payload)
	assert.Len(t, sink.spans, 0)
}

func TestTraceSink_FailedEventEndsSpanWithErrorStatus(t *testing.T) {
	sink := NewTraceSink("prana-test")
	payload := map[string]any{"execution_id": "exec-1", "node_key": "flaky", "execution_index": 1}

	sink.Handle(executor.EventNodeStarted, payload)
	assert.Len(t, sink.spans, 1)

	sink.Handle(executor.EventNodeFailed, map[string]any{
		"execution_id": "exec-1", "node_key": "flaky", "execution_index": 1,
		"error": map[string]any{"message": "boom"},
	})
	assert.Len(t, sink.spans, 0)
}

func TestTraceSink_EndOnUnknownKeyIsNoop(t *testing.T) {
	sink := NewTraceSink("prana-test")
	sink.Handle(executor.EventNodeCompleted, map[string]any{"execution_id": "none", "node_key": "ghost"})
	assert.Len(t, sink.spans, 0)
}
