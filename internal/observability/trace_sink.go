package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bluzky/prana/internal/executor"
)

// TraceSink is a Middleware handler that opens one span per node
// execution, grounded on the teacher's trace.go tracing hooks
// (internal/infrastructure/monitoring/trace.go) but re-expressed over
// OpenTelemetry's SDK-agnostic API instead of a bespoke interface.
type TraceSink struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span
}

// NewTraceSink builds a sink using the named tracer from the global
// TracerProvider (otel.Tracer); wiring an SDK exporter is the host's job.
func NewTraceSink(tracerName string) *TraceSink {
	return &TraceSink{tracer: otel.Tracer(tracerName), spans: map[string]trace.Span{}}
}

func spanKey(payload map[string]any) string {
	execID, _ := payload["execution_id"].(string)
	nodeKey, _ := payload["node_key"].(string)
	idx, _ := payload["execution_index"]
	return fmt.Sprintf("%s:%s:%v", execID, nodeKey, idx)
}

// Handle satisfies executor.MiddlewareHandler.
func (s *TraceSink) Handle(kind executor.EventKind, payload map[string]any) {
	switch kind {
	case executor.EventNodeStarted:
		nodeKey, _ := payload["node_key"].(string)
		_, span := s.tracer.Start(context.Background(), "node:"+nodeKey)
		s.mu.Lock()
		s.spans[spanKey(payload)] = span
		s.mu.Unlock()

	case executor.EventNodeCompleted:
		s.end(payload, codes.Ok, "")

	case executor.EventNodeFailed:
		msg := ""
		if errData, ok := payload["error"].(map[string]any); ok {
			if m, ok := errData["message"].(string); ok {
				msg = m
			}
		}
		s.end(payload, codes.Error, msg)

	case executor.EventNodeSuspended:
		s.end(payload, codes.Unset, "suspended")
	}
}

func (s *TraceSink) end(payload map[string]any, status codes.Code, message string) {
	key := spanKey(payload)
	s.mu.Lock()
	span, ok := s.spans[key]
	if ok {
		delete(s.spans, key)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	span.SetStatus(status, message)
	span.End()
}
