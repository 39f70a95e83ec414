package executor

import "sync"

// EventKind names a scheduler lifecycle event (§4.6).
type EventKind string

const (
	EventNodeStarted       EventKind = "node_started"
	EventNodeCompleted     EventKind = "node_completed"
	EventNodeFailed        EventKind = "node_failed"
	EventNodeSuspended     EventKind = "node_suspended"
	EventNodeResumed       EventKind = "node_resumed"
	EventWorkflowCompleted EventKind = "workflow_completed"
	EventWorkflowFailed    EventKind = "workflow_failed"
	EventWorkflowSuspended EventKind = "workflow_suspended"
)

// MiddlewareHandler receives lifecycle events synchronously, in
// completion order; it must be fast or offload work (§6.4, §5).
type MiddlewareHandler func(kind EventKind, payload map[string]any)

// MiddlewareSink fans events out to every registered handler, mirroring
// the teacher's RWMutex-protected ObserverManager fan-out pattern
// (internal/infrastructure/monitoring/observer.go) adapted to the
// simpler (event_kind, payload) shape §6.4 specifies.
type MiddlewareSink struct {
	mu       sync.RWMutex
	handlers []MiddlewareHandler
}

// NewMiddlewareSink returns an empty sink.
func NewMiddlewareSink() *MiddlewareSink {
	return &MiddlewareSink{}
}

// Register adds handler; it is called for every subsequent event.
func (s *MiddlewareSink) Register(h MiddlewareHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

// Emit calls every registered handler synchronously, in registration order.
func (s *MiddlewareSink) Emit(kind EventKind, payload map[string]any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.handlers {
		h(kind, payload)
	}
}
