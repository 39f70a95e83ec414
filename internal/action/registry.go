package action

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"
)

// Registry is the process-wide name -> Action map the NodeExecutor
// resolves "integration.action" type strings through (§2, §5). It is
// the only process-wide state in the core (§9) and must be created
// explicitly — no implicit singleton. Backed by xsync.MapOf, a
// lock-free concurrent map, a better fit than a mutex+map for a
// registration-once, read-mostly table under concurrent lookups from
// many in-flight executions.
type Registry struct {
	actions *xsync.MapOf[string, Action]
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{actions: xsync.NewMapOf[string, Action]()}
}

// Register binds a type string ("integration.action") to an Action
// implementation. Re-registering the same type replaces it.
func (r *Registry) Register(actionType string, a Action) error {
	if actionType == "" {
		return fmt.Errorf("action type must not be empty")
	}
	if a == nil {
		return fmt.Errorf("action for type %q must not be nil", actionType)
	}
	r.actions.Store(actionType, a)
	return nil
}

// Get resolves a type string to its Action, if registered.
func (r *Registry) Get(actionType string) (Action, bool) {
	return r.actions.Load(actionType)
}

// Unregister removes a binding; used mainly by tests.
func (r *Registry) Unregister(actionType string) {
	r.actions.Delete(actionType)
}
