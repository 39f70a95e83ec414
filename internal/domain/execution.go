package domain

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Status is the lifecycle state of a WorkflowExecution or NodeExecution.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSuspended Status = "suspended"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// SuspensionType names why a node paused. Only SuspensionRetry has
// special resume semantics inside the core (re-run execute, not resume);
// the rest are opaque and always call action.Resume.
type SuspensionType string

const (
	SuspensionRetry                 SuspensionType = "retry"
	SuspensionWebhook               SuspensionType = "webhook"
	SuspensionInterval              SuspensionType = "interval"
	SuspensionSchedule              SuspensionType = "schedule"
	SuspensionSubWorkflowSync       SuspensionType = "sub_workflow_sync"
	SuspensionSubWorkflowAsync      SuspensionType = "sub_workflow_async"
	SuspensionSubWorkflowFireForget SuspensionType = "sub_workflow_fire_forget"
)

// NodeExecution is the per-attempt audit record of one node execution.
// A node may appear multiple times in a WorkflowExecution's log (loops);
// order within a node's slice is by RunIndex. Retry re-runs reuse the
// same record rather than appending a new one.
type NodeExecution struct {
	NodeKey        string         `json:"node_key"`
	Status         Status         `json:"status"`
	ExecutionIndex int            `json:"execution_index"`
	RunIndex       int            `json:"run_index"`
	Params         map[string]any `json:"params,omitempty"`
	OutputData     any            `json:"output_data,omitempty"`
	OutputPort     string         `json:"output_port,omitempty"`
	ErrorData      map[string]any `json:"error_data,omitempty"`
	SuspensionType SuspensionType `json:"suspension_type,omitempty"`
	SuspensionData any            `json:"suspension_data,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

// ContextData is the persistent, action-mutable shared state: a
// workflow-wide map and one map per node (loop counters, custom metadata).
type ContextData struct {
	Workflow map[string]any            `json:"workflow"`
	Node     map[string]map[string]any `json:"node"`
}

func newContextData() ContextData {
	return ContextData{Workflow: map[string]any{}, Node: map[string]map[string]any{}}
}

// NodeContext returns (creating if absent) the per-node context map.
func (c *ContextData) NodeContext(key string) map[string]any {
	if c.Node == nil {
		c.Node = map[string]map[string]any{}
	}
	if c.Node[key] == nil {
		c.Node[key] = map[string]any{}
	}
	return c.Node[key]
}

// ExecutionData is the persistent (serialized) half of scheduler state:
// shared contexts plus the active-path/active-node frontier.
type ExecutionData struct {
	ContextData ContextData `json:"context_data"`

	// ActivePaths is the scheduler frontier: node_key -> set of
	// execution_index values it has been activated under.
	ActivePaths map[string]map[int]bool `json:"active_paths"`
	// ActiveNodes is the depth marker (execution_index at activation
	// time) used to LIFO-tiebreak among several ready nodes.
	ActiveNodes map[string]int `json:"active_nodes"`

	// PendingDeliveries tracks, per not-yet-ready node, which distinct
	// predecessor node keys have delivered output to it since its last
	// run; compared against DependencyCount to decide readiness. It is
	// cleared for a node each time that node is scheduled, so fan-in
	// joins inside loops re-synchronize on every iteration.
	PendingDeliveries map[string]map[string]bool `json:"pending_deliveries"`

	// ActivationSeq breaks ties among nodes sharing the same ActiveNodes
	// depth (e.g. two fan-out siblings activated by the same Deliver
	// call, same sourceIndex): each node gains the next value of
	// NextActivationSeq the instant it joins the ready frontier, so
	// findNextReady's LIFO tie-break never depends on Go's randomized
	// map iteration order.
	ActivationSeq     map[string]int `json:"activation_seq"`
	NextActivationSeq int            `json:"next_activation_seq"`
}

func newExecutionData() ExecutionData {
	return ExecutionData{
		ContextData:       newContextData(),
		ActivePaths:       map[string]map[int]bool{},
		ActiveNodes:       map[string]int{},
		PendingDeliveries: map[string]map[string]bool{},
		ActivationSeq:     map[string]int{},
	}
}

// Runtime is the ephemeral cache rebuilt from the audit log on every
// load; it is never serialized (§3.5, §6.2).
type Runtime struct {
	// Nodes holds the last completed output/context per node key, for
	// $nodes.<key>.output / $nodes.<key>.context access.
	Nodes map[string]RuntimeNodeState
	// Env is the caller-supplied environment map, reattached on resume.
	Env map[string]any

	IterationCount int
	MaxIterations  int
}

// RuntimeNodeState is what expression/template evaluation sees for
// $nodes.<key>.
type RuntimeNodeState struct {
	Output  any
	Port    string
	Context map[string]any
}

func newRuntime(env map[string]any, maxIterations int) *Runtime {
	if env == nil {
		env = map[string]any{}
	}
	if maxIterations <= 0 {
		maxIterations = 100
	}
	return &Runtime{Nodes: map[string]RuntimeNodeState{}, Env: env, MaxIterations: maxIterations}
}

// WorkflowExecution is the full, mutable, persistable execution state:
// audit log + contexts + active sets (persistent) plus Runtime (ephemeral).
type WorkflowExecution struct {
	ID          string `json:"id"`
	WorkflowID  string `json:"workflow_id"`
	Status      Status `json:"status"`
	TriggerType string `json:"trigger_type"`
	TriggerData any    `json:"trigger_data"`
	Vars        map[string]any `json:"vars"`

	NodeExecutions map[string][]*NodeExecution `json:"node_executions"`
	ExecutionData  ExecutionData               `json:"execution_data"`

	SuspendedNodeKey string         `json:"suspended_node_key,omitempty"`
	SuspensionType   SuspensionType `json:"suspension_type,omitempty"`
	SuspensionData   any            `json:"suspension_data,omitempty"`
	SuspendedAt      *time.Time     `json:"suspended_at,omitempty"`

	nextExecutionIndex int

	Runtime *Runtime `json:"-" msgpack:"-"`
}

// NewWorkflowExecution starts a fresh, pending execution for graph g.
func NewWorkflowExecution(id string, g *ExecutionGraph, triggerType string, triggerData any, vars, env map[string]any, maxIterations int) *WorkflowExecution {
	we := &WorkflowExecution{
		ID:             id,
		WorkflowID:     g.WorkflowID,
		Status:         StatusPending,
		TriggerType:    triggerType,
		TriggerData:    triggerData,
		Vars:           vars,
		NodeExecutions: map[string][]*NodeExecution{},
		ExecutionData:  newExecutionData(),
		Runtime:        newRuntime(env, maxIterations),
	}
	we.ExecutionData.ActivePaths[g.TriggerNodeKey] = map[int]bool{0: true}
	we.ExecutionData.ActiveNodes[g.TriggerNodeKey] = 0
	we.nextExecutionIndex = 1
	return we
}

// NextExecutionIndex returns and consumes the next globally monotonic index.
func (we *WorkflowExecution) NextExecutionIndex() int {
	idx := we.nextExecutionIndex
	we.nextExecutionIndex++
	return idx
}

// LatestExecution returns the most recent NodeExecution record for key, if any.
func (we *WorkflowExecution) LatestExecution(key string) *NodeExecution {
	list := we.NodeExecutions[key]
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

// AppendExecution records a new attempt, assigning the next run_index.
func (we *WorkflowExecution) AppendExecution(ne *NodeExecution) {
	ne.RunIndex = len(we.NodeExecutions[ne.NodeKey])
	we.NodeExecutions[ne.NodeKey] = append(we.NodeExecutions[ne.NodeKey], ne)
}

// RebuildRuntime reconstructs Runtime and the active sets purely from
// the audit log, per §3.8/§8 invariant 6. Used on Resume; the rebuilt
// ActivePaths/ActiveNodes replace the persisted ones rather than being
// compared against them.
func RebuildRuntime(we *WorkflowExecution, g *ExecutionGraph, env map[string]any) {
	rt := newRuntime(env, we.Runtime0MaxIterations())
	rt.IterationCount = we.countSteps()

	// Flatten all executions across nodes, ordered by execution_index,
	// replaying routing exactly as the live scheduler would.
	var all []*NodeExecution
	for _, list := range we.NodeExecutions {
		all = append(all, list...)
	}
	sortByExecutionIndex(all)

	rebuilt := newExecutionData()
	if g != nil {
		rebuilt.ActivePaths[g.TriggerNodeKey] = map[int]bool{}
	}
	for _, ne := range all {
		if ne.Status == StatusCompleted {
			rt.Nodes[ne.NodeKey] = RuntimeNodeState{
				Output:  ne.OutputData,
				Port:    ne.OutputPort,
				Context: we.ExecutionData.ContextData.Node[ne.NodeKey],
			}
			if g != nil {
				Deliver(g, &rebuilt, ne.NodeKey, ne.OutputPort, ne.ExecutionIndex)
			}
		}
		delete(rebuilt.ActivePaths, ne.NodeKey)
		delete(rebuilt.ActiveNodes, ne.NodeKey)
		delete(rebuilt.PendingDeliveries, ne.NodeKey)
	}
	// A still-suspended node belongs back on the frontier so Resume can
	// find it: it already "has" every predecessor delivery it needed
	// (that's why it ran), it just hasn't completed yet.
	if we.SuspendedNodeKey != "" {
		if last := we.LatestExecution(we.SuspendedNodeKey); last != nil {
			rebuilt.ActivePaths[we.SuspendedNodeKey] = map[int]bool{last.ExecutionIndex: true}
			rebuilt.ActiveNodes[we.SuspendedNodeKey] = last.ExecutionIndex
		}
	}
	rebuilt.ContextData = we.ExecutionData.ContextData
	we.ExecutionData = rebuilt
	we.Runtime = rt

	next := 0
	for _, ne := range all {
		if ne.ExecutionIndex >= next {
			next = ne.ExecutionIndex + 1
		}
	}
	we.nextExecutionIndex = next
}

func (we *WorkflowExecution) Runtime0MaxIterations() int {
	if we.Runtime != nil && we.Runtime.MaxIterations > 0 {
		return we.Runtime.MaxIterations
	}
	return 100
}

func (we *WorkflowExecution) countSteps() int {
	n := 0
	for _, list := range we.NodeExecutions {
		n += len(list)
	}
	return n
}

// Deliver applies the routing effect of node n completing on port to ed:
// for every outgoing connection, the target's pending-delivery set gains
// n, and once it covers DependencyCount[target] the target joins the
// ready frontier under sourceIndex. Shared by the live scheduler and by
// RebuildRuntime so both produce identical ActivePaths/ActiveNodes.
func Deliver(g *ExecutionGraph, ed *ExecutionData, n, port string, sourceIndex int) {
	for _, c := range g.OutgoingConnections(n, port) {
		if ed.PendingDeliveries[c.To] == nil {
			ed.PendingDeliveries[c.To] = map[string]bool{}
		}
		ed.PendingDeliveries[c.To][n] = true
		if len(ed.PendingDeliveries[c.To]) >= g.DependencyCount[c.To] {
			if ed.ActivePaths[c.To] == nil {
				ed.ActivePaths[c.To] = map[int]bool{}
			}
			ed.ActivePaths[c.To][sourceIndex] = true
			ed.ActiveNodes[c.To] = sourceIndex
			ed.NextActivationSeq++
			if ed.ActivationSeq == nil {
				ed.ActivationSeq = map[string]int{}
			}
			ed.ActivationSeq[c.To] = ed.NextActivationSeq
		}
	}
}

// MarshalBinary encodes the execution's persistent fields (everything
// but the derived Runtime) as msgpack, for hosts persisting to a
// byte-oriented store instead of the jsonb-backed internal/store.
func (we *WorkflowExecution) MarshalBinary() ([]byte, error) {
	return msgpack.Marshal(we)
}

// UnmarshalBinary decodes a msgpack-encoded execution. Runtime is left
// nil; callers must follow with RebuildRuntime before resuming it.
func (we *WorkflowExecution) UnmarshalBinary(data []byte) error {
	return msgpack.Unmarshal(data, we)
}

func sortByExecutionIndex(list []*NodeExecution) {
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && list[j-1].ExecutionIndex > list[j].ExecutionIndex; j-- {
			list[j-1], list[j] = list[j], list[j-1]
		}
	}
}
