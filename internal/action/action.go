// Package action defines the Action capability (§4.3) — the uniform
// contract over user-supplied work units the core invokes through —
// and the tagged-union Result the NodeExecutor interprets (§9 Design
// Notes: "Results are modeled as a tagged union rather than multi-shaped
// tuples").
package action

import (
	"context"

	"github.com/bluzky/prana/internal/domain"
)

// ExecContext is what an action sees on execute/resume: routed input,
// runtime node outputs, workflow variables, caller env, and identity.
type ExecContext struct {
	Input       any
	Nodes       map[string]domain.RuntimeNodeState
	Vars        map[string]any
	Env         map[string]any
	Workflow    WorkflowRef
	Execution   ExecutionRef
	Preparation any
}

type WorkflowRef struct {
	ID      string
	Version int
}

type ExecutionRef struct {
	ID             string
	RunIndex       int
	ExecutionIndex int
	Mode           string
	State          map[string]any
	CurrentNodeKey string
	Loopback       bool
}

// ToMap renders the context into the $input/$nodes/$vars/... map shape
// the expression/template evaluator expects (§4.4 step 2).
func (c ExecContext) ToMap() map[string]any {
	nodes := make(map[string]any, len(c.Nodes))
	for k, v := range c.Nodes {
		nodes[k] = map[string]any{"output": v.Output, "context": v.Context, "port": v.Port}
	}
	return map[string]any{
		"input": c.Input,
		"nodes": nodes,
		"vars":  c.Vars,
		"env":   c.Env,
		"workflow": map[string]any{
			"id":      c.Workflow.ID,
			"version": c.Workflow.Version,
		},
		"execution": map[string]any{
			"id":               c.Execution.ID,
			"run_index":        int64(c.Execution.RunIndex),
			"execution_index":  int64(c.Execution.ExecutionIndex),
			"mode":             c.Execution.Mode,
			"state":            c.Execution.State,
			"current_node_key": c.Execution.CurrentNodeKey,
			"loopback":         c.Execution.Loopback,
		},
		"preparation": map[string]any{"current_node": c.Preparation},
	}
}

// ResultKind discriminates the Result tagged union.
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultFailure
	ResultSuspend
)

// StateUpdates has two compartments: top-level keys merge into
// execution_data.context_data.workflow; "node_context" merges into
// execution_data.context_data.node[current_node] (§4.3).
type StateUpdates struct {
	Workflow    map[string]any
	NodeContext map[string]any
}

// Result is what Execute/Resume return, modeled as a tagged union
// rather than the source's multi-shaped tuples.
type Result struct {
	Kind ResultKind

	// success
	Data  any
	Port  string
	State *StateUpdates

	// failure
	Err *domain.Error

	// suspend
	SuspendType domain.SuspensionType
	SuspendData any
}

func Success(data any) Result              { return Result{Kind: ResultSuccess, Data: data} }
func SuccessPort(data any, port string) Result {
	return Result{Kind: ResultSuccess, Data: data, Port: port}
}
func SuccessState(data any, state *StateUpdates) Result {
	return Result{Kind: ResultSuccess, Data: data, State: state}
}
func SuccessFull(data any, port string, state *StateUpdates) Result {
	return Result{Kind: ResultSuccess, Data: data, Port: port, State: state}
}

func Failure(err *domain.Error) Result              { return Result{Kind: ResultFailure, Err: err} }
func FailurePort(err *domain.Error, port string) Result {
	return Result{Kind: ResultFailure, Err: err, Port: port}
}

func Suspend(typ domain.SuspensionType, data any) Result {
	return Result{Kind: ResultSuspend, SuspendType: typ, SuspendData: data}
}

// Action is a uniform contract over a unit of work identified by an
// "integration.action" type string in the Integration Registry.
//
//   - Prepare runs once per node at execution-graph preparation time;
//     its result becomes available as $preparation.current_node.
//   - Execute is the main entry point; params are already rendered.
//   - Resume reactivates a suspended node with host-supplied data.
type Action interface {
	Prepare(ctx context.Context, node *domain.Node) (any, error)
	Execute(ctx context.Context, params map[string]any, ectx ExecContext) (Result, error)
	Resume(ctx context.Context, params map[string]any, ectx ExecContext, resumeData any) (Result, error)
}
