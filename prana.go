// Package prana is the public facade over the engine: Compile a workflow
// into an ExecutionGraph, Execute it, Resume a suspended execution, and
// register integrations/middleware, mirroring the teacher's root-level
// mbflow.go re-export facade (internal packages stay internal; the host
// only imports this package and pkg/workflow).
package prana

import (
	"github.com/bluzky/prana/internal/action"
	"github.com/bluzky/prana/internal/domain"
	"github.com/bluzky/prana/internal/executor"
	"github.com/bluzky/prana/internal/template"
)

// Re-exported domain/executor types so callers never need to import
// internal packages directly.
type (
	Workflow          = domain.Workflow
	ExecutionGraph    = domain.ExecutionGraph
	WorkflowExecution = domain.WorkflowExecution
	Node              = domain.Node
	NodeSettings      = domain.NodeSettings
	Error             = domain.Error

	Action       = action.Action
	ExecContext  = action.ExecContext
	ActionResult = action.Result
	StateUpdates = action.StateUpdates

	Config            = executor.Config
	ResultStatus      = executor.ResultStatus
	ExecutionResult   = executor.ExecutionResult
	EventKind         = executor.EventKind
	MiddlewareHandler = executor.MiddlewareHandler
)

// Re-exported constants/status values.
const (
	StatusCompleted = executor.StatusCompleted
	StatusSuspended = executor.StatusSuspended
	StatusFailed    = executor.StatusFailed

	MainPort  = domain.MainPort
	ErrorPort = domain.ErrorPort
)

// DefaultConfig returns the engine's built-in tuning defaults.
func DefaultConfig() Config { return executor.DefaultConfig() }

// DefaultNodeSettings returns the default retry/on_error policy a node
// gets when a workflow definition leaves settings unspecified.
func DefaultNodeSettings() NodeSettings { return domain.DefaultNodeSettings() }

// NewRegistry creates an empty Integration Registry.
func NewRegistry() *action.Registry { return action.NewRegistry() }

// DefaultFilters returns the template engine's built-in filter set.
func DefaultFilters() *template.Filters { return template.DefaultFilters() }

// Engine is the facade over one Integration Registry plus the Graph
// Executor: Compile/Execute/Resume, registry and middleware management.
type Engine struct {
	*executor.Engine
}

// NewEngine wires registry into a ready Engine. filters defaults to
// DefaultFilters() if nil. A zero MaxIterations, NodeExecutionTimeout or
// DefaultTemplateMode in config takes the DefaultConfig() value, and so
// does TemplateLimits when all of its fields are zero.
func NewEngine(registry *action.Registry, filters *template.Filters, config Config) *Engine {
	return &Engine{Engine: executor.NewEngine(registry, filters, config)}
}

// Compile builds an ExecutionGraph from w rooted at triggerNodeKey.
func Compile(w *Workflow, triggerNodeKey string) (*ExecutionGraph, *Error) {
	return domain.Compile(w, triggerNodeKey)
}
