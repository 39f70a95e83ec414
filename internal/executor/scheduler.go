// Package executor holds the Graph Executor: the single-threaded,
// demand-driven scheduler (§4.6) that walks a compiled ExecutionGraph,
// the Node Executor that runs one node's attempt (§4.4), and the
// retry/on_error policy (§4.7) that decides what a failure becomes.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bluzky/prana/internal/action"
	"github.com/bluzky/prana/internal/domain"
	"github.com/bluzky/prana/internal/template"
	"github.com/google/uuid"
)

// Config tunes limits that aren't per-node settings.
type Config struct {
	MaxIterations  int
	TemplateLimits template.Limits

	// DefaultTemplateMode governs node param rendering (§4.2 defaults
	// this to Strict); a host may relax it to Graceful workflow-wide.
	DefaultTemplateMode template.Mode
	// NodeExecutionTimeout bounds a single Execute/Resume call, mirroring
	// the teacher's EngineConfig.NodeExecutionTimeout
	// (internal/application/executor/engine.go).
	NodeExecutionTimeout time.Duration
}

// DefaultConfig caps scheduler steps at 100 per execution (the same
// default domain.NewWorkflowExecution falls back to), uses the template
// package's own defaults, plus the teacher's DefaultEngineConfig timeout
// (5 minutes).
func DefaultConfig() Config {
	return Config{
		MaxIterations:        100,
		TemplateLimits:       template.DefaultLimits(),
		DefaultTemplateMode:  template.Strict,
		NodeExecutionTimeout: 5 * time.Minute,
	}
}

// Engine is the facade over one Integration Registry: Compile/Execute/
// Resume plus registry and middleware management (§6.4). Safe for
// concurrent use across independent executions; a single Engine is
// meant to be constructed once per process.
type Engine struct {
	registry   *action.Registry
	middleware *MiddlewareSink
	filters    *template.Filters
	limits     template.Limits
	config     Config

	prepMu sync.Mutex
	prep   map[*domain.ExecutionGraph]map[string]any
}

// NewEngine wires a registry (the Integration Registry) into a ready
// Engine. filters defaults to template.DefaultFilters() if nil.
func NewEngine(registry *action.Registry, filters *template.Filters, config Config) *Engine {
	if filters == nil {
		filters = template.DefaultFilters()
	}
	if config.TemplateLimits == (template.Limits{}) {
		config.TemplateLimits = template.DefaultLimits()
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = 100
	}
	if config.NodeExecutionTimeout <= 0 {
		config.NodeExecutionTimeout = 5 * time.Minute
	}
	return &Engine{
		registry:   registry,
		middleware: NewMiddlewareSink(),
		filters:    filters,
		limits:     config.TemplateLimits,
		config:     config,
		prep:       map[*domain.ExecutionGraph]map[string]any{},
	}
}

// RegisterIntegration is sugar for registry.Register, matching §6.4's
// naming for the public facade.
func (e *Engine) RegisterIntegration(actionType string, a action.Action) error {
	return e.registry.Register(actionType, a)
}

// GetAction resolves a registered action by type.
func (e *Engine) GetAction(actionType string) (action.Action, bool) {
	return e.registry.Get(actionType)
}

// RegisterMiddleware adds a lifecycle event handler.
func (e *Engine) RegisterMiddleware(h MiddlewareHandler) {
	e.middleware.Register(h)
}

// Compile builds an ExecutionGraph from w rooted at triggerNodeKey.
func (e *Engine) Compile(w *domain.Workflow, triggerNodeKey string) (*domain.ExecutionGraph, *domain.Error) {
	return domain.Compile(w, triggerNodeKey)
}

// preparationFor runs (and memoizes, per graph) a node's one-shot
// Prepare hook (§4.3). Failures are swallowed to nil: Prepare is a
// convenience cache, not a gate — an action that needs its prepared
// data to function will fail loudly in Execute instead.
func (e *Engine) preparationFor(g *domain.ExecutionGraph, node *domain.Node) any {
	e.prepMu.Lock()
	defer e.prepMu.Unlock()
	byNode, ok := e.prep[g]
	if !ok {
		byNode = map[string]any{}
		e.prep[g] = byNode
	}
	if v, ok := byNode[node.Key]; ok {
		return v
	}
	var result any
	if act, ok := e.registry.Get(node.Type); ok {
		if v, err := act.Prepare(context.Background(), node); err == nil {
			result = v
		}
	}
	byNode[node.Key] = result
	return result
}

// ResultStatus is the terminal shape of Execute/Resume.
type ResultStatus int

const (
	StatusCompleted ResultStatus = iota
	StatusSuspended
	StatusFailed
)

// ExecutionResult is returned by Execute/Resume once the run loop stops
// (completed, suspended awaiting host action, or failed).
type ExecutionResult struct {
	Status    ResultStatus
	Execution *domain.WorkflowExecution
	Err       *domain.Error
}

// Execute starts a fresh run of g from its trigger node and steps the
// scheduler until the workflow completes, suspends, or fails.
func (e *Engine) Execute(ctx context.Context, g *domain.ExecutionGraph, triggerType string, triggerData any, vars, env map[string]any) (*ExecutionResult, error) {
	we := domain.NewWorkflowExecution(uuid.NewString(), g, triggerType, triggerData, vars, env, e.config.MaxIterations)
	we.Status = domain.StatusRunning
	trigger := g.GetNode(g.TriggerNodeKey)
	if trigger == nil {
		return nil, fmt.Errorf("trigger node %q not present in compiled graph", g.TriggerNodeKey)
	}
	we.Runtime.Nodes[g.TriggerNodeKey] = domain.RuntimeNodeState{Output: triggerData, Port: domain.MainPort}
	return e.run(ctx, g, we)
}

// Resume reactivates a suspended execution with host-supplied resumeData
// and continues stepping the scheduler.
func (e *Engine) Resume(ctx context.Context, g *domain.ExecutionGraph, we *domain.WorkflowExecution, resumeData any, env map[string]any) (*ExecutionResult, error) {
	if we.Status != domain.StatusSuspended || we.SuspendedNodeKey == "" {
		return nil, fmt.Errorf("execution %s is not suspended", we.ID)
	}
	domain.RebuildRuntime(we, g, env)

	nodeKey := we.SuspendedNodeKey
	node := g.GetNode(nodeKey)
	if node == nil {
		return nil, fmt.Errorf("suspended node %q not present in compiled graph", nodeKey)
	}
	ne := we.LatestExecution(nodeKey)
	if ne == nil {
		return nil, fmt.Errorf("no execution record for suspended node %q", nodeKey)
	}

	we.Status = domain.StatusRunning
	we.SuspendedNodeKey = ""
	we.SuspensionType = ""
	we.SuspensionData = nil
	we.SuspendedAt = nil

	outcome := e.resumeNode(ctx, g, we, node, ne, resumeData)
	if res := e.terminalFromOutcome(we, outcome); res != nil {
		return res, nil
	}
	return e.run(ctx, g, we)
}

// run is the scheduler's step loop (§4.6): repeatedly pick the next
// ready node (LIFO among ties, by activation depth), run it, route its
// output, and continue until no node is ready (completed), a node
// suspends, a node fails terminally, or max_iterations is hit.
func (e *Engine) run(ctx context.Context, g *domain.ExecutionGraph, we *domain.WorkflowExecution) (*ExecutionResult, error) {
	for {
		if we.Runtime.IterationCount >= we.Runtime.MaxIterations {
			err := domain.NewError(domain.ErrCodeIterationLimit, fmt.Sprintf("execution exceeded max_iterations (%d)", we.Runtime.MaxIterations), nil)
			we.Status = domain.StatusFailed
			e.middleware.Emit(EventWorkflowFailed, map[string]any{"execution_id": we.ID, "error": err.ToMap()})
			return &ExecutionResult{Status: StatusFailed, Execution: we, Err: err}, nil
		}

		nodeKey, ok := findNextReady(we)
		if !ok {
			we.Status = domain.StatusCompleted
			e.middleware.Emit(EventWorkflowCompleted, map[string]any{"execution_id": we.ID})
			return &ExecutionResult{Status: StatusCompleted, Execution: we}, nil
		}

		node := g.GetNode(nodeKey)
		if node == nil {
			err := domain.NewError(domain.ErrCodeCompile, fmt.Sprintf("ready node %q not present in compiled graph", nodeKey), nil)
			we.Status = domain.StatusFailed
			return &ExecutionResult{Status: StatusFailed, Execution: we, Err: err}, nil
		}

		delete(we.ExecutionData.ActivePaths, nodeKey)
		delete(we.ExecutionData.ActiveNodes, nodeKey)
		delete(we.ExecutionData.PendingDeliveries, nodeKey)

		prior := we.LatestExecution(nodeKey)
		loopback := prior != nil
		ne := &domain.NodeExecution{NodeKey: nodeKey, Status: domain.StatusRunning, ExecutionIndex: we.NextExecutionIndex(), StartedAt: time.Now()}
		we.AppendExecution(ne)

		we.Runtime.IterationCount++
		outcome := e.runNode(ctx, g, we, node, ne, 1, loopback)
		if res := e.terminalFromOutcome(we, outcome); res != nil {
			return res, nil
		}
	}
}

func (e *Engine) terminalFromOutcome(we *domain.WorkflowExecution, outcome nodeRunOutcome) *ExecutionResult {
	switch {
	case outcome.suspended:
		e.middleware.Emit(EventWorkflowSuspended, map[string]any{"execution_id": we.ID, "node_key": we.SuspendedNodeKey})
		return &ExecutionResult{Status: StatusSuspended, Execution: we}
	case outcome.failed:
		e.middleware.Emit(EventWorkflowFailed, map[string]any{"execution_id": we.ID, "error": outcome.failErr.ToMap()})
		return &ExecutionResult{Status: StatusFailed, Execution: we, Err: outcome.failErr}
	default:
		return nil
	}
}

// findNextReady picks the ready node with the greatest activation depth
// (ActiveNodes value), breaking ties toward the node that most recently
// joined the ready frontier (ActivationSeq): the scheduler explores
// depth-first, LIFO (§4.6). Go map iteration order is randomized, so the
// decision is made purely from the depth/seq values, never from visit
// order. Returns false once no node has a non-empty ActivePaths entry.
func findNextReady(we *domain.WorkflowExecution) (string, bool) {
	best := ""
	bestDepth := -1
	bestSeq := -1
	found := false
	for key, paths := range we.ExecutionData.ActivePaths {
		if len(paths) == 0 {
			continue
		}
		depth := we.ExecutionData.ActiveNodes[key]
		seq := we.ExecutionData.ActivationSeq[key]
		if !found || depth > bestDepth || (depth == bestDepth && seq > bestSeq) {
			best, bestDepth, bestSeq, found = key, depth, seq, true
		}
	}
	return best, found
}
