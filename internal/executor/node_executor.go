package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/bluzky/prana/internal/action"
	"github.com/bluzky/prana/internal/domain"
	"github.com/bluzky/prana/internal/template"
)

// nodeRunOutcome is what one node step produced, for the scheduler to act on.
type nodeRunOutcome struct {
	suspended bool
	failed    bool
	failErr   *domain.Error
}

// runNode executes node once: render params, invoke the action, interpret
// the result (§4.4). attemptNumber is 1 on first execution and increments
// on each retry re-entry; ne is the NodeExecution record being filled in,
// already appended (first attempt) or reused (retry re-entry).
func (e *Engine) runNode(ctx context.Context, g *domain.ExecutionGraph, we *domain.WorkflowExecution, node *domain.Node, ne *domain.NodeExecution, attemptNumber int, loopback bool) nodeRunOutcome {
	ectx := buildExecContext(g, we, node, ne.ExecutionIndex, ne.RunIndex, loopback, e.preparationFor(g, node))
	renderedParams, rerr := e.renderParams(node, ectx)
	if rerr != nil {
		return e.finishFailure(g, we, node, ne, attemptNumber, rerr, false)
	}
	ne.Params = renderedParams

	act, ok := e.registry.Get(node.Type)
	if !ok {
		return e.finishFailure(g, we, node, ne, attemptNumber,
			domain.NewError(domain.ErrCodeAction, fmt.Sprintf("no action registered for type %q", node.Type), nil), false)
	}

	e.middleware.Emit(EventNodeStarted, map[string]any{"node_key": node.Key, "execution_index": ne.ExecutionIndex, "attempt": attemptNumber})

	execCtx, cancel := context.WithTimeout(ctx, e.config.NodeExecutionTimeout)
	defer cancel()
	result, err := act.Execute(execCtx, renderedParams, ectx)
	if err != nil {
		return e.finishFailure(g, we, node, ne, attemptNumber, asDomainError(err), false)
	}
	return e.interpretResult(g, we, node, ne, attemptNumber, result, false)
}

// resumeNode reactivates a suspended node. Retry suspensions re-run
// Execute with fresh attemptNumber; every other suspension type calls
// Resume with the params recorded when the node first suspended.
func (e *Engine) resumeNode(ctx context.Context, g *domain.ExecutionGraph, we *domain.WorkflowExecution, node *domain.Node, ne *domain.NodeExecution, resumeData any) nodeRunOutcome {
	if ne.SuspensionType == domain.SuspensionRetry {
		attempt := 1
		if m, ok := ne.SuspensionData.(map[string]any); ok {
			if a, ok := m["attempt"].(int); ok {
				attempt = a
			}
		}
		e.middleware.Emit(EventNodeResumed, map[string]any{"node_key": node.Key, "execution_index": ne.ExecutionIndex})
		return e.runNode(ctx, g, we, node, ne, attempt+1, false)
	}

	ectx := buildExecContext(g, we, node, ne.ExecutionIndex, ne.RunIndex, false, e.preparationFor(g, node))
	act, ok := e.registry.Get(node.Type)
	if !ok {
		return e.finishFailure(g, we, node, ne, 1,
			domain.NewError(domain.ErrCodeAction, fmt.Sprintf("no action registered for type %q", node.Type), nil), true)
	}
	e.middleware.Emit(EventNodeResumed, map[string]any{"node_key": node.Key, "execution_index": ne.ExecutionIndex})
	execCtx, cancel := context.WithTimeout(ctx, e.config.NodeExecutionTimeout)
	defer cancel()
	result, err := act.Resume(execCtx, ne.Params, ectx, resumeData)
	if err != nil {
		return e.finishFailure(g, we, node, ne, 1, asDomainError(err), true)
	}
	return e.interpretResult(g, we, node, ne, 1, result, true)
}

func (e *Engine) renderParams(node *domain.Node, ectx action.ExecContext) (map[string]any, *domain.Error) {
	rendered, err := template.RenderTree(node.Params, template.Context(ectx.ToMap()), e.config.DefaultTemplateMode, e.filters, e.limits)
	if err != nil {
		if derr, ok := err.(*domain.Error); ok {
			return nil, derr
		}
		return nil, domain.NewError(domain.ErrCodeTemplate, err.Error(), err)
	}
	if rendered == nil {
		return map[string]any{}, nil
	}
	m, ok := rendered.(map[string]any)
	if !ok {
		return nil, domain.NewError(domain.ErrCodeValidation, "node params must render to a map", nil)
	}
	return m, nil
}

// RenderFreeText interpolates a single free-text string (e.g. a prompt or
// message template, as opposed to a node's structured params map) against
// ectx. Per §4.2, free-text interpolation defaults to template.Graceful:
// unresolved references render empty rather than failing the node.
func (e *Engine) RenderFreeText(text string, ectx action.ExecContext) (any, error) {
	t, err := template.Parse(text, e.limits)
	if err != nil {
		return nil, err
	}
	return template.Render(t, template.Context(ectx.ToMap()), template.Graceful, e.filters, e.limits)
}

// interpretResult implements §4.4 steps 3-5: on success, complete the
// record and merge state updates; on failure, either route straight to
// an action-chosen port (Result.Port set, §4.3/§9's `Failure{error,
// port?}`) or apply the retry/on_error policy; on suspend, mark the
// execution suspended. isResume is true when result came from
// action.Resume rather than action.Execute: §4.7 resume failures never
// retry, so finishFailure is told to skip straight to on_error.
func (e *Engine) interpretResult(g *domain.ExecutionGraph, we *domain.WorkflowExecution, node *domain.Node, ne *domain.NodeExecution, attemptNumber int, result action.Result, isResume bool) nodeRunOutcome {
	switch result.Kind {
	case action.ResultSuspend:
		now := time.Now()
		ne.Status = domain.StatusSuspended
		ne.SuspensionType = result.SuspendType
		ne.SuspensionData = result.SuspendData
		ne.CompletedAt = &now
		we.Status = domain.StatusSuspended
		we.SuspendedNodeKey = node.Key
		we.SuspensionType = result.SuspendType
		we.SuspensionData = result.SuspendData
		we.SuspendedAt = &now
		e.middleware.Emit(EventNodeSuspended, map[string]any{"node_key": node.Key, "suspension_type": string(result.SuspendType)})
		return nodeRunOutcome{suspended: true}

	case action.ResultFailure:
		if result.Port != "" {
			ne.ErrorData = result.Err.ToMap()
			e.completeNode(g, we, node, ne, continuedErrorData(result.Err, "error_port"), result.Port)
			return nodeRunOutcome{}
		}
		return e.finishFailure(g, we, node, ne, attemptNumber, result.Err, isResume)

	default: // ResultSuccess
		e.applyStateUpdates(we, node.Key, result.State)
		e.completeNode(g, we, node, ne, result.Data, effectivePort(result.Port))
		return nodeRunOutcome{}
	}
}

// finishFailure applies §4.7's failure policy. A suspend-for-retry outcome
// suspends the execution exactly like any other suspension; continue/
// continue_error_output complete the node on a synthetic port;
// stop_workflow fails the whole run. isResume skips retry eligibility
// entirely and applies on_error directly, per §4.7.
func (e *Engine) finishFailure(g *domain.ExecutionGraph, we *domain.WorkflowExecution, node *domain.Node, ne *domain.NodeExecution, attemptNumber int, failErr *domain.Error, isResume bool) nodeRunOutcome {
	var policyResult action.Result
	if isResume {
		policyResult = applyOnError(node, failErr)
	} else {
		policyResult = applyFailurePolicy(node, attemptNumber, failErr)
	}
	switch policyResult.Kind {
	case action.ResultSuspend:
		now := time.Now()
		ne.Status = domain.StatusSuspended
		ne.SuspensionType = policyResult.SuspendType
		ne.SuspensionData = policyResult.SuspendData
		ne.ErrorData = failErr.ToMap()
		ne.CompletedAt = &now
		we.Status = domain.StatusSuspended
		we.SuspendedNodeKey = node.Key
		we.SuspensionType = policyResult.SuspendType
		we.SuspensionData = policyResult.SuspendData
		we.SuspendedAt = &now
		e.middleware.Emit(EventNodeSuspended, map[string]any{"node_key": node.Key, "suspension_type": string(policyResult.SuspendType), "retry": true})
		return nodeRunOutcome{suspended: true}
	case action.ResultSuccess:
		e.completeNode(g, we, node, ne, policyResult.Data, effectivePort(policyResult.Port))
		ne.ErrorData = failErr.ToMap()
		return nodeRunOutcome{}
	default:
		now := time.Now()
		ne.Status = domain.StatusFailed
		ne.ErrorData = failErr.ToMap()
		ne.CompletedAt = &now
		we.Status = domain.StatusFailed
		e.middleware.Emit(EventNodeFailed, map[string]any{"node_key": node.Key, "error": failErr.ToMap()})
		return nodeRunOutcome{failed: true, failErr: failErr}
	}
}

func (e *Engine) completeNode(g *domain.ExecutionGraph, we *domain.WorkflowExecution, node *domain.Node, ne *domain.NodeExecution, data any, port string) {
	now := time.Now()
	ne.Status = domain.StatusCompleted
	ne.OutputData = data
	ne.OutputPort = port
	ne.CompletedAt = &now

	we.Runtime.Nodes[node.Key] = domain.RuntimeNodeState{
		Output:  data,
		Port:    port,
		Context: we.ExecutionData.ContextData.NodeContext(node.Key),
	}
	delete(we.ExecutionData.ActivePaths, node.Key)
	delete(we.ExecutionData.ActiveNodes, node.Key)
	delete(we.ExecutionData.PendingDeliveries, node.Key)
	domain.Deliver(g, &we.ExecutionData, node.Key, port, ne.ExecutionIndex)

	e.middleware.Emit(EventNodeCompleted, map[string]any{"node_key": node.Key, "port": port, "output": data})
}

func (e *Engine) applyStateUpdates(we *domain.WorkflowExecution, nodeKey string, state *action.StateUpdates) {
	if state == nil {
		return
	}
	for k, v := range state.Workflow {
		we.ExecutionData.ContextData.Workflow[k] = v
	}
	if len(state.NodeContext) > 0 {
		nc := we.ExecutionData.ContextData.NodeContext(nodeKey)
		for k, v := range state.NodeContext {
			nc[k] = v
		}
	}
}

func effectivePort(port string) string {
	if port == "" {
		return domain.MainPort
	}
	return port
}

func asDomainError(err error) *domain.Error {
	if derr, ok := err.(*domain.Error); ok {
		return derr
	}
	return domain.NewError(domain.ErrCodeAction, err.Error(), err)
}
