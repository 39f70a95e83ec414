package executor

import (
	"github.com/bluzky/prana/internal/action"
	"github.com/bluzky/prana/internal/domain"
)

// buildRoutedInput implements §4.4 step 1: collect, per input port, the
// outputs of upstream nodes routed to it. A node with exactly one input
// port sees that port's value directly under $input (the common case);
// a node with several named ports (e.g. a merge action's input_a/input_b)
// sees $input as a map keyed by port.
func buildRoutedInput(g *domain.ExecutionGraph, we *domain.WorkflowExecution, nodeKey string) any {
	if nodeKey == g.TriggerNodeKey && len(g.ReverseConnectionsByTarget[nodeKey]) == 0 {
		return we.TriggerData
	}
	byPort := map[string][]any{}
	for _, c := range g.ReverseConnectionsByTarget[nodeKey] {
		state, ok := we.Runtime.Nodes[c.From]
		if !ok {
			continue
		}
		byPort[c.ToPort] = append(byPort[c.ToPort], state.Output)
	}
	if len(byPort) == 0 {
		return nil
	}
	flatten := func(vals []any) any {
		if len(vals) == 1 {
			return vals[0]
		}
		return vals
	}
	if len(byPort) == 1 {
		for _, vals := range byPort {
			return flatten(vals)
		}
	}
	out := make(map[string]any, len(byPort))
	for port, vals := range byPort {
		out[port] = flatten(vals)
	}
	return out
}

// buildExecContext implements §4.4 step 2.
func buildExecContext(g *domain.ExecutionGraph, we *domain.WorkflowExecution, node *domain.Node, executionIndex, runIndex int, loopback bool, preparation any) action.ExecContext {
	return action.ExecContext{
		Input:       buildRoutedInput(g, we, node.Key),
		Nodes:       we.Runtime.Nodes,
		Vars:        we.Vars,
		Env:         we.Runtime.Env,
		Workflow:    action.WorkflowRef{ID: g.WorkflowID},
		Preparation: preparation,
		Execution: action.ExecutionRef{
			ID:             we.ID,
			RunIndex:       runIndex,
			ExecutionIndex: executionIndex,
			Mode:           string(we.Status),
			State:          we.ExecutionData.ContextData.Workflow,
			CurrentNodeKey: node.Key,
			Loopback:       loopback,
		},
	}
}
