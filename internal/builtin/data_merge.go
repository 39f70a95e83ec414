package builtin

import (
	"context"

	"github.com/bluzky/prana/internal/action"
	"github.com/bluzky/prana/internal/domain"
)

// DataMergeAction implements "data.merge": a fan-in join over a
// multi-port $input (§4.4's "map keyed by port" shape). Each port's
// value is shallow-merged, later ports (in params["order"], or map
// iteration order if absent) winning key conflicts.
type DataMergeAction struct{}

func NewDataMergeAction() *DataMergeAction { return &DataMergeAction{} }

func (a *DataMergeAction) Prepare(ctx context.Context, node *domain.Node) (any, error) {
	return nil, nil
}

func (a *DataMergeAction) Execute(ctx context.Context, params map[string]any, ectx action.ExecContext) (action.Result, error) {
	byPort, ok := ectx.Input.(map[string]any)
	if !ok {
		// Single-port input: nothing to merge, pass it through.
		return action.Success(ectx.Input), nil
	}

	order, _ := params["order"].([]any)
	merged := map[string]any{}
	seen := map[string]bool{}
	mergeOne := func(v any) {
		m, ok := v.(map[string]any)
		if !ok {
			return
		}
		for k, vv := range m {
			merged[k] = vv
		}
	}
	for _, p := range order {
		port, _ := p.(string)
		if v, ok := byPort[port]; ok {
			mergeOne(v)
			seen[port] = true
		}
	}
	for port, v := range byPort {
		if !seen[port] {
			mergeOne(v)
		}
	}
	return action.Success(merged), nil
}

func (a *DataMergeAction) Resume(ctx context.Context, params map[string]any, ectx action.ExecContext, resumeData any) (action.Result, error) {
	return action.Failure(domain.NewError(domain.ErrCodeAction, "data.merge never suspends", nil)), nil
}
