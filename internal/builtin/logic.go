package builtin

import (
	"context"
	"fmt"

	"github.com/bluzky/prana/internal/action"
	"github.com/bluzky/prana/internal/domain"
)

// LogicIfAction implements "logic.if": params["condition"] has already
// been rendered to a typed value by the template engine's single-
// expression rule (§4.2), so this is a truthiness check routed to the
// "true" or "false" output port — no expression evaluation happens here.
type LogicIfAction struct{}

func NewLogicIfAction() *LogicIfAction { return &LogicIfAction{} }

func (a *LogicIfAction) Prepare(ctx context.Context, node *domain.Node) (any, error) {
	return nil, nil
}

func (a *LogicIfAction) Execute(ctx context.Context, params map[string]any, ectx action.ExecContext) (action.Result, error) {
	cond := truthy(params["condition"])
	port := "false"
	if cond {
		port = "true"
	}
	return action.SuccessPort(ectx.Input, port), nil
}

func (a *LogicIfAction) Resume(ctx context.Context, params map[string]any, ectx action.ExecContext, resumeData any) (action.Result, error) {
	return action.Failure(domain.NewError(domain.ErrCodeAction, "logic.if never suspends", nil)), nil
}

// LogicSwitchAction implements "logic.switch": params["value"] is
// compared (by stringified equality) against each key of params["cases"]
// (a map of case label -> literal); the matching key is the output
// port. No match falls back to the "default" port if params["default"]
// is present, otherwise fails with ErrCodeNoMatchingCase (§7).
type LogicSwitchAction struct{}

func NewLogicSwitchAction() *LogicSwitchAction { return &LogicSwitchAction{} }

func (a *LogicSwitchAction) Prepare(ctx context.Context, node *domain.Node) (any, error) {
	return nil, nil
}

func (a *LogicSwitchAction) Execute(ctx context.Context, params map[string]any, ectx action.ExecContext) (action.Result, error) {
	value := fmt.Sprintf("%v", params["value"])
	cases, _ := params["cases"].(map[string]any)
	for label, want := range cases {
		if fmt.Sprintf("%v", want) == value {
			return action.SuccessPort(ectx.Input, label), nil
		}
	}
	if _, hasDefault := params["default"]; hasDefault {
		return action.SuccessPort(ectx.Input, "default"), nil
	}
	return action.Failure(domain.NewError(domain.ErrCodeNoMatchingCase, fmt.Sprintf("logic.switch: no case matches value %q", value), nil)), nil
}

func (a *LogicSwitchAction) Resume(ctx context.Context, params map[string]any, ectx action.ExecContext, resumeData any) (action.Result, error) {
	return action.Failure(domain.NewError(domain.ErrCodeAction, "logic.switch never suspends", nil)), nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int64:
		return x != 0
	case float64:
		return x != 0
	default:
		return true
	}
}
