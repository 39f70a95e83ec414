package builtin

import (
	"context"

	"github.com/bluzky/prana/internal/action"
	"github.com/bluzky/prana/internal/domain"
)

// WaitDelayAction implements "wait.delay": suspends for delay_ms then
// resumes with no output of its own, passing through $input. Models
// "Retry via scheduled suspension" (§9) applied to an ordinary pause
// rather than a failure.
type WaitDelayAction struct{}

func NewWaitDelayAction() *WaitDelayAction { return &WaitDelayAction{} }

func (a *WaitDelayAction) Prepare(ctx context.Context, node *domain.Node) (any, error) {
	return nil, nil
}

func (a *WaitDelayAction) Execute(ctx context.Context, params map[string]any, ectx action.ExecContext) (action.Result, error) {
	delayMs, _ := params["delay_ms"].(int64)
	if delayMs == 0 {
		if f, ok := params["delay_ms"].(float64); ok {
			delayMs = int64(f)
		}
	}
	return action.Suspend(domain.SuspensionInterval, map[string]any{"delay_ms": delayMs}), nil
}

func (a *WaitDelayAction) Resume(ctx context.Context, params map[string]any, ectx action.ExecContext, resumeData any) (action.Result, error) {
	return action.Success(ectx.Input), nil
}
