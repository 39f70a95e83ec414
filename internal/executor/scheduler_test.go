package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluzky/prana/internal/action"
	"github.com/bluzky/prana/internal/domain"
)

// passthroughAction always succeeds, echoing $input as its output on
// domain.MainPort. Used for nodes whose content isn't under test.
type passthroughAction struct{}

func (passthroughAction) Prepare(ctx context.Context, n *domain.Node) (any, error) { return nil, nil }
func (passthroughAction) Execute(ctx context.Context, params map[string]any, ectx action.ExecContext) (action.Result, error) {
	return action.Success(ectx.Input), nil
}
func (passthroughAction) Resume(ctx context.Context, params map[string]any, ectx action.ExecContext, resumeData any) (action.Result, error) {
	return action.Success(resumeData), nil
}

// routeAction reads params["port"] (already template-rendered) and
// routes its input to that port, modeling logic.if/logic.switch.
type routeAction struct{}

func (routeAction) Prepare(ctx context.Context, n *domain.Node) (any, error) { return nil, nil }
func (routeAction) Execute(ctx context.Context, params map[string]any, ectx action.ExecContext) (action.Result, error) {
	port, _ := params["port"].(string)
	return action.SuccessPort(ectx.Input, port), nil
}
func (routeAction) Resume(ctx context.Context, params map[string]any, ectx action.ExecContext, resumeData any) (action.Result, error) {
	return action.Failure(domain.NewError(domain.ErrCodeAction, "never suspends", nil)), nil
}

// alwaysFailAction fails unconditionally.
type alwaysFailAction struct{}

func (alwaysFailAction) Prepare(ctx context.Context, n *domain.Node) (any, error) { return nil, nil }
func (alwaysFailAction) Execute(ctx context.Context, params map[string]any, ectx action.ExecContext) (action.Result, error) {
	return action.Failure(domain.NewError(domain.ErrCodeAction, "boom", nil)), nil
}
func (alwaysFailAction) Resume(ctx context.Context, params map[string]any, ectx action.ExecContext, resumeData any) (action.Result, error) {
	return action.Failure(domain.NewError(domain.ErrCodeAction, "boom", nil)), nil
}

// webhookAction always suspends awaiting a webhook callback.
type webhookAction struct{}

func (webhookAction) Prepare(ctx context.Context, n *domain.Node) (any, error) { return nil, nil }
func (webhookAction) Execute(ctx context.Context, params map[string]any, ectx action.ExecContext) (action.Result, error) {
	return action.Suspend(domain.SuspensionWebhook, map[string]any{"waiting": true}), nil
}
func (webhookAction) Resume(ctx context.Context, params map[string]any, ectx action.ExecContext, resumeData any) (action.Result, error) {
	return action.Success(resumeData), nil
}

// mergeAction expects ectx.Input to be the multi-port map shape and
// flattens it into one map.
type mergeAction struct{}

func (mergeAction) Prepare(ctx context.Context, n *domain.Node) (any, error) { return nil, nil }
func (mergeAction) Execute(ctx context.Context, params map[string]any, ectx action.ExecContext) (action.Result, error) {
	byPort, ok := ectx.Input.(map[string]any)
	if !ok {
		return action.Failure(domain.NewError(domain.ErrCodeValidation, "expected multi-port input", nil)), nil
	}
	out := map[string]any{}
	for port, v := range byPort {
		out[port] = v
	}
	return action.Success(out), nil
}
func (mergeAction) Resume(ctx context.Context, params map[string]any, ectx action.ExecContext, resumeData any) (action.Result, error) {
	return action.Failure(domain.NewError(domain.ErrCodeAction, "never suspends", nil)), nil
}

func newNode(key, typ string) *domain.Node {
	return &domain.Node{Key: key, Name: key, Type: typ, Params: map[string]any{}, Settings: domain.DefaultNodeSettings()}
}

func compileLinear(t *testing.T) (*domain.ExecutionGraph, *action.Registry) {
	t.Helper()
	w := domain.NewWorkflow("wf1", "linear", 1)
	require.Nil(t, w.AddNode(newNode("start", "pass")))
	require.Nil(t, w.AddNode(newNode("mid", "pass")))
	require.Nil(t, w.AddNode(newNode("end", "pass")))
	w.AddConnection(&domain.Connection{From: "start", FromPort: domain.MainPort, To: "mid", ToPort: domain.MainPort})
	w.AddConnection(&domain.Connection{From: "mid", FromPort: domain.MainPort, To: "end", ToPort: domain.MainPort})

	registry := action.NewRegistry()
	require.NoError(t, registry.Register("pass", passthroughAction{}))

	g, derr := domain.Compile(w, "start")
	require.Nil(t, derr)
	return g, registry
}

// S1: linear happy path completes with every node visited once.
func TestEngine_LinearHappyPath(t *testing.T) {
	g, registry := compileLinear(t)
	e := NewEngine(registry, nil, DefaultConfig())

	result, err := e.Execute(context.Background(), g, "manual", "hello", nil, nil)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, result.Status)
	assert.Len(t, result.Execution.NodeExecutions["start"], 1)
	assert.Len(t, result.Execution.NodeExecutions["mid"], 1)
	assert.Len(t, result.Execution.NodeExecutions["end"], 1)
	assert.Equal(t, "hello", result.Execution.NodeExecutions["end"][0].OutputData)
}

// S2: if/else branching routes to exactly one side.
func TestEngine_Branching(t *testing.T) {
	w := domain.NewWorkflow("wf2", "branch", 1)
	require.Nil(t, w.AddNode(newNode("start", "route")))
	require.Nil(t, w.AddNode(newNode("true_branch", "pass")))
	require.Nil(t, w.AddNode(newNode("false_branch", "pass")))
	w.AddConnection(&domain.Connection{From: "start", FromPort: "true", To: "true_branch", ToPort: domain.MainPort})
	w.AddConnection(&domain.Connection{From: "start", FromPort: "false", To: "false_branch", ToPort: domain.MainPort})

	registry := action.NewRegistry()
	require.NoError(t, registry.Register("route", routeAction{}))
	require.NoError(t, registry.Register("pass", passthroughAction{}))

	start, _ := w.GetNode("start")
	start.Params = map[string]any{"port": "true"}

	g, derr := domain.Compile(w, "start")
	require.Nil(t, derr)

	e := NewEngine(registry, nil, DefaultConfig())
	result, err := e.Execute(context.Background(), g, "manual", "payload", nil, nil)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, result.Status)
	assert.Len(t, result.Execution.NodeExecutions["true_branch"], 1)
	assert.Len(t, result.Execution.NodeExecutions["false_branch"], 0)
}

// S3: diamond fan-out/fan-in delivers both upstream outputs to the join
// node as a map keyed by port.
func TestEngine_DiamondFanInFanOut(t *testing.T) {
	w := domain.NewWorkflow("wf3", "diamond", 1)
	require.Nil(t, w.AddNode(newNode("start", "pass")))
	require.Nil(t, w.AddNode(newNode("left", "pass")))
	require.Nil(t, w.AddNode(newNode("right", "pass")))
	require.Nil(t, w.AddNode(newNode("join", "merge")))
	w.AddConnection(&domain.Connection{From: "start", FromPort: domain.MainPort, To: "left", ToPort: domain.MainPort})
	w.AddConnection(&domain.Connection{From: "start", FromPort: domain.MainPort, To: "right", ToPort: domain.MainPort})
	w.AddConnection(&domain.Connection{From: "left", FromPort: domain.MainPort, To: "join", ToPort: "left"})
	w.AddConnection(&domain.Connection{From: "right", FromPort: domain.MainPort, To: "join", ToPort: "right"})

	registry := action.NewRegistry()
	require.NoError(t, registry.Register("pass", passthroughAction{}))
	require.NoError(t, registry.Register("merge", mergeAction{}))

	g, derr := domain.Compile(w, "start")
	require.Nil(t, derr)

	e := NewEngine(registry, nil, DefaultConfig())
	result, err := e.Execute(context.Background(), g, "manual", "x", nil, nil)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, result.Status)
	joined := result.Execution.NodeExecutions["join"][0].OutputData.(map[string]any)
	assert.Equal(t, "x", joined["left"])
	assert.Equal(t, "x", joined["right"])
}

// S4: a node that fails then succeeds on retry suspends for :retry and,
// once resumed enough times, completes.
func TestEngine_RetryEventualSuccess(t *testing.T) {
	w := domain.NewWorkflow("wf4", "retry", 1)
	n := newNode("flaky", "flaky")
	n.Settings = domain.NodeSettings{RetryOnFailed: true, MaxRetries: 3, RetryDelayMs: 0, OnError: domain.OnErrorStopWorkflow}
	require.Nil(t, w.AddNode(n))

	registry := action.NewRegistry()
	require.NoError(t, registry.Register("flaky", &countingFlakyAction{failUntilAttempt: 2}))

	g, derr := domain.Compile(w, "flaky")
	require.Nil(t, derr)

	e := NewEngine(registry, nil, DefaultConfig())
	result, err := e.Execute(context.Background(), g, "manual", "in", nil, nil)
	require.NoError(t, err)
	require.Equal(t, StatusSuspended, result.Status)
	assert.Equal(t, domain.SuspensionRetry, result.Execution.SuspensionType)

	result, err = e.Resume(context.Background(), g, result.Execution, nil, nil)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, result.Status)
	assert.Len(t, result.Execution.NodeExecutions["flaky"], 1)
}

// countingFlakyAction fails on every Execute call until it has been
// called failUntilAttempt times, tracking attempts internally since the
// scheduler doesn't feed attempt number through params.
type countingFlakyAction struct {
	failUntilAttempt int
	calls            int
}

func (f *countingFlakyAction) Prepare(ctx context.Context, n *domain.Node) (any, error) { return nil, nil }
func (f *countingFlakyAction) Execute(ctx context.Context, params map[string]any, ectx action.ExecContext) (action.Result, error) {
	f.calls++
	if f.calls < f.failUntilAttempt {
		return action.Failure(domain.NewError(domain.ErrCodeAction, "transient failure", nil)), nil
	}
	return action.Success(ectx.Input), nil
}
func (f *countingFlakyAction) Resume(ctx context.Context, params map[string]any, ectx action.ExecContext, resumeData any) (action.Result, error) {
	return action.Failure(domain.NewError(domain.ErrCodeAction, "never suspends", nil)), nil
}

// S5: on_error=continue_error_output routes a failed node's error down
// the virtual error port instead of stopping the workflow.
func TestEngine_ContinueErrorOutput(t *testing.T) {
	w := domain.NewWorkflow("wf5", "continue-error", 1)
	failing := newNode("failing", "fail")
	failing.Settings = domain.NodeSettings{RetryOnFailed: false, MaxRetries: 1, RetryDelayMs: 0, OnError: domain.OnErrorContinueErrorOutput}
	require.Nil(t, w.AddNode(failing))
	require.Nil(t, w.AddNode(newNode("recovery", "pass")))
	w.AddConnection(&domain.Connection{From: "failing", FromPort: domain.ErrorPort, To: "recovery", ToPort: domain.MainPort})

	registry := action.NewRegistry()
	require.NoError(t, registry.Register("fail", alwaysFailAction{}))
	require.NoError(t, registry.Register("pass", passthroughAction{}))

	g, derr := domain.Compile(w, "failing")
	require.Nil(t, derr)

	e := NewEngine(registry, nil, DefaultConfig())
	result, err := e.Execute(context.Background(), g, "manual", "x", nil, nil)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, result.Status)
	assert.Len(t, result.Execution.NodeExecutions["recovery"], 1)
	failingExec := result.Execution.NodeExecutions["failing"][0]
	assert.Equal(t, domain.StatusCompleted, failingExec.Status)
	assert.NotEmpty(t, failingExec.ErrorData)
	assert.Equal(t, domain.ErrorPort, failingExec.OutputPort)
}

// S6: a node suspending for a webhook callback stops the run until
// Resume delivers the callback payload.
func TestEngine_WebhookSuspendResume(t *testing.T) {
	w := domain.NewWorkflow("wf6", "webhook", 1)
	require.Nil(t, w.AddNode(newNode("wait_for_hook", "webhook")))
	require.Nil(t, w.AddNode(newNode("after", "pass")))
	w.AddConnection(&domain.Connection{From: "wait_for_hook", FromPort: domain.MainPort, To: "after", ToPort: domain.MainPort})

	registry := action.NewRegistry()
	require.NoError(t, registry.Register("webhook", webhookAction{}))
	require.NoError(t, registry.Register("pass", passthroughAction{}))

	g, derr := domain.Compile(w, "wait_for_hook")
	require.Nil(t, derr)

	e := NewEngine(registry, nil, DefaultConfig())
	result, err := e.Execute(context.Background(), g, "manual", "start-payload", nil, nil)
	require.NoError(t, err)
	require.Equal(t, StatusSuspended, result.Status)
	assert.Equal(t, domain.SuspensionWebhook, result.Execution.SuspensionType)
	assert.Equal(t, "wait_for_hook", result.Execution.SuspendedNodeKey)

	result, err = e.Resume(context.Background(), g, result.Execution, "callback-payload", nil)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, "callback-payload", result.Execution.NodeExecutions["after"][0].OutputData)
}

// Universal invariant: the iteration limit stops a self-looping workflow
// instead of spinning forever.
func TestEngine_IterationLimitStopsInfiniteLoop(t *testing.T) {
	w := domain.NewWorkflow("wf7", "loop", 1)
	require.Nil(t, w.AddNode(newNode("looper", "pass")))
	w.AddConnection(&domain.Connection{From: "looper", FromPort: domain.MainPort, To: "looper", ToPort: domain.MainPort})

	registry := action.NewRegistry()
	require.NoError(t, registry.Register("pass", passthroughAction{}))

	g, derr := domain.Compile(w, "looper")
	require.Nil(t, derr)

	cfg := DefaultConfig()
	cfg.MaxIterations = 5
	e := NewEngine(registry, nil, cfg)
	result, err := e.Execute(context.Background(), g, "manual", "x", nil, nil)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, domain.ErrCodeIterationLimit, result.Err.Code)
}
