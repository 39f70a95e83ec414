package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluzky/prana/internal/action"
	"github.com/bluzky/prana/internal/domain"
)

func TestWaitDelayAction_ExecuteSuspendsWithDelay(t *testing.T) {
	a := NewWaitDelayAction()
	res, err := a.Execute(context.Background(), map[string]any{"delay_ms": int64(5000)}, action.ExecContext{})

	require.NoError(t, err)
	require.Equal(t, action.ResultSuspend, res.Kind)
	assert.Equal(t, domain.SuspensionInterval, res.SuspendType)
	assert.Equal(t, int64(5000), res.SuspendData.(map[string]any)["delay_ms"])
}

func TestWaitDelayAction_ExecuteAcceptsFloatDelay(t *testing.T) {
	a := NewWaitDelayAction()
	res, err := a.Execute(context.Background(), map[string]any{"delay_ms": float64(250)}, action.ExecContext{})

	require.NoError(t, err)
	assert.Equal(t, int64(250), res.SuspendData.(map[string]any)["delay_ms"])
}

func TestWaitDelayAction_ResumePassesThroughInput(t *testing.T) {
	a := NewWaitDelayAction()
	res, err := a.Resume(context.Background(), nil, action.ExecContext{Input: "payload"}, nil)

	require.NoError(t, err)
	require.Equal(t, action.ResultSuccess, res.Kind)
	assert.Equal(t, "payload", res.Data)
}
