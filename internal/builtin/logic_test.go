package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluzky/prana/internal/action"
	"github.com/bluzky/prana/internal/domain"
)

func TestLogicIfAction_RoutesOnTruthiness(t *testing.T) {
	a := NewLogicIfAction()

	res, err := a.Execute(context.Background(), map[string]any{"condition": true}, action.ExecContext{Input: "x"})
	require.NoError(t, err)
	assert.Equal(t, "true", res.Port)
	assert.Equal(t, "x", res.Data)

	res, err = a.Execute(context.Background(), map[string]any{"condition": ""}, action.ExecContext{})
	require.NoError(t, err)
	assert.Equal(t, "false", res.Port)

	res, err = a.Execute(context.Background(), map[string]any{"condition": int64(0)}, action.ExecContext{})
	require.NoError(t, err)
	assert.Equal(t, "false", res.Port)

	res, err = a.Execute(context.Background(), map[string]any{"condition": nil}, action.ExecContext{})
	require.NoError(t, err)
	assert.Equal(t, "false", res.Port)
}

func TestLogicSwitchAction_MatchesCase(t *testing.T) {
	a := NewLogicSwitchAction()
	params := map[string]any{
		"value": "b",
		"cases": map[string]any{"first": "a", "second": "b"},
	}
	res, err := a.Execute(context.Background(), params, action.ExecContext{Input: "payload"})
	require.NoError(t, err)
	assert.Equal(t, "second", res.Port)
	assert.Equal(t, "payload", res.Data)
}

func TestLogicSwitchAction_FallsBackToDefault(t *testing.T) {
	a := NewLogicSwitchAction()
	params := map[string]any{
		"value":   "nope",
		"cases":   map[string]any{"first": "a"},
		"default": true,
	}
	res, err := a.Execute(context.Background(), params, action.ExecContext{})
	require.NoError(t, err)
	assert.Equal(t, "default", res.Port)
}

func TestLogicSwitchAction_NoMatchNoDefaultFails(t *testing.T) {
	a := NewLogicSwitchAction()
	params := map[string]any{"value": "nope", "cases": map[string]any{"first": "a"}}
	res, err := a.Execute(context.Background(), params, action.ExecContext{})
	require.NoError(t, err)
	require.Equal(t, action.ResultFailure, res.Kind)
	assert.Equal(t, domain.ErrCodeNoMatchingCase, res.Err.Code)
}
