package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalDottedAccess(t *testing.T) {
	ctx := map[string]any{
		"input": map[string]any{"user": map[string]any{"email": "a@b.com"}},
	}
	v, err := Eval("$input.user.email", ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", v)
}

func TestEvalIndexAccess(t *testing.T) {
	ctx := map[string]any{
		"nodes": map[string]any{"api": map[string]any{"output": map[string]any{"items": []any{"a", "b", "c"}}}},
	}
	v, err := Eval("$nodes.api.output.items[1]", ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

func TestEvalQuotedKeyAccess(t *testing.T) {
	ctx := map[string]any{"vars": map[string]any{"a-b": "x"}}
	v, err := Eval(`$vars["a-b"]`, ctx)
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestEvalAtomKeyAccess(t *testing.T) {
	ctx := map[string]any{"vars": map[string]any{"status": "ok"}}
	v, err := Eval("$vars[:status]", ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestEvalMissingIntermediateShortCircuits(t *testing.T) {
	ctx := map[string]any{"input": map[string]any{}}
	v, err := Eval("$input.user.email", ctx)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestEvalOutOfBoundsIndex(t *testing.T) {
	ctx := map[string]any{"input": []any{"a"}}
	v, err := Eval("$input[5]", ctx)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestEvalUnknownRootErrors(t *testing.T) {
	_, err := Eval("$bogus.x", map[string]any{"input": 1})
	require.Error(t, err)
}

func TestEvalNegativeIndexNotSupported(t *testing.T) {
	ctx := map[string]any{"input": []any{"a", "b"}}
	v, err := Eval("$input[-1]", ctx)
	require.NoError(t, err)
	assert.Nil(t, v)
}
