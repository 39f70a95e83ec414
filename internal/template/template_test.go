package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, src string, ctx Context, mode Mode) any {
	t.Helper()
	tmpl, err := Parse(src, DefaultLimits())
	require.NoError(t, err)
	v, err := Render(tmpl, ctx, mode, DefaultFilters(), DefaultLimits())
	require.NoError(t, err)
	return v
}

func TestSingleExpressionPreservesType(t *testing.T) {
	ctx := Context{"input": map[string]any{"count": int64(42)}}
	v := render(t, "{{ $input.count }}", ctx, Strict)
	assert.Equal(t, int64(42), v)
}

func TestMixedContentProducesString(t *testing.T) {
	ctx := Context{"input": map[string]any{"count": int64(42)}}
	v := render(t, "count={{ $input.count }}", ctx, Strict)
	assert.Equal(t, "count=42", v)
}

func TestSingleExpressionListPreserved(t *testing.T) {
	ctx := Context{"input": map[string]any{"items": []any{"a", "b"}}}
	v := render(t, "{{ $input.items }}", ctx, Strict)
	assert.Equal(t, []any{"a", "b"}, v)
}

func TestPipeEquivalence(t *testing.T) {
	n, err := ParseExpr(`$input.name | upper`)
	require.NoError(t, err)
	assert.Equal(t, KindCall, n.Kind)
	assert.Equal(t, "upper", n.Function())
	require.Len(t, n.Children, 1)
	assert.Equal(t, KindVariable, n.Children[0].Kind)
}

func TestPipeChainLeftToRight(t *testing.T) {
	ctx := Context{"input": map[string]any{"name": "ada"}}
	v := render(t, `{{ $input.name | upper | truncate(2) }}`, ctx, Strict)
	assert.Equal(t, "AD", v)
}

func TestFilterArgForms(t *testing.T) {
	ctx := Context{"input": map[string]any{"x": ""}, "fallback": "y"}
	v := render(t, `{{ $input.x | default("literal") }}`, ctx, Strict)
	assert.Equal(t, "literal", v)

	v = render(t, `{{ $input.x | default(fallback) }}`, ctx, Strict)
	assert.Equal(t, "y", v)
}

func TestIfElsif(t *testing.T) {
	ctx := Context{"input": map[string]any{"age": int64(20)}}
	v := render(t, `{% if $input.age >= 18 %}adult{% elsif $input.age >= 13 %}teen{% else %}kid{% endif %}`, ctx, Strict)
	assert.Equal(t, "adult", v)
}

func TestForLoop(t *testing.T) {
	ctx := Context{"input": map[string]any{"items": []any{"a", "b", "c"}}}
	v := render(t, `{% for item in $input.items %}[{{ item }}]{% endfor %}`, ctx, Strict)
	assert.Equal(t, "[a][b][c]", v)
}

func TestComment(t *testing.T) {
	v := render(t, `a{# drop me #}b`, Context{}, Strict)
	assert.Equal(t, "ab", v)
}

func TestGracefulModeMissingVariable(t *testing.T) {
	v := render(t, `{{ $input.missing }}`, Context{"input": map[string]any{}}, Graceful)
	assert.Nil(t, v)
}

func TestStrictModeMissingRootErrors(t *testing.T) {
	_, err := Parse(`{{ $bogus.x }}`, DefaultLimits())
	require.NoError(t, err)
	tmpl, _ := Parse(`{{ $bogus.x }}`, DefaultLimits())
	_, err = Render(tmpl, Context{}, Strict, DefaultFilters(), DefaultLimits())
	assert.Error(t, err)
}

func TestOperatorPrecedence(t *testing.T) {
	v := render(t, `{{ 2 + 3 * 4 }}`, Context{}, Strict)
	assert.Equal(t, int64(14), v)
}

func TestForIterationLimit(t *testing.T) {
	items := make([]any, 3)
	for i := range items {
		items[i] = i
	}
	ctx := Context{"input": map[string]any{"items": items}}
	tmpl, err := Parse(`{% for i in $input.items %}x{% endfor %}`, DefaultLimits())
	require.NoError(t, err)
	limits := DefaultLimits()
	limits.MaxForIterations = 2
	_, err = Render(tmpl, ctx, Strict, DefaultFilters(), limits)
	assert.Error(t, err)
}
