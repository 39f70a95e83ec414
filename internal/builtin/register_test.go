package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluzky/prana/internal/action"
)

func TestRegisterAll_WiresEveryReferenceAction(t *testing.T) {
	registry := action.NewRegistry()
	require.NoError(t, RegisterAll(registry))

	for _, typ := range []string{
		"http.request",
		"wait.delay",
		"data.merge",
		"logic.if",
		"logic.switch",
		"openai.completion",
	} {
		a, ok := registry.Get(typ)
		assert.True(t, ok, "expected %s to be registered", typ)
		assert.NotNil(t, a)
	}
}
