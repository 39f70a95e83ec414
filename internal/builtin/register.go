package builtin

import "github.com/bluzky/prana/internal/action"

// RegisterAll wires every reference action into registry under its
// "integration.action" type string. A host is free to call individual
// registry.Register calls instead; this exists for the common case of
// wanting the whole reference set available.
func RegisterAll(registry *action.Registry) error {
	actions := map[string]action.Action{
		"http.request":      NewHTTPRequestAction(nil),
		"wait.delay":        NewWaitDelayAction(),
		"data.merge":        NewDataMergeAction(),
		"logic.if":          NewLogicIfAction(),
		"logic.switch":      NewLogicSwitchAction(),
		"openai.completion": NewOpenAICompletionAction(),
	}
	for t, a := range actions {
		if err := registry.Register(t, a); err != nil {
			return err
		}
	}
	return nil
}
