package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FromYAML parses a Definition from its YAML form (the on-disk alternate
// to building one programmatically via New/NewNode).
func FromYAML(src []byte) (Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(src, &d); err != nil {
		return Definition{}, fmt.Errorf("workflow: parse yaml: %w", err)
	}
	return d, nil
}

// ToYAML renders a Definition back to YAML, e.g. for storing alongside
// a compiled workflow's source of truth.
func ToYAML(d Definition) ([]byte, error) {
	out, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("workflow: render yaml: %w", err)
	}
	return out, nil
}
