// Package workflow is the fluent, caller-facing builder for assembling
// a domain.Workflow without hand-writing its node/connection maps, plus
// YAML (de)serialization for definitions stored outside the process.
package workflow

// NodeDef is the builder-friendly shape of a domain.Node.
type NodeDef struct {
	Key      string         `json:"key" yaml:"key"`
	Name     string         `json:"name" yaml:"name"`
	Type     string         `json:"type" yaml:"type"`
	Params   any            `json:"params" yaml:"params"`
	Settings SettingsDef    `json:"settings" yaml:"settings"`
}

// SettingsDef mirrors domain.NodeSettings with a YAML-friendly zero value:
// an empty SettingsDef means "use domain.DefaultNodeSettings()".
type SettingsDef struct {
	RetryOnFailed bool   `json:"retry_on_failed" yaml:"retry_on_failed"`
	MaxRetries    int    `json:"max_retries" yaml:"max_retries"`
	RetryDelayMs  int    `json:"retry_delay_ms" yaml:"retry_delay_ms"`
	OnError       string `json:"on_error" yaml:"on_error"`
}

// ConnectionDef is the builder-friendly shape of a domain.Connection.
type ConnectionDef struct {
	From     string `json:"from" yaml:"from"`
	FromPort string `json:"from_port" yaml:"from_port"`
	To       string `json:"to" yaml:"to"`
	ToPort   string `json:"to_port" yaml:"to_port"`
}

// Definition is the full serializable workflow shape: what FromYAML
// reads and ToYAML writes, and what Build() turns into a domain.Workflow.
type Definition struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Version     int             `json:"version" yaml:"version"`
	TriggerKey  string          `json:"trigger_key" yaml:"trigger_key"`
	Nodes       []NodeDef       `json:"nodes" yaml:"nodes"`
	Connections []ConnectionDef `json:"connections" yaml:"connections"`
	Variables   map[string]any  `json:"variables" yaml:"variables"`
}
