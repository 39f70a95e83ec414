package domain

import "fmt"

// OnErrorPolicy selects what a node's failure does to the run once
// retries (if any) are exhausted.
type OnErrorPolicy string

const (
	OnErrorStopWorkflow        OnErrorPolicy = "stop_workflow"
	OnErrorContinue            OnErrorPolicy = "continue"
	OnErrorContinueErrorOutput OnErrorPolicy = "continue_error_output"
)

// ErrorPort is the virtual output port injected by OnErrorContinueErrorOutput.
// It need not appear in an action's declared output ports.
const ErrorPort = "error"

// MainPort is the conventional single input/output port name used when
// an action declares no other ports (§3.1, §4.4: "most common case:
// single port main").
const MainPort = "main"

// NodeSettings controls retry and failure routing for one node.
type NodeSettings struct {
	RetryOnFailed bool          `json:"retry_on_failed" yaml:"retry_on_failed"`
	MaxRetries    int           `json:"max_retries" yaml:"max_retries"`
	RetryDelayMs  int           `json:"retry_delay_ms" yaml:"retry_delay_ms"`
	OnError       OnErrorPolicy `json:"on_error" yaml:"on_error"`
}

// DefaultNodeSettings returns the spec §3.2 defaults.
func DefaultNodeSettings() NodeSettings {
	return NodeSettings{
		RetryOnFailed: false,
		MaxRetries:    1,
		RetryDelayMs:  1000,
		OnError:       OnErrorStopWorkflow,
	}
}

func (s NodeSettings) validate() *Error {
	if s.MaxRetries < 1 || s.MaxRetries > 10 {
		return NewError(ErrCodeValidation, fmt.Sprintf("max_retries must be in 1..10, got %d", s.MaxRetries), nil)
	}
	if s.RetryDelayMs < 0 || s.RetryDelayMs > 60000 {
		return NewError(ErrCodeValidation, fmt.Sprintf("retry_delay_ms must be in 0..60000, got %d", s.RetryDelayMs), nil)
	}
	switch s.OnError {
	case OnErrorStopWorkflow, OnErrorContinue, OnErrorContinueErrorOutput:
	default:
		return NewError(ErrCodeValidation, fmt.Sprintf("unknown on_error policy %q", s.OnError), nil)
	}
	return nil
}

// Node is a step in a workflow. Params is an arbitrary nested structure
// (string/number/bool/list/map) whose string leaves may be templates;
// it is rendered fresh on every execution attempt.
type Node struct {
	Key      string       `json:"key" yaml:"key"`
	Name     string       `json:"name" yaml:"name"`
	Type     string       `json:"type" yaml:"type"`
	Params   any          `json:"params" yaml:"params"`
	Settings NodeSettings `json:"settings" yaml:"settings"`
}

// Connection is a directed edge (from_node:from_port) -> (to_node:to_port).
// Self-loops (From == To) are allowed; they are how loop bodies re-enter
// themselves or an upstream node.
type Connection struct {
	From     string `json:"from" yaml:"from"`
	FromPort string `json:"from_port" yaml:"from_port"`
	To       string `json:"to" yaml:"to"`
	ToPort   string `json:"to_port" yaml:"to_port"`
}

// ConnectionIndex is the double-indexed shape {from_node -> {from_port -> [Connection]}}
// mandated by §3.1 for O(1) lookup of outgoing edges by (node, port).
type ConnectionIndex map[string]map[string][]*Connection

// Workflow is the declarative, caller-owned input to Compile. The
// compiled ExecutionGraph keeps pointers to the same *Node and
// *Connection values, so changing a node or connection in place after
// Compile is visible through the graph; adding or removing nodes and
// connections afterwards is not.
type Workflow struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Version     int             `json:"version" yaml:"version"`
	Nodes       []*Node         `json:"nodes" yaml:"nodes"`
	Connections ConnectionIndex `json:"connections" yaml:"connections"`
	Variables   map[string]any  `json:"variables" yaml:"variables"`

	nodesByKey map[string]*Node
}

// NewWorkflow constructs an empty Workflow ready for AddNode/AddConnection.
func NewWorkflow(id, name string, version int) *Workflow {
	return &Workflow{
		ID:          id,
		Name:        name,
		Version:     version,
		Connections: ConnectionIndex{},
		Variables:   map[string]any{},
		nodesByKey:  map[string]*Node{},
	}
}

// AddNode registers a node; it is an error to reuse a key.
func (w *Workflow) AddNode(n *Node) *Error {
	if n.Key == "" {
		return NewError(ErrCodeValidation, "node key must not be empty", nil)
	}
	if w.nodesByKey == nil {
		w.index()
	}
	if _, exists := w.nodesByKey[n.Key]; exists {
		return NewError(ErrCodeValidation, fmt.Sprintf("duplicate node key %q", n.Key), nil)
	}
	if n.Settings == (NodeSettings{}) {
		n.Settings = DefaultNodeSettings()
	}
	w.Nodes = append(w.Nodes, n)
	w.nodesByKey[n.Key] = n
	return nil
}

// AddConnection appends a connection to the double-indexed adjacency map.
func (w *Workflow) AddConnection(c *Connection) {
	if w.Connections == nil {
		w.Connections = ConnectionIndex{}
	}
	if w.Connections[c.From] == nil {
		w.Connections[c.From] = map[string][]*Connection{}
	}
	w.Connections[c.From][c.FromPort] = append(w.Connections[c.From][c.FromPort], c)
}

// GetNode looks up a node by key.
func (w *Workflow) GetNode(key string) (*Node, bool) {
	if w.nodesByKey == nil {
		w.index()
	}
	n, ok := w.nodesByKey[key]
	return n, ok
}

func (w *Workflow) index() {
	w.nodesByKey = make(map[string]*Node, len(w.Nodes))
	for _, n := range w.Nodes {
		w.nodesByKey[n.Key] = n
	}
}

// AllConnections flattens the double-indexed adjacency map, in a stable
// order (by from node, then from port, then insertion order).
func (w *Workflow) AllConnections() []*Connection {
	var out []*Connection
	for _, n := range w.Nodes {
		ports := w.Connections[n.Key]
		for _, port := range sortedPortNames(ports) {
			out = append(out, ports[port]...)
		}
	}
	return out
}

// Validate checks node/connection well-formedness. Self-loops are
// explicitly permitted (spec §3.3); this supersedes the common DAG
// convention of rejecting from == to.
func (w *Workflow) Validate() *Error {
	if w.nodesByKey == nil {
		w.index()
	}
	seen := make(map[string]bool, len(w.Nodes))
	for _, n := range w.Nodes {
		if n.Key == "" {
			return NewError(ErrCodeValidation, "node key must not be empty", nil)
		}
		if seen[n.Key] {
			return NewError(ErrCodeValidation, fmt.Sprintf("duplicate node key %q", n.Key), nil)
		}
		seen[n.Key] = true
		if n.Type == "" {
			return NewError(ErrCodeValidation, fmt.Sprintf("node %q has no type", n.Key), nil)
		}
		if err := n.Settings.validate(); err != nil {
			return err.WithDetails(map[string]any{"node": n.Key})
		}
	}
	for _, c := range w.AllConnections() {
		if _, ok := w.nodesByKey[c.From]; !ok {
			return NewError(ErrCodeValidation, fmt.Sprintf("connection references unknown source node %q", c.From), nil)
		}
		if _, ok := w.nodesByKey[c.To]; !ok {
			return NewError(ErrCodeValidation, fmt.Sprintf("connection references unknown target node %q", c.To), nil)
		}
	}
	return nil
}

func sortedPortNames(ports map[string][]*Connection) []string {
	names := make([]string, 0, len(ports))
	for p := range ports {
		names = append(names, p)
	}
	// insertion order isn't tracked per-port; a stable lexical order keeps
	// AllConnections deterministic for tests and serialization.
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	return names
}
