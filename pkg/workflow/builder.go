package workflow

import "github.com/bluzky/prana/internal/domain"

// Builder assembles a Definition fluently, the way the teacher's
// DefinitionBuilder assembles its REST-facing Definition, then compiles
// it into a domain.Workflow ready for domain.Compile.
type Builder struct {
	d Definition
}

// New starts a builder for a workflow with the given id/name/version.
func New(id, name string, version int) *Builder {
	return &Builder{d: Definition{ID: id, Name: name, Version: version, Variables: map[string]any{}}}
}

// Trigger names which node key is the entry point.
func (b *Builder) Trigger(nodeKey string) *Builder {
	b.d.TriggerKey = nodeKey
	return b
}

// Var sets one workflow-scoped variable.
func (b *Builder) Var(key string, value any) *Builder {
	b.d.Variables[key] = value
	return b
}

// Node appends a node definition built via NewNode.
func (b *Builder) Node(n NodeDef) *Builder {
	b.d.Nodes = append(b.d.Nodes, n)
	return b
}

// Connect appends a connection from (fromKey, fromPort) to (toKey, toPort).
func (b *Builder) Connect(fromKey, fromPort, toKey, toPort string) *Builder {
	b.d.Connections = append(b.d.Connections, ConnectionDef{From: fromKey, FromPort: fromPort, To: toKey, ToPort: toPort})
	return b
}

// ConnectMain is sugar for the common main -> main connection.
func (b *Builder) ConnectMain(fromKey, toKey string) *Builder {
	return b.Connect(fromKey, domain.MainPort, toKey, domain.MainPort)
}

// Definition returns the accumulated definition, e.g. to serialize with ToYAML.
func (b *Builder) Definition() Definition { return b.d }

// Build compiles the accumulated definition into a domain.Workflow.
func (b *Builder) Build() (*domain.Workflow, *domain.Error) {
	return Compile(b.d)
}

// Compile turns a Definition (however obtained — a Builder, FromYAML, a
// hand-built literal) into a domain.Workflow, applying default node
// settings where SettingsDef is the zero value.
func Compile(d Definition) (*domain.Workflow, *domain.Error) {
	w := domain.NewWorkflow(d.ID, d.Name, d.Version)
	for k, v := range d.Variables {
		w.Variables[k] = v
	}
	for _, nd := range d.Nodes {
		n := &domain.Node{Key: nd.Key, Name: nd.Name, Type: nd.Type, Params: nd.Params, Settings: settingsFromDef(nd.Settings)}
		if err := w.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, cd := range d.Connections {
		fromPort := cd.FromPort
		if fromPort == "" {
			fromPort = domain.MainPort
		}
		toPort := cd.ToPort
		if toPort == "" {
			toPort = domain.MainPort
		}
		w.AddConnection(&domain.Connection{From: cd.From, FromPort: fromPort, To: cd.To, ToPort: toPort})
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

func settingsFromDef(s SettingsDef) domain.NodeSettings {
	if s == (SettingsDef{}) {
		return domain.DefaultNodeSettings()
	}
	settings := domain.DefaultNodeSettings()
	settings.RetryOnFailed = s.RetryOnFailed
	if s.MaxRetries > 0 {
		settings.MaxRetries = s.MaxRetries
	}
	if s.RetryDelayMs > 0 {
		settings.RetryDelayMs = s.RetryDelayMs
	}
	if s.OnError != "" {
		settings.OnError = domain.OnErrorPolicy(s.OnError)
	}
	return settings
}

// NewNode starts a fluent NodeDef builder, mirroring the teacher's
// NodeDefBuilder chain style.
func NewNode(key, nodeType string) *NodeBuilder {
	return &NodeBuilder{n: NodeDef{Key: key, Type: nodeType}}
}

type NodeBuilder struct{ n NodeDef }

func (b *NodeBuilder) Name(name string) *NodeBuilder { b.n.Name = name; return b }
func (b *NodeBuilder) Params(p any) *NodeBuilder      { b.n.Params = p; return b }
func (b *NodeBuilder) Retry(maxRetries, delayMs int) *NodeBuilder {
	b.n.Settings.RetryOnFailed = true
	b.n.Settings.MaxRetries = maxRetries
	b.n.Settings.RetryDelayMs = delayMs
	return b
}
func (b *NodeBuilder) OnError(policy string) *NodeBuilder { b.n.Settings.OnError = policy; return b }
func (b *NodeBuilder) Build() NodeDef                      { return b.n }
