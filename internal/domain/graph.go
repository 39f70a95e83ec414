package domain

import "fmt"

// ExecutionGraph is the compiled, reachability-filtered, immutable form
// of a Workflow rooted at a chosen trigger. It is safe to share/cache
// across runs: it depends only on the Workflow and the trigger key.
type ExecutionGraph struct {
	WorkflowID     string
	TriggerNodeKey string

	ReachableNodes map[string]bool
	NodesByKey     map[string]*Node

	// ConnectionsBySource is the filtered adjacency {node -> {port -> [Connection]}}.
	ConnectionsBySource ConnectionIndex
	// ReverseConnectionsByTarget groups incoming connections per target node,
	// used for fan-in analysis and dependency counting.
	ReverseConnectionsByTarget map[string][]*Connection
	// DependencyCount[n] is the static count of distinct predecessor NODES
	// (not edges) of n in the filtered graph; the scheduler never mutates it.
	DependencyCount map[string]int
}

// Compile performs forward BFS from trigger over Workflow.Connections,
// filters nodes/edges to the reachable set, and computes the static
// dependency counts the scheduler relies on. It does not topologically
// sort: loops are allowed and the scheduler picks ready nodes dynamically.
func Compile(w *Workflow, triggerNodeKey string) (*ExecutionGraph, *Error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	trigger, ok := w.GetNode(triggerNodeKey)
	if !ok {
		return nil, NewError(ErrCodeCompile, fmt.Sprintf("trigger node %q not found", triggerNodeKey), nil)
	}
	_ = trigger

	reachable := map[string]bool{triggerNodeKey: true}
	queue := []string{triggerNodeKey}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, port := range sortedPortNames(w.Connections[cur]) {
			for _, c := range w.Connections[cur][port] {
				if _, ok := w.GetNode(c.To); !ok {
					return nil, NewError(ErrCodeCompile, fmt.Sprintf("connection from %q references undefined node %q", cur, c.To), nil)
				}
				if !reachable[c.To] {
					reachable[c.To] = true
					queue = append(queue, c.To)
				}
			}
		}
	}

	g := &ExecutionGraph{
		WorkflowID:                 w.ID,
		TriggerNodeKey:             triggerNodeKey,
		ReachableNodes:             reachable,
		NodesByKey:                 map[string]*Node{},
		ConnectionsBySource:        ConnectionIndex{},
		ReverseConnectionsByTarget: map[string][]*Connection{},
		DependencyCount:            map[string]int{},
	}

	for key := range reachable {
		n, _ := w.GetNode(key)
		g.NodesByKey[key] = n
	}

	predecessors := map[string]map[string]bool{}
	for from := range reachable {
		ports := w.Connections[from]
		if len(ports) == 0 {
			continue
		}
		for _, port := range sortedPortNames(ports) {
			for _, c := range ports[port] {
				if !reachable[c.To] {
					continue
				}
				if g.ConnectionsBySource[from] == nil {
					g.ConnectionsBySource[from] = map[string][]*Connection{}
				}
				g.ConnectionsBySource[from][port] = append(g.ConnectionsBySource[from][port], c)
				g.ReverseConnectionsByTarget[c.To] = append(g.ReverseConnectionsByTarget[c.To], c)
				if predecessors[c.To] == nil {
					predecessors[c.To] = map[string]bool{}
				}
				predecessors[c.To][from] = true
			}
		}
	}
	for node := range reachable {
		g.DependencyCount[node] = len(predecessors[node])
	}
	return g, nil
}

// GetNode returns the compiled node by key, or nil if not reachable.
func (g *ExecutionGraph) GetNode(key string) *Node {
	return g.NodesByKey[key]
}

// OutgoingConnections returns connections leaving node n on port.
func (g *ExecutionGraph) OutgoingConnections(n, port string) []*Connection {
	if ports, ok := g.ConnectionsBySource[n]; ok {
		return ports[port]
	}
	return nil
}
