package dsl

import "github.com/agentloom/loom/pkg/config"

// GraphBuilder assembles one graph: its contract, nodes and edges.
type GraphBuilder struct {
	inputs   []string
	outputs  []string
	maxSteps int
	timeout  *config.Timeout

	nodes map[string]*NodeBuilder
	order []string
	edges []config.Edge
}

// Inputs declares the graph's required inputs.
func (g *GraphBuilder) Inputs(names ...string) *GraphBuilder {
	g.inputs = append(g.inputs, names...)
	return g
}

// Outputs declares the state keys projected when the run completes.
func (g *GraphBuilder) Outputs(names ...string) *GraphBuilder {
	g.outputs = append(g.outputs, names...)
	return g
}

// MaxSteps bounds the run's step budget.
func (g *GraphBuilder) MaxSteps(n int) *GraphBuilder {
	g.maxSteps = n
	return g
}

// Timeout bounds the whole run in seconds.
func (g *GraphBuilder) Timeout(seconds float64) *GraphBuilder {
	g.timeout = &config.Timeout{Seconds: seconds}
	return g
}

// Add creates a node in the graph, or returns the existing builder when the
// id was added before.
func (g *GraphBuilder) Add(id string) *NodeBuilder {
	if nb, ok := g.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{graph: g, node: config.Node{ID: id}}
	g.nodes[id] = nb
	g.order = append(g.order, id)
	return nb
}

func (g *GraphBuilder) graphDoc() config.GraphDoc {
	nodes := make([]config.Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id].node)
	}
	return config.GraphDoc{
		Inputs:   g.inputs,
		Outputs:  g.outputs,
		Nodes:    nodes,
		Edges:    g.edges,
		MaxSteps: g.maxSteps,
		Timeout:  g.timeout,
	}
}

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	graph *GraphBuilder
	node  config.Node
}

// Tool marks the node as a tool call.
func (n *NodeBuilder) Tool(uses string) *NodeBuilder {
	n.node.Type = "tool"
	n.node.Uses = uses
	return n
}

// LLM marks the node as a model call using the named prompt.
func (n *NodeBuilder) LLM(prompt string) *NodeBuilder {
	n.node.Type = "llm"
	n.node.Prompt = prompt
	return n
}

// Router marks the node as a router.
func (n *NodeBuilder) Router() *NodeBuilder {
	n.node.Type = "router"
	return n
}

// Loop marks the node as a loop over the named body node.
func (n *NodeBuilder) Loop(body string) *NodeBuilder {
	n.node.Type = "loop"
	n.node.Body = body
	return n
}

// Subgraph marks the node as an entry into the named subgraph.
func (n *NodeBuilder) Subgraph(graph string) *NodeBuilder {
	n.node.Type = "subgraph"
	n.node.Graph = graph
	return n
}

// Noop marks the node as a pure state mutation.
func (n *NodeBuilder) Noop() *NodeBuilder {
	n.node.Type = "noop"
	return n
}

// Inputs sets the rendered arguments of a tool or subgraph node.
func (n *NodeBuilder) Inputs(inputs map[string]any) *NodeBuilder {
	n.node.Inputs = inputs
	return n
}

// Case adds a router branch.
func (n *NodeBuilder) Case(when, to string) *NodeBuilder {
	n.node.Cases = append(n.node.Cases, config.Case{When: when, To: to})
	return n
}

// Default sets the router's fallback target.
func (n *NodeBuilder) Default(to string) *NodeBuilder {
	n.node.Default = to
	return n
}

// Until sets the loop's stop predicate.
func (n *NodeBuilder) Until(expr string) *NodeBuilder {
	n.node.Until = expr
	return n
}

// MaxIterations caps the loop.
func (n *NodeBuilder) MaxIterations(count int) *NodeBuilder {
	n.node.MaxIterations = count
	return n
}

// Set adds a map.set directive.
func (n *NodeBuilder) Set(key string, value any) *NodeBuilder {
	m := n.ensureMap()
	if m.Set == nil {
		m.Set = make(map[string]any)
	}
	m.Set[key] = value
	return n
}

// Merge adds a map.merge directive.
func (n *NodeBuilder) Merge(key string, value any) *NodeBuilder {
	m := n.ensureMap()
	if m.Merge == nil {
		m.Merge = make(map[string]any)
	}
	m.Merge[key] = value
	return n
}

// Delete adds map.delete targets.
func (n *NodeBuilder) Delete(keys ...string) *NodeBuilder {
	m := n.ensureMap()
	m.Delete = append(m.Delete, keys...)
	return n
}

func (n *NodeBuilder) ensureMap() *config.MapDirectives {
	if n.node.Map == nil {
		n.node.Map = &config.MapDirectives{}
	}
	return n.node.Map
}

// Retry sets the node's retry policy.
func (n *NodeBuilder) Retry(maxAttempts int, backoffSeconds float64) *NodeBuilder {
	n.node.Retry = &config.Retry{MaxAttempts: maxAttempts, Backoff: backoffSeconds}
	return n
}

// Timeout bounds each invocation attempt in seconds.
func (n *NodeBuilder) Timeout(seconds float64) *NodeBuilder {
	n.node.Timeout = &config.Timeout{Seconds: seconds}
	return n
}

// OnErrorTo redirects execution to the target when the node fails.
func (n *NodeBuilder) OnErrorTo(target string) *NodeBuilder {
	n.node.OnError = &config.OnError{To: target}
	return n
}

// Resume continues along the normal edges when the node fails.
func (n *NodeBuilder) Resume() *NodeBuilder {
	n.node.OnError = &config.OnError{Resume: true}
	return n
}

// Go adds an unconditional edge to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.graph.edges = append(n.graph.edges, config.Edge{From: n.node.ID, To: target})
	return n
}

// When adds a guarded edge to the target node.
func (n *NodeBuilder) When(condition, target string) *NodeBuilder {
	n.graph.edges = append(n.graph.edges, config.Edge{From: n.node.ID, To: target, When: condition})
	return n
}
