package domain

import "time"

// Graph is a compiled node/edge graph ready for execution.
type Graph struct {
	Name       string
	Nodes      map[string]*Node
	Edges      []Edge
	Inputs     []string
	Outputs    []string
	MaxSteps   int
	Timeout    time.Duration
	EntryNodes []string

	edgesBySource map[string][]Edge
}

// DefaultMaxSteps bounds a run when the graph declares no budget.
const DefaultMaxSteps = 200

// Index precomputes the outgoing-edge lookup. It must be called once after
// the graph is assembled and before execution.
func (g *Graph) Index() {
	g.edgesBySource = make(map[string][]Edge, len(g.Nodes))
	for _, e := range g.Edges {
		g.edgesBySource[e.From] = append(g.edgesBySource[e.From], e)
	}
}

// EdgesFrom returns the outgoing edges of a node in declaration order.
func (g *Graph) EdgesFrom(nodeID string) []Edge {
	return g.edgesBySource[nodeID]
}
