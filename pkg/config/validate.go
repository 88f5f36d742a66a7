package config

import (
	"fmt"
	"sort"
)

const rootGraphName = "__root__"

var validReducers = map[string]bool{"deepmerge": true, "replace": true}

var validToolKinds = map[string]bool{"http": true, "mcp": true, "builtin": true}

var validMemoryKinds = map[string]bool{"inmemory": true, "redis": true, "file": true}

// Validate checks the document's internal consistency: section requirements,
// reference integrity across graphs, and the static-edge acyclicity the
// scheduler depends on. It does not compile templates or predicates; that is
// the adapters' concern.
func (d *Document) Validate() error {
	if d.Meta.Name == "" {
		return fmt.Errorf("meta.name is required")
	}
	if d.Meta.SchemaVersion < 1 {
		return fmt.Errorf("meta.schema_version must be positive")
	}

	if err := d.validateState(); err != nil {
		return err
	}
	if err := d.validatePrompts(); err != nil {
		return err
	}
	if err := d.validateMemory(); err != nil {
		return err
	}

	toolIDs := make(map[string]bool, len(d.Tools))
	for _, tool := range d.Tools {
		if tool.ID == "" {
			return fmt.Errorf("tools entries require an id")
		}
		if toolIDs[tool.ID] {
			return fmt.Errorf("duplicate tool id %q", tool.ID)
		}
		if !validToolKinds[tool.Kind] {
			return fmt.Errorf("tool %q has unsupported kind %q", tool.ID, tool.Kind)
		}
		toolIDs[tool.ID] = true
	}

	for name, g := range d.graphs() {
		if err := d.validateGraph(name, g, toolIDs); err != nil {
			return err
		}
	}
	return d.validateSubgraphReferences()
}

// Predicates returns every routing expression in the document (router cases,
// loop until, edge guards) so callers can compile-check them up front.
func (d *Document) Predicates() []string {
	var exprs []string
	for _, g := range d.graphs() {
		for _, node := range g.Nodes {
			for _, c := range node.Cases {
				exprs = append(exprs, c.When)
			}
			if node.Until != "" {
				exprs = append(exprs, node.Until)
			}
		}
		for _, e := range g.Edges {
			if e.When != "" {
				exprs = append(exprs, e.When)
			}
		}
	}
	return exprs
}

// graphs returns the root graph and subgraphs keyed by name, subgraphs in
// sorted order for deterministic error reporting.
func (d *Document) graphs() map[string]GraphDoc {
	all := make(map[string]GraphDoc, len(d.Subgraphs)+1)
	all[rootGraphName] = d.Graph
	for name, g := range d.Subgraphs {
		all[name] = g
	}
	return all
}

func (d *Document) validateState() error {
	if len(d.State.Shape) == 0 {
		return fmt.Errorf("state.shape must define at least one field")
	}
	if !validReducers[d.State.Reducer] {
		return fmt.Errorf("state.reducer %q is not one of deepmerge, replace", d.State.Reducer)
	}
	var undeclared []string
	for key := range d.State.Init {
		if _, ok := d.State.Shape[key]; !ok {
			undeclared = append(undeclared, key)
		}
	}
	if len(undeclared) > 0 {
		sort.Strings(undeclared)
		return fmt.Errorf("state.init keys %v are not present in state.shape", undeclared)
	}
	return nil
}

func (d *Document) validatePrompts() error {
	if len(d.Prompts.Templates) == 0 {
		return fmt.Errorf("prompts.templates must define at least one template")
	}
	for name, tpl := range d.Prompts.Templates {
		if len(tpl.Roles()) == 0 {
			return fmt.Errorf("prompt template %q must define at least one role", name)
		}
	}
	return nil
}

func (d *Document) validateMemory() error {
	m := d.Memory
	if m == nil || !m.Enabled {
		return nil
	}
	if !validMemoryKinds[m.Kind] {
		return fmt.Errorf("memory.kind %q is not one of inmemory, redis, file", m.Kind)
	}
	if m.Kind == "file" && m.Path == "" {
		return fmt.Errorf("memory.kind %q requires path", m.Kind)
	}
	if m.Kind == "redis" && m.DSN == "" {
		return fmt.Errorf("memory.kind %q requires dsn", m.Kind)
	}
	return nil
}

func (d *Document) validateGraph(name string, g GraphDoc, toolIDs map[string]bool) error {
	if len(g.Inputs) == 0 || len(g.Outputs) == 0 {
		return fmt.Errorf("graph %q must declare inputs and outputs", name)
	}

	nodeIDs := make(map[string]bool, len(g.Nodes))
	for _, node := range g.Nodes {
		if node.ID == "" {
			return fmt.Errorf("graph %q has a node without an id", name)
		}
		if nodeIDs[node.ID] {
			return fmt.Errorf("graph %q has duplicate node id %q", name, node.ID)
		}
		nodeIDs[node.ID] = true
	}

	for _, e := range g.Edges {
		if !nodeIDs[e.From] {
			return fmt.Errorf("graph %q edge references unknown node %q", name, e.From)
		}
		if !nodeIDs[e.To] {
			return fmt.Errorf("graph %q edge references unknown node %q", name, e.To)
		}
	}

	for _, node := range g.Nodes {
		if err := d.validateNode(name, node, nodeIDs, toolIDs); err != nil {
			return err
		}
	}

	return ensureAcyclic(name, g)
}

func (d *Document) validateNode(graph string, node Node, nodeIDs, toolIDs map[string]bool) error {
	fail := func(format string, args ...any) error {
		prefix := fmt.Sprintf("graph %q node %q: ", graph, node.ID)
		return fmt.Errorf(prefix+format, args...)
	}

	if node.OnError != nil {
		if node.OnError.To == "" && !node.OnError.Resume {
			return fail("on_error must set to or resume")
		}
		if node.OnError.To != "" && !nodeIDs[node.OnError.To] {
			return fail("on_error references unknown node %q", node.OnError.To)
		}
	}
	if node.Retry != nil && node.Retry.MaxAttempts < 1 {
		return fail("retry.max_attempts must be at least 1")
	}
	if node.Timeout != nil && node.Timeout.Seconds <= 0 {
		return fail("timeout.seconds must be positive")
	}

	switch node.Type {
	case "tool":
		if node.Uses == "" {
			return fail("tool nodes require uses")
		}
		if !toolIDs[node.Uses] {
			return fail("references unknown tool %q", node.Uses)
		}
	case "llm":
		if node.Prompt == "" {
			return fail("llm nodes require prompt")
		}
		if _, ok := d.Prompts.Templates[node.Prompt]; !ok {
			return fail("references unknown prompt %q", node.Prompt)
		}
	case "router":
		if len(node.Cases) == 0 {
			return fail("router nodes require at least one case")
		}
		for _, c := range node.Cases {
			if c.When == "" || c.To == "" {
				return fail("router cases require when and to")
			}
			if !nodeIDs[c.To] {
				return fail("case references unknown node %q", c.To)
			}
		}
		if node.Default != "" && !nodeIDs[node.Default] {
			return fail("default references unknown node %q", node.Default)
		}
		if node.Map != nil {
			return fail("router nodes do not support map")
		}
	case "loop":
		if node.Body == "" {
			return fail("loop nodes require body")
		}
		if !nodeIDs[node.Body] {
			return fail("body references unknown node %q", node.Body)
		}
		if node.Body == node.ID {
			return fail("loop body must be a different node")
		}
		if node.MaxIterations < 0 {
			return fail("max_iterations must not be negative")
		}
		if node.Map != nil {
			return fail("loop nodes do not support map")
		}
	case "subgraph":
		if node.Graph == "" {
			return fail("subgraph nodes require graph")
		}
		if _, ok := d.Subgraphs[node.Graph]; !ok {
			return fail("references undefined graph %q", node.Graph)
		}
	case "noop":
	default:
		return fail("unsupported type %q", node.Type)
	}
	return nil
}

// ensureAcyclic rejects cycles over static edges and loop-body adjacency.
// Router targets are deliberately not part of the adjacency: a router may
// route backwards, bounded at runtime by the step budget.
func ensureAcyclic(name string, g GraphDoc) error {
	adjacency := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		adjacency[e.From] = append(adjacency[e.From], e.To)
	}
	for _, node := range g.Nodes {
		if node.Type == "loop" {
			adjacency[node.ID] = append(adjacency[node.ID], node.Body)
		}
	}

	const (
		visiting = 1
		done     = 2
	)
	colors := make(map[string]int, len(g.Nodes))
	var visit func(id string) error
	visit = func(id string) error {
		switch colors[id] {
		case visiting:
			return fmt.Errorf("graph %q contains a cycle through node %q", name, id)
		case done:
			return nil
		}
		colors[id] = visiting
		for _, next := range adjacency[id] {
			if err := visit(next); err != nil {
				return err
			}
		}
		colors[id] = done
		return nil
	}
	for _, node := range g.Nodes {
		if err := visit(node.ID); err != nil {
			return err
		}
	}
	return nil
}

// validateSubgraphReferences rejects cycles in the subgraph dependency
// relation, which would recurse without bound at runtime.
func (d *Document) validateSubgraphReferences() error {
	deps := make(map[string][]string, len(d.Subgraphs)+1)
	deps[rootGraphName] = subgraphRefs(d.Graph)
	for name, g := range d.Subgraphs {
		deps[name] = subgraphRefs(g)
	}

	const (
		visiting = 1
		done     = 2
	)
	colors := make(map[string]int, len(deps))
	var visit func(name string) error
	visit = func(name string) error {
		switch colors[name] {
		case visiting:
			return fmt.Errorf("subgraph dependency cycle through %q", name)
		case done:
			return nil
		}
		colors[name] = visiting
		for _, next := range deps[name] {
			if err := visit(next); err != nil {
				return err
			}
		}
		colors[name] = done
		return nil
	}
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

func subgraphRefs(g GraphDoc) []string {
	var refs []string
	for _, node := range g.Nodes {
		if node.Type == "subgraph" {
			refs = append(refs, node.Graph)
		}
	}
	return refs
}
