// Package compiler lowers a validated configuration document into the
// executable form: indexed graphs with precomputed entry nodes, the state
// spec, prompt sources and meta defaults.
package compiler

import (
	"sort"
	"time"

	"github.com/agentloom/loom/internal/runtime"
	"github.com/agentloom/loom/pkg/config"
	"github.com/agentloom/loom/pkg/domain"
	"github.com/agentloom/loom/pkg/eval"
)

// Artifacts is everything the runtime and its adapters need from one
// document.
type Artifacts struct {
	Graph     *domain.Graph
	Subgraphs map[string]*domain.Graph
	State     runtime.StateSpec
	Defaults  runtime.Defaults
	Prompts   []eval.Prompt
	Partials  map[string]string
}

// Compile lowers a document. The document must already be validated; Compile
// does not re-check reference integrity.
func Compile(doc *config.Document) *Artifacts {
	a := &Artifacts{
		Graph:     compileGraph(doc.Meta.Name, doc.Graph),
		Subgraphs: make(map[string]*domain.Graph, len(doc.Subgraphs)),
		State: runtime.StateSpec{
			Shape:   doc.State.Shape,
			Init:    doc.State.Init,
			Reducer: domain.Reducer(doc.State.Reducer),
		},
		Defaults: runtime.Defaults{
			Retry:       compileRetry(doc.Meta.Defaults.Retry),
			Timeout:     compileTimeout(doc.Meta.Defaults.Timeout),
			Model:       doc.Meta.Defaults.LLM,
			Temperature: doc.Meta.Defaults.Temp,
		},
		Partials: doc.Prompts.Partials,
	}
	for name, g := range doc.Subgraphs {
		a.Subgraphs[name] = compileGraph(name, g)
	}

	names := make([]string, 0, len(doc.Prompts.Templates))
	for name := range doc.Prompts.Templates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a.Prompts = append(a.Prompts, compilePrompt(name, doc.Prompts.Templates[name]))
	}
	return a
}

// compileGraph indexes the nodes and computes the entry set: every node no
// edge, router case, router default or loop body points at. Order follows
// node declaration order so runs are deterministic.
func compileGraph(name string, g config.GraphDoc) *domain.Graph {
	out := &domain.Graph{
		Name:     name,
		Nodes:    make(map[string]*domain.Node, len(g.Nodes)),
		Edges:    make([]domain.Edge, 0, len(g.Edges)),
		Inputs:   append([]string(nil), g.Inputs...),
		Outputs:  append([]string(nil), g.Outputs...),
		MaxSteps: g.MaxSteps,
		Timeout:  compileTimeout(g.Timeout),
	}

	incoming := make(map[string]int, len(g.Nodes))
	order := make([]string, 0, len(g.Nodes))
	for i := range g.Nodes {
		node := compileNode(g.Nodes[i])
		out.Nodes[node.ID] = node
		incoming[node.ID] = 0
		order = append(order, node.ID)
	}

	for _, e := range g.Edges {
		out.Edges = append(out.Edges, domain.Edge{From: e.From, To: e.To, When: e.When})
		incoming[e.To]++
	}
	for _, node := range out.Nodes {
		for _, c := range node.Cases {
			if _, ok := incoming[c.To]; ok {
				incoming[c.To]++
			}
		}
		if node.Default != "" {
			if _, ok := incoming[node.Default]; ok {
				incoming[node.Default]++
			}
		}
		if node.Kind == domain.KindLoop {
			if _, ok := incoming[node.Body]; ok {
				incoming[node.Body]++
			}
		}
	}
	for _, id := range order {
		if incoming[id] == 0 {
			out.EntryNodes = append(out.EntryNodes, id)
		}
	}

	out.Index()
	return out
}

func compileNode(n config.Node) *domain.Node {
	node := &domain.Node{
		ID:            n.ID,
		Kind:          domain.NodeKind(n.Type),
		Name:          n.Name,
		Description:   n.Description,
		Retry:         compileRetry(n.Retry),
		Timeout:       compileTimeout(n.Timeout),
		Uses:          n.Uses,
		Inputs:        n.Inputs,
		Prompt:        n.Prompt,
		Default:       n.Default,
		Body:          n.Body,
		Until:         n.Until,
		MaxIterations: n.MaxIterations,
		Graph:         n.Graph,
	}
	if n.OnError != nil {
		node.OnError = &domain.OnError{To: n.OnError.To, Resume: n.OnError.Resume}
	}
	if n.Map != nil {
		node.Map = &domain.MapOp{Set: n.Map.Set, Merge: n.Map.Merge, Delete: n.Map.Delete}
	}
	for _, c := range n.Cases {
		node.Cases = append(node.Cases, domain.RouterCase{When: c.When, To: c.To})
	}
	return node
}

// CompileRetry converts a configured retry policy; seconds become durations.
func CompileRetry(r *config.Retry) *domain.RetryPolicy {
	return compileRetry(r)
}

// CompileTimeout converts a configured timeout in seconds.
func CompileTimeout(t *config.Timeout) time.Duration {
	return compileTimeout(t)
}

func compileRetry(r *config.Retry) *domain.RetryPolicy {
	if r == nil {
		return nil
	}
	return &domain.RetryPolicy{
		MaxAttempts: r.MaxAttempts,
		Backoff:     secondsToDuration(r.Backoff),
	}
}

func compileTimeout(t *config.Timeout) time.Duration {
	if t == nil {
		return 0
	}
	return secondsToDuration(t.Seconds)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func compilePrompt(name string, tpl config.PromptTemplate) eval.Prompt {
	p := eval.Prompt{Name: name}
	if tpl.System != "" {
		p.Roles = append(p.Roles, eval.Role{Name: "system", Source: tpl.System})
	}
	if tpl.User != "" {
		p.Roles = append(p.Roles, eval.Role{Name: "user", Source: tpl.User})
	}
	if tpl.Assistant != "" {
		p.Roles = append(p.Roles, eval.Role{Name: "assistant", Source: tpl.Assistant})
	}
	return p
}
