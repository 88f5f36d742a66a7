package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFullDocument(t *testing.T) {
	b := New("research-agent")
	b.LLM("gpt-4o-mini").Temperature(0.2).RetryDefaults(2, 0.5)
	b.Shape("query", "str").Shape("findings", "list").Shape("answer", "str")
	b.Init("findings", []any{})
	b.Partial("persona", "You are a research assistant.")
	b.Prompt("answer").
		System(`{{template "persona" .}}`).
		User("Answer: {{ .query }}")
	b.Tool("search", "http", map[string]any{"url": "https://example.test/search"}).
		Timeout(5)

	g := b.Graph()
	g.Inputs("query").Outputs("answer").MaxSteps(50)
	g.Add("fetch").Tool("search").
		Inputs(map[string]any{"q": "{{ .query }}"}).
		Merge("findings", "{{ .result.items }}").
		Go("decide")
	g.Add("decide").Router().
		Case("size(state.findings) > 0", "respond").
		Default("respond")
	g.Add("respond").LLM("answer").
		Set("answer", "{{ .result.text }}")

	doc, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "research-agent", doc.Meta.Name)
	assert.Equal(t, 1, doc.Meta.SchemaVersion, "defaults are applied")
	assert.Equal(t, "deepmerge", doc.State.Reducer)
	require.Len(t, doc.Graph.Nodes, 3)
	assert.Equal(t, "fetch", doc.Graph.Nodes[0].ID, "declaration order is kept")
	assert.Equal(t, "tool", doc.Graph.Nodes[0].Type)
	require.Len(t, doc.Graph.Edges, 1)
	assert.Equal(t, "decide", doc.Graph.Edges[0].To)
}

func TestBuildWithSubgraph(t *testing.T) {
	b := New("with-sub")
	b.Shape("query", "str").Shape("summary", "str")
	b.Prompt("unused").User("{{ .query }}")

	sub := b.Subgraph("enrich")
	sub.Inputs("topic").Outputs("summary")
	sub.Add("work").Noop().Set("summary", "done")

	g := b.Graph()
	g.Inputs("query").Outputs("summary")
	g.Add("enrich-step").Subgraph("enrich").
		Inputs(map[string]any{"topic": "{{ .query }}"}).
		Set("summary", "{{ .result.payload.summary }}")

	doc, err := b.Build()
	require.NoError(t, err)
	require.Contains(t, doc.Subgraphs, "enrich")
	assert.Equal(t, []string{"summary"}, doc.Subgraphs["enrich"].Outputs)
}

func TestBuildValidates(t *testing.T) {
	b := New("broken")
	b.Shape("x", "str")
	b.Prompt("unused").User("{{ .x }}")
	b.Graph().Inputs("x").Outputs("x")
	b.Graph().Add("fetch").Tool("ghost")

	_, err := b.Build()
	require.Error(t, err, "tool nodes must reference declared tools")
}

func TestAddReturnsExistingNode(t *testing.T) {
	b := New("idempotent")
	b.Shape("x", "str")
	b.Prompt("unused").User("{{ .x }}")
	g := b.Graph()
	g.Inputs("x").Outputs("x")
	g.Add("n").Noop().Set("x", "1")
	g.Add("n").Go("m")
	g.Add("m").Noop()

	doc, err := b.Build()
	require.NoError(t, err)
	assert.Len(t, doc.Graph.Nodes, 2)
}
