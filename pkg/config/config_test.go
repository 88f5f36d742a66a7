package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `
meta:
  name: research-agent
  defaults:
    llm: gpt-4o-mini
    retry:
      max_attempts: 2
      backoff: 0.5
state:
  shape:
    query: str
    findings: list
    answer: str
  init:
    findings: []
prompts:
  partials:
    persona: "You are a research assistant."
  templates:
    answer:
      system: '{{template "persona" .}}'
      user: "Answer: {{ .query }}"
tools:
  - id: search
    kind: http
    config:
      url: https://example.test/search
    timeout:
      seconds: 5
graph:
  inputs: [query]
  outputs: [answer]
  max_steps: 50
  nodes:
    - id: fetch
      type: tool
      uses: search
      inputs:
        q: "{{ .query }}"
      map:
        merge:
          findings: "{{ .result.items }}"
    - id: decide
      type: router
      cases:
        - when: 'size(state.findings) > 0'
          to: respond
      default: respond
    - id: respond
      type: llm
      prompt: answer
      map:
        set:
          answer: "{{ .result.text }}"
  edges:
    - from: fetch
      to: decide
subgraphs:
  enrich:
    inputs: [query]
    outputs: [summary]
    nodes:
      - id: noopish
        type: noop
        map:
          set:
            summary: done
`

func TestLoadBytes(t *testing.T) {
	doc, err := LoadBytes([]byte(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, "research-agent", doc.Meta.Name)
	assert.Equal(t, 1, doc.Meta.SchemaVersion, "schema_version defaults to 1")
	assert.Equal(t, 0.3, doc.Meta.Defaults.Temp, "temp defaults to 0.3")
	assert.Equal(t, "deepmerge", doc.State.Reducer)
	assert.Equal(t, 50, doc.Graph.MaxSteps)

	require.Len(t, doc.Graph.Nodes, 3)
	fetch := doc.Graph.Nodes[0]
	assert.Equal(t, "tool", fetch.Type)
	assert.Equal(t, "search", fetch.Uses)
	require.NotNil(t, fetch.Map)
	assert.Contains(t, fetch.Map.Merge, "findings")

	decide := doc.Graph.Nodes[1]
	require.Len(t, decide.Cases, 1)
	assert.Equal(t, "respond", decide.Cases[0].To)

	require.Contains(t, doc.Subgraphs, "enrich")

	preds := doc.Predicates()
	assert.Contains(t, preds, "size(state.findings) > 0")
}

func mutate(t *testing.T, replace, with string) ([]byte, bool) {
	t.Helper()
	if !strings.Contains(sampleDoc, replace) {
		return nil, false
	}
	return []byte(strings.Replace(sampleDoc, replace, with, 1)), true
}

func TestLoadRejects(t *testing.T) {
	cases := []struct {
		name    string
		replace string
		with    string
		wantErr string
	}{
		{"unknown node field", "uses: search", "uses: search\n      bogus: 1", "bogus"},
		{"unknown tool reference", "uses: search", "uses: missing", "unknown tool"},
		{"unknown prompt reference", "prompt: answer", "prompt: nope", "unknown prompt"},
		{"unknown edge target", "to: decide", "to: nowhere", "unknown node"},
		{"init outside shape", "findings: []", "bogus: 1", "not present in state.shape"},
		{"bad reducer", "state:", "state:\n  reducer: sum", "reducer"},
		{"router case target", "to: respond\n      default: respond", "to: nowhere2\n      default: respond", "unknown node"},
		{"missing name", "name: research-agent", "name: \"\"", "meta.name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, ok := mutate(t, tc.replace, tc.with)
			require.True(t, ok, "pattern %q not found", tc.replace)
			_, err := LoadBytes(data)
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoadRejectsStaticCycle(t *testing.T) {
	data, ok := mutate(t, "edges:\n    - from: fetch\n      to: decide",
		"edges:\n    - from: fetch\n      to: decide\n    - from: decide\n      to: fetch")
	require.True(t, ok)
	_, err := LoadBytes(data)
	assert.ErrorContains(t, err, "cycle")
}

func TestLoadRejectsSubgraphCycle(t *testing.T) {
	data, ok := mutate(t, `    nodes:
      - id: noopish
        type: noop`,
		`    nodes:
      - id: again
        type: subgraph
        graph: enrich
      - id: noopish
        type: noop`)
	require.True(t, ok)
	_, err := LoadBytes(data)
	assert.ErrorContains(t, err, "subgraph dependency cycle")
}

func TestMemoryValidation(t *testing.T) {
	withMemory := sampleDoc + `
memory:
  enabled: true
  kind: file
`
	_, err := LoadBytes([]byte(withMemory))
	assert.ErrorContains(t, err, "requires path")

	_, err = LoadBytes([]byte(withMemory + "  path: /tmp/sessions.jsonl\n"))
	assert.NoError(t, err)
}
