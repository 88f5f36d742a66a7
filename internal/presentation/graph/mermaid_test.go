package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agentloom/loom/pkg/domain"
)

func TestMermaidShapesAndArrows(t *testing.T) {
	g := &domain.Graph{
		Name: "research",
		Nodes: map[string]*domain.Node{
			"fetch": {ID: "fetch", Kind: domain.KindTool, Timeout: 5 * time.Second,
				OnError: &domain.OnError{To: "recover"}},
			"decide": {ID: "decide", Kind: domain.KindRouter,
				Cases:   []domain.RouterCase{{When: `size(state.items) > 0`, To: "respond"}},
				Default: "recover"},
			"respond":     {ID: "respond", Kind: domain.KindLLM},
			"recover":     {ID: "recover", Kind: domain.KindNoop},
			"refine":      {ID: "refine", Kind: domain.KindLoop, Body: "fetch"},
			"enrich-step": {ID: "enrich-step", Kind: domain.KindSubgraph, Graph: "enrich"},
		},
		Edges: []domain.Edge{
			{From: "fetch", To: "decide"},
			{From: "respond", To: "refine", When: "state.again"},
		},
	}

	out := Mermaid(g)

	assert.Contains(t, out, "graph TD\n")
	assert.Contains(t, out, `fetch[["fetch <br/> 5s"]]`)
	assert.Contains(t, out, `decide{"decide"}`)
	assert.Contains(t, out, `respond("respond")`)
	assert.Contains(t, out, `recover["recover"]`)
	assert.Contains(t, out, `refine[/"refine"/]`)
	assert.Contains(t, out, `enrich_step(("enrich-step: enrich"))`)

	assert.Contains(t, out, `decide -- "size(state.items) > 0" --> respond`)
	assert.Contains(t, out, `decide -- "default" --> recover`)
	assert.Contains(t, out, `refine -- "loop" --> fetch`)
	assert.Contains(t, out, `fetch -. "on_error" .-> recover`)
	assert.Contains(t, out, "fetch --> decide")
	assert.Contains(t, out, `respond -- "state.again" --> refine`)
}
