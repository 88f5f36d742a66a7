/*
Package loom runs declarative agent workflows: directed graphs of tool
calls, model calls, routers, loops and subgraphs, declared in YAML and
executed against a merged state container.

A definition names its state shape, prompts, tools and graph. The engine
compiles it once, then executes runs concurrently; each run seeds its own
state, walks the graph breadth-first from the entry nodes, and returns the
declared outputs.

	eng, err := loom.New("agent.yaml")
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()

	outputs, err := eng.Run(ctx, map[string]any{"request": "find recent papers"})

Execution is bounded: every run has a step budget, loops have iteration
caps, subgraph recursion has a depth limit, and nodes carry retry and
timeout policies. Failures resolve through per-node error policies that
either redirect the flow or resume past the failed node.

Hosts extend the engine through options: WithBuiltin registers in-process
tools, WithModelClient swaps the model provider, WithTraceSink observes
runs, and WithMemoryStore chooses where conversation history lives.
*/
package loom
