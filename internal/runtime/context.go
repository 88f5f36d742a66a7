package runtime

import (
	"github.com/agentloom/loom/pkg/domain"
)

// renderContext builds the map handed to the Renderer: the state's keys
// flattened at the top level for terse templates, plus the reserved
// state/inputs/result/output entries.
func renderContext(state *State, inputs map[string]any, result *domain.Envelope) map[string]any {
	data := state.Data()
	ctx := make(map[string]any, len(data)+4)
	for k, v := range data {
		ctx[k] = v
	}
	rc := result.Context()
	ctx["state"] = data
	ctx["inputs"] = inputs
	ctx["result"] = rc
	ctx["output"] = rc
	return ctx
}

// conditionContext builds the map handed to the Evaluator for router cases,
// loop predicates and edge guards.
func conditionContext(state *State, inputs map[string]any, result *domain.Envelope, node *domain.Node) map[string]any {
	rc := result.Context()
	ctx := map[string]any{
		"state":  state.Data(),
		"inputs": inputs,
		"result": rc,
		"output": rc,
	}
	if node != nil {
		ctx["node"] = map[string]any{"id": node.ID, "kind": string(node.Kind)}
	} else {
		ctx["node"] = map[string]any{}
	}
	return ctx
}

// applyMap renders a node's map directives against {state, inputs, result}
// and applies them to the container. Rendering failures are configuration
// errors and abort the run.
func (r *run) applyMap(op *domain.MapOp, state *State, inputs map[string]any, result *domain.Envelope) error {
	if op.Empty() {
		return nil
	}
	ctx := renderContext(state, inputs, result)

	rendered := renderedMap{}
	if len(op.Set) > 0 {
		v, err := r.rt.Renderer.RenderValue(op.Set, ctx)
		if err != nil {
			return configErrorf(err, "rendering map.set")
		}
		set, ok := v.(map[string]any)
		if !ok {
			return configErrorf(nil, "map.set rendered to %T, want mapping", v)
		}
		rendered.set = set
	}
	if len(op.Merge) > 0 {
		v, err := r.rt.Renderer.RenderValue(op.Merge, ctx)
		if err != nil {
			return configErrorf(err, "rendering map.merge")
		}
		merge, ok := v.(map[string]any)
		if !ok {
			return configErrorf(nil, "map.merge rendered to %T, want mapping", v)
		}
		rendered.merge = merge
	}
	for _, target := range op.Delete {
		key, err := r.rt.Renderer.RenderString(target, ctx)
		if err != nil {
			return configErrorf(err, "rendering map.delete target %q", target)
		}
		rendered.delete = append(rendered.delete, key)
	}

	state.Apply(rendered)
	return nil
}

// edgeTargets resolves the outgoing edges of a node whose guards (if any)
// evaluate true, in declaration order. Guard evaluation failures are
// configuration errors.
func (r *run) edgeTargets(g *domain.Graph, node *domain.Node, state *State, inputs map[string]any, result *domain.Envelope) ([]string, error) {
	var targets []string
	for _, edge := range g.EdgesFrom(node.ID) {
		if edge.When != "" {
			ok, err := r.rt.Evaluator.Evaluate(edge.When, conditionContext(state, inputs, result, node))
			if err != nil {
				return nil, configErrorf(err, "evaluating edge %s -> %s", edge.From, edge.To)
			}
			if !ok {
				continue
			}
		}
		targets = append(targets, edge.To)
	}
	return targets, nil
}
