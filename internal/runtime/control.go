package runtime

import (
	"context"
	"errors"

	"github.com/agentloom/loom/pkg/domain"
)

// executeRouter evaluates the cases in declared order; every true case
// contributes its target (fan-out, not a switch). Routers never fail on
// their own account: a predicate that does not evaluate is a configuration
// error and aborts the run.
func (r *run) executeRouter(g *domain.Graph, node *domain.Node, state *State, inputs map[string]any, traverseEdges bool) (outcome, error) {
	cctx := conditionContext(state, inputs, nil, node)

	var targets []string
	for _, c := range node.Cases {
		ok, err := r.rt.Evaluator.Evaluate(c.When, cctx)
		if err != nil {
			return outcome{}, configErrorf(err, "evaluating router %q case -> %s", node.ID, c.To)
		}
		if ok {
			targets = append(targets, c.To)
		}
	}
	if len(targets) == 0 && node.Default != "" {
		targets = append(targets, node.Default)
	}
	if len(targets) == 0 && traverseEdges {
		edgeTargets, err := r.edgeTargets(g, node, state, inputs, nil)
		if err != nil {
			return outcome{}, err
		}
		targets = edgeTargets
	}

	r.emit(domain.TraceEvent{Type: domain.EventRouterDecision, Graph: g.Name, NodeID: node.ID, NodeKind: node.Kind, Targets: targets})
	env := &domain.Envelope{Payload: map[string]any{"targets": append([]string(nil), targets...)}}
	return outcome{ok: true, result: env, next: targets}, nil
}

// executeLoop runs the body node repeatedly on the same shared state — the
// mutations persisting across iterations is the point, not a leak. The loop
// stops when the until predicate holds or the iteration cap is reached; the
// cap is a normal terminal condition, not an error.
func (r *run) executeLoop(ctx context.Context, g *domain.Graph, node *domain.Node, state *State, inputs map[string]any, depth int, traverseEdges bool) (outcome, error) {
	body, ok := g.Nodes[node.Body]
	if !ok {
		return outcome{}, configErrorf(nil, "loop node %q references unknown body %q", node.ID, node.Body)
	}
	maxIters := node.MaxIterations
	if maxIters <= 0 {
		maxIters = domain.DefaultLoopIterations
	}

	var last *domain.Envelope
	iterations := 0
	var redirect []string

	for iterations < maxIters {
		out, err := r.executeNode(ctx, g, body, state, inputs, depth, false)
		if err != nil {
			return outcome{}, err
		}
		iterations++

		if !out.ok {
			// The body's own error policy resolves first; only an unhandled
			// body failure becomes a failure of the loop as a whole.
			policy := body.OnError
			switch {
			case policy == nil:
				return failure(out.result, out.cause), nil
			case policy.To != "":
				r.emit(domain.TraceEvent{Type: domain.EventNodeError, Graph: g.Name, NodeID: body.ID, NodeKind: body.Kind, Err: errString(out.cause)})
				redirect = []string{policy.To}
			default:
				// resume: the iteration counts, state is untouched, and the
				// loop keeps going.
				last = out.result
				continue
			}
		} else {
			last = out.result
		}

		if redirect != nil {
			break
		}

		if node.Until != "" {
			satisfied, err := r.rt.Evaluator.Evaluate(node.Until, conditionContext(state, inputs, last, node))
			if err != nil {
				return outcome{}, configErrorf(err, "evaluating loop %q until", node.ID)
			}
			if satisfied {
				break
			}
		}
	}

	r.emit(domain.TraceEvent{Type: domain.EventLoopComplete, Graph: g.Name, NodeID: node.ID, NodeKind: node.Kind, Iters: iterations})

	if redirect != nil {
		// A redirected body ends the loop; the loop's own edges do not fire.
		return outcome{ok: true, result: last, next: redirect}, nil
	}

	var next []string
	if traverseEdges {
		var err error
		next, err = r.edgeTargets(g, node, state, inputs, last)
		if err != nil {
			return outcome{}, err
		}
	}
	return outcome{ok: true, result: last, next: next}, nil
}

// executeSubgraph renders the node's inputs in the parent context, runs the
// named subgraph on a fresh isolated state container, and surfaces only the
// subgraph's declared outputs back to the parent through the node's map.
func (r *run) executeSubgraph(ctx context.Context, g *domain.Graph, node *domain.Node, state *State, inputs map[string]any, depth int, traverseEdges bool) (outcome, error) {
	sub, ok := r.rt.Subgraphs[node.Graph]
	if !ok {
		return outcome{}, configErrorf(nil, "subgraph node %q references undefined graph %q", node.ID, node.Graph)
	}
	if depth+1 > r.maxDepth {
		return outcome{}, &AbortError{
			Reason: AbortMaxDepth,
			Graph:  node.Graph,
			Detail: "max subgraph depth exceeded entering " + node.Graph,
		}
	}

	rendered, err := r.rt.Renderer.RenderValue(node.Inputs, renderContext(state, inputs, nil))
	if err != nil {
		return outcome{}, configErrorf(err, "rendering inputs of subgraph node %q", node.ID)
	}
	renderedInputs, ok := rendered.(map[string]any)
	if !ok {
		if rendered == nil {
			renderedInputs = map[string]any{}
		} else {
			return outcome{}, configErrorf(nil, "subgraph node %q inputs rendered to %T, want mapping", node.ID, rendered)
		}
	}

	subInputs := make(map[string]any, len(inputs)+len(renderedInputs))
	for k, v := range inputs {
		subInputs[k] = v
	}
	for k, v := range renderedInputs {
		subInputs[k] = v
	}

	subState := NewState(r.rt.State.Reducer)
	subState.SeedFrom(renderedInputs)

	if err := r.runGraph(ctx, sub, subState, subInputs, depth+1); err != nil {
		var nodeErr *NodeError
		if errors.As(err, &nodeErr) {
			// A failure inside the subgraph resolves through this node's
			// error policy, like any other node failure.
			return failure(domain.ErrorEnvelope("subgraph", err), err), nil
		}
		return outcome{}, err
	}

	outputs := make(map[string]any, len(sub.Outputs))
	for _, name := range sub.Outputs {
		v, _ := subState.Get(name)
		outputs[name] = cloneValue(v)
	}
	env := &domain.Envelope{Payload: outputs}

	return r.finishNode(g, node, state, subInputs, env, traverseEdges)
}
