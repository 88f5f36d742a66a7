package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/agentloom/loom/pkg/domain"
)

// outcome is the result of executing one node. ok distinguishes success from
// a node failure awaiting error-policy resolution; engine-level errors are
// returned separately by the executors.
type outcome struct {
	ok     bool
	result *domain.Envelope
	next   []string
	cause  error
}

func failure(result *domain.Envelope, cause error) outcome {
	return outcome{ok: false, result: result, cause: cause}
}

// executeNode dispatches on the node kind. traverseEdges is false when a
// loop executes its body: the body's outgoing edges must not fire.
func (r *run) executeNode(ctx context.Context, g *domain.Graph, node *domain.Node, state *State, inputs map[string]any, depth int, traverseEdges bool) (outcome, error) {
	r.emit(domain.TraceEvent{Type: domain.EventNodeStart, Graph: g.Name, NodeID: node.ID, NodeKind: node.Kind})
	started := time.Now()

	var out outcome
	var err error
	switch node.Kind {
	case domain.KindTool:
		out, err = r.executeTool(ctx, g, node, state, inputs, traverseEdges)
	case domain.KindLLM:
		out, err = r.executeLLM(ctx, g, node, state, inputs, traverseEdges)
	case domain.KindRouter:
		out, err = r.executeRouter(g, node, state, inputs, traverseEdges)
	case domain.KindLoop:
		out, err = r.executeLoop(ctx, g, node, state, inputs, depth, traverseEdges)
	case domain.KindSubgraph:
		out, err = r.executeSubgraph(ctx, g, node, state, inputs, depth, traverseEdges)
	case domain.KindNoop:
		out, err = r.executeNoop(g, node, state, inputs, traverseEdges)
	default:
		return outcome{}, configErrorf(nil, "unsupported node kind %q on node %q", node.Kind, node.ID)
	}
	if err != nil {
		return outcome{}, err
	}

	r.emit(domain.TraceEvent{
		Type:     domain.EventNodeEnd,
		Graph:    g.Name,
		NodeID:   node.ID,
		NodeKind: node.Kind,
		Targets:  out.next,
		Duration: time.Since(started),
		Err:      errString(out.cause),
	})
	return out, nil
}

func (r *run) executeTool(ctx context.Context, g *domain.Graph, node *domain.Node, state *State, inputs map[string]any, traverseEdges bool) (outcome, error) {
	if err := r.countStep(g, node); err != nil {
		return outcome{}, err
	}

	handle, err := r.rt.Tools.Resolve(node.Uses)
	if err != nil {
		return outcome{}, configErrorf(err, "tool node %q", node.ID)
	}
	fn := handle.Func
	if override, ok := r.overrides[node.Uses]; ok {
		fn = override
	}
	if fn == nil {
		return outcome{}, configErrorf(nil, "tool %q has no callable bound", node.Uses)
	}

	rendered, err := r.rt.Renderer.RenderValue(node.Inputs, renderContext(state, inputs, nil))
	if err != nil {
		return outcome{}, configErrorf(err, "rendering inputs of tool node %q", node.ID)
	}
	args := make(map[string]any, len(handle.Config))
	for k, v := range handle.Config {
		args[k] = v
	}
	if rm, ok := rendered.(map[string]any); ok {
		for k, v := range rm {
			args[k] = v
		}
	} else if rendered != nil {
		return outcome{}, configErrorf(nil, "tool node %q inputs rendered to %T, want mapping", node.ID, rendered)
	}

	timeout := r.resolveTimeout(node.Timeout, handle.Timeout)
	retry := r.resolveRetry(node.Retry, handle.Retry)

	r.emit(domain.TraceEvent{Type: domain.EventToolCall, Graph: g.Name, NodeID: node.ID, NodeKind: node.Kind, Tool: node.Uses, Payload: args})
	env, err := r.invoke(ctx, timeout, retry, func(ictx context.Context) (*domain.Envelope, error) {
		return fn(ictx, args)
	})
	if err != nil {
		if ctx.Err() != nil {
			return outcome{}, r.checkDeadline(ctx, g)
		}
		r.emit(domain.TraceEvent{Type: domain.EventToolReturn, Graph: g.Name, NodeID: node.ID, Tool: node.Uses, Err: err.Error()})
		return failure(domain.ErrorEnvelope("invocation", err), err), nil
	}
	r.emit(domain.TraceEvent{Type: domain.EventToolReturn, Graph: g.Name, NodeID: node.ID, Tool: node.Uses, Err: errString(envErr(env))})

	if env.Failed() {
		return failure(env, envErr(env)), nil
	}

	return r.finishNode(g, node, state, inputs, env, traverseEdges)
}

func (r *run) executeLLM(ctx context.Context, g *domain.Graph, node *domain.Node, state *State, inputs map[string]any, traverseEdges bool) (outcome, error) {
	if err := r.countStep(g, node); err != nil {
		return outcome{}, err
	}

	if r.model == nil {
		return outcome{}, configErrorf(nil, "llm node %q requires a model client", node.ID)
	}

	roles, err := r.rt.Renderer.Roles(node.Prompt)
	if err != nil {
		return outcome{}, configErrorf(err, "llm node %q", node.ID)
	}
	prompt := make(map[string]string, len(roles))
	rctx := renderContext(state, inputs, nil)
	for _, role := range roles {
		content, err := r.rt.Renderer.Render(node.Prompt, role, rctx)
		if err != nil {
			return outcome{}, configErrorf(err, "rendering prompt %q role %q", node.Prompt, role)
		}
		prompt[role] = content
	}

	timeout := r.resolveTimeout(node.Timeout, 0)
	call := domain.ModelCall{
		NodeID:      node.ID,
		Prompt:      prompt,
		Model:       r.rt.Defaults.Model,
		Temperature: r.rt.Defaults.Temperature,
		Timeout:     timeout,
	}

	r.emit(domain.TraceEvent{Type: domain.EventModelCall, Graph: g.Name, NodeID: node.ID, NodeKind: node.Kind, Prompt: node.Prompt})
	env, err := r.invoke(ctx, timeout, r.resolveRetry(node.Retry, nil), func(ictx context.Context) (*domain.Envelope, error) {
		return r.model.Generate(ictx, call)
	})
	if err != nil {
		if ctx.Err() != nil {
			return outcome{}, r.checkDeadline(ctx, g)
		}
		r.emit(domain.TraceEvent{Type: domain.EventModelReturn, Graph: g.Name, NodeID: node.ID, Prompt: node.Prompt, Err: err.Error()})
		return failure(domain.ErrorEnvelope("invocation", err), err), nil
	}
	r.emit(domain.TraceEvent{Type: domain.EventModelReturn, Graph: g.Name, NodeID: node.ID, Prompt: node.Prompt, Err: errString(envErr(env))})

	if env.Failed() {
		return failure(env, envErr(env)), nil
	}

	return r.finishNode(g, node, state, inputs, env, traverseEdges)
}

func (r *run) executeNoop(g *domain.Graph, node *domain.Node, state *State, inputs map[string]any, traverseEdges bool) (outcome, error) {
	if err := r.countStep(g, node); err != nil {
		return outcome{}, err
	}
	return r.finishNode(g, node, state, inputs, &domain.Envelope{}, traverseEdges)
}

// finishNode applies the node's map directives and resolves its outgoing
// edges; this is the shared success path for tool, llm, noop and subgraph
// nodes.
func (r *run) finishNode(g *domain.Graph, node *domain.Node, state *State, inputs map[string]any, env *domain.Envelope, traverseEdges bool) (outcome, error) {
	if err := r.applyMap(node.Map, state, inputs, env); err != nil {
		return outcome{}, err
	}
	var next []string
	if traverseEdges {
		var err error
		next, err = r.edgeTargets(g, node, state, inputs, env)
		if err != nil {
			return outcome{}, err
		}
	}
	return outcome{ok: true, result: env, next: next}, nil
}

func envErr(env *domain.Envelope) error {
	if env == nil {
		return fmt.Errorf("invocation produced no envelope")
	}
	if env.Error != nil {
		return env.Error
	}
	return nil
}
