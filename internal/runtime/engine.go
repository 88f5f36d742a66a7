package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agentloom/loom/internal/logging"
	"github.com/agentloom/loom/pkg/domain"
	"github.com/agentloom/loom/pkg/ports"
	"github.com/agentloom/loom/pkg/registry"
)

// DefaultMaxSubgraphDepth caps nested subgraph invocations.
const DefaultMaxSubgraphDepth = 8

// Defaults are the meta-level fallbacks applied when a node or tool handle
// declares no policy of its own.
type Defaults struct {
	Retry       *domain.RetryPolicy
	Timeout     time.Duration
	Model       string
	Temperature float64
}

// Memory hooks conversation history into a run: Prepare mutates the seeded
// state before the first node executes, Persist runs after the terminal
// state is reached.
type Memory interface {
	Prepare(ctx context.Context, state map[string]any) error
	Persist(ctx context.Context, state map[string]any) error
}

// Runtime executes a compiled graph. It is safe for concurrent Run calls:
// every run gets its own state container and work queue, and the compiled
// graph is read-only.
type Runtime struct {
	Graph     *domain.Graph
	Subgraphs map[string]*domain.Graph
	State     StateSpec

	Renderer  ports.Renderer
	Evaluator ports.Evaluator
	Tools     *registry.Registry
	Model     ports.ModelClient
	Defaults  Defaults

	Logger *slog.Logger
	Trace  ports.TraceSink
	Memory Memory
}

// RunOption customizes one Run invocation.
type RunOption func(*run)

// WithModelClient overrides the runtime's model client for this run.
func WithModelClient(client ports.ModelClient) RunOption {
	return func(r *run) { r.model = client }
}

// WithToolOverride substitutes a tool callable for this run, keeping the
// registered handle's config, retry and timeout.
func WithToolOverride(id string, fn ports.ToolFunc) RunOption {
	return func(r *run) { r.overrides[id] = fn }
}

// WithMaxSteps overrides the graph's step budget for this run.
func WithMaxSteps(n int) RunOption {
	return func(r *run) { r.maxSteps = n }
}

// WithMaxSubgraphDepth overrides the recursion cap for this run.
func WithMaxSubgraphDepth(n int) RunOption {
	return func(r *run) { r.maxDepth = n }
}

// WithTraceSink overrides the runtime's trace sink for this run.
func WithTraceSink(sink ports.TraceSink) RunOption {
	return func(r *run) { r.sink = sink }
}

// run is the per-invocation mutable context shared by all graphs in one
// execution, including recursively entered subgraphs.
type run struct {
	rt        *Runtime
	runID     string
	steps     int
	maxSteps  int
	maxDepth  int
	overrides map[string]ports.ToolFunc
	model     ports.ModelClient
	sink      ports.TraceSink
	logger    *slog.Logger
}

// workItem is one pending node execution.
type workItem struct {
	nodeID string
}

// Run executes the graph from its entry nodes with the provided inputs and
// returns the final state restricted to the graph's declared outputs.
func (rt *Runtime) Run(ctx context.Context, inputs map[string]any, opts ...RunOption) (map[string]any, error) {
	r := &run{
		rt:        rt,
		runID:     uuid.NewString(),
		maxSteps:  rt.Graph.MaxSteps,
		maxDepth:  DefaultMaxSubgraphDepth,
		overrides: make(map[string]ports.ToolFunc),
		model:     rt.Model,
		sink:      rt.Trace,
		logger:    rt.Logger,
	}
	if r.maxSteps <= 0 {
		r.maxSteps = domain.DefaultMaxSteps
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	if inputs == nil {
		inputs = map[string]any{}
	}

	state := NewState(rt.State.Reducer)
	if err := state.SeedRoot(rt.State, rt.Graph.Inputs, inputs); err != nil {
		return nil, err
	}

	if rt.Memory != nil {
		if err := rt.Memory.Prepare(ctx, state.Data()); err != nil {
			return nil, configErrorf(err, "memory prepare failed")
		}
	}

	if rt.Graph.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.Graph.Timeout)
		defer cancel()
	}

	started := time.Now()
	r.emit(domain.TraceEvent{Type: domain.EventRunStart, Graph: rt.Graph.Name})
	r.logger.Info("run started", "run_id", r.runID, "graph", rt.Graph.Name)

	err := r.runGraph(ctx, rt.Graph, state, cloneValue(inputs).(map[string]any), 0)
	if err != nil {
		r.emit(domain.TraceEvent{Type: domain.EventRunEnd, Graph: rt.Graph.Name, Duration: time.Since(started), Err: err.Error()})
		r.logger.Error("run failed", "run_id", r.runID, "error", err)
		return nil, err
	}

	if rt.Memory != nil {
		if err := rt.Memory.Persist(ctx, state.Data()); err != nil {
			return nil, configErrorf(err, "memory persist failed")
		}
	}

	outputs, err := projectOutputs(rt.Graph, state)
	if err != nil {
		return nil, err
	}

	r.emit(domain.TraceEvent{Type: domain.EventRunEnd, Graph: rt.Graph.Name, Duration: time.Since(started)})
	r.logger.Info("run completed", "run_id", r.runID, "steps", r.steps, "duration", time.Since(started))
	return outputs, nil
}

// runGraph drives the work queue of one graph to completion. Subgraph nodes
// re-enter it recursively with a fresh state container and depth+1; the step
// counter is shared across the whole invocation chain.
func (r *run) runGraph(ctx context.Context, g *domain.Graph, state *State, inputs map[string]any, depth int) error {
	if len(g.EntryNodes) == 0 {
		return configErrorf(nil, "graph %q has no entry nodes to execute", g.Name)
	}

	queue := make([]workItem, 0, len(g.EntryNodes))
	for _, id := range g.EntryNodes {
		queue = append(queue, workItem{nodeID: id})
	}

	for len(queue) > 0 {
		if err := r.checkDeadline(ctx, g); err != nil {
			return err
		}

		item := queue[0]
		queue = queue[1:]

		node, ok := g.Nodes[item.nodeID]
		if !ok {
			return configErrorf(nil, "graph %q references unknown node %q", g.Name, item.nodeID)
		}

		out, err := r.executeNode(ctx, g, node, state, inputs, depth, true)
		if err != nil {
			return err
		}

		if out.ok {
			for _, next := range out.next {
				queue = append(queue, workItem{nodeID: next})
			}
			continue
		}

		targets, err := r.resolveFailure(g, node, state, inputs, out)
		if err != nil {
			return err
		}
		for _, next := range targets {
			queue = append(queue, workItem{nodeID: next})
		}
	}
	return nil
}

// resolveFailure applies the node's error policy: redirect wins over resume;
// with neither, the failure becomes an unhandled NodeError.
func (r *run) resolveFailure(g *domain.Graph, node *domain.Node, state *State, inputs map[string]any, out outcome) ([]string, error) {
	r.emit(domain.TraceEvent{
		Type:     domain.EventNodeError,
		Graph:    g.Name,
		NodeID:   node.ID,
		NodeKind: node.Kind,
		Err:      errString(out.cause),
	})

	policy := node.OnError
	if policy == nil {
		return nil, &NodeError{
			NodeID: node.ID,
			Kind:   node.Kind,
			Tool:   node.Uses,
			Prompt: node.Prompt,
			Err:    out.cause,
		}
	}

	if policy.To != "" {
		r.logger.Warn("node failed, redirecting", "node", node.ID, "to", policy.To, "error", errString(out.cause))
		return []string{policy.To}, nil
	}

	// resume: continue along normal edges; the failed node's map was never
	// applied, so state is exactly as it was before the call.
	r.logger.Warn("node failed, resuming", "node", node.ID, "error", errString(out.cause))
	return r.edgeTargets(g, node, state, inputs, out.result)
}

func (r *run) checkDeadline(ctx context.Context, g *domain.Graph) error {
	switch ctx.Err() {
	case nil:
		return nil
	case context.DeadlineExceeded:
		return &AbortError{Reason: AbortDeadline, Graph: g.Name, Detail: "run timeout exceeded"}
	default:
		return &AbortError{Reason: AbortCanceled, Graph: g.Name, Detail: ctx.Err().Error()}
	}
}

// countStep charges one unit of the run budget. Control nodes (router, loop,
// subgraph) are free; the work they schedule is charged when it executes.
func (r *run) countStep(g *domain.Graph, node *domain.Node) error {
	r.steps++
	if r.steps > r.maxSteps {
		return &AbortError{
			Reason: AbortMaxSteps,
			Graph:  g.Name,
			Detail: fmt.Sprintf("step budget %d exhausted at node %q", r.maxSteps, node.ID),
		}
	}
	return nil
}

func projectOutputs(g *domain.Graph, state *State) (map[string]any, error) {
	outputs := make(map[string]any, len(g.Outputs))
	var missing []string
	for _, name := range g.Outputs {
		v, ok := state.Get(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		outputs[name] = v
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, configErrorf(nil, "declared outputs absent at completion: %s", strings.Join(missing, ", "))
	}
	return outputs, nil
}

func (r *run) emit(event domain.TraceEvent) {
	if r.sink == nil {
		return
	}
	event.RunID = r.runID
	event.Timestamp = time.Now().UTC()
	r.sink.Emit(event)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
