package domain

import "time"

// NodeKind discriminates the closed set of node variants.
type NodeKind string

const (
	KindTool     NodeKind = "tool"
	KindLLM      NodeKind = "llm"
	KindRouter   NodeKind = "router"
	KindLoop     NodeKind = "loop"
	KindSubgraph NodeKind = "subgraph"
	KindNoop     NodeKind = "noop"
)

// DefaultLoopIterations caps loop nodes that declare no max_iterations.
const DefaultLoopIterations = 10

// RetryPolicy retries an invocation with a fixed backoff between attempts.
type RetryPolicy struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff" mapstructure:"backoff"`
}

// OnError declares how a node failure is resolved. To redirects execution to
// the named node instead of the node's normal edges; Resume continues along
// the normal edges as if the node had succeeded (its map is skipped).
type OnError struct {
	To     string `yaml:"to" mapstructure:"to"`
	Resume bool   `yaml:"resume" mapstructure:"resume"`
}

// RouterCase routes to a target node when its predicate evaluates true.
type RouterCase struct {
	When string `yaml:"when" mapstructure:"when"`
	To   string `yaml:"to" mapstructure:"to"`
}

// Node is one unit of work in a graph. Kind selects the variant; the
// remaining fields are populated per kind. Keeping a single struct (rather
// than an interface hierarchy) keeps the engine's dispatch a plain switch.
type Node struct {
	ID          string
	Kind        NodeKind
	Name        string
	Description string

	// Policy overrides. Zero values defer to the tool handle or meta defaults.
	Retry   *RetryPolicy
	Timeout time.Duration
	OnError *OnError

	// Map mutates state after a successful execution.
	Map *MapOp

	// Tool nodes.
	Uses   string
	Inputs map[string]any

	// LLM nodes.
	Prompt string

	// Router nodes.
	Cases   []RouterCase
	Default string

	// Loop nodes.
	Body          string
	Until         string
	MaxIterations int

	// Subgraph nodes. Inputs is shared with tool nodes above.
	Graph string
}

// Edge is a directed transition between two nodes of the same graph,
// optionally guarded by a predicate expression.
type Edge struct {
	From string
	To   string
	When string
}
