package runtime

import (
	"fmt"

	"github.com/agentloom/loom/pkg/domain"
)

// NodeError is a node failure that no error policy absorbed. It aborts the
// run and carries enough context to diagnose without re-running.
type NodeError struct {
	NodeID string
	Kind   domain.NodeKind
	Tool   string
	Prompt string
	Err    error
}

func (e *NodeError) Error() string {
	msg := fmt.Sprintf("node %q (%s) failed without on_error handler", e.NodeID, e.Kind)
	if e.Tool != "" {
		msg += fmt.Sprintf(" [tool %s]", e.Tool)
	}
	if e.Prompt != "" {
		msg += fmt.Sprintf(" [prompt %s]", e.Prompt)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NodeError) Unwrap() error { return e.Err }

// AbortReason classifies engine-level aborts.
type AbortReason string

const (
	AbortMaxSteps AbortReason = "max_steps"
	AbortMaxDepth AbortReason = "max_subgraph_depth"
	AbortDeadline AbortReason = "deadline"
	AbortCanceled AbortReason = "canceled"
)

// AbortError is an engine-level abort: budget exhaustion, recursion runaway,
// or run deadline. Never subject to per-node error policy.
type AbortError struct {
	Reason AbortReason
	Graph  string
	Detail string
}

func (e *AbortError) Error() string {
	msg := fmt.Sprintf("run aborted (%s)", e.Reason)
	if e.Graph != "" {
		msg += fmt.Sprintf(" in graph %q", e.Graph)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// ConfigError marks a static authoring defect discovered at run time: an
// unresolved template variable, a missing tool/template/subgraph reference,
// or a predicate that does not evaluate. Always fatal, never retried.
type ConfigError struct {
	Detail string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return "configuration error: " + e.Detail + ": " + e.Err.Error()
	}
	return "configuration error: " + e.Detail
}

func (e *ConfigError) Unwrap() error { return e.Err }

func configErrorf(err error, format string, args ...any) *ConfigError {
	return &ConfigError{Detail: fmt.Sprintf(format, args...), Err: err}
}
