package domain

import "time"

// EventType categorizes trace events.
type EventType string

const (
	EventRunStart       EventType = "run_start"
	EventRunEnd         EventType = "run_end"
	EventNodeStart      EventType = "node_start"
	EventNodeEnd        EventType = "node_end"
	EventNodeError      EventType = "node_error"
	EventToolCall       EventType = "tool_call"
	EventToolReturn     EventType = "tool_return"
	EventModelCall      EventType = "model_call"
	EventModelReturn    EventType = "model_return"
	EventRouterDecision EventType = "router_decision"
	EventLoopComplete   EventType = "loop_complete"
)

// TraceEvent is one lifecycle notification emitted by the engine. Fields
// beyond the base triple are populated per event type.
type TraceEvent struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`

	Graph    string        `json:"graph,omitempty"`
	NodeID   string        `json:"node_id,omitempty"`
	NodeKind NodeKind      `json:"node_kind,omitempty"`
	Tool     string        `json:"tool,omitempty"`
	Prompt   string        `json:"prompt,omitempty"`
	Targets  []string      `json:"targets,omitempty"`
	Attempt  int           `json:"attempt,omitempty"`
	Iters    int           `json:"iterations,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      string        `json:"error,omitempty"`
	Payload  any           `json:"payload,omitempty"`
}
