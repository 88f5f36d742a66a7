package ports

import "github.com/agentloom/loom/pkg/domain"

// TraceSink receives engine lifecycle events. Implementations must not
// block for long and must not panic; a nil sink disables tracing without
// changing engine behavior.
type TraceSink interface {
	Emit(event domain.TraceEvent)
}

// TraceFunc adapts a function to TraceSink.
type TraceFunc func(domain.TraceEvent)

func (f TraceFunc) Emit(event domain.TraceEvent) { f(event) }
