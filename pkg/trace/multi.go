package trace

import (
	"github.com/agentloom/loom/pkg/domain"
	"github.com/agentloom/loom/pkg/ports"
)

type multiSink struct {
	sinks []ports.TraceSink
}

// Multi fans every event out to all sinks in order. Nil sinks are skipped.
func Multi(sinks ...ports.TraceSink) ports.TraceSink {
	kept := make([]ports.TraceSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return &multiSink{sinks: kept}
}

func (m *multiSink) Emit(event domain.TraceEvent) {
	for _, s := range m.sinks {
		s.Emit(event)
	}
}
