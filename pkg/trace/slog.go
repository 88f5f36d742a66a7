package trace

import (
	"log/slog"

	"github.com/agentloom/loom/pkg/domain"
)

// SlogSink writes trace events as structured log lines. Payloads pass
// through the masker first.
type SlogSink struct {
	logger *slog.Logger
	masker *Masker
}

// NewSlogSink builds a sink over an existing logger. A nil masker falls back
// to the default.
func NewSlogSink(logger *slog.Logger, masker *Masker) *SlogSink {
	if masker == nil {
		masker = DefaultMasker()
	}
	return &SlogSink{logger: logger, masker: masker}
}

func (s *SlogSink) Emit(event domain.TraceEvent) {
	attrs := []any{
		"run_id", event.RunID,
		"graph", event.Graph,
	}
	if event.NodeID != "" {
		attrs = append(attrs, "node", event.NodeID, "kind", string(event.NodeKind))
	}
	if event.Tool != "" {
		attrs = append(attrs, "tool", event.Tool)
	}
	if event.Prompt != "" {
		attrs = append(attrs, "prompt", event.Prompt)
	}
	if len(event.Targets) > 0 {
		attrs = append(attrs, "targets", event.Targets)
	}
	if event.Iters > 0 {
		attrs = append(attrs, "iterations", event.Iters)
	}
	if event.Duration > 0 {
		attrs = append(attrs, "duration", event.Duration)
	}
	if event.Payload != nil {
		attrs = append(attrs, "payload", s.masker.Redact(event.Payload))
	}

	if event.Err != "" {
		attrs = append(attrs, "error", s.masker.sanitize(event.Err))
		s.logger.Warn(string(event.Type), attrs...)
		return
	}
	s.logger.Info(string(event.Type), attrs...)
}
