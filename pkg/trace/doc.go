// Package trace provides TraceSink implementations: structured-log output,
// per-run JSONL files, Prometheus metrics and a fan-out combinator, plus the
// payload masker shared by the text-producing sinks.
package trace
