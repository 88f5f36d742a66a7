package trace

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentloom/loom/pkg/domain"
)

// PrometheusSink counts runs, node executions and failures, and observes
// node durations.
type PrometheusSink struct {
	runs          *prometheus.CounterVec
	nodes         *prometheus.CounterVec
	nodeErrors    *prometheus.CounterVec
	nodeDurations *prometheus.HistogramVec
}

// NewPrometheusSink registers the collectors on reg. A nil registerer uses
// the default registry.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loom",
			Name:      "runs_total",
			Help:      "Completed runs by status.",
		}, []string{"graph", "status"}),
		nodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loom",
			Name:      "node_executions_total",
			Help:      "Node executions by kind.",
		}, []string{"graph", "kind"}),
		nodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loom",
			Name:      "node_errors_total",
			Help:      "Node failures by kind.",
		}, []string{"graph", "kind"}),
		nodeDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "loom",
			Name:      "node_duration_seconds",
			Help:      "Node execution latency by kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"graph", "kind"}),
	}
	reg.MustRegister(s.runs, s.nodes, s.nodeErrors, s.nodeDurations)
	return s
}

func (s *PrometheusSink) Emit(event domain.TraceEvent) {
	kind := string(event.NodeKind)
	switch event.Type {
	case domain.EventRunEnd:
		status := "ok"
		if event.Err != "" {
			status = "error"
		}
		s.runs.WithLabelValues(event.Graph, status).Inc()
	case domain.EventNodeEnd:
		s.nodes.WithLabelValues(event.Graph, kind).Inc()
		if event.Duration > 0 {
			s.nodeDurations.WithLabelValues(event.Graph, kind).Observe(event.Duration.Seconds())
		}
	case domain.EventNodeError:
		s.nodeErrors.WithLabelValues(event.Graph, kind).Inc()
	}
}
