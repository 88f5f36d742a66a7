package trace

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentloom/loom/pkg/domain"
	"github.com/agentloom/loom/pkg/ports"
)

func TestMaskerRedactsDeniedKeys(t *testing.T) {
	m := DefaultMasker()

	out := m.Redact(map[string]any{
		"API_KEY": "sk-123456789012345678",
		"query":   "weather",
		"nested": map[string]any{
			"authorization": "Bearer abc.def-ghi",
			"ok":            42,
		},
		"list": []any{map[string]any{"password": "hunter2"}},
	})

	masked, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, Redacted, masked["API_KEY"])
	assert.Equal(t, "weather", masked["query"])
	nested := masked["nested"].(map[string]any)
	assert.Equal(t, Redacted, nested["authorization"])
	assert.Equal(t, 42, nested["ok"])
	item := masked["list"].([]any)[0].(map[string]any)
	assert.Equal(t, Redacted, item["password"])
}

func TestMaskerSanitizesText(t *testing.T) {
	m := DefaultMasker()

	out := m.Redact("header Bearer sk_live_abcdef123456 end").(string)
	assert.NotContains(t, out, "sk_live_abcdef123456")
	assert.Contains(t, out, Redacted)

	long := strings.Repeat("word ", 600)
	truncated := m.Redact(long).(string)
	assert.Len(t, truncated, DefaultMaxText+3)
	assert.True(t, strings.HasSuffix(truncated, "..."))
}

func TestJSONLSinkWritesPerRunFiles(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewJSONLSink(dir, nil)
	require.NoError(t, err)

	sink.Emit(domain.TraceEvent{Type: domain.EventRunStart, RunID: "r1", Graph: "g"})
	sink.Emit(domain.TraceEvent{
		Type:    domain.EventToolCall,
		RunID:   "r1",
		NodeID:  "fetch",
		Payload: map[string]any{"token": "abcd", "q": "go"},
	})
	sink.Emit(domain.TraceEvent{Type: domain.EventRunStart, RunID: "r2", Graph: "g"})
	require.NoError(t, sink.Close())

	f, err := os.Open(filepath.Join(dir, "r1.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var lines []domain.TraceEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev domain.TraceEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		lines = append(lines, ev)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, domain.EventToolCall, lines[1].Type)
	payload := lines[1].Payload.(map[string]any)
	assert.Equal(t, Redacted, payload["token"])

	_, err = os.Stat(filepath.Join(dir, "r2.jsonl"))
	assert.NoError(t, err)
}

func TestPrometheusSinkCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewPrometheusSink(reg)

	sink.Emit(domain.TraceEvent{Type: domain.EventNodeEnd, Graph: "g", NodeKind: domain.KindTool, Duration: 20 * time.Millisecond})
	sink.Emit(domain.TraceEvent{Type: domain.EventNodeEnd, Graph: "g", NodeKind: domain.KindTool, Duration: 10 * time.Millisecond})
	sink.Emit(domain.TraceEvent{Type: domain.EventNodeError, Graph: "g", NodeKind: domain.KindTool, Err: "boom"})
	sink.Emit(domain.TraceEvent{Type: domain.EventRunEnd, Graph: "g"})
	sink.Emit(domain.TraceEvent{Type: domain.EventRunEnd, Graph: "g", Err: "boom"})

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.nodes.WithLabelValues("g", "tool")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.nodeErrors.WithLabelValues("g", "tool")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.runs.WithLabelValues("g", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.runs.WithLabelValues("g", "error")))
}

func TestMultiFansOut(t *testing.T) {
	var a, b []domain.TraceEvent
	sink := Multi(
		ports.TraceFunc(func(ev domain.TraceEvent) { a = append(a, ev) }),
		nil,
		ports.TraceFunc(func(ev domain.TraceEvent) { b = append(b, ev) }),
	)

	sink.Emit(domain.TraceEvent{Type: domain.EventRunStart})
	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
}
