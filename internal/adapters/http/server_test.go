package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentloom/loom/internal/runtime"
	"github.com/agentloom/loom/pkg/domain"
)

type fakeRunner struct {
	inputs  map[string]any
	outputs map[string]any
	err     error
}

func (f *fakeRunner) Run(_ context.Context, inputs map[string]any, _ ...runtime.RunOption) (map[string]any, error) {
	f.inputs = inputs
	return f.outputs, f.err
}

func (f *fakeRunner) Graph() *domain.Graph {
	g := &domain.Graph{
		Name: "test",
		Nodes: map[string]*domain.Node{
			"only": {ID: "only", Kind: domain.KindNoop},
		},
	}
	g.Index()
	return g
}

func TestHealthz(t *testing.T) {
	srv := httptest.NewServer(NewHandler(&fakeRunner{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateRun(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]any{"answer": "42"}}
	srv := httptest.NewServer(NewHandler(runner))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/runs", "application/json",
		strings.NewReader(`{"inputs": {"question": "life"}}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body RunResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, map[string]any{"answer": "42"}, body.Outputs)
	assert.Equal(t, map[string]any{"question": "life"}, runner.inputs)
}

func TestCreateRunBadBody(t *testing.T) {
	srv := httptest.NewServer(NewHandler(&fakeRunner{}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/runs", "application/json", strings.NewReader(`{`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateRunNodeError(t *testing.T) {
	runner := &fakeRunner{err: &runtime.NodeError{NodeID: "fetch", Kind: domain.KindTool}}
	srv := httptest.NewServer(NewHandler(runner))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/runs", "application/json", strings.NewReader(`{"inputs": {}}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "node_error", body.Kind)
	assert.Equal(t, "fetch", body.NodeID)
}

func TestCreateRunAbort(t *testing.T) {
	runner := &fakeRunner{err: &runtime.AbortError{Reason: runtime.AbortMaxSteps, Graph: "test"}}
	srv := httptest.NewServer(NewHandler(runner))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/runs", "application/json", strings.NewReader(`{"inputs": {}}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "abort", body.Kind)
	assert.Equal(t, "max_steps", body.Reason)
}

func TestRenderGraph(t *testing.T) {
	srv := httptest.NewServer(NewHandler(&fakeRunner{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/graph")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "graph TD")
	assert.Contains(t, string(raw), `only["only"]`)
}
