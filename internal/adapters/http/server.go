// Package http exposes a compiled engine over a JSON API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agentloom/loom/internal/presentation/graph"
	"github.com/agentloom/loom/internal/runtime"
	"github.com/agentloom/loom/pkg/domain"
)

// Runner is the slice of the engine the server needs.
type Runner interface {
	Run(ctx context.Context, inputs map[string]any, opts ...runtime.RunOption) (map[string]any, error)
	Graph() *domain.Graph
}

// RunRequest is the POST /runs body.
type RunRequest struct {
	Inputs   map[string]any `json:"inputs"`
	MaxSteps int            `json:"max_steps,omitempty"`
}

// RunResponse is the success body of POST /runs.
type RunResponse struct {
	Outputs map[string]any `json:"outputs"`
}

// ErrorResponse carries the failure classification and, for node failures,
// the failed node's context.
type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	NodeID string `json:"node_id,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// NewHandler builds the API router: POST /runs, GET /graph, GET /healthz.
func NewHandler(runner Runner) http.Handler {
	s := &server{runner: runner}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.healthz)
	r.Get("/graph", s.renderGraph)
	r.Post("/runs", s.createRun)
	return r
}

type server struct {
	runner Runner
}

func (s *server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) renderGraph(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(graph.Mermaid(s.runner.Graph())))
}

func (s *server) createRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error(), Kind: "bad_request"})
		return
	}

	var opts []runtime.RunOption
	if req.MaxSteps > 0 {
		opts = append(opts, runtime.WithMaxSteps(req.MaxSteps))
	}

	outputs, err := s.runner.Run(r.Context(), req.Inputs, opts...)
	if err != nil {
		status, body := classify(err)
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{Outputs: outputs})
}

func classify(err error) (int, ErrorResponse) {
	var nodeErr *runtime.NodeError
	if errors.As(err, &nodeErr) {
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:  err.Error(),
			Kind:   "node_error",
			NodeID: nodeErr.NodeID,
		}
	}
	var abortErr *runtime.AbortError
	if errors.As(err, &abortErr) {
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:  err.Error(),
			Kind:   "abort",
			Reason: string(abortErr.Reason),
		}
	}
	var cfgErr *runtime.ConfigError
	if errors.As(err, &cfgErr) {
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "config_error"}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Kind: "internal"}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
