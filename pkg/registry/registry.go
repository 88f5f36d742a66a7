// Package registry manages the tools available to a runtime.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/agentloom/loom/pkg/domain"
	"github.com/agentloom/loom/pkg/ports"
)

// Handle pairs a resolved tool callable with its declared configuration.
// Config defaults are merged under the node's rendered inputs at call time;
// Retry and Timeout act as fallbacks when the node declares none.
type Handle struct {
	ID      string
	Kind    string
	Func    ports.ToolFunc
	Config  map[string]any
	Retry   *domain.RetryPolicy
	Timeout time.Duration
}

// Registry is a concurrency-safe map of tool handles.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]*Handle
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{handles: make(map[string]*Handle)}
}

// Register adds a handle, overwriting any existing tool with the same id.
func (r *Registry) Register(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[h.ID] = h
}

// RegisterFunc registers a bare callable with no config defaults.
func (r *Registry) RegisterFunc(id string, fn ports.ToolFunc) {
	r.Register(&Handle{ID: id, Func: fn})
}

// Resolve looks up a handle by id.
func (r *Registry) Resolve(id string) (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	if !ok {
		return nil, fmt.Errorf("tool not registered: %s", id)
	}
	return h, nil
}

// IDs returns the registered tool ids.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	return ids
}
