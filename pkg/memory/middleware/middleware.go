// Package middleware wraps conversation memory stores with cross-cutting
// behavior: encryption at rest and PII masking.
package middleware

import "github.com/agentloom/loom/pkg/ports"

// Middleware wraps a MemoryStore to add behavior.
type Middleware func(ports.MemoryStore) ports.MemoryStore

// Chain applies the middlewares outermost-first: Chain(store, a, b) returns
// a(b(store)).
func Chain(store ports.MemoryStore, middlewares ...Middleware) ports.MemoryStore {
	for i := len(middlewares) - 1; i >= 0; i-- {
		store = middlewares[i](store)
	}
	return store
}
