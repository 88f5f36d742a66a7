// Package memory provides an in-process MemoryStore, suitable for tests and
// single-process agents whose history may vanish on restart.
package memory

import (
	"context"
	"sync"

	"github.com/agentloom/loom/pkg/domain"
	"github.com/agentloom/loom/pkg/ports"
)

// Store keeps session history in a map guarded by a mutex.
type Store struct {
	mu       sync.RWMutex
	sessions map[string][]domain.Message
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string][]domain.Message)}
}

func (s *Store) Load(_ context.Context, sessionID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs, ok := s.sessions[sessionID]
	if !ok {
		return nil, ports.ErrSessionNotFound
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *Store) Append(_ context.Context, sessionID string, messages []domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], messages...)
	return nil
}

func (s *Store) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
