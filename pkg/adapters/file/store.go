// Package file persists session history as JSONL files, one file per
// session, inside a base directory.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/agentloom/loom/pkg/domain"
	"github.com/agentloom/loom/pkg/ports"
)

// Store implements ports.MemoryStore on the filesystem. A single mutex
// serializes all sessions; the expected load is interactive, not bulk.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates the base directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// path escapes the session id so ids with separators or dots cannot leave
// the base directory.
func (s *Store) path(sessionID string) string {
	return filepath.Join(s.dir, url.PathEscape(sessionID)+".jsonl")
}

func (s *Store) Load(_ context.Context, sessionID string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ports.ErrSessionNotFound
		}
		return nil, fmt.Errorf("opening session %q: %w", sessionID, err)
	}
	defer f.Close()

	var messages []domain.Message
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg domain.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("decoding session %q: %w", sessionID, err)
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading session %q: %w", sessionID, err)
	}
	if len(messages) == 0 {
		return nil, ports.ErrSessionNotFound
	}
	return messages, nil
}

func (s *Store) Append(_ context.Context, sessionID string, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path(sessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening session %q: %w", sessionID, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, msg := range messages {
		if err := enc.Encode(msg); err != nil {
			return fmt.Errorf("writing session %q: %w", sessionID, err)
		}
	}
	return nil
}

func (s *Store) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(sessionID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing session %q: %w", sessionID, err)
	}
	return nil
}
