package ports

import (
	"context"
	"errors"

	"github.com/agentloom/loom/pkg/domain"
)

// ErrSessionNotFound is returned by Load when a session has no history yet.
var ErrSessionNotFound = errors.New("session not found")

// MemoryStore persists conversation history between runs.
type MemoryStore interface {
	// Load returns the full history for a session, oldest first.
	// It returns ErrSessionNotFound for sessions never written to.
	Load(ctx context.Context, sessionID string) ([]domain.Message, error)

	// Append adds messages to the end of a session's history, creating the
	// session if needed.
	Append(ctx context.Context, sessionID string, messages []domain.Message) error

	// Clear removes a session's history.
	Clear(ctx context.Context, sessionID string) error
}
