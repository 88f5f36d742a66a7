// Package memory bridges persisted conversation history and the run state:
// history is loaded into state["messages"] before the first node executes,
// and entries appended during the run are written back afterwards.
package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentloom/loom/pkg/domain"
	"github.com/agentloom/loom/pkg/ports"
)

const (
	// DefaultStateKey is the state key holding the full message list.
	DefaultStateKey = "messages"
	// DefaultWindowKey holds the trailing window when one is configured.
	DefaultWindowKey = "messages_window"
	// DefaultSessionKey is where the session id is read from.
	DefaultSessionKey = "session_id"
)

// Manager prepares and persists conversation state around a run. It is
// stateless across runs: the persisted history length decides which state
// entries are new, so concurrent runs against different sessions are safe.
type Manager struct {
	Store      ports.MemoryStore
	Namespace  string
	Window     int
	SessionKey string
	StateKey   string
	WindowKey  string
}

// NewManager applies the default keys.
func NewManager(store ports.MemoryStore, namespace string, window int) *Manager {
	return &Manager{
		Store:      store,
		Namespace:  namespace,
		Window:     window,
		SessionKey: DefaultSessionKey,
		StateKey:   DefaultStateKey,
		WindowKey:  DefaultWindowKey,
	}
}

// Prepare loads the session's history and prepends it to any messages
// already present in state. The session id is read from state, defaulting to
// "default", and written back so templates can reference it.
func (m *Manager) Prepare(ctx context.Context, state map[string]any) error {
	sessionID := m.resolveSession(state)
	state[m.SessionKey] = sessionID

	history, err := m.load(ctx, sessionID)
	if err != nil {
		return err
	}

	combined := make([]any, 0, len(history))
	for _, msg := range history {
		combined = append(combined, map[string]any{"role": msg.Role, "content": msg.Content})
	}
	if existing := state[m.StateKey]; existing != nil {
		list, ok := existing.([]any)
		if !ok {
			return fmt.Errorf("state[%q] must be a list when memory is enabled, got %T", m.StateKey, existing)
		}
		combined = append(combined, list...)
	}

	state[m.StateKey] = combined
	m.applyWindow(state, combined)
	return nil
}

// Persist appends every message beyond the persisted history length back to
// the store.
func (m *Manager) Persist(ctx context.Context, state map[string]any) error {
	sessionID := m.resolveSession(state)

	history, err := m.load(ctx, sessionID)
	if err != nil {
		return err
	}

	raw := state[m.StateKey]
	if raw == nil {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("state[%q] must be a list when memory is enabled, got %T", m.StateKey, raw)
	}
	if len(list) <= len(history) {
		return nil
	}

	fresh := make([]domain.Message, 0, len(list)-len(history))
	for i, entry := range list[len(history):] {
		msg, err := toMessage(entry)
		if err != nil {
			return fmt.Errorf("state[%q][%d]: %w", m.StateKey, len(history)+i, err)
		}
		fresh = append(fresh, msg)
	}
	if err := m.Store.Append(ctx, m.storageID(sessionID), fresh); err != nil {
		return err
	}

	m.applyWindow(state, list)
	return nil
}

func (m *Manager) resolveSession(state map[string]any) string {
	if v, ok := state[m.SessionKey]; ok && v != nil {
		if s := fmt.Sprint(v); s != "" {
			return s
		}
	}
	return "default"
}

func (m *Manager) storageID(sessionID string) string {
	if m.Namespace == "" {
		return sessionID
	}
	return m.Namespace + ":" + sessionID
}

func (m *Manager) load(ctx context.Context, sessionID string) ([]domain.Message, error) {
	history, err := m.Store.Load(ctx, m.storageID(sessionID))
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return history, nil
}

func (m *Manager) applyWindow(state map[string]any, messages []any) {
	if m.Window <= 0 {
		delete(state, m.WindowKey)
		return
	}
	start := len(messages) - m.Window
	if start < 0 {
		start = 0
	}
	state[m.WindowKey] = append([]any(nil), messages[start:]...)
}

func toMessage(entry any) (domain.Message, error) {
	m, ok := entry.(map[string]any)
	if !ok {
		return domain.Message{}, fmt.Errorf("expected a role/content mapping, got %T", entry)
	}
	msg := domain.Message{Role: "user"}
	if role, ok := m["role"].(string); ok && role != "" {
		msg.Role = role
	}
	switch content := m["content"].(type) {
	case nil:
	case string:
		msg.Content = content
	default:
		msg.Content = fmt.Sprint(content)
	}
	return msg, nil
}
