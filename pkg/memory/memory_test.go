package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentloom/loom/pkg/domain"
	"github.com/agentloom/loom/pkg/ports"
)

type fakeStore struct {
	sessions map[string][]domain.Message
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string][]domain.Message)}
}

func (s *fakeStore) Load(_ context.Context, id string) ([]domain.Message, error) {
	msgs, ok := s.sessions[id]
	if !ok {
		return nil, ports.ErrSessionNotFound
	}
	return append([]domain.Message(nil), msgs...), nil
}

func (s *fakeStore) Append(_ context.Context, id string, msgs []domain.Message) error {
	s.sessions[id] = append(s.sessions[id], msgs...)
	return nil
}

func (s *fakeStore) Clear(_ context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func TestManagerPrepareLoadsHistory(t *testing.T) {
	store := newFakeStore()
	store.sessions["tenant:abc"] = []domain.Message{
		{Role: "user", Content: "earlier"},
		{Role: "assistant", Content: "noted"},
	}
	mgr := NewManager(store, "tenant", 0)

	state := map[string]any{"session_id": "abc"}
	require.NoError(t, mgr.Prepare(context.Background(), state))

	msgs := state["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, map[string]any{"role": "user", "content": "earlier"}, msgs[0])
	_, hasWindow := state["messages_window"]
	assert.False(t, hasWindow)
}

func TestManagerPrepareKeepsSeededMessages(t *testing.T) {
	store := newFakeStore()
	store.sessions["abc"] = []domain.Message{{Role: "user", Content: "old"}}
	mgr := NewManager(store, "", 2)

	state := map[string]any{
		"session_id": "abc",
		"messages": []any{
			map[string]any{"role": "user", "content": "fresh"},
		},
	}
	require.NoError(t, mgr.Prepare(context.Background(), state))

	msgs := state["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "old", msgs[0].(map[string]any)["content"])
	assert.Equal(t, "fresh", msgs[1].(map[string]any)["content"])

	window := state["messages_window"].([]any)
	assert.Len(t, window, 2)
}

func TestManagerPersistAppendsNewEntries(t *testing.T) {
	store := newFakeStore()
	store.sessions["abc"] = []domain.Message{{Role: "user", Content: "old"}}
	mgr := NewManager(store, "", 0)

	state := map[string]any{"session_id": "abc"}
	require.NoError(t, mgr.Prepare(context.Background(), state))

	state["messages"] = append(state["messages"].([]any),
		map[string]any{"role": "user", "content": "q"},
		map[string]any{"role": "assistant", "content": "a"},
	)
	require.NoError(t, mgr.Persist(context.Background(), state))

	require.Len(t, store.sessions["abc"], 3)
	assert.Equal(t, "q", store.sessions["abc"][1].Content)
	assert.Equal(t, "assistant", store.sessions["abc"][2].Role)

	// A second persist with nothing new appends nothing.
	require.NoError(t, mgr.Persist(context.Background(), state))
	assert.Len(t, store.sessions["abc"], 3)
}

func TestManagerDefaultsSession(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(store, "", 0)

	state := map[string]any{}
	require.NoError(t, mgr.Prepare(context.Background(), state))
	assert.Equal(t, "default", state["session_id"])
}

func TestManagerRejectsNonListMessages(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(store, "", 0)

	state := map[string]any{"messages": "not-a-list"}
	err := mgr.Prepare(context.Background(), state)
	assert.ErrorContains(t, err, "must be a list")
}
