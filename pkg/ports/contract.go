package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentloom/loom/pkg/domain"
)

// RunMemoryStoreContract verifies that a MemoryStore implementation adheres
// to the interface contract. Adapters call it from their own test files.
func RunMemoryStoreContract(t *testing.T, store MemoryStore) {
	ctx := context.Background()
	sessionID := "contract-" + time.Now().Format("20060102150405.000")

	t.Run("Load Missing Session", func(t *testing.T) {
		_, err := store.Load(ctx, "never-written-"+sessionID)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("Append and Load", func(t *testing.T) {
		first := []domain.Message{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi there"},
		}
		require.NoError(t, store.Append(ctx, sessionID, first))

		second := []domain.Message{{Role: "user", Content: "follow-up"}}
		require.NoError(t, store.Append(ctx, sessionID, second))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, loaded, 3)
		assert.Equal(t, "hello", loaded[0].Content)
		assert.Equal(t, "assistant", loaded[1].Role)
		assert.Equal(t, "follow-up", loaded[2].Content)
	})

	t.Run("Sessions Are Isolated", func(t *testing.T) {
		other := sessionID + "-other"
		require.NoError(t, store.Append(ctx, other, []domain.Message{{Role: "user", Content: "elsewhere"}}))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		for _, m := range loaded {
			assert.NotEqual(t, "elsewhere", m.Content)
		}
		require.NoError(t, store.Clear(ctx, other))
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx, sessionID))
		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}
