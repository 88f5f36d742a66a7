package file_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentloom/loom/pkg/adapters/file"
	"github.com/agentloom/loom/pkg/domain"
	"github.com/agentloom/loom/pkg/ports"
)

func TestStore_Contract(t *testing.T) {
	store, err := file.NewStore(t.TempDir())
	require.NoError(t, err)
	ports.RunMemoryStoreContract(t, store)
}

func TestStore_EscapesSessionIDs(t *testing.T) {
	dir := t.TempDir()
	store, err := file.NewStore(dir)
	require.NoError(t, err)

	ctx := context.Background()
	id := "../outside/dir"
	require.NoError(t, store.Append(ctx, id, []domain.Message{{Role: "user", Content: "hi"}}))

	msgs, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hi", msgs[0].Content)
}
