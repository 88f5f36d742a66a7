package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentloom/loom/pkg/adapters/redis"
	"github.com/agentloom/loom/pkg/domain"
	"github.com/agentloom/loom/pkg/ports"
)

func newTestClient(t *testing.T) *backend.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return backend.NewClient(&backend.Options{Addr: mr.Addr()})
}

func TestStore_Contract(t *testing.T) {
	store := redis.NewFromClient(newTestClient(t))
	ports.RunMemoryStoreContract(t, store)
}

func TestStore_Prefix(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	a := redis.NewFromClient(client, redis.WithPrefix("a:"))
	b := redis.NewFromClient(client, redis.WithPrefix("b:"))

	require.NoError(t, a.Append(ctx, "s", []domain.Message{{Role: "user", Content: "hi"}}))

	_, err := b.Load(ctx, "s")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)

	msgs, err := a.Load(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "hi", msgs[0].Content)
}
