package memory_test

import (
	"testing"

	"github.com/agentloom/loom/pkg/adapters/memory"
	"github.com/agentloom/loom/pkg/ports"
)

func TestStore_Contract(t *testing.T) {
	ports.RunMemoryStoreContract(t, memory.NewStore())
}
