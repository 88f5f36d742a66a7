package ports

import (
	"context"

	"github.com/agentloom/loom/pkg/domain"
)

// ToolFunc is the uniform callable contract for tools. Implementations
// should honor ctx cancellation; the engine additionally bounds the call
// with the node's timeout. A returned error is an invocation-layer failure;
// a non-nil Envelope.Error is a tool-level failure. Both resolve through the
// node's error policy.
type ToolFunc func(ctx context.Context, args map[string]any) (*domain.Envelope, error)

// ModelClient generates a completion for a rendered prompt.
type ModelClient interface {
	Generate(ctx context.Context, call domain.ModelCall) (*domain.Envelope, error)
}

// ModelFunc adapts a plain function to ModelClient.
type ModelFunc func(ctx context.Context, call domain.ModelCall) (*domain.Envelope, error)

func (f ModelFunc) Generate(ctx context.Context, call domain.ModelCall) (*domain.Envelope, error) {
	return f(ctx, call)
}
