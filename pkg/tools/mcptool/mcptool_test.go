package mcptool

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	lastRequest mcp.CallToolRequest
	result      *mcp.CallToolResult
	err         error
}

func (f *fakeCaller) CallTool(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f.lastRequest = request
	return f.result, f.err
}

func TestCallToolNormalizesText(t *testing.T) {
	caller := &fakeCaller{
		result: &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.TextContent{Type: "text", Text: "line one"},
				mcp.TextContent{Type: "text", Text: "line two"},
			},
		},
	}
	tool := New(caller, "lookup")

	env, err := tool(context.Background(), map[string]any{"city": "Lisbon"})
	require.NoError(t, err)
	require.NotNil(t, env)

	assert.Equal(t, "lookup", caller.lastRequest.Params.Name)
	assert.Equal(t, map[string]any{"city": "Lisbon"}, caller.lastRequest.Params.Arguments)

	assert.Nil(t, env.Error)
	assert.Equal(t, "line one\nline two", env.Text)
	assert.Len(t, env.Items, 2)
}

func TestCallToolServerError(t *testing.T) {
	caller := &fakeCaller{
		result: &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "bad input"}},
		},
	}
	tool := New(caller, "lookup")

	env, err := tool(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, env.Failed())
	assert.Equal(t, "mcp_error", env.Error.Type)
	assert.Equal(t, "bad input", env.Error.Message)
}

func TestCallToolTransportError(t *testing.T) {
	caller := &fakeCaller{err: errors.New("pipe closed")}
	tool := New(caller, "lookup")

	env, err := tool(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, env.Failed())
	assert.Contains(t, env.Error.Message, "pipe closed")
}
