// Package mcptool invokes tools on an MCP server and normalizes the results
// into envelopes.
package mcptool

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/agentloom/loom/pkg/domain"
	"github.com/agentloom/loom/pkg/ports"
)

// Caller is the slice of the MCP client surface the tool needs; the concrete
// client satisfies it, and tests substitute fakes.
type Caller interface {
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// New binds one named server-side tool to a ToolFunc. The node's rendered
// inputs become the MCP tool arguments.
func New(caller Caller, toolName string) ports.ToolFunc {
	return func(ctx context.Context, args map[string]any) (*domain.Envelope, error) {
		req := mcp.CallToolRequest{}
		req.Params.Name = toolName
		req.Params.Arguments = args

		result, err := caller.CallTool(ctx, req)
		if err != nil {
			return domain.ErrorEnvelope("mcp_error", err), nil
		}
		return normalize(toolName, result), nil
	}
}

// Dial starts an MCP server over stdio and completes the initialize
// handshake. Callers own the returned client's lifecycle.
func Dial(ctx context.Context, command string, env []string, args ...string) (*client.Client, error) {
	c, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("starting mcp server %q: %w", command, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "loom", Version: "0.1.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, fmt.Errorf("initializing mcp server %q: %w", command, err)
	}
	return c, nil
}

func normalize(toolName string, result *mcp.CallToolResult) *domain.Envelope {
	if result == nil {
		return domain.ErrorEnvelope("mcp_error", fmt.Errorf("tool %q returned no result", toolName))
	}

	var texts []string
	items := make([]any, 0, len(result.Content))
	for _, content := range result.Content {
		switch typed := content.(type) {
		case mcp.TextContent:
			texts = append(texts, typed.Text)
			items = append(items, map[string]any{"type": "text", "text": typed.Text})
		case mcp.ImageContent:
			items = append(items, map[string]any{"type": "image", "data": typed.Data, "mime_type": typed.MIMEType})
		default:
			items = append(items, map[string]any{"type": "unknown"})
		}
	}
	text := strings.Join(texts, "\n")

	if result.IsError {
		message := text
		if message == "" {
			message = fmt.Sprintf("tool %q reported an error", toolName)
		}
		return &domain.Envelope{Error: &domain.InvokeError{Type: "mcp_error", Message: message}}
	}

	return &domain.Envelope{
		Status:  200,
		Payload: map[string]any{"content": items},
		Text:    text,
		Items:   items,
	}
}
