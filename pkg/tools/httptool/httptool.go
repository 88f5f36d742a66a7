// Package httptool exposes a generic HTTP caller as a tool. The response is
// normalized into the envelope: status code, decoded JSON payload, raw text
// and a best-effort item list.
package httptool

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/agentloom/loom/pkg/domain"
	"github.com/agentloom/loom/pkg/ports"
)

// New builds the tool over a fresh resty client.
func New() ports.ToolFunc {
	return NewWithClient(resty.New())
}

// NewWithClient builds the tool over an existing client, letting callers
// share transports or inject test clients.
func NewWithClient(client *resty.Client) ports.ToolFunc {
	return func(ctx context.Context, args map[string]any) (*domain.Envelope, error) {
		url, _ := args["url"].(string)
		if url == "" {
			return nil, fmt.Errorf("http tool requires a url argument")
		}
		method := strings.ToUpper(stringArg(args, "method", "GET"))

		req := client.R().SetContext(ctx)
		if params, ok := args["params"].(map[string]any); ok {
			for key, v := range params {
				req.SetQueryParam(key, fmt.Sprint(v))
			}
		}
		if headers, ok := args["headers"].(map[string]any); ok {
			for key, v := range headers {
				req.SetHeader(key, fmt.Sprint(v))
			}
		}
		if body, ok := args["json"]; ok && body != nil {
			req.SetHeader("Content-Type", "application/json")
			req.SetBody(body)
		}

		resp, err := req.Execute(method, url)
		if err != nil {
			// Transport failures are tool failures: they flow through retry
			// and error policy rather than aborting the run.
			return domain.ErrorEnvelope("http_error", err), nil
		}

		var payload any
		if decoded, ok := decodeJSON(resp.Body()); ok {
			payload = decoded
		}
		return &domain.Envelope{
			Status:  resp.StatusCode(),
			Payload: payload,
			Text:    string(resp.Body()),
			Items:   extractItems(payload),
		}, nil
	}
}

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// extractItems surfaces a list from common response shapes: a top-level
// array, or an items/results/data field holding one.
func extractItems(payload any) []any {
	switch v := payload.(type) {
	case []any:
		return v
	case map[string]any:
		for _, key := range []string{"items", "results", "data"} {
			if list, ok := v[key].([]any); ok {
				return list
			}
		}
	}
	return nil
}
