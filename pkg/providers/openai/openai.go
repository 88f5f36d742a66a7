// Package openai implements the model client against any
// OpenAI-compatible chat completions endpoint.
package openai

import (
	"context"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/agentloom/loom/pkg/domain"
)

// Client calls the chat completions API for llm nodes.
type Client struct {
	api sdk.Client
}

// Option configures a Client.
type Option func(*settings)

type settings struct {
	apiKey  string
	baseURL string
}

// WithAPIKey sets the bearer token sent with each request.
func WithAPIKey(key string) Option {
	return func(s *settings) { s.apiKey = key }
}

// WithBaseURL points the client at a non-default endpoint, for
// OpenAI-compatible gateways and local servers.
func WithBaseURL(url string) Option {
	return func(s *settings) { s.baseURL = url }
}

// New builds a Client. Without options the SDK falls back to its standard
// environment variables.
func New(opts ...Option) *Client {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	var requestOpts []option.RequestOption
	if s.apiKey != "" {
		requestOpts = append(requestOpts, option.WithAPIKey(s.apiKey))
	}
	if s.baseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(s.baseURL))
	}
	return &Client{api: sdk.NewClient(requestOpts...)}
}

// Generate sends the rendered prompt and returns the first choice as the
// envelope text. Transport and API errors become failure envelopes so the
// node's error policy decides what happens next.
func (c *Client) Generate(ctx context.Context, call domain.ModelCall) (*domain.Envelope, error) {
	params := sdk.ChatCompletionNewParams{
		Model:       shared.ChatModel(call.Model),
		Messages:    convertPrompt(call.Prompt),
		Temperature: sdk.Float(call.Temperature),
	}

	completion, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return domain.ErrorEnvelope("provider_error", err), nil
	}
	if len(completion.Choices) == 0 {
		return &domain.Envelope{Error: &domain.InvokeError{
			Type:    "provider_error",
			Message: "completion returned no choices",
		}}, nil
	}

	text := completion.Choices[0].Message.Content
	return &domain.Envelope{
		Status: 200,
		Payload: map[string]any{
			"id":            completion.ID,
			"model":         completion.Model,
			"text":          text,
			"finish_reason": string(completion.Choices[0].FinishReason),
		},
		Text: text,
	}, nil
}

// roleOrder fixes the conversation ordering for the role map produced by
// prompt rendering.
var roleOrder = []string{"system", "user", "assistant"}

func convertPrompt(prompt map[string]string) []sdk.ChatCompletionMessageParamUnion {
	messages := make([]sdk.ChatCompletionMessageParamUnion, 0, len(prompt))
	for _, role := range roleOrder {
		content, ok := prompt[role]
		if !ok {
			continue
		}
		switch role {
		case "system":
			messages = append(messages, sdk.ChatCompletionMessageParamUnion{
				OfSystem: &sdk.ChatCompletionSystemMessageParam{
					Content: sdk.ChatCompletionSystemMessageParamContentUnion{OfString: sdk.String(content)},
				},
			})
		case "user":
			messages = append(messages, sdk.ChatCompletionMessageParamUnion{
				OfUser: &sdk.ChatCompletionUserMessageParam{
					Content: sdk.ChatCompletionUserMessageParamContentUnion{OfString: sdk.String(content)},
				},
			})
		case "assistant":
			messages = append(messages, sdk.ChatCompletionMessageParamUnion{
				OfAssistant: &sdk.ChatCompletionAssistantMessageParam{
					Content: sdk.ChatCompletionAssistantMessageParamContentUnion{OfString: sdk.String(content)},
				},
			})
		}
	}
	return messages
}
