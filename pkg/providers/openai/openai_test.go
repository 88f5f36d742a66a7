package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentloom/loom/pkg/domain"
)

func TestGenerate(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "cmpl-1",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop",
				"message": {"role": "assistant", "content": "three keywords"}}]
		}`))
	}))
	defer srv.Close()

	client := New(WithAPIKey("test-key"), WithBaseURL(srv.URL))
	env, err := client.Generate(context.Background(), domain.ModelCall{
		NodeID: "extract",
		Prompt: map[string]string{
			"system": "You extract keywords.",
			"user":   "find papers about schedulers",
		},
		Model:       "gpt-4o-mini",
		Temperature: 0.2,
	})
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Nil(t, env.Error)
	assert.Equal(t, "three keywords", env.Text)

	payload := env.Payload.(map[string]any)
	assert.Equal(t, "cmpl-1", payload["id"])
	assert.Equal(t, "stop", payload["finish_reason"])

	assert.Equal(t, "gpt-4o-mini", captured["model"])
	assert.EqualValues(t, 0.2, captured["temperature"])
	messages := captured["messages"].([]any)
	require.Len(t, messages, 2)
	first := messages[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "You extract keywords.", first["content"])
	second := messages[1].(map[string]any)
	assert.Equal(t, "user", second["role"])
}

func TestGenerateAPIErrorIsFailureEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "bad key"}}`))
	}))
	defer srv.Close()

	client := New(WithAPIKey("wrong"), WithBaseURL(srv.URL))
	env, err := client.Generate(context.Background(), domain.ModelCall{
		Model:  "gpt-4o-mini",
		Prompt: map[string]string{"user": "hello"},
	})
	require.NoError(t, err)
	require.True(t, env.Failed())
	assert.Equal(t, "provider_error", env.Error.Type)
}

func TestGenerateNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "cmpl-2", "model": "gpt-4o-mini", "choices": []}`))
	}))
	defer srv.Close()

	client := New(WithBaseURL(srv.URL))
	env, err := client.Generate(context.Background(), domain.ModelCall{
		Model:  "gpt-4o-mini",
		Prompt: map[string]string{"user": "hello"},
	})
	require.NoError(t, err)
	require.True(t, env.Failed())
	assert.Contains(t, env.Error.Message, "no choices")
}
