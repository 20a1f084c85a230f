package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

func writeCompletion(t *testing.T, w http.ResponseWriter, choices []map[string]any) {
	t.Helper()
	writeJSON(w, http.StatusOK, map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"model":   "gpt-3.5-turbo-0125",
		"choices": choices,
		"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
}

func TestNewOpenAIClient(t *testing.T) {
	_, err := NewOpenAIClient(Config{})
	assert.Error(t, err)

	client, err := NewOpenAIClient(Config{APIKey: "test-key"})
	require.NoError(t, err)
	info := client.Info()
	assert.Equal(t, "openai", info.Name)
	assert.Equal(t, "gpt-3.5-turbo", info.Model)
	assert.Equal(t, "https://api.openai.com/v1", info.Endpoint)
}

func TestOpenAIClient_Generate(t *testing.T) {
	var got chatRequest
	server := newBackendServer(t, openAIChatRoute, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		writeCompletion(t, w, []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": `{"script":"ls"}`},
			"finish_reason": "stop",
		}})
	})

	client, err := NewOpenAIClient(Config{APIKey: "test-key", BaseURL: server.URL, MaxTokens: 512})
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), &GenerateRequest{
		SystemPrompt: "system text",
		Prompt:       "user text",
		JSON:         true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"script":"ls"}`, resp.Content)
	assert.Equal(t, 15, resp.TokensUsed)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, "openai", resp.Provider)

	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.Equal(t, 512, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "system text", got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "user text", got.Messages[1].Content)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestOpenAIClient_RequestModelOverride(t *testing.T) {
	var got chatRequest
	server := newBackendServer(t, openAIChatRoute, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(t, w, []map[string]any{{
			"index":   0,
			"message": map[string]string{"role": "assistant", "content": "{}"},
		}})
	})

	client, err := NewOpenAIClient(Config{APIKey: "k", BaseURL: server.URL, Model: "gpt-4o-mini"})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), &GenerateRequest{Prompt: "p", Model: "gpt-4o", MaxTokens: 99})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, 99, got.MaxTokens)
	assert.Nil(t, got.ResponseFormat)
	assert.Len(t, got.Messages, 1)
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	server := newBackendServer(t, openAIChatRoute, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, []map[string]any{})
	})

	client, err := NewOpenAIClient(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), &GenerateRequest{Prompt: "p"})
	assert.Nil(t, resp)

	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "openai", genErr.Backend)
	assert.Contains(t, err.Error(), "no choices")
}

func TestOpenAIClient_Unauthorized(t *testing.T) {
	server := newBackendServer(t, openAIChatRoute, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]string{
			"message": "Incorrect API key provided",
			"type":    "invalid_request_error",
			"code":    "invalid_api_key",
		}})
	})

	client, err := NewOpenAIClient(Config{APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), &GenerateRequest{Prompt: "p"})
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, http.StatusUnauthorized, genErr.StatusCode)
	assert.True(t, genErr.Unauthorized())
	assert.Contains(t, err.Error(), "Incorrect API key")
}

func TestOpenAIClient_ContextCanceled(t *testing.T) {
	server := newBackendServer(t, openAIChatRoute, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	client, err := NewOpenAIClient(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Generate(ctx, &GenerateRequest{Prompt: "p"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
