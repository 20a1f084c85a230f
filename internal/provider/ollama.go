package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

const (
	defaultOllamaURL   = "http://127.0.0.1:11434"
	defaultOllamaModel = "llama3.1"
)

// OllamaClient implements Client for a local Ollama server
type OllamaClient struct {
	client    *ollama.Client
	baseURL   string
	model     string
	maxTokens int
}

// NewOllamaClient creates a client from cfg. No credentials are needed.
func NewOllamaClient(cfg Config) (*OllamaClient, error) {
	base := cfg.BaseURL
	if base == "" {
		base = defaultOllamaURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", base, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}

	return &OllamaClient{
		client:    ollama.NewClient(u, httpClient),
		baseURL:   u.String(),
		model:     model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Generate implements Client.Generate
func (c *OllamaClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()

	chatReq := c.buildRequest(req)

	var (
		content strings.Builder
		final   ollama.ChatResponse
		got     bool
	)
	err := c.client.Chat(ctx, chatReq, func(res ollama.ChatResponse) error {
		content.WriteString(res.Message.Content)
		final = res
		got = true
		return nil
	})
	if err != nil {
		return nil, &GenerationError{Backend: BackendOllama, StatusCode: ollamaStatus(err), Cause: err}
	}
	if !got {
		return nil, &GenerationError{Backend: BackendOllama, Cause: errors.New("response contained no message")}
	}

	return &GenerateResponse{
		Content:      content.String(),
		TokensUsed:   final.PromptEvalCount + final.EvalCount,
		Model:        final.Model,
		Latency:      time.Since(start),
		FinishReason: final.DoneReason,
		Provider:     BackendOllama,
	}, nil
}

func (c *OllamaClient) buildRequest(req *GenerateRequest) *ollama.ChatRequest {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	var messages []ollama.Message
	if req.SystemPrompt != "" {
		messages = append(messages, ollama.Message{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, ollama.Message{Role: "user", Content: req.Prompt})

	options := map[string]any{}
	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens > 0 {
		options["num_predict"] = maxTokens
	}
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}

	stream := false
	chatReq := &ollama.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}
	if req.JSON {
		chatReq.Format = json.RawMessage(`"json"`)
	}
	return chatReq
}

// Info implements Client.Info
func (c *OllamaClient) Info() *Info {
	return &Info{Name: BackendOllama, Model: c.model, Endpoint: c.baseURL}
}

// Close implements Client.Close
func (c *OllamaClient) Close() error {
	return nil
}

func ollamaStatus(err error) int {
	var statusErr ollama.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
