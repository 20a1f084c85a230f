package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel     = openai.GPT3Dot5Turbo
	defaultOpenAIMaxTokens = 2048
)

// OpenAIClient implements Client for the OpenAI chat completions API and
// compatible endpoints.
type OpenAIClient struct {
	client    *openai.Client
	baseURL   string
	model     string
	maxTokens int
}

// NewOpenAIClient creates a client from cfg. An API key is required.
func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultOpenAIMaxTokens
	}

	return &OpenAIClient{
		client:    openai.NewClientWithConfig(clientConfig),
		baseURL:   clientConfig.BaseURL,
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Generate implements Client.Generate
func (c *OpenAIClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req))
	if err != nil {
		return nil, &GenerationError{Backend: BackendOpenAI, StatusCode: statusCode(err), Cause: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &GenerationError{Backend: BackendOpenAI, Cause: errors.New("response contained no choices")}
	}

	choice := resp.Choices[0]
	return &GenerateResponse{
		Content:      choice.Message.Content,
		TokensUsed:   resp.Usage.TotalTokens,
		Model:        resp.Model,
		Latency:      time.Since(start),
		FinishReason: string(choice.FinishReason),
		Provider:     BackendOpenAI,
	}, nil
}

func (c *OpenAIClient) buildRequest(req *GenerateRequest) openai.ChatCompletionRequest {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return chatReq
}

// Info implements Client.Info
func (c *OpenAIClient) Info() *Info {
	return &Info{Name: BackendOpenAI, Model: c.model, Endpoint: c.baseURL}
}

// Close implements Client.Close
func (c *OpenAIClient) Close() error {
	return nil
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
