package provider

import (
	"fmt"
	"net/http"
	"time"
)

// GenerateRequest contains all parameters for one generation call
type GenerateRequest struct {
	// Prompt is the user message
	Prompt string `json:"prompt"`

	// SystemPrompt fixes the output shape
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Model overrides the client's default model
	Model string `json:"model,omitempty"`

	// MaxTokens limits the response length; 0 uses the client default
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness; 0 uses the backend default
	Temperature float64 `json:"temperature,omitempty"`

	// JSON asks the backend to constrain output to a JSON object
	JSON bool `json:"json,omitempty"`
}

// GenerateResponse contains the model's response
type GenerateResponse struct {
	// Content is the message text of the first choice, unmodified
	Content string `json:"content"`

	// TokensUsed is the total tokens consumed (input + output)
	TokensUsed int `json:"tokens_used"`

	// Model is the model that produced the response
	Model string `json:"model"`

	// Latency is how long the call took
	Latency time.Duration `json:"latency"`

	// FinishReason explains why generation stopped ("stop", "length")
	FinishReason string `json:"finish_reason"`

	// Provider is the backend that handled the request
	Provider string `json:"provider"`
}

// Config selects and parameterizes a backend client
type Config struct {
	// Name is the backend ("openai" or "ollama")
	Name string

	// Model is the default model
	Model string

	// BaseURL overrides the backend endpoint
	BaseURL string

	// APIKey authenticates against OpenAI-compatible endpoints
	APIKey string

	// MaxTokens is the default response limit
	MaxTokens int

	// HTTPClient overrides the transport; nil uses a client without timeout
	// so only the caller's context bounds the call.
	HTTPClient *http.Client
}

// GenerationError reports a failed backend call: transport failure,
// rejected request, or a response without any choice.
type GenerationError struct {
	Backend string
	// StatusCode is the HTTP status when the backend answered, else 0
	StatusCode int
	Cause      error
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s generation failed (HTTP %d): %v", e.Backend, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("%s generation failed: %v", e.Backend, e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Unauthorized reports whether the backend rejected the credentials
func (e *GenerationError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}
