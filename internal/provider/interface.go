package provider

import (
	"context"
)

// Client is the interface every generation backend implements. A run makes
// exactly one Generate call; there is no streaming or multi-turn use.
type Client interface {
	// Generate sends one system/user message pair and returns the text of
	// the first choice. A response with no choices is an error.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// Info returns metadata about the backend
	Info() *Info

	// Close releases any resources held by the client
	Close() error
}

// Info contains metadata about a backend client
type Info struct {
	// Name is the backend identifier ("openai", "ollama")
	Name string

	// Model is the default model used when a request does not name one
	Model string

	// Endpoint is the base URL requests are sent to
	Endpoint string
}

// Backend names accepted by New
const (
	BackendOpenAI = "openai"
	BackendOllama = "ollama"
)

// Backends lists the supported backend names
func Backends() []string {
	return []string{BackendOpenAI, BackendOllama}
}
