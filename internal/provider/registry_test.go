package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct{ name string }

func (s *stubClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	return &GenerateResponse{Content: "{}", Provider: s.name}, nil
}
func (s *stubClient) Info() *Info  { return &Info{Name: s.name} }
func (s *stubClient) Close() error { return nil }

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"ollama", "openai"}, r.List())
}

func TestRegistryNew(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		wantName    string
		errContains string
	}{
		{name: "openai", cfg: Config{Name: "openai", APIKey: "k"}, wantName: "openai"},
		{name: "case insensitive", cfg: Config{Name: " OpenAI ", APIKey: "k"}, wantName: "openai"},
		{name: "ollama without key", cfg: Config{Name: "ollama"}, wantName: "ollama"},
		{name: "openai without key", cfg: Config{Name: "openai"}, errContains: "api key is required"},
		{name: "empty name", cfg: Config{}, errContains: "backend name is required"},
		{name: "unknown", cfg: Config{Name: "anthropic"}, errContains: `unknown backend "anthropic"`},
	}

	r := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := r.New(tt.cfg)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, client.Info().Name)
			assert.NoError(t, client.Close())
		})
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("stub", func(cfg Config) (Client, error) {
		return &stubClient{name: cfg.Name}, nil
	}))

	err := r.Register("stub", func(cfg Config) (Client, error) { return nil, nil })
	assert.Error(t, err)

	client, err := r.New(Config{Name: "stub"})
	require.NoError(t, err)
	assert.Equal(t, "stub", client.Info().Name)

	require.NoError(t, r.Register("broken", func(cfg Config) (Client, error) {
		return nil, errors.New("no socket")
	}))
	_, err = r.New(Config{Name: "broken"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create broken client")
}

func TestGenerationError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &GenerationError{Backend: "openai", Cause: cause}
	assert.Equal(t, "openai generation failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.False(t, err.Unauthorized())

	err = &GenerationError{Backend: "openai", StatusCode: 401, Cause: cause}
	assert.Contains(t, err.Error(), "HTTP 401")
	assert.True(t, err.Unauthorized())
}
