package ux

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	muserr "github.com/security-union/codemuse/internal/errors"
)

func TestNewErrorWithSuggestion(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		suggestion string
		wantNil    bool
	}{
		{"nil error returns nil", nil, "some suggestion", true},
		{"error with suggestion", errors.New("something failed"), "try this fix", false},
		{"error without suggestion", errors.New("something failed"), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewErrorWithSuggestion(tt.err, tt.suggestion)
			if tt.wantNil {
				assert.Nil(t, result)
				return
			}

			require.NotNil(t, result)
			assert.Contains(t, result.Error(), tt.err.Error())
			if tt.suggestion != "" {
				assert.Contains(t, result.Error(), tt.suggestion)
			} else {
				assert.Equal(t, tt.err.Error(), result.Error())
			}
			assert.ErrorIs(t, result, tt.err)
		})
	}
}

func TestEnhanceError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"connection refused", errors.New("dial tcp 127.0.0.1:11434: connect: connection refused"), "ollama serve"},
		{"api key", errors.New("Incorrect API key provided"), "OPENAI_API_KEY"},
		{"missing shell", errors.New(`exec: "bash": executable file not found in $PATH`), "--shell"},
		{"permission", errors.New("open x: permission denied"), "permissions"},
		{"existing path", errors.New("mkdir myapp: file exists"), "--name"},
		{"deadline", fmt.Errorf("call: %w", errors.New("context deadline exceeded")), "--max-tokens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enhanced := EnhanceError(tt.err)
			var withSuggestion *ErrorWithSuggestion
			require.ErrorAs(t, enhanced, &withSuggestion)
			assert.Contains(t, withSuggestion.Suggestion, tt.contains)
		})
	}
}

func TestEnhanceErrorPassThrough(t *testing.T) {
	assert.Nil(t, EnhanceError(nil))

	plain := errors.New("something unusual")
	assert.Same(t, plain, EnhanceError(plain))

	coded := muserr.NewGenerationError("openai", errors.New("connection refused"))
	assert.Same(t, coded, EnhanceError(coded), "coded errors keep their own suggestions")
}
