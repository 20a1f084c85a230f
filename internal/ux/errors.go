package ux

import (
	"errors"
	"fmt"
	"strings"

	muserr "github.com/security-union/codemuse/internal/errors"
)

// ErrorWithSuggestion wraps an error with a recovery suggestion
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

// Error implements the error interface
func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

// Unwrap provides access to the underlying error
func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// NewErrorWithSuggestion creates a new error with a suggestion
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// EnhanceError adds a suggestion to errors that do not carry their own.
// Coded errors already have suggestions and are returned unchanged.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}

	var coded *muserr.Error
	if errors.As(err, &coded) && len(coded.Suggestions) > 0 {
		return err
	}

	errMsg := err.Error()

	switch {
	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no route to host"):
		return NewErrorWithSuggestion(err,
			"Check that the backend is reachable; for a local model run 'ollama serve' first")
	case strings.Contains(errMsg, "API key") || strings.Contains(errMsg, "authentication"):
		return NewErrorWithSuggestion(err,
			"Set OPENAI_API_KEY in the environment or in a .env file")
	case strings.Contains(errMsg, "executable file not found"):
		return NewErrorWithSuggestion(err,
			"Install bash or choose another shell with --shell")
	case strings.Contains(errMsg, "permission denied"):
		return NewErrorWithSuggestion(err,
			"Check file permissions in the project directory")
	case strings.Contains(errMsg, "file exists"):
		return NewErrorWithSuggestion(err,
			"Choose another --name or remove the existing path")
	case strings.Contains(errMsg, "context deadline exceeded"):
		return NewErrorWithSuggestion(err,
			"The backend took too long to answer; try a smaller --max-tokens or a faster model")
	}

	return err
}
