package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Generation errors (GEN-001 to GEN-099)
	ErrCodeGenerationFailed ErrorCode = "GEN-001"
	ErrCodeGenerationEmpty  ErrorCode = "GEN-002"
	ErrCodeBackendAuth      ErrorCode = "GEN-003"

	// Decode errors (DECODE-001 to DECODE-099)
	ErrCodeDecodeFailed ErrorCode = "DECODE-001"

	// Execution errors (EXEC-001 to EXEC-099)
	ErrCodeExecLaunch        ErrorCode = "EXEC-001"
	ErrCodeExecStepFailed    ErrorCode = "EXEC-002"
	ErrCodeExecScriptAbandon ErrorCode = "EXEC-003"
	ErrCodeExecOperatorInput ErrorCode = "EXEC-004"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid  ErrorCode = "CONFIG-001"
	ErrCodeConfigNotFound ErrorCode = "CONFIG-002"
	ErrCodeConfigParse    ErrorCode = "CONFIG-003"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileReadFailed  ErrorCode = "IO-001"
	ErrCodeFileWriteFailed ErrorCode = "IO-002"
	ErrCodeDirectoryFailed ErrorCode = "IO-003"
)

// Category returns the prefix of the code ("GEN", "EXEC", ...)
func (c ErrorCode) Category() string {
	s := string(c)
	if i := strings.IndexByte(s, '-'); i > 0 {
		return s[:i]
	}
	return s
}

// Error represents an enhanced error with code, suggestions, and documentation
type Error struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new coded Error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new coded Error wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *Error) WithSuggestions(suggestions ...string) *Error {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *Error) WithDocs(url string) *Error {
	e.DocsURL = url
	return e
}

// CodeOf returns the code of the outermost coded error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code, true
	}
	return "", false
}

// Common error constructors for frequently used errors

// NewGenerationError reports a failed or non-successful backend call
func NewGenerationError(backend string, cause error) *Error {
	return Wrap(ErrCodeGenerationFailed, fmt.Sprintf("generation request to %s failed", backend), cause).
		WithSuggestion("Check network connectivity and the backend status").
		WithSuggestion("Re-run the command; generation is never retried automatically")
}

// NewBackendAuthError reports missing backend credentials
func NewBackendAuthError(backend, envVar string) *Error {
	return New(ErrCodeBackendAuth, fmt.Sprintf("no credentials configured for backend: %s", backend)).
		WithSuggestion(fmt.Sprintf("Set the %s environment variable or add it to a .env file", envVar)).
		WithSuggestion("Use --backend ollama to generate with a local model instead")
}

// NewBackendRejectedError reports credentials the backend refused
func NewBackendRejectedError(backend, envVar string, cause error) *Error {
	return Wrap(ErrCodeBackendAuth, fmt.Sprintf("%s rejected the configured credentials", backend), cause).
		WithSuggestion(fmt.Sprintf("Check the value of %s", envVar))
}

// NewEmptyResponseError reports a response with no content
func NewEmptyResponseError(backend string) *Error {
	return New(ErrCodeGenerationEmpty, fmt.Sprintf("%s returned an empty response", backend)).
		WithSuggestion("Raise --max-tokens or try another model")
}

// NewDecodeError reports a response that did not match the requested schema
func NewDecodeError(variant string, cause error) *Error {
	return Wrap(ErrCodeDecodeFailed, fmt.Sprintf("response does not match the %s schema", variant), cause).
		WithSuggestion("Inspect the raw response printed above").
		WithSuggestion("Re-run the command; models occasionally return malformed JSON")
}

// NewLaunchError reports a step whose process could not be started
func NewLaunchError(cause error) *Error {
	return Wrap(ErrCodeExecLaunch, "could not start step", cause).
		WithSuggestion("Check that the configured shell is installed (see --shell)")
}

// NewStepExecutionError reports a step that exited non-zero
func NewStepExecutionError(cause error) *Error {
	return Wrap(ErrCodeExecStepFailed, "step failed; remaining steps and file writes were not attempted", cause).
		WithSuggestion("Fix the problem by hand, or re-run and edit the failing step when prompted")
}

// NewScriptAbandonedError reports that the operator skipped the only script
func NewScriptAbandonedError(cause error) *Error {
	return Wrap(ErrCodeExecScriptAbandon, "script skipped; nothing left to do", cause).
		WithSuggestion("Re-run and accept or edit the generated script")
}

// NewOperatorInputError reports that the approval prompt could not be answered
func NewOperatorInputError(cause error) *Error {
	return Wrap(ErrCodeExecOperatorInput, "no answer for the approval prompt; nothing further was run", cause).
		WithSuggestion("Run codemuse from an interactive terminal, or pipe one answer per prompt")
}

// NewConfigInvalidError creates a configuration validation error
func NewConfigInvalidError(details string) *Error {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", details)).
		WithSuggestion("Run 'codemuse --help' to see accepted flag values")
}

// NewFileWriteError creates a file write error
func NewFileWriteError(path string, cause error) *Error {
	return Wrap(ErrCodeFileWriteFailed, fmt.Sprintf("failed to write file: %s", path), cause).
		WithSuggestion("Verify you have write permissions in the project directory")
}
