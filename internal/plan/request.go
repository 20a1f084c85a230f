package plan

import (
	"fmt"
	"path/filepath"
	"strings"
)

// GenerationRequest is everything the backend is told about the project.
// It is built once per run and cannot be modified afterwards.
type GenerationRequest struct {
	variant     Variant
	language    string
	name        string
	description string
	targetOS    string
}

// NewRequest validates the inputs and returns an immutable request.
// targetOS may be empty.
func NewRequest(variant Variant, language, name, description, targetOS string) (GenerationRequest, error) {
	if _, err := ParseVariant(string(variant)); err != nil {
		return GenerationRequest{}, err
	}
	if strings.TrimSpace(description) == "" {
		return GenerationRequest{}, fmt.Errorf("description is required")
	}
	if strings.TrimSpace(language) == "" {
		return GenerationRequest{}, fmt.Errorf("language is required")
	}
	if err := validateProjectName(name); err != nil {
		return GenerationRequest{}, err
	}

	return GenerationRequest{
		variant:     variant,
		language:    strings.TrimSpace(language),
		name:        name,
		description: strings.TrimSpace(description),
		targetOS:    strings.TrimSpace(targetOS),
	}, nil
}

// The project name doubles as a directory in the working directory,
// so it must be exactly one path element.
func validateProjectName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("project name is required")
	case name == "." || name == "..":
		return fmt.Errorf("project name %q is not a directory name", name)
	case strings.ContainsAny(name, `/\`) || filepath.Base(name) != name:
		return fmt.Errorf("project name %q must not contain path separators", name)
	}
	return nil
}

// Variant returns the requested schema variant
func (r GenerationRequest) Variant() Variant { return r.variant }

// Language returns the target programming language
func (r GenerationRequest) Language() string { return r.language }

// Name returns the project name, which is also the project directory
func (r GenerationRequest) Name() string { return r.name }

// Description returns the free-text requirements
func (r GenerationRequest) Description() string { return r.description }

// TargetOS returns the host operating system identifier, if any
func (r GenerationRequest) TargetOS() string { return r.targetOS }
