package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/security-union/codemuse/internal/materialize"
	"github.com/security-union/codemuse/internal/plan"
)

// Formatter defines the interface for output formatters used by the
// plan preview and the version command.
type Formatter interface {
	// Format writes the given data to the output writer
	Format(data any) error
}

// FormatterOptions contains configuration for formatters
type FormatterOptions struct {
	// Writer is where output is written (defaults to os.Stdout)
	Writer io.Writer
	// NoColor disables colored output for text formatters
	NoColor bool
	// Compact enables compact output (no indentation for JSON/YAML)
	Compact bool
}

// NewFormatter creates a formatter based on the format string
func NewFormatter(format string, opts *FormatterOptions) (Formatter, error) {
	if opts == nil {
		opts = &FormatterOptions{Writer: os.Stdout}
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	switch format {
	case "json":
		return &JSONFormatter{opts: opts}, nil
	case "yaml":
		return &YAMLFormatter{opts: opts}, nil
	case "text", "":
		return &TextFormatter{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s (supported: text, json, yaml)", format)
	}
}

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	opts *FormatterOptions
}

// Format writes data as JSON
func (f *JSONFormatter) Format(data any) error {
	encoder := json.NewEncoder(f.opts.Writer)
	if !f.opts.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	opts *FormatterOptions
}

// Format writes data as YAML
func (f *YAMLFormatter) Format(data any) error {
	encoder := yaml.NewEncoder(f.opts.Writer)
	if !f.opts.Compact {
		encoder.SetIndent(2)
	}
	defer encoder.Close()
	return encoder.Encode(data)
}

// TextFormatter formats output as human-readable text
type TextFormatter struct {
	opts *FormatterOptions
}

// Format writes data as formatted text
// Note: TextFormatter requires data to implement a String() method
// or be a primitive type (string, int, bool, etc.)
func (f *TextFormatter) Format(data any) error {
	switch v := data.(type) {
	case string:
		_, err := fmt.Fprintln(f.opts.Writer, v)
		return err
	case fmt.Stringer:
		_, err := fmt.Fprintln(f.opts.Writer, v.String())
		return err
	default:
		// For complex types, fall back to JSON with better error message
		return fmt.Errorf("text formatter requires data to implement String() method or be a primitive type")
	}
}

// Compile-time verification that formatters implement Formatter
var _ Formatter = (*JSONFormatter)(nil)
var _ Formatter = (*YAMLFormatter)(nil)
var _ Formatter = (*TextFormatter)(nil)

// PlanView is the printable form of a decoded plan. Files keep the order
// in which the response listed them.
type PlanView struct {
	Variant string     `json:"variant" yaml:"variant"`
	Summary string     `json:"summary" yaml:"summary"`
	Steps   []string   `json:"steps,omitempty" yaml:"steps,omitempty"`
	Files   []FileView `json:"files,omitempty" yaml:"files,omitempty"`
}

// FileView is one generated file of a PlanView
type FileView struct {
	Path     string `json:"path" yaml:"path"`
	Contents string `json:"contents" yaml:"contents"`
}

// NewPlanView flattens any plan variant into a PlanView
func NewPlanView(p plan.Plan) PlanView {
	view := PlanView{
		Variant: p.Variant().String(),
		Summary: plan.Describe(p),
		Steps:   p.Steps(),
	}

	switch v := p.(type) {
	case plan.StepFilePlan:
		for _, f := range v.Files {
			view.Files = append(view.Files, FileView{Path: f.Path, Contents: f.Contents})
		}
	case plan.BundlePlan:
		view.Files = append(view.Files,
			FileView{Path: materialize.DockerfileName, Contents: v.Dockerfile},
			FileView{Path: materialize.MakefileName, Contents: v.Makefile},
			FileView{Path: materialize.ReadmeName, Contents: v.Readme},
		)
		for _, f := range v.SourceFiles {
			view.Files = append(view.Files, FileView{Path: f.Name, Contents: f.Contents})
		}
	}

	return view
}

// String renders the view for the text formatter
func (v PlanView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan (%s): %s\n", v.Variant, v.Summary)

	if len(v.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for i, step := range v.Steps {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
		}
	}

	if len(v.Files) > 0 {
		b.WriteString("\nFiles:\n")
		for _, f := range v.Files {
			fmt.Fprintf(&b, "--- %s\n%s\n", f.Path, strings.TrimRight(f.Contents, "\n"))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
