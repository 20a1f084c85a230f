// Package prompt renders the chat messages sent to the generation backend.
// The wording lives in embedded templates; only the variables are code.
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/security-union/codemuse/internal/plan"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

var templates = template.Must(template.ParseFS(templateFiles, "templates/*.tmpl"))

// Messages is the system/user pair for one chat request
type Messages struct {
	System string
	User   string
}

type userData struct {
	Name        string
	Language    string
	Description string
	TargetOS    string
	Schema      string
}

// Build renders the messages for req. The user message names the project,
// language and requirements and embeds the schema of the requested variant.
func Build(req plan.GenerationRequest) (Messages, error) {
	system, err := render("system.tmpl", nil)
	if err != nil {
		return Messages{}, err
	}

	data := userData{
		Name:        req.Name(),
		Language:    req.Language(),
		Description: req.Description(),
		TargetOS:    req.TargetOS(),
		Schema:      req.Variant().Schema(),
	}
	user, err := render(templateFor(req.Variant()), data)
	if err != nil {
		return Messages{}, err
	}

	return Messages{System: system, User: user}, nil
}

func templateFor(v plan.Variant) string {
	switch v {
	case plan.VariantScript:
		return "script.tmpl"
	case plan.VariantBundle:
		return "bundle.tmpl"
	default:
		return "steps.tmpl"
	}
}

func render(name string, data any) (string, error) {
	var buf strings.Builder
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}
