package plan

import (
	"fmt"
	"strings"
)

// Variant selects the response schema requested from the backend and,
// with it, the shape of the decoded Plan.
type Variant string

const (
	// VariantSteps asks for ordered shell steps plus a map of file contents
	VariantSteps Variant = "steps"
	// VariantScript asks for a single shell script
	VariantScript Variant = "script"
	// VariantBundle asks for a Dockerfile, Makefile, README and source files
	VariantBundle Variant = "bundle"
)

// Variants lists every supported variant in presentation order
func Variants() []Variant {
	return []Variant{VariantSteps, VariantScript, VariantBundle}
}

// ParseVariant maps a flag value to a Variant
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Variants() {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown plan variant %q (supported: steps, script, bundle)", s)
}

// String implements fmt.Stringer
func (v Variant) String() string {
	return string(v)
}

// Schema returns the example document that is shown to the model as the
// only acceptable output shape for this variant.
func (v Variant) Schema() string {
	switch v {
	case VariantScript:
		return `{
    "script": "bash commands that create and build the project"
}`
	case VariantBundle:
		return `{
    "dockerfile": "contents of Dockerfile",
    "makefile": "contents of Makefile",
    "readme": "contents of README.md",
    "source_files": [
        {"name": "path/file1.ext", "contents": "contents"}
    ]
}`
	default:
		return `{
    "steps": ["step 1", "step 2"],
    "files": {
        "path/file1.ext": "contents"
    }
}`
	}
}
