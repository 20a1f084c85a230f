package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Plan is the decoded response. Exactly one of StepFilePlan, ScriptPlan
// or BundlePlan is produced per run.
type Plan interface {
	// Variant reports which schema produced this plan
	Variant() Variant

	// Steps returns the commands to put before the operator, in order
	Steps() []string

	// SkipAborts reports whether skipping a step ends the run.
	// Skipping one of many steps is partial progress; skipping the
	// only script leaves nothing to do.
	SkipAborts() bool

	isPlan()
}

// File is one generated file, addressed relative to the project root
type File struct {
	Path     string
	Contents string
}

// FileSet is an ordered set of generated files. It serializes as a JSON
// object whose member order is the slice order; paths are unique.
type FileSet []File

// Lookup returns the contents for path
func (fs FileSet) Lookup(path string) (string, bool) {
	for _, f := range fs {
		if f.Path == path {
			return f.Contents, true
		}
	}
	return "", false
}

// Paths returns the file paths in order
func (fs FileSet) Paths() []string {
	paths := make([]string, len(fs))
	for i, f := range fs {
		paths[i] = f.Path
	}
	return paths
}

// MarshalJSON writes the set as an object, preserving order
func (fs FileSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Path)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Contents)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of path to contents strings, keeping
// document order and rejecting duplicate paths and non-string values.
func (fs *FileSet) UnmarshalJSON(data []byte) error {
	members, err := readObject(data)
	if err != nil {
		return err
	}
	files := make(FileSet, 0, len(members))
	for _, m := range members {
		contents, err := decodeString(m.key, m.value)
		if err != nil {
			return err
		}
		files = append(files, File{Path: m.key, Contents: contents})
	}
	*fs = files
	return nil
}

// StepFilePlan is a sequence of setup commands followed by file contents
type StepFilePlan struct {
	Commands []string `json:"steps"`
	Files    FileSet  `json:"files"`
}

func (StepFilePlan) isPlan() {}

// Variant implements Plan
func (StepFilePlan) Variant() Variant { return VariantSteps }

// Steps implements Plan
func (p StepFilePlan) Steps() []string { return p.Commands }

// SkipAborts implements Plan
func (StepFilePlan) SkipAborts() bool { return false }

// ScriptPlan is a single script that sets the whole project up
type ScriptPlan struct {
	Script string `json:"script"`
}

func (ScriptPlan) isPlan() {}

// Variant implements Plan
func (ScriptPlan) Variant() Variant { return VariantScript }

// Steps implements Plan
func (p ScriptPlan) Steps() []string { return []string{p.Script} }

// SkipAborts implements Plan
func (ScriptPlan) SkipAborts() bool { return true }

// SourceFile is one named source file of a bundle
type SourceFile struct {
	Name     string `json:"name"`
	Contents string `json:"contents"`
}

// BundlePlan is a self-contained deliverable with fixed top-level files
type BundlePlan struct {
	Dockerfile  string       `json:"dockerfile"`
	Makefile    string       `json:"makefile"`
	Readme      string       `json:"readme"`
	SourceFiles []SourceFile `json:"source_files"`
}

func (BundlePlan) isPlan() {}

// Variant implements Plan
func (BundlePlan) Variant() Variant { return VariantBundle }

// Steps implements Plan; a bundle has nothing to execute
func (BundlePlan) Steps() []string { return nil }

// SkipAborts implements Plan
func (BundlePlan) SkipAborts() bool { return false }

// Describe returns a one-line summary for logs and banners
func Describe(p Plan) string {
	switch v := p.(type) {
	case StepFilePlan:
		return fmt.Sprintf("%d step(s), %d file(s)", len(v.Commands), len(v.Files))
	case ScriptPlan:
		return "1 script"
	case BundlePlan:
		return fmt.Sprintf("Dockerfile, Makefile, README and %d source file(s)", len(v.SourceFiles))
	default:
		return "unknown plan"
	}
}
