package exec

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// Manifest is the audit record of one run: what was proposed, what the
// operator decided, what ran, and which files were written.
type Manifest struct {
	RunID     string       `json:"run_id"`
	Timestamp time.Time    `json:"timestamp"`
	Project   string       `json:"project"`
	Variant   string       `json:"variant"`
	Backend   string       `json:"backend,omitempty"`
	Model     string       `json:"model,omitempty"`
	Steps     []StepRecord `json:"steps"`
	Files     []FileRecord `json:"files"`
	Outcome   string       `json:"outcome"`
	Duration  string       `json:"duration,omitempty"`
	started   time.Time
}

// StepRecord is one reviewed step
type StepRecord struct {
	Proposed string `json:"proposed"`
	Decision string `json:"decision"`
	Command  string `json:"command,omitempty"`
	ExitCode *int   `json:"exit_code,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// FileRecord is one generated file and what happened to it
type FileRecord struct {
	Path    string `json:"path"`
	Outcome string `json:"outcome"`
	Hash    string `json:"blake3,omitempty"`
}

// NewManifest starts a manifest with a fresh run ID
func NewManifest(project, variant string) *Manifest {
	now := time.Now()
	return &Manifest{
		RunID:     uuid.NewString(),
		Timestamp: now.UTC(),
		Project:   project,
		Variant:   variant,
		Steps:     []StepRecord{},
		Files:     []FileRecord{},
		Outcome:   "incomplete",
		started:   now,
	}
}

// RecordStep appends a reviewed step. exitCode is nil when nothing ran.
func (m *Manifest) RecordStep(proposed, decision, command string, exitCode *int, duration time.Duration) {
	rec := StepRecord{
		Proposed: proposed,
		Decision: decision,
		Command:  command,
		ExitCode: exitCode,
	}
	if duration > 0 {
		rec.Duration = duration.String()
	}
	m.Steps = append(m.Steps, rec)
}

// RecordFile appends a file outcome. The hash covers the generated
// contents, whether or not they reached the disk.
func (m *Manifest) RecordFile(path, outcome, contents string) {
	m.Files = append(m.Files, FileRecord{
		Path:    path,
		Outcome: outcome,
		Hash:    HashBytes([]byte(contents)),
	})
}

// Finish sets the final outcome and total duration
func (m *Manifest) Finish(outcome string) {
	m.Outcome = outcome
	if !m.started.IsZero() {
		m.Duration = time.Since(m.started).Round(time.Millisecond).String()
	}
}

// Save writes the manifest to dir as <timestamp>_<run id>.json and returns
// the file path.
func (m *Manifest) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create manifest directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.json", m.Timestamp.Format("20060102_150405"), m.RunID)
	path := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// HashBytes returns the hex blake3 digest of data
func HashBytes(data []byte) string {
	hasher := blake3.New()
	_, _ = hasher.Write(data)
	return fmt.Sprintf("%x", hasher.Sum(nil))
}
