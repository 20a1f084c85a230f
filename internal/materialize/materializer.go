// Package materialize writes generated file contents into the project root.
//
// Files of a step plan are only ever written over files that already exist;
// creating directories is the job of the approved steps. Anything that
// cannot be placed safely is handed back as a ManualPlacementNotice.
package materialize

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	muserr "github.com/security-union/codemuse/internal/errors"
	"github.com/security-union/codemuse/internal/plan"
)

// Reasons reported in a ManualPlacementNotice
const (
	ReasonMissing        = "file does not exist"
	ReasonMissingParent  = "parent directory does not exist"
	ReasonAbsolute       = "path is absolute"
	ReasonEscapesRoot    = "path escapes the project root"
	ReasonEmptyPath      = "path is empty"
	ReasonNotRegularFile = "target is not a regular file"
	ReasonProjectRoot    = "path names the project root itself"
)

// Fixed top-level files of a bundle
const (
	DockerfileName = "Dockerfile"
	MakefileName   = "Makefile"
	ReadmeName     = "README.md"
)

// ManualPlacementNotice reports a generated file the operator has to create
// by hand. It is not an error.
type ManualPlacementNotice struct {
	Path     string
	Contents string
	Reason   string
}

// Report lists what happened to each generated file, in plan order
type Report struct {
	Written []Change
	Notices []ManualPlacementNotice
}

// Materializer writes files below Root
type Materializer struct {
	Root string
}

// New creates a materializer for the project root
func New(root string) *Materializer {
	return &Materializer{Root: root}
}

// WriteFiles overwrites every file of files that already exists under the
// root and reports the rest. Each write is flushed to stable storage before
// the next file is touched. A target that exists but cannot be written
// (a directory, a permission problem) stops the walk with an IO error;
// files written before it stay written.
func (m *Materializer) WriteFiles(files plan.FileSet) (*Report, error) {
	report := &Report{}

	for _, f := range files {
		target, reason := m.resolve(f.Path)
		if reason == "" {
			reason = m.checkExisting(target)
		}
		if reason != "" {
			report.Notices = append(report.Notices, ManualPlacementNotice{Path: f.Path, Contents: f.Contents, Reason: reason})
			continue
		}

		change, err := overwrite(target, f.Contents, false)
		if err != nil {
			return report, muserr.NewFileWriteError(target, err)
		}
		change.Path = f.Path
		report.Written = append(report.Written, change)
	}

	return report, nil
}

// WriteBundle creates or truncates the Dockerfile, Makefile and README.md
// in the root, then writes each source file by name. The root itself must
// already exist. A source file whose directory is missing is reported, not
// created.
func (m *Materializer) WriteBundle(b plan.BundlePlan) (*Report, error) {
	report := &Report{}

	info, err := os.Stat(m.Root)
	if err != nil {
		return report, muserr.Wrap(muserr.ErrCodeDirectoryFailed, fmt.Sprintf("project root %s is not available", m.Root), err)
	}
	if !info.IsDir() {
		return report, muserr.New(muserr.ErrCodeDirectoryFailed, fmt.Sprintf("project root %s is not a directory", m.Root))
	}

	fixed := []plan.SourceFile{
		{Name: DockerfileName, Contents: b.Dockerfile},
		{Name: MakefileName, Contents: b.Makefile},
		{Name: ReadmeName, Contents: b.Readme},
	}

	for _, f := range append(fixed, b.SourceFiles...) {
		target, reason := m.resolve(f.Name)
		if reason == "" {
			reason = m.checkCreatable(target)
		}
		if reason != "" {
			report.Notices = append(report.Notices, ManualPlacementNotice{Path: f.Name, Contents: f.Contents, Reason: reason})
			continue
		}

		change, err := overwrite(target, f.Contents, true)
		if err != nil {
			return report, muserr.NewFileWriteError(target, err)
		}
		change.Path = f.Name
		report.Written = append(report.Written, change)
	}

	return report, nil
}

// resolve maps a generated relative path to a location under the root.
// It only rejects what is wrong with the text of the path.
func (m *Materializer) resolve(p string) (string, string) {
	if strings.TrimSpace(p) == "" {
		return "", ReasonEmptyPath
	}
	native := filepath.FromSlash(p)
	if filepath.IsAbs(native) || strings.HasPrefix(p, "/") || filepath.VolumeName(native) != "" {
		return "", ReasonAbsolute
	}

	clean := filepath.Clean(native)
	if clean == "." {
		return "", ReasonProjectRoot
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ReasonEscapesRoot
	}

	return filepath.Join(m.Root, clean), ""
}

// checkExisting requires target to be an existing regular file whose real
// location is inside the root.
func (m *Materializer) checkExisting(target string) string {
	info, err := os.Stat(target)
	if err != nil {
		if isMissing(err) {
			return ReasonMissing
		}
		// Unreadable metadata is left to the write to report.
		return ""
	}
	if info.IsDir() {
		return ""
	}
	if !info.Mode().IsRegular() {
		return ReasonNotRegularFile
	}
	if !m.contains(target) {
		return ReasonEscapesRoot
	}
	return ""
}

// checkCreatable requires target's directory to exist inside the root, and
// target itself, when present, to be a regular file inside the root.
func (m *Materializer) checkCreatable(target string) string {
	parent := filepath.Dir(target)
	info, err := os.Stat(parent)
	if err != nil {
		if isMissing(err) {
			return ReasonMissingParent
		}
		return ""
	}
	if !info.IsDir() {
		return ReasonMissingParent
	}
	if !m.contains(parent) {
		return ReasonEscapesRoot
	}

	if _, err := os.Lstat(target); err == nil {
		return m.checkExisting(target)
	}
	return ""
}

// contains reports whether path, with symlinks resolved, is inside the
// root with symlinks resolved.
func (m *Materializer) contains(path string) bool {
	root, err := filepath.EvalSymlinks(m.Root)
	if err != nil {
		return false
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, resolved)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// overwrite replaces the contents of target and syncs it. Without create
// the file must already exist.
func overwrite(target, contents string, create bool) (Change, error) {
	var previous string
	if data, err := os.ReadFile(target); err == nil {
		previous = string(data)
	}

	flags := os.O_WRONLY | os.O_TRUNC
	if create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(target, flags, 0644)
	if err != nil {
		return Change{}, err
	}

	if _, err := f.WriteString(contents); err != nil {
		f.Close()
		return Change{}, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return Change{}, err
	}
	if err := f.Close(); err != nil {
		return Change{}, err
	}

	added, removed := lineChanges(previous, contents)
	return Change{Added: added, Removed: removed}, nil
}

// isMissing treats a path through a regular file like a missing path
func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
