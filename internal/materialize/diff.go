package materialize

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Change summarizes an overwrite of an existing file
type Change struct {
	Path    string
	Added   int
	Removed int
}

// lineChanges counts the lines added and removed going from oldContent to
// newContent, diffing whole lines rather than characters.
func lineChanges(oldContent, newContent string) (added, removed int) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += countLines(d.Text)
		case diffmatchpatch.DiffDelete:
			removed += countLines(d.Text)
		}
	}
	return added, removed
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
