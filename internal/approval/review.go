// Package approval puts each generated step in front of the operator before
// anything runs. The operator accepts the step as written, replaces it with
// a corrected command, or skips it.
package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrScriptAbandoned is returned when the operator skips the only step of
// a single-script plan, leaving nothing to run.
var ErrScriptAbandoned = errors.New("script was skipped; nothing left to run")

// Kind is the operator's disposition of one step
type Kind int

const (
	// Accepted runs the step exactly as generated
	Accepted Kind = iota
	// Replaced runs the operator's corrected command instead
	Replaced
	// Skipped runs nothing
	Skipped
)

// String returns the disposition name
func (k Kind) String() string {
	switch k {
	case Accepted:
		return "accepted"
	case Replaced:
		return "replaced"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Decision is the resolved form of one step. Command is the text to run
// and is empty when the step was skipped.
type Decision struct {
	Kind    Kind
	Command string
}

// Reviewer walks the operator through one step at a time
type Reviewer struct {
	prompter Prompter
}

// NewReviewer creates a reviewer that asks through p
func NewReviewer(p Prompter) *Reviewer {
	return &Reviewer{prompter: p}
}

// Review shows step and returns the operator's decision. Only an answer
// that normalizes to "Y" accepts the step; any other answer asks for a
// replacement, and a replacement mentioning skip drops the step.
func (r *Reviewer) Review(ctx context.Context, step string) (Decision, error) {
	answer, err := r.prompter.Ask(ctx, fmt.Sprintf("Does this step look correct? `%s`\nEnter Y to run it, anything else to change it:", step))
	if err != nil {
		return Decision{}, err
	}
	if IsApproval(answer) {
		return Decision{Kind: Accepted, Command: step}, nil
	}

	for {
		replacement, err := r.prompter.Ask(ctx, "Enter a corrected command, or `skip` to leave this step out:")
		if err != nil {
			return Decision{}, err
		}
		if IsSkip(replacement) {
			return Decision{Kind: Skipped}, nil
		}
		if strings.TrimSpace(replacement) != "" {
			return Decision{Kind: Replaced, Command: replacement}, nil
		}
	}
}

// IsApproval reports whether answer accepts a step: with every space
// removed and upper-cased it must be exactly "Y".
func IsApproval(answer string) bool {
	return normalize(answer) == "Y"
}

// IsSkip reports whether a replacement asks to skip the step. The match is
// case-sensitive, so SKIP_TESTS=1 is a command, not a skip.
func IsSkip(replacement string) bool {
	return strings.Contains(replacement, "skip")
}

func normalize(s string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.ToUpper(stripped)
}
