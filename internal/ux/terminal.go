package ux

import (
	"os"

	"golang.org/x/term"
)

// ciEnvVars are set by common CI systems
var ciEnvVars = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
	"TRAVIS",
	"CIRCLECI",
	"BUILDKITE",
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// IsCI reports whether the process runs under a CI system
func IsCI() bool {
	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return true
		}
	}
	return false
}

// ShouldUseForms reports whether interactive form prompts can be shown:
// stdin and stdout are terminals and no CI system is detected.
// Line prompts are used otherwise.
func ShouldUseForms() bool {
	if IsCI() {
		return false
	}
	return IsTerminal(os.Stdin) && IsTerminal(os.Stdout)
}

// ShouldAnimate reports whether a spinner may be drawn on stdout
func ShouldAnimate() bool {
	return !IsCI() && IsTerminal(os.Stdout)
}
