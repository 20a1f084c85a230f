package exec

import (
	"fmt"
	"time"
)

// Result represents the outcome of a step that ran to completion with
// exit code zero.
type Result struct {
	Command  string
	ExitCode int
	Duration time.Duration
}

// LaunchError reports a command whose process could not be started,
// typically because the shell is missing.
type LaunchError struct {
	Command string
	Shell   string
	Cause   error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %s for %q: %v", e.Shell, e.Command, e.Cause)
}

func (e *LaunchError) Unwrap() error {
	return e.Cause
}

// StepExecutionError reports a command that ran and exited non-zero
type StepExecutionError struct {
	Command  string
	ExitCode int
	Duration time.Duration
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("step %q exited with code %d", e.Command, e.ExitCode)
}
