package exitcode

import (
	"context"
	"errors"
	"os"
	"strings"

	muserr "github.com/security-union/codemuse/internal/errors"
)

// Process exit codes. 4 is unused.
const (
	Success      = 0
	GeneralError = 1
	// UsageError covers bad flags and invalid configuration
	UsageError = 2
	// Interrupted means the run was cancelled with Ctrl+C or SIGTERM
	Interrupted = 3
	// AuthError means the backend credential was missing or rejected
	AuthError = 5
	// BackendError means the generation request failed
	BackendError = 6
	// DecodeError means the response did not match the plan schema
	DecodeError = 7
	// StepFailed means a step could not be launched or exited non-zero
	StepFailed = 8
	// Abandoned means the operator skipped the only step of a script plan
	Abandoned = 9
)

// byCode holds codes that map differently from the rest of their category
var byCode = map[muserr.ErrorCode]int{
	muserr.ErrCodeBackendAuth:       AuthError,
	muserr.ErrCodeExecScriptAbandon: Abandoned,
}

var byCategory = map[string]int{
	"GEN":    BackendError,
	"DECODE": DecodeError,
	"EXEC":   StepFailed,
	"CONFIG": UsageError,
}

// cobraUsage lists fragments of the plain errors cobra returns for bad
// command lines
var cobraUsage = []string{"unknown flag", "unknown command", "unknown shorthand flag", "required flag", "invalid argument", "accepts "}

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with the code DetermineExitCode picks for err
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DetermineExitCode maps an error returned by the command tree to an
// exit code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}
	if errors.Is(err, context.Canceled) {
		return Interrupted
	}

	if code, ok := muserr.CodeOf(err); ok {
		if exit, ok := byCode[code]; ok {
			return exit
		}
		if exit, ok := byCategory[code.Category()]; ok {
			return exit
		}
		return GeneralError
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range cobraUsage {
		if strings.Contains(msg, fragment) {
			return UsageError
		}
	}
	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or configuration)"
	case Interrupted:
		return "Interrupted by operator"
	case AuthError:
		return "Backend authentication error"
	case BackendError:
		return "Generation request failed"
	case DecodeError:
		return "Malformed generation response"
	case StepFailed:
		return "Step execution failed"
	case Abandoned:
		return "Script abandoned by operator"
	default:
		return "Unknown error"
	}
}
