//go:build !unix

package exec

import osexec "os/exec"

// setProcessGroup leaves cmd unchanged; only the shell itself is killed on
// cancellation.
func setProcessGroup(*osexec.Cmd) {}
