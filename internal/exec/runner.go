// Package exec runs operator-approved commands through the shell and keeps
// an optional audit manifest of what ran and what was written.
package exec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultShell interprets each step
const DefaultShell = "bash"

// DefaultOutputGrace bounds how long Run keeps reading output after the
// shell has exited.
const DefaultOutputGrace = time.Second

// Runner executes one command at a time as "<shell> -c <command>".
// The child's stdin is the null device; its output is streamed to Stdout
// and Stderr while it runs.
//
// Each step runs in its own process group. Cancelling the context kills
// the whole group. Background jobs a step leaves behind keep running, but
// their output is only read for OutputGrace after the shell exits.
type Runner struct {
	Shell       string
	Dir         string
	Stdout      io.Writer
	Stderr      io.Writer
	OutputGrace time.Duration
}

// NewRunner creates a runner with the default shell in the current
// working directory.
func NewRunner(stdout, stderr io.Writer) *Runner {
	return &Runner{Shell: DefaultShell, Stdout: stdout, Stderr: stderr}
}

// Run executes command and waits for it. A process that cannot be started
// yields *LaunchError; a non-zero exit yields *StepExecutionError.
func (r *Runner) Run(ctx context.Context, command string) (*Result, error) {
	shell := r.Shell
	if shell == "" {
		shell = DefaultShell
	}
	grace := r.OutputGrace
	if grace <= 0 {
		grace = DefaultOutputGrace
	}

	start := time.Now()
	cmd := osexec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = r.Dir
	cmd.WaitDelay = grace
	setProcessGroup(cmd)

	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, &LaunchError{Command: command, Shell: shell, Cause: err}
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		closeAll(outR, outW)
		return nil, &LaunchError{Command: command, Shell: shell, Cause: err}
	}
	defer closeAll(outR, errR)
	cmd.Stdout = outW
	cmd.Stderr = errW

	startErr := cmd.Start()
	// The child holds its own copies of the write ends.
	closeAll(outW, errW)
	if startErr != nil {
		return nil, &LaunchError{Command: command, Shell: shell, Cause: startErr}
	}

	var g errgroup.Group
	g.Go(func() error { return drain(writerOrDiscard(r.Stdout), outR) })
	g.Go(func() error { return drain(writerOrDiscard(r.Stderr), errR) })

	waitErr := cmd.Wait()
	copyErr := finishDrains(&g, grace, outR, errR)
	duration := time.Since(start)

	if waitErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("step %q interrupted: %w", command, ctxErr)
		}
		var exitErr *osexec.ExitError
		if errors.As(waitErr, &exitErr) {
			return nil, &StepExecutionError{Command: command, ExitCode: exitErr.ExitCode(), Duration: duration}
		}
		return nil, fmt.Errorf("wait for %q: %w", command, waitErr)
	}
	if copyErr != nil {
		return nil, fmt.Errorf("stream output of %q: %w", command, copyErr)
	}

	return &Result{Command: command, ExitCode: 0, Duration: duration}, nil
}

// finishDrains waits for both streams to reach EOF. A process left running
// in the background can hold the pipes open forever, so after grace the
// read ends are closed and whatever it writes later is lost.
func finishDrains(g *errgroup.Group, grace time.Duration, readers ...*os.File) error {
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		closeAll(readers...)
		if err := <-done; err != nil && !errors.Is(err, os.ErrClosed) {
			return err
		}
		return nil
	}
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

// drain keeps reading after a failed write so the child never blocks on
// a full pipe.
func drain(dst io.Writer, src io.Reader) error {
	if _, err := io.Copy(dst, src); err != nil {
		_, _ = io.Copy(io.Discard, src)
		return err
	}
	return nil
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
