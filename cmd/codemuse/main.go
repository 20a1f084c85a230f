package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/security-union/codemuse/internal/cmd"
	"github.com/security-union/codemuse/internal/exitcode"
	"github.com/security-union/codemuse/internal/ux"
)

func main() {
	// Create a context that listens for interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		// Ctrl+C while a request or step was in flight
		if errors.Is(ctx.Err(), context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nOperation cancelled by user")
			exitcode.Exit(exitcode.Interrupted)
		}

		ux.NewPrinter(os.Stderr, false).Error(err)
		exitcode.ExitWithError(err)
	}
	exitcode.Exit(exitcode.Success)
}
