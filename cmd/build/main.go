package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"beebuild/internal/release"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		reportError(err, stdout, stderr)
		return 1
	}
	return 0
}

// reportError prints usage problems on stdout and every other failure on
// stderr. Interrupted builds exit quietly.
func reportError(err error, stdout, stderr io.Writer) {
	var usage *release.UsageError
	switch {
	case errors.As(err, &usage):
		for _, line := range usage.Lines {
			fmt.Fprintln(stdout, line)
		}
	case errors.Is(err, context.Canceled):
	default:
		fmt.Fprintln(stderr, err)
	}
}
