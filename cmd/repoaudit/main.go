package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"digital.vasic.repoaudit/pkg/outcome"
)

// Exit codes.
const (
	ExitSuccess = 0 // Audit passed
	ExitFailure = 1 // Audit failed or could not run
)

// VerdictError reports a completed audit whose verdict is FAIL.
// The console report already explains it, so main prints
// nothing more.
type VerdictError struct {
	Verdict outcome.Verdict
	Failed  int
}

func (e *VerdictError) Error() string {
	return fmt.Sprintf("audit %s: %d failing checks", e.Verdict, e.Failed)
}

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	err := execute(ctx)
	stop()
	os.Exit(exitCode(err, os.Stderr))
}

// exitCode maps the command result to the process exit code,
// printing fatal errors on stderr.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return ExitSuccess
	}
	var verdictErr *VerdictError
	if errors.As(err, &verdictErr) {
		return verdictErr.Verdict.ExitCode()
	}
	fmt.Fprintln(stderr, "Error:", err)
	return ExitFailure
}
