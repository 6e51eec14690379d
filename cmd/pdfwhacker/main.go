package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"pdfwhacker/internal/daemon"
)

// Exit codes seen by shells and service managers.
const (
	exitFailure        = 1
	exitAlreadyRunning = 3
	exitInterrupted    = 130
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		code := exitCode(err)
		if code != exitInterrupted {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(code)
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, daemon.ErrAlreadyRunning):
		return exitAlreadyRunning
	default:
		return exitFailure
	}
}
