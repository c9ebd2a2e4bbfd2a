// Package main provides the entry point for the linkmedic CLI tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sumatoshi-tech/linkmedic/cmd/linkmedic/commands"
	"github.com/Sumatoshi-tech/linkmedic/pkg/version"
)

// Exit codes.
const (
	exitFindings = 1
	exitError    = 2
)

func main() {
	version.InitBinaryVersion()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := commands.NewRootCommand().ExecuteContext(ctx)

	stop()

	switch {
	case err == nil:
	case errors.Is(err, commands.ErrFindings):
		os.Exit(exitFindings)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}
}
