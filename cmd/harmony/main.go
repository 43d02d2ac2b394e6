// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Harmony renders conversations to Harmony token sequences and parses
// model output back into messages.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/harmony/cmd/harmony/cli"
	"github.com/bureau-foundation/harmony/cmd/harmony/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that report their own failure (like parse --check)
		// return an error carrying the exit code. Don't print a
		// redundant "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = cli.WithEnvironment(ctx, cli.Environment{Logger: cli.NewCommandLogger()})
	return commands.Root().Execute(ctx, os.Args[1:])
}
