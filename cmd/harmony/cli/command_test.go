// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

// testContext returns a context whose environment captures stderr.
func testContext(stderr *bytes.Buffer) context.Context {
	return WithEnvironment(context.Background(), Environment{
		Stdin:  strings.NewReader(""),
		Stdout: io.Discard,
		Stderr: stderr,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "harmony",
		Subcommands: []*Command{
			{
				Name: "render",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					called = "render"
					return nil
				},
			},
			{
				Name: "parse",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					called = "parse"
					return nil
				},
			},
		},
	}

	if err := root.Execute(testContext(&bytes.Buffer{}), []string{"parse"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "parse" {
		t.Errorf("dispatched to %q, want %q", called, "parse")
	}
}

func TestCommand_Execute_NestedSubcommands(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "harmony",
		Subcommands: []*Command{
			{
				Name: "vocabulary",
				Subcommands: []*Command{
					{
						Name: "fetch",
						Run: func(_ context.Context, args []string, _ *slog.Logger) error {
							called = "vocabulary fetch"
							receivedArgs = args
							return nil
						},
					},
				},
			},
		},
	}

	if err := root.Execute(testContext(&bytes.Buffer{}), []string{"vocabulary", "fetch", "extra-arg"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "vocabulary fetch" {
		t.Errorf("dispatched to %q, want %q", called, "vocabulary fetch")
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "extra-arg" {
		t.Errorf("args = %v, want [extra-arg]", receivedArgs)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var mode string
	var target string

	command := &Command{
		Name: "render",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("render", pflag.ContinueOnError)
			flagSet.StringVar(&mode, "mode", "completion", "render mode")
			return flagSet
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				target = args[0]
			}
			return nil
		},
	}

	if err := command.Execute(testContext(&bytes.Buffer{}), []string{"--mode", "training", "chat.yaml"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if mode != "training" {
		t.Errorf("mode = %q, want %q", mode, "training")
	}
	if target != "chat.yaml" {
		t.Errorf("target = %q, want %q", target, "chat.yaml")
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	command := &Command{
		Name: "render",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("render", pflag.ContinueOnError)
			flagSet.Bool("keep-analysis", false, "keep analysis")
			flagSet.String("output", "json", "output format")
			return flagSet
		},
		Run: func(context.Context, []string, *slog.Logger) error { return nil },
	}

	err := command.Execute(testContext(&bytes.Buffer{}), []string{"--outptu", "ids"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(err.Error(), "did you mean --output?") {
		t.Errorf("error = %q, want a suggestion of --output", err)
	}
}

func TestCommand_Execute_UnknownCommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "harmony",
		Subcommands: []*Command{
			{Name: "render", Run: func(context.Context, []string, *slog.Logger) error { return nil }},
			{Name: "stream", Run: func(context.Context, []string, *slog.Logger) error { return nil }},
		},
	}

	err := root.Execute(testContext(&bytes.Buffer{}), []string{"rendr"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), `did you mean "render"?`) {
		t.Errorf("error = %q, want a suggestion of render", err)
	}
}

func TestCommand_Execute_HelpGoesToStderr(t *testing.T) {
	root := &Command{
		Name:        "harmony",
		Description: "Render and parse Harmony conversations.",
		Subcommands: []*Command{
			{Name: "render", Summary: "Render a conversation to tokens"},
		},
		Examples: []Example{
			{Description: "Render a chat", Command: "harmony render chat.yaml"},
		},
	}

	var stderr bytes.Buffer
	if err := root.Execute(testContext(&stderr), []string{"--help"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	help := stderr.String()
	for _, want := range []string{
		"Render and parse Harmony conversations.",
		"render   Render a conversation to tokens",
		"# Render a chat",
		"harmony render chat.yaml",
		"Run 'harmony <command> --help'",
	} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
}

func TestCommand_Execute_SubcommandRequired(t *testing.T) {
	root := &Command{
		Name:        "harmony",
		Subcommands: []*Command{{Name: "render"}},
	}
	var stderr bytes.Buffer
	err := root.Execute(testContext(&stderr), nil)
	if err == nil || !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("error = %v, want subcommand required", err)
	}
	if stderr.Len() == 0 {
		t.Error("no help printed")
	}
}

func TestCommand_Execute_LoggerScopedWithCommandPath(t *testing.T) {
	var logs bytes.Buffer
	ctx := WithEnvironment(context.Background(), Environment{
		Stdout: io.Discard,
		Stderr: io.Discard,
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
	})

	root := &Command{
		Name: "harmony",
		Subcommands: []*Command{
			{
				Name: "render",
				Run: func(_ context.Context, _ []string, logger *slog.Logger) error {
					logger.Info("rendered")
					return nil
				},
			},
		},
	}
	if err := root.Execute(ctx, []string{"render"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !strings.Contains(logs.String(), "command=render") {
		t.Errorf("log line %q lacks command=render", logs.String())
	}
}

func TestExitError(t *testing.T) {
	var err error = &ExitError{Code: 2}
	coder, ok := err.(interface{ ExitCode() int })
	if !ok {
		t.Fatal("ExitError does not expose ExitCode")
	}
	if coder.ExitCode() != 2 {
		t.Errorf("ExitCode() = %d, want 2", coder.ExitCode())
	}
	if err.Error() != "exit code 2" {
		t.Errorf("Error() = %q", err.Error())
	}
}
