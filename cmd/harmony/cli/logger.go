// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger creates a structured logger for CLI command operations.
// When stderr is a terminal, uses slog.TextHandler for human-readable output.
// When stderr is piped or redirected (CI, scripts, generator harnesses),
// uses slog.JSONHandler for machine-parseable output.
//
// The level comes from HARMONY_LOG_LEVEL (debug, info, warn, error) and
// defaults to warn, so render and parse pipelines stay quiet unless
// asked. An unknown name is logged and ignored. [Command.Execute]
// scopes the logger with the command path:
//
//	logger.With("command", "render")
func NewCommandLogger() *slog.Logger {
	return newLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), os.Getenv("HARMONY_LOG_LEVEL"))
}

func newLogger(w io.Writer, terminal bool, levelName string) *slog.Logger {
	level := slog.LevelWarn
	var levelErr error
	if levelName != "" {
		var parsed slog.Level
		if levelErr = parsed.UnmarshalText([]byte(levelName)); levelErr == nil {
			level = parsed
		}
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if terminal {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	logger := slog.New(handler)
	if levelErr != nil {
		logger.Warn("ignoring unknown HARMONY_LOG_LEVEL", "value", levelName, "error", levelErr)
	}
	return logger
}
