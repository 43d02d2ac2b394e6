// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/bureau-foundation/harmony/lib/harmony"
)

// EncodingLoader loads a named encoding. [harmony.LoadEncoding] is the
// production loader.
type EncodingLoader func(ctx context.Context, name string, options harmony.LoadOptions) (*harmony.Encoding, error)

// Environment is the set of process resources a command touches. Zero
// fields fall back to the real process: os.Stdin, os.Stdout,
// os.Stderr, [NewCommandLogger] and [harmony.LoadEncoding].
type Environment struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	LoadEncoding EncodingLoader
}

type environmentKey struct{}

// WithEnvironment attaches environment to ctx.
func WithEnvironment(ctx context.Context, environment Environment) context.Context {
	return context.WithValue(ctx, environmentKey{}, environment)
}

// EnvironmentFrom returns the environment attached to ctx with every
// unset field defaulted.
func EnvironmentFrom(ctx context.Context) Environment {
	environment, _ := ctx.Value(environmentKey{}).(Environment)
	if environment.Stdin == nil {
		environment.Stdin = os.Stdin
	}
	if environment.Stdout == nil {
		environment.Stdout = os.Stdout
	}
	if environment.Stderr == nil {
		environment.Stderr = os.Stderr
	}
	if environment.Logger == nil {
		environment.Logger = NewCommandLogger()
	}
	if environment.LoadEncoding == nil {
		environment.LoadEncoding = harmony.LoadEncoding
	}
	return environment
}
