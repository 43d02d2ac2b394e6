// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the harmony CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. Commands are assembled into a tree in
// cmd/harmony/commands and dispatched via [Command.Execute], which
// handles flag parsing, subcommand routing, and structured help output
// with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3). This is implemented in
// suggest.go.
//
// Flags are declared as tagged params structs and bound with
// [FlagsFromParams]. [EncodingFlags] is the shared flag group that
// resolves configuration and loads a Harmony encoding; [JSONOutput]
// adds --json.
//
// Process resources (standard streams, the logger, the encoding
// loader) travel in an [Environment] attached to the context, so tests
// run commands against buffers and an offline vocabulary.
package cli
