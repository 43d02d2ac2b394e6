// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the harmony CLI command tree. Every command
// reads and writes through the [cli.Environment] on its context, so the
// tree runs unchanged in tests against buffers and a small offline
// vocabulary.
package commands

import (
	"github.com/bureau-foundation/harmony/cmd/harmony/cli"
)

// Root builds and returns the complete harmony CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "harmony",
		Description: `harmony: render and parse conversations in the Harmony format.

Convert structured conversations to the token sequences a gpt-oss
model is prompted with, and convert model output back to messages,
in one batch or a token at a time.

Commands that need the o200k_harmony vocabulary read it from
--vocabulary-dir or $TIKTOKEN_ENCODINGS_BASE, or download it once into
the cache. Settings can also come from a YAML or TOML file named by
--config or $HARMONY_CONFIG.`,
		Subcommands: []*cli.Command{
			renderCommand(),
			parseCommand(),
			streamCommand(),
			inspectCommand(),
			encodeCommand(),
			decodeCommand(),
			tokensCommand(),
			previewCommand(),
			versionCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Render a conversation for sampling",
				Command:     "harmony render chat.yaml",
			},
			{
				Description: "Parse a completion into messages",
				Command:     "harmony parse --role assistant completion.txt",
			},
			{
				Description: "Follow a generation token by token",
				Command:     "generator | harmony stream --role assistant",
			},
			{
				Description: "See how a prompt splits into tokens and messages",
				Command:     "harmony inspect chat.yaml",
			},
			{
				Description: "Print the stop tokens for a sampler",
				Command:     "harmony tokens",
			},
		},
	}
}
