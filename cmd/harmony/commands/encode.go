// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/harmony/cmd/harmony/cli"
	"github.com/bureau-foundation/harmony/lib/harmony"
	"github.com/bureau-foundation/harmony/lib/tokenizer"
)

type encodeParams struct {
	cli.EncodingFlags
	Allow      []string `flag:"allow" desc:"special tokens to encode as their ids (e.g. '<|start|>')"`
	AllSpecial bool     `flag:"all-special" desc:"encode every special token as its id"`
	Ordinary   bool     `flag:"ordinary" desc:"encode special-token text as ordinary text instead of rejecting it"`
	Output     string   `flag:"output,o" desc:"output format: json, ids, text, cbor or cbor-diag" default:"json"`
}

func encodeCommand() *cli.Command {
	var params encodeParams
	return &cli.Command{
		Name:    "encode",
		Summary: "Encode text to token ids",
		Description: `Encode text to token ids. The text is the command's arguments joined
by spaces, or standard input when there are none.

By default text that spells a special token (such as "<|start|>") is
rejected. --allow and --all-special encode it as the special id;
--ordinary encodes it as plain text.`,
		Usage: "harmony encode [flags] [text...]",
		Examples: []cli.Example{
			{
				Description: "Encode plain text",
				Command:     "harmony encode hello world",
			},
			{
				Description: "Encode a Harmony header with its special tokens",
				Command:     "harmony encode --all-special '<|start|>assistant<|channel|>final<|message|>'",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("encode", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			return runEncode(ctx, &params, args, logger)
		},
	}
}

func runEncode(ctx context.Context, params *encodeParams, args []string, logger *slog.Logger) error {
	if err := validateTokenFormat(params.Output); err != nil {
		return err
	}
	modes := 0
	for _, set := range []bool{len(params.Allow) > 0, params.AllSpecial, params.Ordinary} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return errors.New("--allow, --all-special and --ordinary are mutually exclusive")
	}

	environment := cli.EnvironmentFrom(ctx)
	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := readInput(environment, stdinPath)
		if err != nil {
			return err
		}
		text = strings.TrimSuffix(string(data), "\n")
	}

	encoding, _, err := params.LoadEncoding(ctx, logger)
	if err != nil {
		return err
	}

	var tokens []harmony.Rank
	switch {
	case params.AllSpecial:
		tokens, err = encoding.EncodeWithSpecialTokens(text)
	case params.Ordinary:
		tokens, err = encoding.EncodeOrdinary(text)
	default:
		tokens, err = encoding.Encode(text, tokenizer.Specials(params.Allow...))
	}
	if err != nil {
		return err
	}
	return writeTokens(environment.Stdout, encoding, tokens, params.Output)
}

type decodeParams struct {
	cli.EncodingFlags
	Strict bool `flag:"strict" desc:"fail on invalid UTF-8 instead of substituting U+FFFD"`
}

func decodeCommand() *cli.Command {
	var params decodeParams
	return &cli.Command{
		Name:    "decode",
		Summary: "Decode token ids to text",
		Description: `Decode token ids to text. Special tokens are printed as their text.
Token ids are read like "harmony parse" reads them.`,
		Usage: "harmony decode [flags] [file]",
		Examples: []cli.Example{
			{
				Description: "Decode ids given on standard input",
				Command:     "echo '200006 173781 200008' | harmony decode",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("decode", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			path, err := inputPath(args)
			if err != nil {
				return err
			}
			environment := cli.EnvironmentFrom(ctx)
			tokens, err := readTokens(environment, path)
			if err != nil {
				return err
			}
			encoding, _, err := params.LoadEncoding(ctx, logger)
			if err != nil {
				return err
			}

			var text string
			if params.Strict {
				text, err = encoding.DecodeUTF8(tokens)
			} else {
				text, err = encoding.Decode(tokens)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(environment.Stdout, text)
			return err
		},
	}
}
