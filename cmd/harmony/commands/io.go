// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/harmony/cmd/harmony/cli"
	"github.com/bureau-foundation/harmony/lib/chat"
	"github.com/bureau-foundation/harmony/lib/codec"
	"github.com/bureau-foundation/harmony/lib/harmony"
	"github.com/bureau-foundation/harmony/lib/tokenstream"
)

// stdinPath names standard input on the command line.
const stdinPath = "-"

// inputPath returns the single optional positional argument, defaulting
// to standard input.
func inputPath(args []string) (string, error) {
	switch len(args) {
	case 0:
		return stdinPath, nil
	case 1:
		return args[0], nil
	}
	return "", fmt.Errorf("expected at most one input file, got %d arguments", len(args))
}

func readInput(environment cli.Environment, path string) ([]byte, error) {
	if path == stdinPath {
		data, err := io.ReadAll(environment.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading standard input: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// conversationFormat picks the conversation format: the explicit flag,
// else the file extension, else JSON for standard input.
func conversationFormat(path, flag string) (chat.Format, error) {
	if flag != "" {
		return chat.ParseFormat(flag)
	}
	if path == stdinPath {
		return chat.FormatJSON, nil
	}
	return chat.FormatForPath(path), nil
}

func readConversation(environment cli.Environment, path, formatFlag string) (chat.Conversation, error) {
	format, err := conversationFormat(path, formatFlag)
	if err != nil {
		return chat.Conversation{}, err
	}
	data, err := readInput(environment, path)
	if err != nil {
		return chat.Conversation{}, err
	}
	conversation, err := chat.DecodeConversation(data, format)
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("%s: %w", path, err)
	}
	return conversation, nil
}

func readMessage(environment cli.Environment, path, formatFlag string) (chat.Message, error) {
	format, err := conversationFormat(path, formatFlag)
	if err != nil {
		return chat.Message{}, err
	}
	data, err := readInput(environment, path)
	if err != nil {
		return chat.Message{}, err
	}
	message, err := chat.DecodeMessage(data, format)
	if err != nil {
		return chat.Message{}, fmt.Errorf("%s: %w", path, err)
	}
	return message, nil
}

// readTokens reads token ids in any form tokenstream accepts, or a
// CBOR array when the file ends in .cbor.
func readTokens(environment cli.Environment, path string) ([]harmony.Rank, error) {
	if path != stdinPath && strings.EqualFold(filepath.Ext(path), ".cbor") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var tokens []harmony.Rank
		if err := codec.Unmarshal(data, &tokens); err != nil {
			return nil, fmt.Errorf("%s: decoding CBOR tokens: %w", path, err)
		}
		return tokens, nil
	}

	data, err := readInput(environment, path)
	if err != nil {
		return nil, err
	}
	tokens, err := tokenstream.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tokens, nil
}

// Token output formats shared by render and encode.
const (
	formatJSON     = "json"
	formatIDs      = "ids"
	formatText     = "text"
	formatCBOR     = "cbor"
	formatCBORDiag = "cbor-diag"
)

var tokenFormats = []string{formatJSON, formatIDs, formatText, formatCBOR, formatCBORDiag}

func validateTokenFormat(format string) error {
	for _, known := range tokenFormats {
		if format == known {
			return nil
		}
	}
	return fmt.Errorf("unknown output format %q (expected one of %s)", format, strings.Join(tokenFormats, ", "))
}

// writeTokens prints tokens in format. The text format decodes them
// back to Harmony text, replacing invalid UTF-8.
func writeTokens(w io.Writer, encoding *harmony.Encoding, tokens []harmony.Rank, format string) error {
	if tokens == nil {
		tokens = []harmony.Rank{}
	}
	switch format {
	case formatJSON:
		return cli.WriteJSONLine(w, tokens)
	case formatIDs:
		var builder strings.Builder
		for i, token := range tokens {
			if i > 0 {
				builder.WriteByte(' ')
			}
			fmt.Fprint(&builder, token)
		}
		builder.WriteByte('\n')
		_, err := io.WriteString(w, builder.String())
		return err
	case formatText:
		text, err := encoding.Decode(tokens)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, text)
		return err
	case formatCBOR:
		return codec.NewEncoder(w).Encode(tokens)
	case formatCBORDiag:
		data, err := codec.Marshal(tokens)
		if err != nil {
			return err
		}
		notation, err := codec.Diagnose(data)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, notation)
		return err
	}
	return validateTokenFormat(format)
}

// parseRoleFlag parses an optional role flag value.
func parseRoleFlag(value string) (chat.Role, error) {
	if value == "" {
		return "", nil
	}
	return chat.ParseRole(value)
}
