// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/harmony/cmd/harmony/cli"
	"github.com/bureau-foundation/harmony/lib/chat"
	"github.com/bureau-foundation/harmony/lib/codec"
	"github.com/bureau-foundation/harmony/lib/harmony"
)

type parseParams struct {
	cli.EncodingFlags
	Role          string   `flag:"role,r" desc:"role of a message whose <|start|>role prefix was part of the prompt"`
	Text          bool     `flag:"text" desc:"input is Harmony text with literal special tokens, not token ids"`
	Output        string   `flag:"output,o" desc:"output format: json or cbor" default:"json"`
	Classify      bool     `flag:"classify" desc:"annotate each message with its class (thinking, tool_call, response, regular)"`
	Tools         string   `flag:"tools" desc:"conversation file declaring tools; validate tool-call arguments against it"`
	ValidChannels []string `flag:"valid-channels" desc:"reject messages on channels not listed (overrides config)"`
	Check         bool     `flag:"check" desc:"print nothing on success; print the error and exit 2 on failure"`
}

// parsedMessage is the --classify output record.
type parsedMessage struct {
	Class     string       `json:"class"`
	Message   chat.Message `json:"message"`
	ToolError string       `json:"tool_error,omitempty"`
}

func parseCommand() *cli.Command {
	var params parseParams
	return &cli.Command{
		Name:    "parse",
		Summary: "Parse completion tokens into messages",
		Description: `Parse a sequence of completion tokens into messages.

Token ids are read from a file or standard input as a JSON array,
whitespace-separated integers, JSON lines or server-sent events; a
.cbor file holds a CBOR array. With --text the input is Harmony text
such as "<|start|>assistant<|message|>hi<|end|>".

A sequence that stops in the middle of a message body is completed
best-effort; one that stops inside a header is an error.`,
		Usage: "harmony parse [flags] [file]",
		Examples: []cli.Example{
			{
				Description: "Parse a sampled completion that followed <|start|>assistant",
				Command:     "harmony parse --role assistant completion.json",
			},
			{
				Description: "Classify messages and validate tool calls against the prompt",
				Command:     "harmony parse --role assistant --classify --tools chat.yaml completion.json",
			},
			{
				Description: "Check that a rendered conversation parses back",
				Command:     "harmony render --mode conversation chat.yaml | harmony parse --check",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("parse", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			return runParse(ctx, &params, args, logger)
		},
	}
}

func runParse(ctx context.Context, params *parseParams, args []string, logger *slog.Logger) error {
	path, err := inputPath(args)
	if err != nil {
		return err
	}
	role, err := parseRoleFlag(params.Role)
	if err != nil {
		return fmt.Errorf("--role: %w", err)
	}
	if params.Output != formatJSON && params.Output != formatCBOR {
		return fmt.Errorf("unknown output format %q (expected json or cbor)", params.Output)
	}

	encoding, cfg, err := params.LoadEncoding(ctx, logger)
	if err != nil {
		return err
	}
	channels := cfg.Render.ValidChannels
	if len(params.ValidChannels) > 0 {
		channels = params.ValidChannels
	}
	var options []harmony.ParserOption
	if len(channels) > 0 {
		options = append(options, harmony.WithValidChannels(channels...))
	}

	environment := cli.EnvironmentFrom(ctx)
	var messages []chat.Message
	if params.Text {
		data, readErr := readInput(environment, path)
		if readErr != nil {
			return readErr
		}
		messages, err = encoding.ParseMessagesFromText(strings.TrimRight(string(data), "\n"), role, options...)
	} else {
		tokens, readErr := readTokens(environment, path)
		if readErr != nil {
			return readErr
		}
		logger.Debug("tokens read", "count", len(tokens))
		messages, err = encoding.ParseMessages(tokens, role, options...)
	}
	if err != nil {
		if params.Check {
			fmt.Fprintf(environment.Stderr, "%s: %v\n", path, err)
			return &cli.ExitError{Code: 2}
		}
		return err
	}
	logger.Info("parsed", "messages", len(messages))
	if params.Check {
		return nil
	}

	if messages == nil {
		messages = []chat.Message{}
	}
	var output any = messages
	if params.Classify || params.Tools != "" {
		records, err := classifyMessages(environment, messages, params.Tools)
		if err != nil {
			return err
		}
		output = records
	}

	if params.Output == formatCBOR {
		return codec.NewEncoder(environment.Stdout).Encode(output)
	}
	return cli.WriteJSON(environment.Stdout, output)
}

// classifyMessages annotates messages with their class and, when a
// tool-declaring conversation is given, the result of validating each
// tool call against it.
func classifyMessages(environment cli.Environment, messages []chat.Message, toolsPath string) ([]parsedMessage, error) {
	var declarations chat.Conversation
	if toolsPath != "" {
		conversation, err := readConversation(environment, toolsPath, "")
		if err != nil {
			return nil, err
		}
		declarations = conversation
	}

	records := make([]parsedMessage, 0, len(messages))
	for _, message := range messages {
		class := harmony.Classify(message)
		record := parsedMessage{Class: class.String(), Message: message}
		if toolsPath != "" && class == harmony.ClassToolCall {
			if err := harmony.ValidateToolCall(declarations, message); err != nil {
				record.ToolError = err.Error()
			}
		}
		records = append(records, record)
	}
	return records, nil
}
