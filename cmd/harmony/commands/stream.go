// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/harmony/cmd/harmony/cli"
	"github.com/bureau-foundation/harmony/lib/chat"
	"github.com/bureau-foundation/harmony/lib/harmony"
	"github.com/bureau-foundation/harmony/lib/tokenstream"
)

type streamParams struct {
	cli.EncodingFlags
	Role          string   `flag:"role,r" desc:"role of a message whose <|start|>role prefix was part of the prompt"`
	Session       string   `flag:"session" desc:"session id attached to every event (default: a random UUID)"`
	Resume        string   `flag:"resume" desc:"restore parser state from a snapshot file before reading tokens"`
	Snapshot      string   `flag:"snapshot" desc:"write the parser snapshot to this file when input ends"`
	NoEOS         bool     `flag:"no-eos" desc:"leave the parser open at end of input (for a later --resume)"`
	ValidChannels []string `flag:"valid-channels" desc:"reject messages on channels not listed (overrides config)"`
}

// streamEvent is one line of stream output: a "token" event for every
// token processed and a "message" event for every completed message.
type streamEvent struct {
	Session string `json:"session"`
	Event   string `json:"event"`
	Index   int    `json:"index"`

	Token       *harmony.Rank `json:"token,omitempty"`
	State       string        `json:"state,omitempty"`
	Role        chat.Role     `json:"role,omitempty"`
	Channel     string        `json:"channel,omitempty"`
	Recipient   string        `json:"recipient,omitempty"`
	ContentType string        `json:"content_type,omitempty"`
	Delta       string        `json:"delta,omitempty"`

	Message *chat.Message `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
}

func streamCommand() *cli.Command {
	var params streamParams
	return &cli.Command{
		Name:    "stream",
		Summary: "Parse tokens incrementally, printing deltas as JSON lines",
		Description: `Feed tokens to the streaming parser one at a time as they arrive and
print one JSON line per token (with the parser state and any new
content text) and one per completed message.

Input is read incrementally, so the command can sit at the end of a
generator pipe, including one that speaks server-sent events. At end
of input a message cut off in its body is completed; pass --no-eos
with --snapshot to keep it open and continue later with --resume.`,
		Usage: "harmony stream [flags] [file]",
		Examples: []cli.Example{
			{
				Description: "Watch a generation take shape",
				Command:     "generator --sse | harmony stream --role assistant",
			},
			{
				Description: "Pause a parse and resume it with the next chunk",
				Command:     "harmony stream --role assistant --no-eos --snapshot state.cbor part1.txt && harmony stream --resume state.cbor part2.txt",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("stream", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			return runStream(ctx, &params, args, logger)
		},
	}
}

func runStream(ctx context.Context, params *streamParams, args []string, logger *slog.Logger) error {
	path, err := inputPath(args)
	if err != nil {
		return err
	}
	role, err := parseRoleFlag(params.Role)
	if err != nil {
		return fmt.Errorf("--role: %w", err)
	}
	if params.Resume != "" && params.Role != "" {
		return errors.New("--role and --resume are mutually exclusive; the snapshot carries the parser state")
	}

	session := params.Session
	if session == "" {
		session = uuid.NewString()
	}
	logger = logger.With("session", session)

	encoding, cfg, err := params.LoadEncoding(ctx, logger)
	if err != nil {
		return err
	}
	parser, err := openStreamParser(encoding, params, cfg.Render.ValidChannels, role)
	if err != nil {
		return err
	}

	environment := cli.EnvironmentFrom(ctx)
	input := environment.Stdin
	if path != stdinPath {
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		input = file
	}

	emitter := &streamEmitter{
		output:   environment.Stdout,
		session:  session,
		parser:   parser,
		index:    len(parser.Tokens()),
		messages: len(parser.Messages()),
	}

	scanner := tokenstream.NewScanner(input)
	for scanner.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		token := scanner.Token()
		if err := parser.Process(token); err != nil {
			emitter.fail(err)
			return err
		}
		if err := emitter.token(token); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if !params.NoEOS {
		if err := parser.ProcessEOS(); err != nil {
			emitter.fail(err)
			return err
		}
		if err := emitter.completed(); err != nil {
			return err
		}
	}
	logger.Info("stream finished",
		"tokens", len(parser.Tokens()),
		"messages", len(parser.Messages()),
		"state", parser.State().String(),
	)

	if params.Snapshot != "" {
		snapshot, err := parser.Snapshot()
		if err != nil {
			return err
		}
		if err := os.WriteFile(params.Snapshot, snapshot, 0o644); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
		logger.Info("snapshot written", "path", params.Snapshot, "bytes", len(snapshot))
	}
	return nil
}

func openStreamParser(encoding *harmony.Encoding, params *streamParams, configChannels []string, role chat.Role) (*harmony.StreamParser, error) {
	if params.Resume != "" {
		data, err := os.ReadFile(params.Resume)
		if err != nil {
			return nil, fmt.Errorf("reading snapshot: %w", err)
		}
		return encoding.RestoreStreamParser(data)
	}

	channels := configChannels
	if len(params.ValidChannels) > 0 {
		channels = params.ValidChannels
	}
	var options []harmony.ParserOption
	if len(channels) > 0 {
		options = append(options, harmony.WithValidChannels(channels...))
	}
	return encoding.NewStreamParser(role, options...)
}

// streamEmitter turns parser progress into JSON lines.
type streamEmitter struct {
	output   io.Writer
	session  string
	parser   *harmony.StreamParser
	index    int
	messages int
}

func (emitter *streamEmitter) token(token harmony.Rank) error {
	parser := emitter.parser
	event := streamEvent{
		Session:     emitter.session,
		Event:       "token",
		Index:       emitter.index,
		Token:       &token,
		State:       parser.State().String(),
		Role:        parser.CurrentRole(),
		Channel:     parser.CurrentChannel(),
		Recipient:   parser.CurrentRecipient(),
		ContentType: parser.CurrentContentType(),
		Delta:       parser.LastContentDelta(),
	}
	emitter.index++
	if err := cli.WriteJSONLine(emitter.output, event); err != nil {
		return err
	}
	return emitter.completed()
}

// completed emits a message event for every message finished since
// the last call.
func (emitter *streamEmitter) completed() error {
	messages := emitter.parser.Messages()
	for ; emitter.messages < len(messages); emitter.messages++ {
		message := messages[emitter.messages]
		event := streamEvent{
			Session: emitter.session,
			Event:   "message",
			Index:   emitter.messages,
			Message: &message,
		}
		if err := cli.WriteJSONLine(emitter.output, event); err != nil {
			return err
		}
	}
	return nil
}

func (emitter *streamEmitter) fail(err error) {
	cli.WriteJSONLine(emitter.output, streamEvent{
		Session: emitter.session,
		Event:   "error",
		Index:   emitter.index,
		Error:   err.Error(),
	})
}
