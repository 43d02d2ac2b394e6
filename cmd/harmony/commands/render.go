// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/harmony/cmd/harmony/cli"
	"github.com/bureau-foundation/harmony/lib/chat"
	"github.com/bureau-foundation/harmony/lib/harmony"
)

// Render modes.
const (
	modeCompletion   = "completion"
	modeConversation = "conversation"
	modeTraining     = "training"
	modeMessage      = "message"
)

// watchDebounce coalesces the bursts of events editors produce for a
// single save.
const watchDebounce = 100 * time.Millisecond

type renderParams struct {
	cli.EncodingFlags
	Mode          string   `flag:"mode,m" desc:"render mode: completion, conversation, training or message" default:"completion"`
	NextRole      string   `flag:"next-role" desc:"role that completes the conversation (completion mode)" default:"assistant"`
	Output        string   `flag:"output,o" desc:"output format: json, ids, text, cbor or cbor-diag" default:"json"`
	InputFormat   string   `flag:"input-format" desc:"conversation format: json, jsonc, yaml or cbor (default from extension)"`
	KeepAnalysis  bool     `flag:"keep-analysis" desc:"keep analysis messages of answered turns (completion mode)"`
	ValidChannels []string `flag:"valid-channels" desc:"reject messages on channels not listed (overrides config)"`
	Watch         bool     `flag:"watch,w" desc:"re-render whenever the input file changes"`
}

func renderCommand() *cli.Command {
	var params renderParams
	return &cli.Command{
		Name:    "render",
		Summary: "Render a conversation to tokens",
		Description: `Render a conversation (or a single message) to Harmony tokens.

Modes:
  completion    the conversation followed by the header of the next
                message, ready for sampling; drops analysis messages of
                turns that already have a final answer unless
                --keep-analysis or render.auto_drop_analysis=false
  conversation  the conversation exactly as written
  training      like conversation, ending a final assistant answer with
                <|return|> instead of <|end|>
  message       a single message document

The input is a JSON, JSONC, YAML or CBOR file, or standard input.`,
		Usage: "harmony render [flags] [file]",
		Examples: []cli.Example{
			{
				Description: "Render a conversation for sampling",
				Command:     "harmony render chat.yaml",
			},
			{
				Description: "Show the rendered text of a training example",
				Command:     "harmony render --mode training --output text example.json",
			},
			{
				Description: "Re-render on every save while editing a prompt",
				Command:     "harmony render --watch --output text prompt.jsonc",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("render", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			return runRender(ctx, &params, args, logger)
		},
	}
}

func runRender(ctx context.Context, params *renderParams, args []string, logger *slog.Logger) error {
	path, err := inputPath(args)
	if err != nil {
		return err
	}
	if err := validateTokenFormat(params.Output); err != nil {
		return err
	}
	if params.Watch && path == stdinPath {
		return errors.New("--watch needs an input file, not standard input")
	}

	encoding, cfg, err := params.LoadEncoding(ctx, logger)
	if err != nil {
		return err
	}
	renderConfig := cli.RenderConfig(cfg)
	if params.KeepAnalysis {
		renderConfig.AutoDropAnalysis = false
	}
	if len(params.ValidChannels) > 0 {
		renderConfig.ValidChannels = params.ValidChannels
	}

	environment := cli.EnvironmentFrom(ctx)
	request := renderRequest{
		Mode:        params.Mode,
		NextRole:    params.NextRole,
		InputFormat: params.InputFormat,
		Path:        path,
		Config:      renderConfig,
	}
	render := func() error {
		tokens, err := request.render(environment, encoding)
		if err != nil {
			return err
		}
		logger.Info("rendered",
			"mode", params.Mode,
			"tokens", len(tokens),
			"fingerprint", harmony.Fingerprint(tokens),
		)
		return writeTokens(environment.Stdout, encoding, tokens, params.Output)
	}

	if !params.Watch {
		return render()
	}
	return watchFile(ctx, path, logger, environment.Stderr, render)
}

// renderRequest names what to render and how.
type renderRequest struct {
	Mode        string
	NextRole    string
	InputFormat string
	Path        string
	Config      *harmony.RenderConfig
}

func (request renderRequest) render(environment cli.Environment, encoding *harmony.Encoding) ([]harmony.Rank, error) {
	if request.Mode == modeMessage {
		message, err := readMessage(environment, request.Path, request.InputFormat)
		if err != nil {
			return nil, err
		}
		return encoding.RenderMessage(message)
	}

	conversation, err := readConversation(environment, request.Path, request.InputFormat)
	if err != nil {
		return nil, err
	}
	switch request.Mode {
	case modeCompletion:
		nextRole, err := chat.ParseRole(request.NextRole)
		if err != nil {
			return nil, fmt.Errorf("--next-role: %w", err)
		}
		return encoding.RenderForCompletion(conversation, nextRole, request.Config)
	case modeConversation:
		return encoding.RenderConversation(conversation, request.Config)
	case modeTraining:
		return encoding.RenderForTraining(conversation, request.Config)
	}
	return nil, fmt.Errorf("unknown render mode %q (expected completion, conversation, training or message)", request.Mode)
}

// watchFile runs action once, then again after every change to path,
// until ctx is cancelled. Failures of action are reported to errOutput
// and do not stop the watch.
//
// The parent directory is watched rather than the file itself, because
// editors that save by rename replace the watched inode.
func watchFile(ctx context.Context, path string, logger *slog.Logger, errOutput io.Writer, action func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	defer watcher.Close()

	absolute, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(absolute)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(absolute), err)
	}

	runAction := func() {
		if err := action(); err != nil {
			fmt.Fprintf(errOutput, "error: %v\n", err)
		}
	}
	runAction()

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absolute {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("input changed", "path", path, "op", event.Op.String())
			debounce = time.After(watchDebounce)

		case <-debounce:
			debounce = nil
			runAction()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "error", err)
		}
	}
}
