// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/harmony/cmd/harmony/cli"
	"github.com/bureau-foundation/harmony/lib/harmony"
)

type tokensParams struct {
	cli.JSONOutput
	cli.EncodingFlags
}

// formattingEntry is one grammar role. ID is nil when the role's text
// is not a special token of the vocabulary.
type formattingEntry struct {
	Role string        `json:"role"`
	Text string        `json:"text"`
	ID   *harmony.Rank `json:"id"`
}

type tokensResult struct {
	Encoding                      string            `json:"encoding"`
	Tokenizer                     string            `json:"tokenizer"`
	ContextLength                 int               `json:"context_length"`
	MaxActionLength               int               `json:"max_action_length"`
	Formatting                    []formattingEntry `json:"formatting"`
	StopTokens                    []harmony.Rank    `json:"stop_tokens"`
	StopTokensForAssistantActions []harmony.Rank    `json:"stop_tokens_for_assistant_actions"`
}

// formattingRoles lists the grammar roles in display order.
var formattingRoles = []harmony.FormattingToken{
	harmony.TokenStart,
	harmony.TokenMessage,
	harmony.TokenEndMessage,
	harmony.TokenReturn,
	harmony.TokenCall,
	harmony.TokenChannel,
	harmony.TokenConstrain,
	harmony.TokenRefusal,
	harmony.TokenBeginUntrusted,
	harmony.TokenEndUntrusted,
}

func tokensCommand() *cli.Command {
	var params tokensParams
	return &cli.Command{
		Name:    "tokens",
		Summary: "List the special tokens and stop tokens of an encoding",
		Description: `Print each grammar role with the special token text it maps to and
the token's id, followed by the stop token sets a sampler should use:
all stop tokens for generating one message, the assistant action stop
tokens for generating until a final answer or a tool call.`,
		Usage: "harmony tokens [flags]",
		Examples: []cli.Example{
			{
				Description: "Stop tokens for a sampler config",
				Command:     "harmony tokens --json | jq .stop_tokens_for_assistant_actions",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("tokens", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			encoding, _, err := params.LoadEncoding(ctx, logger)
			if err != nil {
				return err
			}
			result := describeTokens(encoding)

			stdout := cli.EnvironmentFrom(ctx).Stdout
			if done, err := params.EmitJSON(stdout, result); done {
				return err
			}

			fmt.Fprintf(stdout, "%s (%s, context %d, action budget %d)\n\n",
				result.Encoding, result.Tokenizer, result.ContextLength, result.MaxActionLength)
			writer := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "ROLE\tTEXT\tID")
			for _, entry := range result.Formatting {
				id := "-"
				if entry.ID != nil {
					id = fmt.Sprint(*entry.ID)
				}
				fmt.Fprintf(writer, "%s\t%s\t%s\n", entry.Role, entry.Text, id)
			}
			if err := writer.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "\nstop tokens:                       %s\n", joinRanks(result.StopTokens))
			fmt.Fprintf(stdout, "stop tokens for assistant actions: %s\n", joinRanks(result.StopTokensForAssistantActions))
			return nil
		},
	}
}

func describeTokens(encoding *harmony.Encoding) tokensResult {
	result := tokensResult{
		Encoding:                      encoding.Name(),
		Tokenizer:                     encoding.TokenizerName(),
		ContextLength:                 encoding.ContextLength(),
		MaxActionLength:               encoding.MaxActionLength(),
		StopTokens:                    encoding.StopTokens(),
		StopTokensForAssistantActions: encoding.StopTokensForAssistantActions(),
	}
	for _, role := range formattingRoles {
		text, mapped := encoding.FormattingTokenText(role)
		if !mapped {
			continue
		}
		entry := formattingEntry{Role: role.String(), Text: text}
		if id, ok := encoding.FormattingTokenID(role); ok {
			entry.ID = &id
		}
		result.Formatting = append(result.Formatting, entry)
	}
	return result
}

func joinRanks(ranks []harmony.Rank) string {
	parts := make([]string, len(ranks))
	for index, rank := range ranks {
		parts[index] = fmt.Sprint(rank)
	}
	return strings.Join(parts, " ")
}
