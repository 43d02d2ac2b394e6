// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/bureau-foundation/harmony/cmd/harmony/cli"
	"github.com/bureau-foundation/harmony/lib/chat"
	"github.com/bureau-foundation/harmony/lib/harmony"
)

type previewParams struct {
	InputFormat string `flag:"input-format" desc:"conversation format: json, jsonc, yaml or cbor (default from extension)"`
	Out         string `flag:"out" desc:"write the HTML to this file instead of standard output"`
	Page        bool   `flag:"page" desc:"wrap the output in a standalone HTML page"`
	Markdown    bool   `flag:"markdown" desc:"print the Markdown source instead of HTML"`
}

func previewCommand() *cli.Command {
	var params previewParams
	return &cli.Command{
		Name:    "preview",
		Summary: "Preview the prompt text of a conversation as HTML",
		Description: `Render the text every message of a conversation contributes to the
prompt (system and developer messages expanded to their prompt text,
tool namespaces shown as TypeScript) as Markdown, and convert it to
HTML for review.

No vocabulary is needed: the preview shows text, not tokens.`,
		Usage: "harmony preview [flags] [file]",
		Examples: []cli.Example{
			{
				Description: "Review a system prompt in a browser",
				Command:     "harmony preview --page --out prompt.html chat.yaml",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("preview", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			return runPreview(ctx, &params, args, logger)
		},
	}
}

func runPreview(ctx context.Context, params *previewParams, args []string, logger *slog.Logger) error {
	path, err := inputPath(args)
	if err != nil {
		return err
	}
	environment := cli.EnvironmentFrom(ctx)
	conversation, err := readConversation(environment, path, params.InputFormat)
	if err != nil {
		return err
	}

	source, err := conversationMarkdown(conversation)
	if err != nil {
		return err
	}
	output := []byte(source)
	if !params.Markdown {
		output, err = markdownToHTML(source, params.Page)
		if err != nil {
			return err
		}
	}

	if params.Out == "" {
		_, err = environment.Stdout.Write(output)
		return err
	}
	if err := os.WriteFile(params.Out, output, 0o644); err != nil {
		return fmt.Errorf("writing preview: %w", err)
	}
	logger.Info("preview written", "path", params.Out, "messages", len(conversation.Messages))
	return nil
}

// conversationMarkdown lays out the prompt text of each message under
// a heading naming its author and header fields.
func conversationMarkdown(conversation chat.Conversation) (string, error) {
	functionTools := conversation.HasFunctionTools()
	var out strings.Builder
	for index, message := range conversation.Messages {
		if index > 0 {
			out.WriteString("\n---\n\n")
		}
		out.WriteString(messageHeading(message))
		out.WriteString("\n\n")
		for _, content := range message.Content {
			var text string
			switch content.Type {
			case chat.ContentSystem:
				prompt, err := harmony.SystemPrompt(*content.System, functionTools)
				if err != nil {
					return "", fmt.Errorf("message %d: %w", index, err)
				}
				text = fenceNamespaces(prompt)
			case chat.ContentDeveloper:
				prompt, err := harmony.DeveloperPrompt(*content.Developer)
				if err != nil {
					return "", fmt.Errorf("message %d: %w", index, err)
				}
				text = fenceNamespaces(prompt)
			default:
				text = content.Text
			}
			out.WriteString(text)
			out.WriteString("\n\n")
		}
	}
	return out.String(), nil
}

func messageHeading(message chat.Message) string {
	heading := "**" + string(message.Author.Role) + "**"
	if message.Author.Name != "" {
		heading += " `" + message.Author.Name + "`"
	}
	var details []string
	if message.Channel != "" {
		details = append(details, "channel `"+message.Channel+"`")
	}
	if message.Recipient != "" {
		details = append(details, "to `"+message.Recipient+"`")
	}
	if message.ContentType != "" {
		details = append(details, "content type `"+message.ContentType+"`")
	}
	if len(details) > 0 {
		heading += " · " + strings.Join(details, " · ")
	}
	return heading
}

// fenceNamespaces wraps each "namespace x { ... } // namespace x" block
// of a prompt in a TypeScript code fence.
func fenceNamespaces(prompt string) string {
	lines := strings.Split(prompt, "\n")
	var out []string
	inside := false
	for _, line := range lines {
		switch {
		case !inside && strings.HasPrefix(line, "namespace ") && strings.HasSuffix(line, "{"):
			out = append(out, "```typescript", line)
			inside = true
		case inside && strings.HasPrefix(line, "} // namespace "):
			out = append(out, line, "```")
			inside = false
		default:
			out = append(out, line)
		}
	}
	if inside {
		out = append(out, "```")
	}
	return strings.Join(out, "\n")
}

// markdownToHTML converts with GitHub-flavored Markdown. Line breaks
// are kept because prompt text is line oriented.
func markdownToHTML(source string, page bool) ([]byte, error) {
	markdown := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(goldmarkhtml.WithHardWraps()),
	)
	var body bytes.Buffer
	if err := markdown.Convert([]byte(source), &body); err != nil {
		return nil, fmt.Errorf("converting Markdown: %w", err)
	}
	if !page {
		return body.Bytes(), nil
	}

	var document bytes.Buffer
	fmt.Fprintf(&document, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n",
		html.EscapeString("Harmony prompt preview"))
	document.Write(body.Bytes())
	document.WriteString("</body>\n</html>\n")
	return document.Bytes(), nil
}
