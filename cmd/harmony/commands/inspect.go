// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/spf13/pflag"
	"github.com/tidwall/gjson"
	"golang.org/x/term"

	"github.com/bureau-foundation/harmony/cmd/harmony/cli"
	"github.com/bureau-foundation/harmony/lib/chat"
	"github.com/bureau-foundation/harmony/lib/codec"
	"github.com/bureau-foundation/harmony/lib/harmony"
)

type inspectParams struct {
	cli.JSONOutput
	cli.EncodingFlags
	Tokens       bool   `flag:"tokens" desc:"input is token ids rather than a conversation"`
	Role         string `flag:"role,r" desc:"role of a message whose <|start|>role prefix is missing (with --tokens)"`
	Mode         string `flag:"mode,m" desc:"render mode for conversation input: completion, conversation, training or message" default:"completion"`
	NextRole     string `flag:"next-role" desc:"role that completes the conversation (completion mode)" default:"assistant"`
	InputFormat  string `flag:"input-format" desc:"conversation format: json, jsonc, yaml or cbor (default from extension)"`
	KeepAnalysis bool   `flag:"keep-analysis" desc:"keep analysis messages of answered turns (completion mode)"`
	Color        string `flag:"color" desc:"colorize output: auto, always or never" default:"auto"`
	Width        int    `flag:"width" desc:"truncate token rows to this many columns (0: the terminal width, unlimited off a terminal)"`
	IDs          bool   `flag:"ids" desc:"show the id of every token"`
	Diag         bool   `flag:"diag" desc:"print a CBOR token file in diagnostic notation, one item per line"`
}

// Segment statuses.
const (
	segmentComplete = "complete"
	segmentOpen     = "open"
	segmentError    = "error"
)

// segment is a run of tokens: one parsed message, the unfinished tail
// of the stream, or the tokens from a grammar error onward.
type segment struct {
	Start   int           `json:"start"`
	End     int           `json:"end"`
	Status  string        `json:"status"`
	Class   string        `json:"class,omitempty"`
	Message *chat.Message `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// inspection is the JSON form of inspect output.
type inspection struct {
	Encoding    string         `json:"encoding"`
	Fingerprint string         `json:"fingerprint"`
	Tokens      []harmony.Rank `json:"tokens"`
	Segments    []segment      `json:"segments"`
}

func inspectCommand() *cli.Command {
	var params inspectParams
	return &cli.Command{
		Name:    "inspect",
		Summary: "Show how tokens split into messages",
		Description: `Render a conversation (or read token ids with --tokens) and print the
tokens message by message: a header line with the author, channel,
recipient and message class, then every token as the text it decodes
to, with special tokens highlighted. JSON bodies and python calls are
shown syntax highlighted. The last line gives the token count and the
fingerprint of the whole sequence.

Tokens that do not parse are shown as an error segment; a message the
stream leaves unfinished is shown as an open segment.

With --diag the input is a CBOR file, printed in diagnostic notation.`,
		Usage: "harmony inspect [flags] [file]",
		Examples: []cli.Example{
			{
				Description: "See exactly what the model will be prompted with",
				Command:     "harmony inspect chat.yaml",
			},
			{
				Description: "Check a raw generation",
				Command:     "harmony inspect --tokens --role assistant completion.txt",
			},
			{
				Description: "Look inside a CBOR token file",
				Command:     "harmony inspect --diag tokens.cbor",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("inspect", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			return runInspect(ctx, &params, args, logger)
		},
	}
}

func runInspect(ctx context.Context, params *inspectParams, args []string, logger *slog.Logger) error {
	path, err := inputPath(args)
	if err != nil {
		return err
	}
	environment := cli.EnvironmentFrom(ctx)
	if params.Diag {
		return printDiagnostic(environment, path)
	}

	profile, err := colorProfile(params.Color, environment.Stdout)
	if err != nil {
		return err
	}
	role, err := parseRoleFlag(params.Role)
	if err != nil {
		return fmt.Errorf("--role: %w", err)
	}
	if role != "" && !params.Tokens {
		return fmt.Errorf("--role applies only to --tokens input")
	}

	encoding, cfg, err := params.LoadEncoding(ctx, logger)
	if err != nil {
		return err
	}

	var tokens []harmony.Rank
	if params.Tokens {
		tokens, err = readTokens(environment, path)
	} else {
		renderConfig := cli.RenderConfig(cfg)
		if params.KeepAnalysis {
			renderConfig.AutoDropAnalysis = false
		}
		request := renderRequest{
			Mode:        params.Mode,
			NextRole:    params.NextRole,
			InputFormat: params.InputFormat,
			Path:        path,
			Config:      renderConfig,
		}
		tokens, err = request.render(environment, encoding)
	}
	if err != nil {
		return err
	}

	result, err := segmentTokens(encoding, tokens, role)
	if err != nil {
		return err
	}
	logger.Info("inspected",
		"tokens", len(tokens),
		"segments", len(result.Segments),
		"fingerprint", result.Fingerprint,
	)

	if done, err := params.EmitJSON(environment.Stdout, result); done {
		return err
	}

	width := params.Width
	if width == 0 {
		width = terminalWidth(environment.Stdout)
	}
	view := &inspectView{
		encoding: encoding,
		tokens:   tokens,
		styles:   newInspectStyles(environment.Stdout, profile),
		colored:  profile != termenv.Ascii,
		width:    width,
		showIDs:  params.IDs,
	}
	_, err = io.WriteString(environment.Stdout, view.render(result))
	return err
}

// segmentTokens splits tokens at message boundaries by feeding them to
// a stream parser. It fails only when the parser cannot be built.
func segmentTokens(encoding *harmony.Encoding, tokens []harmony.Rank, role chat.Role) (inspection, error) {
	result := inspection{
		Encoding:    encoding.Name(),
		Fingerprint: harmony.Fingerprint(tokens),
		Tokens:      tokens,
	}
	parser, err := encoding.NewStreamParser(role)
	if err != nil {
		return inspection{}, err
	}

	start := 0
	for index, token := range tokens {
		before := parser.State()
		if err := parser.Process(token); err != nil {
			result.Segments = append(result.Segments, segment{
				Start:  start,
				End:    len(tokens),
				Status: segmentError,
				Error:  err.Error(),
			})
			return result, nil
		}
		if before != harmony.StateContent || parser.State() != harmony.StateExpectStart {
			continue
		}
		messages := parser.Messages()
		message := messages[len(messages)-1]
		result.Segments = append(result.Segments, segment{
			Start:   start,
			End:     index + 1,
			Status:  segmentComplete,
			Class:   harmony.Classify(message).String(),
			Message: &message,
		})
		start = index + 1
	}
	if start < len(tokens) {
		result.Segments = append(result.Segments, segment{
			Start:  start,
			End:    len(tokens),
			Status: segmentOpen,
		})
	}
	return result, nil
}

// colorProfile resolves --color. Auto colors only a terminal.
func colorProfile(mode string, w io.Writer) (termenv.Profile, error) {
	switch mode {
	case "always":
		return termenv.ANSI256, nil
	case "never":
		return termenv.Ascii, nil
	case "auto":
		if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
			return termenv.ANSI256, nil
		}
		return termenv.Ascii, nil
	}
	return termenv.Ascii, fmt.Errorf("unknown --color %q (expected auto, always or never)", mode)
}

func terminalWidth(w io.Writer) int {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil {
		return 0
	}
	return width
}

type inspectStyles struct {
	title     lipgloss.Style
	header    lipgloss.Style
	class     lipgloss.Style
	special   lipgloss.Style
	ordinary  [2]lipgloss.Style
	id        lipgloss.Style
	escape    lipgloss.Style
	open      lipgloss.Style
	failure   lipgloss.Style
	footer    lipgloss.Style
	highlight lipgloss.Style
}

func newInspectStyles(w io.Writer, profile termenv.Profile) inspectStyles {
	// SetColorProfile is needed as well as WithProfile: the renderer
	// otherwise re-detects the profile from the environment.
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	return inspectStyles{
		title:   renderer.NewStyle().Bold(true),
		header:  renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("75")),
		class:   renderer.NewStyle().Foreground(lipgloss.Color("245")),
		special: renderer.NewStyle().Foreground(lipgloss.Color("213")).Bold(true),
		ordinary: [2]lipgloss.Style{
			renderer.NewStyle().Foreground(lipgloss.Color("252")),
			renderer.NewStyle().Foreground(lipgloss.Color("180")),
		},
		id:        renderer.NewStyle().Foreground(lipgloss.Color("242")),
		escape:    renderer.NewStyle().Foreground(lipgloss.Color("242")),
		open:      renderer.NewStyle().Foreground(lipgloss.Color("220")),
		failure:   renderer.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		footer:    renderer.NewStyle().Foreground(lipgloss.Color("245")),
		highlight: renderer.NewStyle().PaddingLeft(4),
	}
}

type inspectView struct {
	encoding *harmony.Encoding
	tokens   []harmony.Rank
	styles   inspectStyles
	colored  bool
	width    int
	showIDs  bool
}

func (view *inspectView) render(result inspection) string {
	var out strings.Builder
	out.WriteString(view.styles.title.Render(fmt.Sprintf("%s · %d tokens", result.Encoding, len(result.Tokens))))
	out.WriteByte('\n')

	for number, part := range result.Segments {
		out.WriteByte('\n')
		out.WriteString(view.segmentHeader(number, part))
		out.WriteByte('\n')
		for _, line := range view.tokenRows(view.tokens[part.Start:part.End]) {
			out.WriteString("  ")
			out.WriteString(line)
			out.WriteByte('\n')
		}
		if body := view.highlightedBody(part); body != "" {
			out.WriteString(body)
			out.WriteByte('\n')
		}
	}

	out.WriteByte('\n')
	out.WriteString(view.styles.footer.Render(fmt.Sprintf("%d tokens · fingerprint %s", len(result.Tokens), result.Fingerprint)))
	out.WriteByte('\n')
	return out.String()
}

func (view *inspectView) segmentHeader(number int, part segment) string {
	span := fmt.Sprintf("tokens %d-%d", part.Start, part.End-1)
	switch part.Status {
	case segmentOpen:
		return view.styles.open.Render(fmt.Sprintf("[%d] unfinished message", number)) + " " + view.styles.class.Render(span)
	case segmentError:
		return view.styles.failure.Render(fmt.Sprintf("[%d] error: %s", number, part.Error)) + " " + view.styles.class.Render(span)
	}

	message := part.Message
	author := string(message.Author.Role)
	if message.Author.Name != "" {
		author = message.Author.Name
	}
	title := fmt.Sprintf("[%d] %s", number, author)
	if message.Recipient != "" {
		title += " → " + message.Recipient
	}
	var details []string
	if message.Channel != "" {
		details = append(details, message.Channel)
	}
	if message.ContentType != "" {
		details = append(details, message.ContentType)
	}
	if len(details) > 0 {
		title += " (" + strings.Join(details, ", ") + ")"
	}
	return view.styles.header.Render(title) + " " + view.styles.class.Render(part.Class+" · "+span)
}

// tokenRows renders tokens as their decoded pieces, breaking rows after
// pieces that end in a newline.
func (view *inspectView) tokenRows(tokens []harmony.Rank) []string {
	var rows []string
	var row strings.Builder
	ordinary := 0
	flush := func() {
		line := row.String()
		if view.width > 2 {
			line = ansi.Truncate(line, view.width-2, "…")
		}
		rows = append(rows, line)
		row.Reset()
	}

	for _, token := range tokens {
		raw, err := view.encoding.DecodeBytes([]harmony.Rank{token})
		var piece string
		switch {
		case err != nil:
			piece = view.styles.failure.Render(fmt.Sprintf("<?%d>", token))
		case view.encoding.IsSpecialToken(token):
			piece = view.styles.special.Render(string(raw))
		default:
			piece = view.ordinaryPiece(raw, view.styles.ordinary[ordinary%2])
			ordinary++
		}
		row.WriteString(piece)
		if view.showIDs {
			row.WriteString(view.styles.id.Render(fmt.Sprintf("%d", token)))
		}
		if !view.colored {
			row.WriteByte('|')
		}
		if err == nil && len(raw) > 0 && raw[len(raw)-1] == '\n' {
			flush()
		}
	}
	if row.Len() > 0 || len(rows) == 0 {
		flush()
	}
	return rows
}

// ordinaryPiece makes the bytes of one ordinary token printable:
// control characters and bytes outside complete code points become
// escapes.
func (view *inspectView) ordinaryPiece(raw []byte, style lipgloss.Style) string {
	var out strings.Builder
	var text strings.Builder
	flushText := func() {
		if text.Len() > 0 {
			out.WriteString(style.Render(text.String()))
			text.Reset()
		}
	}
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		var escape string
		switch {
		case r == utf8.RuneError && size <= 1:
			escape = fmt.Sprintf(`\x%02x`, raw[0])
		case r == '\n':
			escape = `\n`
		case r == '\t':
			escape = `\t`
		case r == '\r':
			escape = `\r`
		case r < 0x20 || r == 0x7f:
			escape = fmt.Sprintf(`\x%02x`, r)
		}
		if escape != "" {
			flushText()
			out.WriteString(view.styles.escape.Render(escape))
		} else {
			text.Write(raw[:size])
		}
		raw = raw[size:]
	}
	flushText()
	return out.String()
}

// highlightedBody returns a JSON body or python call syntax
// highlighted, or "" when there is nothing to highlight.
func (view *inspectView) highlightedBody(part segment) string {
	if !view.colored || part.Message == nil {
		return ""
	}
	body := strings.TrimSpace(part.Message.TextContent())
	var language string
	switch {
	case (strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[")) && gjson.Valid(body):
		language = "json"
	case part.Message.Recipient == "python":
		language = "python"
	default:
		return ""
	}
	var highlighted strings.Builder
	if err := quick.Highlight(&highlighted, body, language, "terminal256", "monokai"); err != nil {
		return ""
	}
	return view.styles.highlight.Render(highlighted.String())
}

// printDiagnostic prints each item of a CBOR file in diagnostic
// notation.
func printDiagnostic(environment cli.Environment, path string) error {
	data, err := readInput(environment, path)
	if err != nil {
		return err
	}
	for len(data) > 0 {
		notation, rest, err := codec.DiagnoseFirst(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if _, err := fmt.Fprintln(environment.Stdout, notation); err != nil {
			return err
		}
		data = rest
	}
	return nil
}
