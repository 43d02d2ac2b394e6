// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package harmony

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/bureau-foundation/harmony/lib/chat"
	"github.com/bureau-foundation/harmony/lib/codec"
	"github.com/bureau-foundation/harmony/lib/tokenizer"
)

// ParserState is the grammar position of a [StreamParser].
type ParserState int

const (
	// StateExpectStart waits for <|start|>.
	StateExpectStart ParserState = iota

	// StateHeader collects header tokens until <|message|>.
	StateHeader

	// StateContent collects body tokens until a stop token.
	StateContent
)

func (state ParserState) String() string {
	switch state {
	case StateExpectStart:
		return "ExpectStart"
	case StateHeader:
		return "Header"
	case StateContent:
		return "Content"
	}
	return fmt.Sprintf("ParserState(%d)", int(state))
}

func parseParserState(name string) (ParserState, error) {
	for _, state := range []ParserState{StateExpectStart, StateHeader, StateContent} {
		if state.String() == name {
			return state, nil
		}
	}
	return 0, fmt.Errorf("unknown parser state %q", name)
}

// ParserOption configures a [StreamParser].
type ParserOption func(*StreamParser)

// WithValidChannels rejects parsed messages whose channel is set and
// not listed. No channels means no restriction.
func WithValidChannels(channels ...string) ParserOption {
	return func(parser *StreamParser) {
		if len(channels) == 0 {
			parser.validChannels = nil
			return
		}
		parser.validChannels = make(map[string]bool, len(channels))
		for _, channel := range channels {
			parser.validChannels[channel] = true
		}
	}
}

// StreamParser parses a token stream one token at a time, exposing the
// message in progress after every token.
//
// A StreamParser is owned by one caller: Process and ProcessEOS must
// not be called concurrently. Any error other than one from a call
// after ProcessEOS leaves the parser failed; every later call returns
// an error wrapping [ErrParserTerminated] and the original failure.
type StreamParser struct {
	encoding      *Encoding
	validChannels map[string]bool

	// nextRole seeds the first header when the stream starts after
	// <|start|>. It is cleared once that header is parsed.
	nextRole chat.Role

	state        ParserState
	headerTokens []Rank
	header       Header

	// content holds the raw bytes of the current body and emitted how
	// many of them have been surfaced as text.
	contentTokens []Rank
	content       []byte
	emitted       int
	lastDelta     string

	tokens   []Rank
	messages []chat.Message

	terminated bool
	failure    error
}

// NewStreamParser returns a parser for output of encoding. A non-empty
// role starts the parser inside a header for that role, as when
// parsing a completion rendered by [Encoding.RenderForCompletion].
func (encoding *Encoding) NewStreamParser(role chat.Role, options ...ParserOption) (*StreamParser, error) {
	for _, token := range []FormattingToken{TokenStart, TokenMessage} {
		if _, err := encoding.formattingID(token); err != nil {
			return nil, err
		}
	}
	parser := &StreamParser{encoding: encoding}
	if role != "" {
		if !role.Valid() {
			return nil, &VocabularyError{Err: fmt.Errorf("%w: %q", ErrUnknownRole, string(role))}
		}
		parser.nextRole = role
		parser.state = StateHeader
	}
	for _, option := range options {
		option(parser)
	}
	return parser, nil
}

// Process consumes one token.
func (parser *StreamParser) Process(token Rank) error {
	if err := parser.usable(); err != nil {
		return err
	}
	parser.tokens = append(parser.tokens, token)
	if err := parser.step(token); err != nil {
		parser.failure = err
		return err
	}
	return nil
}

// ProcessEOS signals the end of the stream. A message body in progress
// is finalized; a header in progress is an error. The parser accepts
// no tokens afterwards.
func (parser *StreamParser) ProcessEOS() error {
	if err := parser.usable(); err != nil {
		return err
	}
	parser.terminated = true
	switch parser.state {
	case StateHeader:
		if len(parser.headerTokens) > 0 {
			err := &GrammarError{
				Message: "stream ended inside a message header",
				Index:   -1,
				Err:     ErrUnexpectedEOS,
			}
			parser.failure = err
			return err
		}
	case StateContent:
		if err := parser.finishMessage(); err != nil {
			parser.failure = err
			return err
		}
	}
	return nil
}

func (parser *StreamParser) usable() error {
	if parser.failure != nil {
		return fmt.Errorf("%w after earlier failure: %w", ErrParserTerminated, parser.failure)
	}
	if parser.terminated {
		return ErrParserTerminated
	}
	return nil
}

func (parser *StreamParser) step(token Rank) error {
	index := len(parser.tokens) - 1
	formatting, isFormatting := parser.encoding.formattingTokenOf(token)

	switch parser.state {
	case StateExpectStart:
		if isFormatting && formatting == TokenStart {
			parser.state = StateHeader
			parser.headerTokens = parser.headerTokens[:0]
			return nil
		}
		return grammarError(index, "unexpected token %d while expecting %s", token, TokenStart)

	case StateHeader:
		if isFormatting {
			switch formatting {
			case TokenMessage:
				return parser.finishHeader()
			case TokenStart, TokenEndMessage, TokenCall, TokenReturn:
				return grammarError(index, "unexpected %s inside a message header", formatting)
			}
		}
		parser.headerTokens = append(parser.headerTokens, token)
		return nil

	case StateContent:
		if parser.isStopToken(token) {
			return parser.finishMessage()
		}
		if isFormatting {
			switch formatting {
			case TokenStart, TokenMessage, TokenChannel:
				return grammarError(index, "unexpected %s inside a message body", formatting)
			}
		}
		return parser.appendContent(token)
	}
	return fmt.Errorf("parser in unknown state %s", parser.state)
}

func (parser *StreamParser) isStopToken(token Rank) bool {
	for _, stop := range parser.encoding.stopTokens {
		if stop == token {
			return true
		}
	}
	return false
}

func (parser *StreamParser) finishHeader() error {
	text, err := parser.encoding.DecodeUTF8(parser.headerTokens)
	if err != nil {
		return fmt.Errorf("decoding message header: %w", err)
	}
	header, err := parser.encoding.parseHeader(text, parser.nextRole)
	if err != nil {
		return err
	}
	if header.Channel != "" && parser.validChannels != nil && !parser.validChannels[header.Channel] {
		return grammarError(len(parser.tokens)-1, "channel %q is not one of the valid channels", header.Channel)
	}
	parser.nextRole = ""
	parser.header = header
	parser.headerTokens = nil
	parser.state = StateContent
	parser.contentTokens = nil
	parser.content = nil
	parser.emitted = 0
	parser.lastDelta = ""
	return nil
}

// appendContent adds a body token. Text is surfaced up to the last
// complete code point; a trailing partial code point waits for the
// tokens that complete it.
func (parser *StreamParser) appendContent(token Rank) error {
	raw, err := parser.encoding.DecodeBytes([]Rank{token})
	if err != nil {
		return err
	}
	parser.contentTokens = append(parser.contentTokens, token)
	parser.content = append(parser.content, raw...)

	complete := completePrefix(parser.content[parser.emitted:])
	parser.lastDelta = ""
	if len(complete) == 0 {
		return nil
	}
	delta, err := tokenizer.LossyString(complete)
	if err != nil {
		return &DecodingError{Err: err}
	}
	parser.emitted += len(complete)
	parser.lastDelta = delta
	return nil
}

func (parser *StreamParser) finishMessage() error {
	text, err := tokenizer.LossyString(parser.content)
	if err != nil {
		return &DecodingError{Err: err}
	}
	parser.messages = append(parser.messages, parser.header.message(text))
	parser.state = StateExpectStart
	parser.header = Header{}
	parser.contentTokens = nil
	parser.content = nil
	parser.emitted = 0
	parser.lastDelta = ""
	return nil
}

// completePrefix returns raw without a trailing incomplete UTF-8
// sequence. Invalid bytes count as complete; they surface as U+FFFD.
func completePrefix(raw []byte) []byte {
	for back := 1; back < utf8.UTFMax && back <= len(raw); back++ {
		start := len(raw) - back
		if utf8.RuneStart(raw[start]) {
			if !utf8.FullRune(raw[start:]) {
				return raw[:start]
			}
			break
		}
	}
	return raw
}

// State returns the grammar position.
func (parser *StreamParser) State() ParserState { return parser.state }

// Terminated reports whether ProcessEOS has been called.
func (parser *StreamParser) Terminated() bool { return parser.terminated }

// CurrentRole returns the role of the message in progress: the parsed
// header role inside a body, the seeded role before the first header,
// and "" otherwise.
func (parser *StreamParser) CurrentRole() chat.Role {
	if parser.state == StateContent {
		return parser.header.Author.Role
	}
	return parser.nextRole
}

// CurrentHeader returns the parsed header of the message in progress.
// ok is false outside a message body.
func (parser *StreamParser) CurrentHeader() (header Header, ok bool) {
	if parser.state != StateContent {
		return Header{}, false
	}
	return parser.header, true
}

// CurrentChannel returns the channel of the message in progress.
func (parser *StreamParser) CurrentChannel() string {
	if parser.state != StateContent {
		return ""
	}
	return parser.header.Channel
}

// CurrentRecipient returns the recipient of the message in progress.
func (parser *StreamParser) CurrentRecipient() string {
	if parser.state != StateContent {
		return ""
	}
	return parser.header.Recipient
}

// CurrentContentType returns the content type of the message in
// progress.
func (parser *StreamParser) CurrentContentType() string {
	if parser.state != StateContent {
		return ""
	}
	return parser.header.ContentType
}

// CurrentContent returns the body text surfaced so far for the message
// in progress. It never ends in a partial code point.
func (parser *StreamParser) CurrentContent() string {
	if parser.state != StateContent {
		return ""
	}
	text, err := tokenizer.LossyString(parser.content[:parser.emitted])
	if err != nil {
		return ""
	}
	return text
}

// LastContentDelta returns the text the most recent token added to
// the body, or "" if it added none (a header token, a stop token, or a
// token that ends inside a code point).
func (parser *StreamParser) LastContentDelta() string { return parser.lastDelta }

// Messages returns the finished messages.
func (parser *StreamParser) Messages() []chat.Message {
	return append([]chat.Message(nil), parser.messages...)
}

// Tokens returns every token processed, including the one that failed.
func (parser *StreamParser) Tokens() []Rank {
	return append([]Rank(nil), parser.tokens...)
}

// parserStateRecord is the JSON shape of the grammar position.
type parserStateRecord struct {
	State         string  `json:"state"`
	HeaderTokens  *[]Rank `json:"header_tokens,omitempty"`
	Header        *Header `json:"header,omitempty"`
	ContentTokens *[]Rank `json:"content_tokens,omitempty"`
}

// StateJSON describes the grammar position as JSON:
//
//	{"state":"ExpectStart"}
//	{"state":"Header","header_tokens":[...]}
//	{"state":"Content","header":{...},"content_tokens":[...]}
func (parser *StreamParser) StateJSON() ([]byte, error) {
	record := parserStateRecord{State: parser.state.String()}
	switch parser.state {
	case StateHeader:
		tokens := nonNil(parser.headerTokens)
		record.HeaderTokens = &tokens
	case StateContent:
		header := parser.header
		tokens := nonNil(parser.contentTokens)
		record.Header = &header
		record.ContentTokens = &tokens
	}
	return json.Marshal(record)
}

func nonNil(tokens []Rank) []Rank {
	if tokens == nil {
		return []Rank{}
	}
	return tokens
}

// parserSnapshot is the CBOR form of a StreamParser. Roles are plain
// strings because an absent role is legal here.
type parserSnapshot struct {
	State         string         `cbor:"state"`
	NextRole      string         `cbor:"next_role,omitempty"`
	HeaderTokens  []Rank         `cbor:"header_tokens,omitempty"`
	Header        *Header        `cbor:"header,omitempty"`
	ContentTokens []Rank         `cbor:"content_tokens,omitempty"`
	Tokens        []Rank         `cbor:"tokens,omitempty"`
	Messages      []chat.Message `cbor:"messages,omitempty"`
	ValidChannels []string       `cbor:"valid_channels,omitempty"`
	Terminated    bool           `cbor:"terminated,omitempty"`
}

// Snapshot encodes the parser as deterministic CBOR. A failed parser
// cannot be snapshotted.
func (parser *StreamParser) Snapshot() ([]byte, error) {
	if parser.failure != nil {
		return nil, fmt.Errorf("%w after earlier failure: %w", ErrParserTerminated, parser.failure)
	}
	snapshot := parserSnapshot{
		State:         parser.state.String(),
		NextRole:      string(parser.nextRole),
		HeaderTokens:  parser.headerTokens,
		ContentTokens: parser.contentTokens,
		Tokens:        parser.tokens,
		Messages:      parser.messages,
		Terminated:    parser.terminated,
	}
	if parser.state == StateContent {
		header := parser.header
		snapshot.Header = &header
	}
	for channel := range parser.validChannels {
		snapshot.ValidChannels = append(snapshot.ValidChannels, channel)
	}
	sort.Strings(snapshot.ValidChannels)
	data, err := codec.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encoding parser snapshot: %w", err)
	}
	return data, nil
}

// RestoreStreamParser rebuilds a parser from [StreamParser.Snapshot]
// output. The restored parser continues exactly where the original
// stopped, except that [StreamParser.LastContentDelta] starts empty.
func (encoding *Encoding) RestoreStreamParser(data []byte) (*StreamParser, error) {
	var snapshot parserSnapshot
	if err := codec.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decoding parser snapshot: %w", err)
	}
	state, err := parseParserState(snapshot.State)
	if err != nil {
		return nil, fmt.Errorf("decoding parser snapshot: %w", err)
	}
	parser, err := encoding.NewStreamParser("", WithValidChannels(snapshot.ValidChannels...))
	if err != nil {
		return nil, err
	}
	if snapshot.NextRole != "" {
		role, err := chat.ParseRole(snapshot.NextRole)
		if err != nil {
			return nil, &VocabularyError{Message: "parser snapshot", Err: err}
		}
		parser.nextRole = role
	}
	parser.state = state
	parser.headerTokens = snapshot.HeaderTokens
	parser.tokens = snapshot.Tokens
	parser.messages = snapshot.Messages
	parser.terminated = snapshot.Terminated
	if state == StateContent {
		if snapshot.Header == nil {
			return nil, errors.New("decoding parser snapshot: content state without a header")
		}
		parser.header = *snapshot.Header
		parser.contentTokens = snapshot.ContentTokens
		parser.content, err = encoding.DecodeBytes(snapshot.ContentTokens)
		if err != nil {
			return nil, fmt.Errorf("decoding parser snapshot: %w", err)
		}
		parser.emitted = len(completePrefix(parser.content))
	}
	return parser, nil
}
