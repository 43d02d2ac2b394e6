// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tokenstream

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/bureau-foundation/harmony/lib/tokenizer"
)

// doneMarker ends an SSE token stream.
const doneMarker = "[DONE]"

// Scanner reads token ids from an [io.Reader].
//
// Usage:
//
//	scanner := tokenstream.NewScanner(reader)
//	for scanner.Next() {
//	    parser.Process(scanner.Token())
//	}
//	if err := scanner.Err(); err != nil {
//	    // handle error
//	}
type Scanner struct {
	reader  *bufio.Reader
	started bool
	pending []tokenizer.Rank
	current tokenizer.Rank
	line    int
	done    bool
	err     error
}

// NewScanner creates a scanner that reads token ids from reader.
func NewScanner(reader io.Reader) *Scanner {
	return &Scanner{
		reader: bufio.NewReaderSize(reader, 64*1024),
	}
}

// Next advances to the next token. It returns false when the input
// ends or an error occurs; call [Scanner.Err] to tell them apart.
func (scanner *Scanner) Next() bool {
	for len(scanner.pending) == 0 {
		if scanner.done || scanner.err != nil {
			return false
		}
		if !scanner.started {
			scanner.started = true
			if scanner.readWholeArray() {
				continue
			}
		}
		scanner.readLine()
	}
	scanner.current = scanner.pending[0]
	scanner.pending = scanner.pending[1:]
	return true
}

// Token returns the most recently scanned token. Only valid after
// [Scanner.Next] returns true.
func (scanner *Scanner) Token() tokenizer.Rank {
	return scanner.current
}

// Err returns the first error encountered. It is nil when scanning
// ended at a clean end of input or an SSE done marker.
func (scanner *Scanner) Err() error {
	if errors.Is(scanner.err, io.EOF) {
		return nil
	}
	return scanner.err
}

// ReadAll drains the scanner into a slice.
func ReadAll(reader io.Reader) ([]tokenizer.Rank, error) {
	scanner := NewScanner(reader)
	var tokens []tokenizer.Rank
	for scanner.Next() {
		tokens = append(tokens, scanner.Token())
	}
	return tokens, scanner.Err()
}

// readWholeArray handles input that is one JSON array, possibly
// pretty-printed across lines. It reports whether it consumed the
// input.
func (scanner *Scanner) readWholeArray() bool {
	for {
		peeked, err := scanner.reader.Peek(1)
		if err != nil {
			return false
		}
		if peeked[0] == '[' {
			break
		}
		if !isSpace(peeked[0]) {
			return false
		}
		scanner.reader.ReadByte()
	}

	data, err := io.ReadAll(scanner.reader)
	if err != nil {
		scanner.err = err
		return true
	}
	if !gjson.ValidBytes(data) {
		// Several arrays on separate lines; fall back to line mode.
		scanner.reader = bufio.NewReader(strings.NewReader(string(data)))
		return false
	}
	scanner.pending, scanner.err = tokensFromJSON(gjson.ParseBytes(data))
	if scanner.err == nil {
		scanner.err = io.EOF
	}
	return true
}

// readLine consumes one line and appends the tokens it carries.
func (scanner *Scanner) readLine() {
	line, err := scanner.reader.ReadString('\n')
	if err != nil && line == "" {
		scanner.err = err
		return
	}
	scanner.line++
	if err != nil {
		// A final line without a newline; report EOF after it.
		scanner.err = err
	}

	line = strings.TrimRight(line, "\r\n")
	payload := strings.TrimSpace(line)
	if payload == "" || strings.HasPrefix(payload, ":") {
		return
	}

	if field, value, ok := strings.Cut(payload, ":"); ok && isSSEField(field) {
		if field != "data" {
			return
		}
		payload = strings.TrimSpace(value)
		if payload == doneMarker {
			scanner.done = true
			return
		}
	}

	tokens, parseErr := parsePayload(payload)
	if parseErr != nil {
		scanner.err = fmt.Errorf("line %d: %w", scanner.line, parseErr)
		return
	}
	scanner.pending = append(scanner.pending, tokens...)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

func isSSEField(field string) bool {
	switch field {
	case "data", "event", "id", "retry":
		return true
	}
	return false
}

// parsePayload reads one line or SSE data payload.
func parsePayload(payload string) ([]tokenizer.Rank, error) {
	if strings.HasPrefix(payload, "[") || strings.HasPrefix(payload, "{") {
		if !gjson.Valid(payload) {
			return nil, fmt.Errorf("invalid JSON %q", payload)
		}
		return tokensFromJSON(gjson.Parse(payload))
	}

	fields := strings.FieldsFunc(payload, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	tokens := make([]tokenizer.Rank, 0, len(fields))
	for _, field := range fields {
		token, err := parseToken(field)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// tokensFromJSON extracts token ids from an array, a bare number, or
// an object with a "token" or "tokens" member.
func tokensFromJSON(value gjson.Result) ([]tokenizer.Rank, error) {
	switch {
	case value.IsArray():
		var tokens []tokenizer.Rank
		var err error
		value.ForEach(func(_, element gjson.Result) bool {
			var token tokenizer.Rank
			token, err = tokenFromNumber(element)
			if err != nil {
				return false
			}
			tokens = append(tokens, token)
			return true
		})
		return tokens, err
	case value.IsObject():
		if tokens := value.Get("tokens"); tokens.Exists() {
			if !tokens.IsArray() {
				return nil, fmt.Errorf("\"tokens\" is %s, want an array", tokens.Type)
			}
			return tokensFromJSON(tokens)
		}
		if token := value.Get("token"); token.Exists() {
			single, err := tokenFromNumber(token)
			if err != nil {
				return nil, err
			}
			return []tokenizer.Rank{single}, nil
		}
		return nil, fmt.Errorf("object has neither \"token\" nor \"tokens\": %s", value.Raw)
	default:
		token, err := tokenFromNumber(value)
		if err != nil {
			return nil, err
		}
		return []tokenizer.Rank{token}, nil
	}
}

func tokenFromNumber(value gjson.Result) (tokenizer.Rank, error) {
	if value.Type != gjson.Number {
		return 0, fmt.Errorf("token %s is not a number", value.Raw)
	}
	return parseToken(value.Raw)
}

func parseToken(text string) (tokenizer.Rank, error) {
	token, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid token id %q", text)
	}
	return tokenizer.Rank(token), nil
}
