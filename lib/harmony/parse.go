// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package harmony

import (
	"fmt"

	"github.com/bureau-foundation/harmony/lib/chat"
)

// ParseMessages parses a complete token sequence into messages. role,
// when non-empty, is the author of a first message whose <|start|>
// and role are not part of tokens, as in the continuation of
// [Encoding.RenderForCompletion] output. A body still open at the end
// of tokens is finished as if a stop token followed.
//
// ParseMessages is a [StreamParser] fed every token and then
// end-of-stream, so both always agree.
func (encoding *Encoding) ParseMessages(tokens []Rank, role chat.Role, options ...ParserOption) ([]chat.Message, error) {
	parser, err := encoding.NewStreamParser(role, options...)
	if err != nil {
		return nil, err
	}
	for _, token := range tokens {
		if err := parser.Process(token); err != nil {
			return nil, err
		}
	}
	if err := parser.ProcessEOS(); err != nil {
		return nil, err
	}
	return parser.Messages(), nil
}

// ParseMessagesFromText parses Harmony-formatted text, such as a
// transcript copied from logs. Every special token in text is taken as
// grammar.
func (encoding *Encoding) ParseMessagesFromText(text string, role chat.Role, options ...ParserOption) ([]chat.Message, error) {
	tokens, err := encoding.EncodeWithSpecialTokens(text)
	if err != nil {
		return nil, fmt.Errorf("encoding harmony text: %w", err)
	}
	return encoding.ParseMessages(tokens, role, options...)
}
