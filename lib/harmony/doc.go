// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package harmony converts conversations to and from Harmony token
// sequences.
//
// A rendered message follows one grammar:
//
//	<|start|>author[ to=recipient][<|channel|>channel][ content-type]<|message|>body<terminator>
//
// where the author is the role (or "role:name"; a tool author renders
// only its name), the content type may begin with the <|constrain|>
// special token, and the terminator is <|call|> for tool calls and
// <|end|> otherwise. Training renders replace the last terminator with
// <|return|> when the conversation ends on an assistant "final"
// message.
//
// An [Encoding] binds the grammar to a [Tokenizer] and owns everything
// derived from the vocabulary at construction: formatting token ids,
// stop token sets and the compiled special-token guard used by
// [Encoding.Encode]. It is immutable and safe for concurrent use.
//
// Rendering:
//
//	tokens, err := encoding.RenderForCompletion(conversation, chat.RoleAssistant, nil)
//
// Parsing a finished completion:
//
//	messages, err := encoding.ParseMessages(tokens, chat.RoleAssistant)
//
// Parsing live, one token at a time:
//
//	parser, err := encoding.NewStreamParser(chat.RoleAssistant)
//	for token := range generated {
//	    if err := parser.Process(token); err != nil {
//	        return err
//	    }
//	    fmt.Print(parser.LastContentDelta())
//	}
//	err = parser.ProcessEOS()
//
// A [StreamParser] is owned by one caller. It never surfaces a partial
// UTF-8 code point: bytes of an incomplete character are held until
// the character completes. Grammar violations poison the parser; the
// caller discards it and starts a new one.
//
// Errors carry one of four kinds ([KindVocabulary], [KindGrammar],
// [KindEncoding], [KindDecoding]); use [KindOf] or errors.As with the
// concrete types to branch on them.
package harmony
