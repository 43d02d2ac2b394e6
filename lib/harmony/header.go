// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package harmony

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/bureau-foundation/harmony/lib/chat"
)

// Header is the parsed header of one message: everything between
// <|start|> and <|message|>.
type Header struct {
	Author      chat.Author `json:"author"`
	Recipient   string      `json:"recipient,omitempty"`
	Channel     string      `json:"channel,omitempty"`
	ContentType string      `json:"content_type,omitempty"`
}

// message builds a finished message from the header and body text.
func (header Header) message(text string) chat.Message {
	return chat.Message{
		Author:      header.Author,
		Recipient:   header.Recipient,
		Channel:     header.Channel,
		ContentType: header.ContentType,
		Content:     []chat.Content{chat.Text(text)},
	}
}

// parseHeader parses decoded header tokens. role, when non-empty, is
// the author role implied by the caller rather than written in the
// header.
//
// The header grammar is loose about spacing: the channel is cut out
// first (it runs from <|channel|> to the next whitespace or '<'), and
// <|constrain|> is split from whatever precedes it, so
// "to=x<|channel|>commentary<|constrain|>json" and
// "to=x <|channel|>commentary <|constrain|>json" parse alike.
func (encoding *Encoding) parseHeader(text string, role chat.Role) (Header, error) {
	var header Header

	// trailing records that words follow the channel value; a lone
	// word there is a content type, never a recipient.
	trailing := false
	if marker, ok := encoding.FormattingTokenText(TokenChannel); ok {
		if index := strings.Index(text, marker); index >= 0 {
			after := text[index+len(marker):]
			end := strings.IndexFunc(after, func(r rune) bool {
				return unicode.IsSpace(r) || r == '<'
			})
			if end < 0 {
				end = len(after)
			}
			if end == 0 {
				return Header{}, grammarError(-1, "channel marker present but no channel value found in header %q", text)
			}
			header.Channel = after[:end]
			trailing = strings.TrimSpace(after[end:]) != ""
			text = text[:index] + after[end:]
		}
	}
	text = strings.TrimSpace(text)

	constrain, _ := encoding.FormattingTokenText(TokenConstrain)
	if constrain != "" && strings.Contains(text, constrain) {
		text = strings.TrimSpace(strings.ReplaceAll(text, constrain, " "+constrain))
	}

	parts := strings.Fields(text)

	var authorWord string
	if role == "" {
		if len(parts) == 0 {
			return Header{}, grammarError(-1, "message header did not contain a role")
		}
		authorWord = parts[0]
		parsed, name, known := splitAuthor(authorWord)
		switch {
		case known:
			role = parsed
			header.Author.Name = name
			parts = parts[1:]
		case strings.Contains(authorWord, ":") && !strings.HasPrefix(authorWord, "to="):
			// "role:name" with a role outside the vocabulary.
			return Header{}, &VocabularyError{Message: fmt.Sprintf("message header author %q", authorWord), Err: ErrUnknownRole}
		case strings.HasPrefix(authorWord, "to="):
			// A tool message with no author name.
			role = chat.RoleTool
		case len(parts) > 1:
			// An unknown word followed by more header names a tool.
			role = chat.RoleTool
			header.Author.Name = authorWord
			parts = parts[1:]
		default:
			return Header{}, &VocabularyError{Message: fmt.Sprintf("message header author %q", authorWord), Err: ErrUnknownRole}
		}
	} else if len(parts) > 0 {
		parsed, name, known := splitAuthor(parts[0])
		switch {
		case known && parsed == role:
			header.Author.Name = name
			parts = parts[1:]
		case role == chat.RoleTool && !known && !strings.HasPrefix(parts[0], "to=") && len(parts) > 1:
			header.Author.Name = parts[0]
			parts = parts[1:]
		}
	}
	header.Author.Role = role

	if len(parts) > 0 {
		count := len(parts)
		last := parts[count-1]
		parts = parts[:count-1]
		switch {
		case strings.HasPrefix(last, "to="):
			header.Recipient = strings.TrimPrefix(last, "to=")
		case count == 1 && (trailing || (constrain != "" && strings.HasPrefix(last, constrain))):
			header.ContentType = last
		case count == 1:
			header.Recipient = last
		default:
			header.ContentType = last
			recipient := parts[len(parts)-1]
			parts = parts[:len(parts)-1]
			header.Recipient = strings.TrimPrefix(recipient, "to=")
		}
	}
	if len(parts) > 0 {
		return Header{}, grammarError(-1, "unexpected words remaining in message header: %s", strings.Join(parts, " "))
	}
	return header, nil
}

// splitAuthor parses "role" or "role:name". known is false when the
// role part is not a known role.
func splitAuthor(word string) (role chat.Role, name string, known bool) {
	roleText, name, _ := strings.Cut(word, ":")
	parsed, err := chat.ParseRole(roleText)
	if err != nil {
		return "", "", false
	}
	return parsed, name, true
}
