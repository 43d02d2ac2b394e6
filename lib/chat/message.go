// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bureau-foundation/harmony/lib/codec"
)

// Message is one turn of a conversation. Recipient, Channel and
// ContentType are header fields; the empty string means absent.
type Message struct {
	Author      Author
	Recipient   string
	Content     []Content
	Channel     string
	ContentType string
}

// NewMessage returns a message from role with the given content parts.
func NewMessage(role Role, content ...Content) Message {
	return Message{Author: Author{Role: role}, Content: content}
}

// TextMessage returns a message from role with a single text part.
func TextMessage(role Role, text string) Message {
	return NewMessage(role, Text(text))
}

// WithName returns a copy with the author name set.
func (message Message) WithName(name string) Message {
	message.Author.Name = name
	return message
}

// WithChannel returns a copy with the channel set.
func (message Message) WithChannel(channel string) Message {
	message.Channel = channel
	return message
}

// WithRecipient returns a copy with the recipient set.
func (message Message) WithRecipient(recipient string) Message {
	message.Recipient = recipient
	return message
}

// WithContentType returns a copy with the content type set.
func (message Message) WithContentType(contentType string) Message {
	message.ContentType = contentType
	return message
}

// Validate checks structural invariants: a known role, at least one
// content part, and system or developer parts only in messages of the
// matching role.
func (message Message) Validate() error {
	if !message.Author.Role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, string(message.Author.Role))
	}
	if len(message.Content) == 0 {
		return errors.New("message has no content")
	}
	for _, content := range message.Content {
		switch content.Type {
		case ContentSystem:
			if message.Author.Role != RoleSystem {
				return fmt.Errorf("system content may only appear in system messages, found in %s", message.Author.Role)
			}
		case ContentDeveloper:
			if message.Author.Role != RoleDeveloper {
				return fmt.Errorf("developer content may only appear in developer messages, found in %s", message.Author.Role)
			}
		case ContentText:
		default:
			return fmt.Errorf("unknown content type %q", content.Type)
		}
	}
	return nil
}

// TextContent concatenates the text parts of the message.
func (message Message) TextContent() string {
	var buffer bytes.Buffer
	for _, content := range message.Content {
		if content.Type == ContentText {
			buffer.WriteString(content.Text)
		}
	}
	return buffer.String()
}

// messageRecord is the JSON shape: author fields flattened beside the
// header fields, content kept raw so the string shorthand can be
// detected.
type messageRecord struct {
	Role        Role            `json:"role"`
	Name        string          `json:"name,omitempty"`
	Recipient   string          `json:"recipient,omitempty"`
	Content     json.RawMessage `json:"content"`
	Channel     string          `json:"channel,omitempty"`
	ContentType string          `json:"content_type,omitempty"`
}

// MarshalJSON writes a message whose only part is text with the content
// as a bare string.
func (message Message) MarshalJSON() ([]byte, error) {
	var content []byte
	var err error
	if len(message.Content) == 1 && message.Content[0].Type == ContentText {
		content, err = json.Marshal(message.Content[0].Text)
	} else {
		parts := message.Content
		if parts == nil {
			parts = []Content{}
		}
		content, err = json.Marshal(parts)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageRecord{
		Role:        message.Author.Role,
		Name:        message.Author.Name,
		Recipient:   message.Recipient,
		Content:     content,
		Channel:     message.Channel,
		ContentType: message.ContentType,
	})
}

// UnmarshalJSON accepts content either as a list of parts or as a bare
// string.
func (message *Message) UnmarshalJSON(data []byte) error {
	var record messageRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}
	if record.Role == "" {
		return fmt.Errorf("%w: message has no role", ErrUnknownRole)
	}
	content, err := decodeContentJSON(record.Content)
	if err != nil {
		return err
	}
	*message = Message{
		Author:      Author{Role: record.Role, Name: record.Name},
		Recipient:   record.Recipient,
		Content:     content,
		Channel:     record.Channel,
		ContentType: record.ContentType,
	}
	return nil
}

func decodeContentJSON(raw json.RawMessage) ([]Content, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errors.New("message has no content")
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, err
		}
		return []Content{Text(text)}, nil
	}
	var parts []Content
	if err := json.Unmarshal(trimmed, &parts); err != nil {
		return nil, fmt.Errorf("decoding message content: %w", err)
	}
	return parts, nil
}

// messageCBOR is the CBOR shape. Content is always a list; the string
// shorthand exists only for hand-written JSON.
type messageCBOR struct {
	Role        Role      `json:"role"`
	Name        string    `json:"name,omitempty"`
	Recipient   string    `json:"recipient,omitempty"`
	Content     []Content `json:"content"`
	Channel     string    `json:"channel,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
}

// MarshalCBOR implements cbor.Marshaler.
func (message Message) MarshalCBOR() ([]byte, error) {
	return codec.Marshal(messageCBOR{
		Role:        message.Author.Role,
		Name:        message.Author.Name,
		Recipient:   message.Recipient,
		Content:     message.Content,
		Channel:     message.Channel,
		ContentType: message.ContentType,
	})
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (message *Message) UnmarshalCBOR(data []byte) error {
	var record messageCBOR
	if err := codec.Unmarshal(data, &record); err != nil {
		return err
	}
	if record.Role == "" {
		return fmt.Errorf("%w: message has no role", ErrUnknownRole)
	}
	*message = Message{
		Author:      Author{Role: record.Role, Name: record.Name},
		Recipient:   record.Recipient,
		Content:     record.Content,
		Channel:     record.Channel,
		ContentType: record.ContentType,
	}
	return nil
}

// Conversation is an ordered list of messages.
type Conversation struct {
	Messages []Message `json:"messages"`
}

// NewConversation returns a conversation over messages.
func NewConversation(messages ...Message) Conversation {
	return Conversation{Messages: messages}
}

// Validate checks every message.
func (conversation Conversation) Validate() error {
	for index, message := range conversation.Messages {
		if err := message.Validate(); err != nil {
			return fmt.Errorf("message %d: %w", index, err)
		}
	}
	return nil
}

// HasFunctionTools reports whether any developer content part declares
// a non-empty "functions" namespace.
func (conversation Conversation) HasFunctionTools() bool {
	for _, message := range conversation.Messages {
		for _, content := range message.Content {
			if content.Type != ContentDeveloper || content.Developer == nil {
				continue
			}
			if namespace, ok := content.Developer.Tools[FunctionsNamespace]; ok && len(namespace.Tools) > 0 {
				return true
			}
		}
	}
	return false
}
