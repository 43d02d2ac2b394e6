// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package harmony

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/harmony/lib/chat"
)

// Conventional channel names.
const (
	ChannelAnalysis   = "analysis"
	ChannelCommentary = "commentary"
	ChannelFinal      = "final"
)

// RecipientAll addresses every participant. It is never rendered.
const RecipientAll = "all"

// RenderConfig controls conversation rendering. A nil *RenderConfig
// means [DefaultRenderConfig].
type RenderConfig struct {
	// AutoDropAnalysis drops analysis messages of turns that already
	// reached a final answer when rendering for completion. Replay and
	// training renders never drop anything.
	AutoDropAnalysis bool

	// ValidChannels, when non-empty, rejects messages whose channel is
	// not listed.
	ValidChannels []string
}

// DefaultRenderConfig returns the configuration used for a nil
// *RenderConfig: analysis pruning on, no channel whitelist.
func DefaultRenderConfig() *RenderConfig {
	return &RenderConfig{AutoDropAnalysis: true}
}

func resolveRenderConfig(config *RenderConfig) *RenderConfig {
	if config == nil {
		return DefaultRenderConfig()
	}
	return config
}

// RenderMessage renders one message.
func (encoding *Encoding) RenderMessage(message chat.Message) ([]Rank, error) {
	renderer := encoding.newRenderer(false, nil)
	if err := renderer.message(message); err != nil {
		return nil, err
	}
	return renderer.tokens, nil
}

// RenderConversation renders every message in order. Nothing is pruned:
// replay reproduces the transcript.
func (encoding *Encoding) RenderConversation(conversation chat.Conversation, config *RenderConfig) ([]Rank, error) {
	config = resolveRenderConfig(config)
	return encoding.renderMessages(conversation, nil, config)
}

// RenderForCompletion renders the conversation followed by an open
// header for nextRole, ready for a model to continue. With
// AutoDropAnalysis, analysis messages of completed turns are left out.
func (encoding *Encoding) RenderForCompletion(conversation chat.Conversation, nextRole chat.Role, config *RenderConfig) ([]Rank, error) {
	config = resolveRenderConfig(config)
	if !nextRole.Valid() {
		return nil, &VocabularyError{Err: fmt.Errorf("%w: %q", ErrUnknownRole, string(nextRole))}
	}
	var dropped []bool
	if config.AutoDropAnalysis {
		dropped = prunedAnalysis(conversation.Messages)
	}
	tokens, err := encoding.renderMessages(conversation, dropped, config)
	if err != nil {
		return nil, err
	}
	renderer := encoding.newRenderer(false, nil)
	renderer.tokens = tokens
	if err := renderer.formatting(TokenStart); err != nil {
		return nil, err
	}
	if err := renderer.text(string(nextRole)); err != nil {
		return nil, err
	}
	return renderer.tokens, nil
}

// RenderForTraining renders the conversation as replay does, then, if
// the last message is an assistant message on the final channel,
// replaces its terminator with <|return|>.
func (encoding *Encoding) RenderForTraining(conversation chat.Conversation, config *RenderConfig) ([]Rank, error) {
	config = resolveRenderConfig(config)
	tokens, err := encoding.renderMessages(conversation, nil, config)
	if err != nil {
		return nil, err
	}
	messages := conversation.Messages
	if len(messages) == 0 || len(tokens) == 0 {
		return tokens, nil
	}
	last := messages[len(messages)-1]
	if last.Author.Role == chat.RoleAssistant && last.Channel == ChannelFinal {
		returnID, err := encoding.formattingID(TokenReturn)
		if err != nil {
			return nil, err
		}
		tokens[len(tokens)-1] = returnID
	}
	return tokens, nil
}

func (encoding *Encoding) renderMessages(conversation chat.Conversation, dropped []bool, config *RenderConfig) ([]Rank, error) {
	renderer := encoding.newRenderer(conversation.HasFunctionTools(), config.ValidChannels)
	for index, message := range conversation.Messages {
		if dropped != nil && dropped[index] {
			continue
		}
		if err := renderer.message(message); err != nil {
			return nil, fmt.Errorf("message %d: %w", index, err)
		}
	}
	return renderer.tokens, nil
}

type renderer struct {
	encoding      *Encoding
	tokens        []Rank
	functionTools bool
	validChannels map[string]bool
}

func (encoding *Encoding) newRenderer(functionTools bool, validChannels []string) *renderer {
	renderer := &renderer{encoding: encoding, functionTools: functionTools}
	if len(validChannels) > 0 {
		renderer.validChannels = make(map[string]bool, len(validChannels))
		for _, channel := range validChannels {
			renderer.validChannels[channel] = true
		}
	}
	return renderer
}

func (renderer *renderer) formatting(token FormattingToken) error {
	id, err := renderer.encoding.formattingID(token)
	if err != nil {
		return err
	}
	renderer.tokens = append(renderer.tokens, id)
	return nil
}

// text appends ordinary text. Special-token text inside it is encoded
// byte by byte, never as a grammar token.
func (renderer *renderer) text(text string) error {
	if text == "" {
		return nil
	}
	tokens, err := renderer.encoding.EncodeOrdinary(text)
	if err != nil {
		return err
	}
	renderer.tokens = append(renderer.tokens, tokens...)
	return nil
}

func (renderer *renderer) message(message chat.Message) error {
	role := message.Author.Role
	if !role.Valid() {
		return &VocabularyError{Err: fmt.Errorf("%w: %q", ErrUnknownRole, string(role))}
	}
	if len(message.Content) == 0 {
		return grammarError(-1, "%s message has no content", role)
	}
	if message.Channel != "" && renderer.validChannels != nil && !renderer.validChannels[message.Channel] {
		return grammarError(-1, "channel %q is not one of the valid channels", message.Channel)
	}

	if err := renderer.formatting(TokenStart); err != nil {
		return err
	}
	if role == chat.RoleTool {
		if message.Author.Name == "" {
			return grammarError(-1, "tool messages must have an author name")
		}
		if err := renderer.text(message.Author.Name); err != nil {
			return err
		}
	} else {
		author := string(role)
		if message.Author.Name != "" {
			author += ":" + message.Author.Name
		}
		if err := renderer.text(author); err != nil {
			return err
		}
	}

	if message.Recipient != "" && message.Recipient != RecipientAll {
		if err := renderer.text(" to=" + message.Recipient); err != nil {
			return err
		}
	}
	if message.Channel != "" {
		if err := renderer.formatting(TokenChannel); err != nil {
			return err
		}
		if err := renderer.text(message.Channel); err != nil {
			return err
		}
	}
	if err := renderer.contentType(message.ContentType); err != nil {
		return err
	}

	if err := renderer.formatting(TokenMessage); err != nil {
		return err
	}
	for _, content := range message.Content {
		if err := renderer.content(role, content); err != nil {
			return err
		}
	}

	if isToolCall(message) {
		return renderer.formatting(TokenCall)
	}
	return renderer.formatting(TokenEndMessage)
}

// contentType renders " <content-type>". A type starting with the
// constrain marker renders the marker as its special token and the
// rest as text.
func (renderer *renderer) contentType(contentType string) error {
	if contentType == "" {
		return nil
	}
	marker, mapped := renderer.encoding.FormattingTokenText(TokenConstrain)
	if mapped && strings.HasPrefix(contentType, marker) {
		if err := renderer.text(" "); err != nil {
			return err
		}
		if err := renderer.formatting(TokenConstrain); err != nil {
			return err
		}
		return renderer.text(contentType[len(marker):])
	}
	return renderer.text(" " + contentType)
}

func (renderer *renderer) content(role chat.Role, content chat.Content) error {
	switch content.Type {
	case chat.ContentText:
		return renderer.text(content.Text)
	case chat.ContentSystem:
		if role != chat.RoleSystem {
			return grammarError(-1, "system content may only appear in system messages, found in %s", role)
		}
		if content.System == nil {
			return grammarError(-1, "system content part is empty")
		}
		text, err := SystemPrompt(*content.System, renderer.functionTools)
		if err != nil {
			return err
		}
		return renderer.text(text)
	case chat.ContentDeveloper:
		if role != chat.RoleDeveloper {
			return grammarError(-1, "developer content may only appear in developer messages, found in %s", role)
		}
		if content.Developer == nil {
			return grammarError(-1, "developer content part is empty")
		}
		text, err := DeveloperPrompt(*content.Developer)
		if err != nil {
			return err
		}
		return renderer.text(text)
	}
	return &VocabularyError{Message: fmt.Sprintf("unknown content type %q", content.Type)}
}

// isToolCall reports whether a message ends with <|call|>: an assistant
// message addressed to a recipient, or any message with a content type.
func isToolCall(message chat.Message) bool {
	if message.ContentType != "" {
		return true
	}
	return message.Author.Role == chat.RoleAssistant &&
		message.Recipient != "" && message.Recipient != RecipientAll
}
