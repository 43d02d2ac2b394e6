// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package harmony

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bureau-foundation/harmony/lib/chat"
)

// MessageClass says what a parsed message is for, as far as a client
// displaying it is concerned.
type MessageClass int

const (
	// ClassRegular is anything not covered by another class: user,
	// system, developer and tool messages, and assistant messages on
	// unrecognized channels.
	ClassRegular MessageClass = iota

	// ClassThinking is assistant reasoning on the analysis channel.
	ClassThinking

	// ClassToolCall is an assistant message addressed to a tool.
	ClassToolCall

	// ClassResponse is an assistant answer on the final channel.
	ClassResponse
)

func (class MessageClass) String() string {
	switch class {
	case ClassRegular:
		return "regular"
	case ClassThinking:
		return "thinking"
	case ClassToolCall:
		return "tool_call"
	case ClassResponse:
		return "response"
	}
	return fmt.Sprintf("MessageClass(%d)", int(class))
}

// Classify sorts an assistant message by channel and recipient. A
// message addressed to a tool is a tool call whatever its channel.
func Classify(message chat.Message) MessageClass {
	if message.Author.Role != chat.RoleAssistant {
		return ClassRegular
	}
	if isToolCall(message) {
		return ClassToolCall
	}
	switch message.Channel {
	case ChannelAnalysis:
		return ClassThinking
	case ChannelFinal:
		return ClassResponse
	}
	return ClassRegular
}

// ErrUnknownTool is returned by [ValidateToolCall] when the recipient
// names no tool declared in the conversation.
var ErrUnknownTool = errors.New("unknown tool")

// LookupTool finds the tool a recipient such as "functions.get_weather"
// names, searching the system and developer messages of conversation.
// A namespace that declares no individual tools (such as python)
// matches any recipient within it with a zero ToolDescription.
func LookupTool(conversation chat.Conversation, recipient string) (chat.ToolDescription, error) {
	namespaceName, toolName, _ := strings.Cut(recipient, ".")
	for _, message := range conversation.Messages {
		for _, content := range message.Content {
			var tools map[string]chat.ToolNamespaceConfig
			switch {
			case content.System != nil:
				tools = content.System.Tools
			case content.Developer != nil:
				tools = content.Developer.Tools
			}
			namespace, ok := tools[namespaceName]
			if !ok {
				continue
			}
			if len(namespace.Tools) == 0 {
				return chat.ToolDescription{}, nil
			}
			if tool, ok := namespace.Tool(toolName); ok {
				return tool, nil
			}
		}
	}
	return chat.ToolDescription{}, fmt.Errorf("%w: %q", ErrUnknownTool, recipient)
}

// ValidateToolCall checks a tool call against the declaration of the
// tool it addresses. The message body must satisfy the tool's
// parameter schema; tools declared without a schema, and namespaces
// without individual tools, accept any body.
func ValidateToolCall(conversation chat.Conversation, message chat.Message) error {
	if Classify(message) != ClassToolCall {
		return fmt.Errorf("%s message on channel %q is not a tool call", message.Author.Role, message.Channel)
	}
	tool, err := LookupTool(conversation, message.Recipient)
	if err != nil {
		return err
	}
	if !tool.HasParameters() {
		return nil
	}
	return tool.ValidateArguments([]byte(message.TextContent()))
}
