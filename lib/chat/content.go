// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bureau-foundation/harmony/lib/codec"
)

// ContentType discriminates the variants of [Content].
type ContentType string

const (
	ContentText      ContentType = "text"
	ContentSystem    ContentType = "system_content"
	ContentDeveloper ContentType = "developer_content"
)

// Content is one part of a message body. Exactly one variant is
// populated, selected by Type: Text for [ContentText], System for
// [ContentSystem], Developer for [ContentDeveloper].
type Content struct {
	Type      ContentType
	Text      string
	System    *SystemContent
	Developer *DeveloperContent
}

// Text returns a text content part.
func Text(text string) Content {
	return Content{Type: ContentText, Text: text}
}

// System returns a content part carrying system configuration.
func System(system SystemContent) Content {
	return Content{Type: ContentSystem, System: &system}
}

// Developer returns a content part carrying developer instructions.
func Developer(developer DeveloperContent) Content {
	return Content{Type: ContentDeveloper, Developer: &developer}
}

// ReasoningEffort is the reasoning level advertised in the system
// message. The serialized form is capitalized ("Low", "Medium",
// "High"); the prompt form is lowercase.
type ReasoningEffort string

const (
	ReasoningLow    ReasoningEffort = "Low"
	ReasoningMedium ReasoningEffort = "Medium"
	ReasoningHigh   ReasoningEffort = "High"
)

// ParseReasoningEffort accepts either capitalization.
func ParseReasoningEffort(value string) (ReasoningEffort, error) {
	switch strings.ToLower(value) {
	case "low":
		return ReasoningLow, nil
	case "medium":
		return ReasoningMedium, nil
	case "high":
		return ReasoningHigh, nil
	}
	return "", fmt.Errorf("unknown reasoning effort %q", value)
}

// PromptString is the lowercase form rendered into the system message.
func (effort ReasoningEffort) PromptString() string {
	return strings.ToLower(string(effort))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (effort *ReasoningEffort) UnmarshalText(text []byte) error {
	parsed, err := ParseReasoningEffort(string(text))
	if err != nil {
		return err
	}
	*effort = parsed
	return nil
}

// ChannelConfig is the channel policy advertised in the system message.
type ChannelConfig struct {
	ValidChannels   []string `json:"valid_channels"`
	ChannelRequired bool     `json:"channel_required"`
}

// RequireChannels returns a policy that lists channels and requires
// every assistant message to name one.
func RequireChannels(channels ...string) ChannelConfig {
	return ChannelConfig{ValidChannels: channels, ChannelRequired: true}
}

// SystemContent configures the model for a conversation. Empty string
// fields and nil pointers are absent and not rendered.
type SystemContent struct {
	ModelIdentity         string                         `json:"model_identity,omitempty"`
	ReasoningEffort       ReasoningEffort                `json:"reasoning_effort,omitempty"`
	Tools                 map[string]ToolNamespaceConfig `json:"tools,omitempty"`
	ConversationStartDate string                         `json:"conversation_start_date,omitempty"`
	KnowledgeCutoff       string                         `json:"knowledge_cutoff,omitempty"`
	ChannelConfig         *ChannelConfig                 `json:"channel_config,omitempty"`
}

// DefaultModelIdentity is the identity line of [DefaultSystemContent].
const DefaultModelIdentity = "You are ChatGPT, a large language model trained by OpenAI."

// DefaultKnowledgeCutoff is the knowledge cutoff of [DefaultSystemContent].
const DefaultKnowledgeCutoff = "2024-06"

// DefaultSystemContent returns the system configuration used when a
// caller does not supply one: the stock identity, medium reasoning, a
// 2024-06 knowledge cutoff, and required analysis, commentary and final
// channels.
func DefaultSystemContent() SystemContent {
	config := RequireChannels("analysis", "commentary", "final")
	return SystemContent{
		ModelIdentity:   DefaultModelIdentity,
		ReasoningEffort: ReasoningMedium,
		KnowledgeCutoff: DefaultKnowledgeCutoff,
		ChannelConfig:   &config,
	}
}

// WithTools returns a copy with namespace added to the tool catalog.
func (system SystemContent) WithTools(namespace ToolNamespaceConfig) SystemContent {
	system.Tools = withNamespace(system.Tools, namespace)
	return system
}

// WithBrowserTool adds the built-in browser namespace.
func (system SystemContent) WithBrowserTool() SystemContent {
	return system.WithTools(BrowserTool())
}

// WithPythonTool adds the built-in python namespace.
func (system SystemContent) WithPythonTool() SystemContent {
	return system.WithTools(PythonTool())
}

// DeveloperContent carries developer instructions and function tools.
type DeveloperContent struct {
	Instructions string                         `json:"instructions,omitempty"`
	Tools        map[string]ToolNamespaceConfig `json:"tools,omitempty"`
}

// WithFunctionTools returns a copy with tools registered under the
// "functions" namespace.
func (developer DeveloperContent) WithFunctionTools(tools ...ToolDescription) DeveloperContent {
	developer.Tools = withNamespace(developer.Tools, ToolNamespaceConfig{Name: FunctionsNamespace, Tools: tools})
	return developer
}

func withNamespace(tools map[string]ToolNamespaceConfig, namespace ToolNamespaceConfig) map[string]ToolNamespaceConfig {
	copied := make(map[string]ToolNamespaceConfig, len(tools)+1)
	for name, existing := range tools {
		copied[name] = existing
	}
	copied[namespace.Name] = namespace
	return copied
}

// contentRecord is the serialized shape shared by every content
// variant. Fields irrelevant to a variant stay empty and are omitted.
type contentRecord struct {
	Type                  ContentType                    `json:"type"`
	Text                  *string                        `json:"text,omitempty"`
	ModelIdentity         string                         `json:"model_identity,omitempty"`
	ReasoningEffort       ReasoningEffort                `json:"reasoning_effort,omitempty"`
	ConversationStartDate string                         `json:"conversation_start_date,omitempty"`
	KnowledgeCutoff       string                         `json:"knowledge_cutoff,omitempty"`
	ChannelConfig         *ChannelConfig                 `json:"channel_config,omitempty"`
	Instructions          string                         `json:"instructions,omitempty"`
	Tools                 map[string]ToolNamespaceConfig `json:"tools,omitempty"`
}

func (content Content) record() (contentRecord, error) {
	switch content.Type {
	case ContentText:
		text := content.Text
		return contentRecord{Type: ContentText, Text: &text}, nil
	case ContentSystem:
		if content.System == nil {
			return contentRecord{}, fmt.Errorf("system_content part has no system configuration")
		}
		system := content.System
		return contentRecord{
			Type:                  ContentSystem,
			ModelIdentity:         system.ModelIdentity,
			ReasoningEffort:       system.ReasoningEffort,
			ConversationStartDate: system.ConversationStartDate,
			KnowledgeCutoff:       system.KnowledgeCutoff,
			ChannelConfig:         system.ChannelConfig,
			Tools:                 system.Tools,
		}, nil
	case ContentDeveloper:
		if content.Developer == nil {
			return contentRecord{}, fmt.Errorf("developer_content part has no developer configuration")
		}
		return contentRecord{
			Type:         ContentDeveloper,
			Instructions: content.Developer.Instructions,
			Tools:        content.Developer.Tools,
		}, nil
	}
	return contentRecord{}, fmt.Errorf("unknown content type %q", content.Type)
}

func (record contentRecord) content() (Content, error) {
	switch record.Type {
	case ContentText:
		if record.Text == nil {
			return Content{}, fmt.Errorf("text content missing \"text\" field")
		}
		return Text(*record.Text), nil
	case ContentSystem:
		return System(SystemContent{
			ModelIdentity:         record.ModelIdentity,
			ReasoningEffort:       record.ReasoningEffort,
			Tools:                 record.Tools,
			ConversationStartDate: record.ConversationStartDate,
			KnowledgeCutoff:       record.KnowledgeCutoff,
			ChannelConfig:         record.ChannelConfig,
		}), nil
	case ContentDeveloper:
		return Developer(DeveloperContent{
			Instructions: record.Instructions,
			Tools:        record.Tools,
		}), nil
	}
	return Content{}, fmt.Errorf("unknown content type %q", record.Type)
}

// MarshalJSON implements json.Marshaler.
func (content Content) MarshalJSON() ([]byte, error) {
	record, err := content.record()
	if err != nil {
		return nil, err
	}
	return json.Marshal(record)
}

// UnmarshalJSON implements json.Unmarshaler.
func (content *Content) UnmarshalJSON(data []byte) error {
	var record contentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return err
	}
	decoded, err := record.content()
	if err != nil {
		return err
	}
	*content = decoded
	return nil
}

// MarshalCBOR implements cbor.Marshaler.
func (content Content) MarshalCBOR() ([]byte, error) {
	record, err := content.record()
	if err != nil {
		return nil, err
	}
	return codec.Marshal(record)
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (content *Content) UnmarshalCBOR(data []byte) error {
	var record contentRecord
	if err := codec.Unmarshal(data, &record); err != nil {
		return err
	}
	decoded, err := record.content()
	if err != nil {
		return err
	}
	*content = decoded
	return nil
}
