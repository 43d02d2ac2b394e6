// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/harmony/lib/codec"
)

// Format identifies the file format of a serialized conversation.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONC Format = "jsonc"
	FormatYAML  Format = "yaml"
	FormatCBOR  Format = "cbor"
)

// ParseFormat accepts a format name as used on the command line.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json":
		return FormatJSON, nil
	case "jsonc":
		return FormatJSONC, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "cbor":
		return FormatCBOR, nil
	}
	return "", fmt.Errorf("unknown conversation format %q (expected json, jsonc, yaml or cbor)", name)
}

// FormatForPath picks a format from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonc":
		return FormatJSONC
	case ".yaml", ".yml":
		return FormatYAML
	case ".cbor":
		return FormatCBOR
	}
	return FormatJSON
}

// ReadConversationFile reads and decodes a conversation file, choosing
// the format from its extension.
func ReadConversationFile(path string) (Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Conversation{}, fmt.Errorf("reading conversation: %w", err)
	}
	conversation, err := DecodeConversation(data, FormatForPath(path))
	if err != nil {
		return Conversation{}, fmt.Errorf("%s: %w", path, err)
	}
	return conversation, nil
}

// DecodeConversation decodes a conversation. The document is either a
// record with a "messages" list or a bare list of messages.
func DecodeConversation(data []byte, format Format) (Conversation, error) {
	switch format {
	case FormatCBOR:
		return decodeConversationCBOR(data)
	case FormatJSONC:
		return decodeConversationJSON(jsonc.ToJSON(data))
	case FormatYAML:
		converted, err := yamlToJSON(data)
		if err != nil {
			return Conversation{}, err
		}
		return decodeConversationJSON(converted)
	case FormatJSON, "":
		return decodeConversationJSON(data)
	}
	return Conversation{}, fmt.Errorf("unknown conversation format %q", format)
}

// DecodeMessage decodes a single message in any supported format.
func DecodeMessage(data []byte, format Format) (Message, error) {
	var message Message
	switch format {
	case FormatCBOR:
		if err := codec.Unmarshal(data, &message); err != nil {
			return Message{}, fmt.Errorf("decoding CBOR message: %w", err)
		}
		return message, nil
	case FormatJSONC:
		data = jsonc.ToJSON(data)
	case FormatYAML:
		converted, err := yamlToJSON(data)
		if err != nil {
			return Message{}, err
		}
		data = converted
	}
	if err := json.Unmarshal(data, &message); err != nil {
		return Message{}, fmt.Errorf("decoding message: %w", err)
	}
	return message, nil
}

func decodeConversationJSON(data []byte) (Conversation, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var messages []Message
		if err := json.Unmarshal(trimmed, &messages); err != nil {
			return Conversation{}, fmt.Errorf("decoding conversation: %w", err)
		}
		return Conversation{Messages: messages}, nil
	}
	var conversation Conversation
	if err := json.Unmarshal(trimmed, &conversation); err != nil {
		return Conversation{}, fmt.Errorf("decoding conversation: %w", err)
	}
	return conversation, nil
}

func decodeConversationCBOR(data []byte) (Conversation, error) {
	// Major type 4 is an array.
	if len(data) > 0 && data[0]>>5 == 4 {
		var messages []Message
		if err := codec.Unmarshal(data, &messages); err != nil {
			return Conversation{}, fmt.Errorf("decoding CBOR conversation: %w", err)
		}
		return Conversation{Messages: messages}, nil
	}
	var conversation Conversation
	if err := codec.Unmarshal(data, &conversation); err != nil {
		return Conversation{}, fmt.Errorf("decoding CBOR conversation: %w", err)
	}
	return conversation, nil
}

// yamlToJSON converts a YAML document to JSON, keeping mapping keys in
// document order so tool parameter schemas render in the order written.
func yamlToJSON(data []byte) ([]byte, error) {
	var document yaml.Node
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	var buffer bytes.Buffer
	if err := writeYAMLNode(&buffer, &document); err != nil {
		return nil, fmt.Errorf("converting YAML: %w", err)
	}
	return buffer.Bytes(), nil
}

func writeYAMLNode(buffer *bytes.Buffer, node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			buffer.WriteString("null")
			return nil
		}
		return writeYAMLNode(buffer, node.Content[0])
	case yaml.AliasNode:
		return writeYAMLNode(buffer, node.Alias)
	case yaml.MappingNode:
		buffer.WriteByte('{')
		for index := 0; index+1 < len(node.Content); index += 2 {
			if index > 0 {
				buffer.WriteByte(',')
			}
			key, err := json.Marshal(node.Content[index].Value)
			if err != nil {
				return err
			}
			buffer.Write(key)
			buffer.WriteByte(':')
			if err := writeYAMLNode(buffer, node.Content[index+1]); err != nil {
				return err
			}
		}
		buffer.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buffer.WriteByte('[')
		for index, item := range node.Content {
			if index > 0 {
				buffer.WriteByte(',')
			}
			if err := writeYAMLNode(buffer, item); err != nil {
				return err
			}
		}
		buffer.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		var value any
		switch node.ShortTag() {
		case "!!str", "!!timestamp", "!!binary":
			// Dates stay strings; conversation_start_date is free text.
			value = node.Value
		default:
			if err := node.Decode(&value); err != nil {
				return fmt.Errorf("line %d: %w", node.Line, err)
			}
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		buffer.Write(encoded)
		return nil
	}
	return fmt.Errorf("line %d: unsupported YAML node kind %d", node.Line, node.Kind)
}
