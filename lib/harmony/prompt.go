// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package harmony

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bureau-foundation/harmony/lib/chat"
)

// SystemPrompt returns the text a system content part renders to.
// functionTools adds the note routing "functions" calls to the
// commentary channel; conversations set it when a developer message
// declares function tools.
func SystemPrompt(system chat.SystemContent, functionTools bool) (string, error) {
	var sections []string

	var top []string
	if system.ModelIdentity != "" {
		top = append(top, system.ModelIdentity)
	}
	if system.KnowledgeCutoff != "" {
		top = append(top, "Knowledge cutoff: "+system.KnowledgeCutoff)
	}
	if system.ConversationStartDate != "" {
		top = append(top, "Current date: "+system.ConversationStartDate)
	}
	if len(top) > 0 {
		sections = append(sections, strings.Join(top, "\n"))
	}

	if system.ReasoningEffort != "" {
		effort, err := chat.ParseReasoningEffort(string(system.ReasoningEffort))
		if err != nil {
			return "", &VocabularyError{Err: err}
		}
		sections = append(sections, "Reasoning: "+effort.PromptString())
	}

	if len(system.Tools) > 0 {
		tools, err := ToolsSection(system.Tools)
		if err != nil {
			return "", err
		}
		sections = append(sections, tools)
	}

	if config := system.ChannelConfig; config != nil && len(config.ValidChannels) > 0 {
		header := fmt.Sprintf("# Valid channels: %s.", strings.Join(config.ValidChannels, ", "))
		if config.ChannelRequired {
			header += " Channel must be included for every message."
		}
		if functionTools {
			header += "\nCalls to these tools must go to the commentary channel: 'functions'."
		}
		sections = append(sections, header)
	}
	return strings.Join(sections, "\n\n"), nil
}

// DeveloperPrompt returns the text a developer content part renders
// to: an "# Instructions" section followed by its tools.
func DeveloperPrompt(developer chat.DeveloperContent) (string, error) {
	var sections []string
	if developer.Instructions != "" {
		sections = append(sections, "# Instructions", developer.Instructions)
	}
	if len(developer.Tools) > 0 {
		tools, err := ToolsSection(developer.Tools)
		if err != nil {
			return "", err
		}
		sections = append(sections, tools)
	}
	return strings.Join(sections, "\n\n"), nil
}

// ToolsSection renders a "# Tools" section with one namespace block
// per entry, in name order.
func ToolsSection(tools map[string]chat.ToolNamespaceConfig) (string, error) {
	keys := make([]string, 0, len(tools))
	for key := range tools {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	sections := []string{"# Tools"}
	for _, key := range keys {
		namespace := tools[key]
		hasTools := len(namespace.Tools) > 0

		parts := []string{fmt.Sprintf("## %s\n", namespace.Name)}
		for _, line := range textLines(namespace.Description) {
			if hasTools {
				parts = append(parts, "// "+line)
			} else {
				parts = append(parts, line)
			}
		}
		if hasTools {
			parts = append(parts, fmt.Sprintf("namespace %s {\n", namespace.Name))
			for _, tool := range namespace.Tools {
				for _, line := range textLines(tool.Description) {
					parts = append(parts, "// "+line)
				}
				if tool.HasParameters() {
					parameters, err := SchemaToTypeScript(tool.Parameters)
					if err != nil {
						return "", fmt.Errorf("tool %s.%s: %w", namespace.Name, tool.Name, err)
					}
					parts = append(parts, fmt.Sprintf("type %s = (_: %s) => any;\n", tool.Name, parameters))
				} else {
					parts = append(parts, fmt.Sprintf("type %s = () => any;\n", tool.Name))
				}
			}
			parts = append(parts, fmt.Sprintf("} // namespace %s", namespace.Name))
		}
		sections = append(sections, strings.Join(parts, "\n"))
	}
	return strings.Join(sections, "\n\n"), nil
}

// textLines splits text into lines. A trailing newline does not start
// another line and a carriage return before a newline is dropped.
func textLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for index, line := range lines {
		lines[index] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
