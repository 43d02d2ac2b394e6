// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// FunctionsNamespace is the tool namespace for developer-declared
// functions. Calls into it go to the commentary channel.
const FunctionsNamespace = "functions"

// ToolNamespaceConfig is a named group of tools rendered as one
// TypeScript-like namespace in the prompt.
type ToolNamespaceConfig struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Tools       []ToolDescription `json:"tools"`
}

// ToolDescription describes one callable tool. Parameters is a JSON
// Schema kept as raw bytes so the rendered property order matches the
// order the schema was written in.
type ToolDescription struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// NewToolDescription builds a tool description. A nil or empty
// parameters value means the tool takes no arguments.
func NewToolDescription(name, description string, parameters json.RawMessage) ToolDescription {
	return ToolDescription{Name: name, Description: description, Parameters: parameters}
}

// HasParameters reports whether the tool declares a parameter schema.
// A JSON null counts as absent.
func (tool ToolDescription) HasParameters() bool {
	trimmed := bytes.TrimSpace(tool.Parameters)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Schema resolves the parameter schema. It returns nil when the tool
// takes no parameters.
func (tool ToolDescription) Schema() (*jsonschema.Resolved, error) {
	if !tool.HasParameters() {
		return nil, nil
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(tool.Parameters, &schema); err != nil {
		return nil, fmt.Errorf("tool %q: parsing parameter schema: %w", tool.Name, err)
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("tool %q: resolving parameter schema: %w", tool.Name, err)
	}
	return resolved, nil
}

// ValidateArguments checks a JSON argument document against the
// parameter schema. A tool without parameters accepts only an empty
// argument document or an empty object.
func (tool ToolDescription) ValidateArguments(arguments []byte) error {
	resolved, err := tool.Schema()
	if err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(arguments)
	if resolved == nil {
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("{}")) {
			return nil
		}
		return fmt.Errorf("tool %q takes no arguments", tool.Name)
	}
	var instance any
	if err := json.Unmarshal(trimmed, &instance); err != nil {
		return fmt.Errorf("tool %q: arguments are not valid JSON: %w", tool.Name, err)
	}
	if err := resolved.Validate(instance); err != nil {
		return fmt.Errorf("tool %q: %w", tool.Name, err)
	}
	return nil
}

// Tool returns the named tool of the namespace.
func (namespace ToolNamespaceConfig) Tool(name string) (ToolDescription, bool) {
	for _, tool := range namespace.Tools {
		if tool.Name == name {
			return tool, true
		}
	}
	return ToolDescription{}, false
}

// BrowserTool returns the built-in browser namespace with its search,
// open and find tools.
func BrowserTool() ToolNamespaceConfig {
	return ToolNamespaceConfig{
		Name:        "browser",
		Description: browserDescription,
		Tools: []ToolDescription{
			{
				Name:        "search",
				Description: "Searches for information related to `query` and displays `topn` results.",
				Parameters: json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {"type": "string"},
		"topn": {"type": "number", "default": 10},
		"source": {"type": "string"}
	},
	"required": ["query"]
}`),
			},
			{
				Name:        "open",
				Description: browserOpenDescription,
				Parameters: json.RawMessage(`{
	"type": "object",
	"properties": {
		"id": {"type": ["number", "string"], "default": -1},
		"cursor": {"type": "number", "default": -1},
		"loc": {"type": "number", "default": -1},
		"num_lines": {"type": "number", "default": -1},
		"view_source": {"type": "boolean", "default": false},
		"source": {"type": "string"}
	}
}`),
			},
			{
				Name:        "find",
				Description: "Finds exact matches of `pattern` in the current page, or the page given by `cursor`.",
				Parameters: json.RawMessage(`{
	"type": "object",
	"properties": {
		"pattern": {"type": "string"},
		"cursor": {"type": "number", "default": -1}
	},
	"required": ["pattern"]
}`),
			},
		},
	}
}

// PythonTool returns the built-in python namespace. It has no typed
// tools: the model addresses the namespace itself.
func PythonTool() ToolNamespaceConfig {
	return ToolNamespaceConfig{
		Name:        "python",
		Description: pythonDescription,
		Tools:       []ToolDescription{},
	}
}

const browserDescription = "Tool for browsing.\n" +
	"The `cursor` appears in brackets before each browsing display: `[{cursor}]`.\n" +
	"Cite information from the tool using the following format:\n" +
	"`【{cursor}†L{line_start}(-L{line_end})?】`, for example: `【6†L9-L11】` or `【8†L3】`.\n" +
	"Do not quote more than 10 words directly from the tool output.\n" +
	"sources=web (default: web)"

const browserOpenDescription = "Opens the link `id` from the page indicated by `cursor` starting at line number `loc`, showing `num_lines` lines.\n" +
	"Valid link ids are displayed with the formatting: `【{id}†.*】`.\n" +
	"If `cursor` is not provided, the most recent page is implied.\n" +
	"If `id` is a string, it is treated as a fully qualified URL associated with `source`.\n" +
	"If `loc` is not provided, the viewport will be positioned at the beginning of the document or centered on the most relevant passage, if available.\n" +
	"Use this function without `id` to scroll to a new location of an opened page."

const pythonDescription = "Use this tool to execute Python code in your chain of thought. " +
	"The code will not be shown to the user. " +
	"This tool should be used for internal reasoning, but not for code that is intended to be visible to the user (e.g. when creating plots, tables, or files).\n" +
	"\n" +
	"When you send a message containing Python code to python, it will be executed in a stateful Jupyter notebook environment. " +
	"python will respond with the output of the execution or time out after 120.0 seconds. " +
	"The drive at '/mnt/data' can be used to save and persist user files. " +
	"Internet access for this session is UNKNOWN. Depends on the cluster."
