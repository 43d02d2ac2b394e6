// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package harmony

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// SchemaToTypeScript renders a JSON Schema as the TypeScript-like type
// used in tool declarations. Object properties keep the order they
// have in schema.
func SchemaToTypeScript(schema []byte) (string, error) {
	if !gjson.ValidBytes(schema) {
		return "", &EncodingError{Message: "tool parameters are not valid JSON"}
	}
	return schemaToTypeScript(gjson.ParseBytes(schema), ""), nil
}

func schemaToTypeScript(schema gjson.Result, indent string) string {
	if oneOf := schema.Get("oneOf"); oneOf.IsArray() {
		var out strings.Builder
		for _, variant := range oneOf.Array() {
			out.WriteString("\n" + indent + " | ")
			out.WriteString(withNullable(variant, schemaToTypeScript(variant, indent+"   ")))
			var trailing []string
			if description := variant.Get("description"); description.Type == gjson.String {
				trailing = append(trailing, description.Str)
			}
			if value := variant.Get("default"); value.Exists() {
				trailing = append(trailing, formatDefault(variant, value))
			}
			if len(trailing) > 0 {
				out.WriteString(" // " + strings.Join(trailing, " "))
			}
		}
		return out.String()
	}

	schemaType := schema.Get("type")
	if schemaType.IsArray() {
		var names []string
		for _, name := range schemaType.Array() {
			if name.Type != gjson.String {
				continue
			}
			if name.Str == "integer" {
				names = append(names, "number")
			} else {
				names = append(names, name.Str)
			}
		}
		if len(names) > 0 {
			return strings.Join(names, " | ")
		}
	}
	if schemaType.Type != gjson.String {
		return "any"
	}

	switch schemaType.Str {
	case "object":
		return objectToTypeScript(schema, indent)
	case "string":
		if values := schema.Get("enum"); values.IsArray() {
			var quoted []string
			for _, value := range values.Array() {
				if value.Type == gjson.String {
					quoted = append(quoted, `"`+value.Str+`"`)
				}
			}
			if len(quoted) > 0 {
				return strings.Join(quoted, " | ")
			}
		}
		return "string"
	case "number", "integer":
		return "number"
	case "boolean":
		return "boolean"
	case "array":
		if items := schema.Get("items"); items.Exists() {
			return schemaToTypeScript(items, indent) + "[]"
		}
		return "Array<any>"
	}
	return "any"
}

func objectToTypeScript(schema gjson.Result, indent string) string {
	var out strings.Builder
	if description := schema.Get("description"); description.Type == gjson.String {
		out.WriteString(indent + "// " + description.Str + "\n")
	}
	out.WriteString("{\n")

	required := make(map[string]bool)
	if names := schema.Get("required"); names.IsArray() {
		for _, name := range names.Array() {
			if name.Type == gjson.String {
				required[name.Str] = true
			}
		}
	}
	optional := func(key string) string {
		if required[key] {
			return ""
		}
		return "?"
	}

	properties := schema.Get("properties")
	if properties.IsObject() {
		properties.ForEach(func(key, property gjson.Result) bool {
			name := key.Str
			if title := property.Get("title"); title.Type == gjson.String {
				out.WriteString(indent + "// " + title.Str + "\n" + indent + "//\n")
			}
			oneOf := property.Get("oneOf")
			if !oneOf.Exists() {
				if description := property.Get("description"); description.Type == gjson.String {
					out.WriteString(indent + "// " + description.Str + "\n")
				}
			}
			if examples := property.Get("examples"); examples.IsArray() && len(examples.Array()) > 0 {
				out.WriteString(indent + "// Examples:\n")
				for _, example := range examples.Array() {
					if example.Type == gjson.String {
						out.WriteString(indent + `// - "` + example.Str + "\"\n")
					}
				}
			}

			if oneOf.IsArray() {
				writeOneOfProperty(&out, name+optional(name), property, oneOf.Array(), indent)
				return true
			}

			out.WriteString(indent + name + optional(name) + ": ")
			out.WriteString(withNullable(property, schemaToTypeScript(property, indent+"    ")))
			out.WriteByte(',')
			if !oneOf.Exists() {
				if value := property.Get("default"); value.Exists() {
					out.WriteString(" // " + formatDefault(property, value))
				}
			}
			out.WriteByte('\n')
			return true
		})
	}
	out.WriteString(indent + "}")
	return out.String()
}

// writeOneOfProperty renders a property whose schema is a oneOf as a
// multi-line union. A property description equal to the first
// variant's description is written once, beside the variant.
func writeOneOfProperty(out *strings.Builder, label string, property gjson.Result, variants []gjson.Result, indent string) {
	var propertyDescription string
	hasPropertyDescription := false
	if description := property.Get("description"); description.Type == gjson.String {
		propertyDescription = description.Str
		hasPropertyDescription = true
	}
	skipPropertyDescription := false
	if hasPropertyDescription && len(variants) > 0 {
		if first := variants[0].Get("description"); first.Type == gjson.String && first.Str == propertyDescription {
			skipPropertyDescription = true
		}
	}
	describedAbove := false
	if hasPropertyDescription && !skipPropertyDescription {
		out.WriteString(indent + "// " + propertyDescription + "\n")
		describedAbove = true
	}
	if value := property.Get("default"); value.Exists() {
		out.WriteString(indent + "// " + formatDefault(property, value) + "\n")
	}
	out.WriteString(indent + label + ":\n")

	for index, variant := range variants {
		out.WriteString(indent + " | ")
		out.WriteString(withNullable(variant, schemaToTypeScript(variant, indent+"   ")))
		var trailing []string
		if !(index == 0 && describedAbove) {
			description := variant.Get("description")
			if description.Type == gjson.String && !(hasPropertyDescription && description.Str == propertyDescription) {
				trailing = append(trailing, description.Str)
			}
		}
		if value := variant.Get("default"); value.Exists() {
			trailing = append(trailing, formatDefault(variant, value))
		}
		if len(trailing) > 0 {
			out.WriteString(" // " + strings.Join(trailing, " "))
		}
		out.WriteByte('\n')
	}
	out.WriteString(indent + ",\n")
}

func withNullable(schema gjson.Result, typeString string) string {
	if schema.Get("nullable").Type == gjson.True && !strings.Contains(typeString, "null") {
		return typeString + " | null"
	}
	return typeString
}

// formatDefault renders a default value comment. String defaults are
// quoted unless the schema is an enum, whose members already read as
// literals.
func formatDefault(schema gjson.Result, value gjson.Result) string {
	if value.Type == gjson.String {
		if isEnum(schema) {
			return "default: " + value.Str
		}
		return `default: "` + value.Str + `"`
	}
	return "default: " + compactJSON(value.Raw)
}

func isEnum(schema gjson.Result) bool {
	values := schema.Get("enum")
	return values.IsArray() && len(values.Array()) > 0
}

func compactJSON(raw string) string {
	var buffer bytes.Buffer
	if err := json.Compact(&buffer, []byte(raw)); err != nil {
		return raw
	}
	return buffer.String()
}
