// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package harmony

import (
	"testing"
)

func TestSchemaToTypeScript(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		schema string
		want   string
	}{
		{
			name:   "browser search",
			schema: `{"type":"object","properties":{"query":{"type":"string"},"topn":{"type":"number","default":10},"source":{"type":"string"}},"required":["query"]}`,
			want:   "{\nquery: string,\ntopn?: number, // default: 10\nsource?: string,\n}",
		},
		{
			name:   "property order is kept",
			schema: `{"type":"object","properties":{"zeta":{"type":"boolean"},"alpha":{"type":"integer"}}}`,
			want:   "{\nzeta?: boolean,\nalpha?: number,\n}",
		},
		{
			name: "array of strings",
			schema: `{"type":"object","properties":{"locations":{"type":"array","items":{"type":"string"},` +
				`"description":"List of city and state"}},"required":["locations"]}`,
			want: "{\n// List of city and state\nlocations: string[],\n}",
		},
		{
			name:   "type list",
			schema: `{"type":"object","properties":{"id":{"type":["number","string"],"default":-1}}}`,
			want:   "{\nid?: number | string, // default: -1\n}",
		},
		{
			name:   "array without items",
			schema: `{"type":"array"}`,
			want:   "Array<any>",
		},
		{
			name:   "missing type",
			schema: `{"description":"anything"}`,
			want:   "any",
		},
		{
			name: "kitchen sink",
			schema: `{
				"description": "params object",
				"type": "object",
				"properties": {
					"string": {"type": "string", "title": "STRING", "description": "A string", "examples": ["hello", "world"]},
					"string_nullable": {"type": "string", "nullable": true, "description": "A nullable string", "default": "the default"},
					"string_enum": {"type": "string", "enum": ["a", "b", "c"]},
					"oneof_string_or_number": {
						"oneOf": [
							{"type": "string", "default": "default_string_in_oneof"},
							{"type": "number", "description": "numbers can happen too"}
						],
						"description": "a oneof",
						"default": 20
					}
				}
			}`,
			want: `// params object
{
// STRING
//
// A string
// Examples:
// - "hello"
// - "world"
string?: string,
// A nullable string
string_nullable?: string | null, // default: "the default"
string_enum?: "a" | "b" | "c",
// a oneof
// default: 20
oneof_string_or_number?:
 | string // default: "default_string_in_oneof"
 | number // numbers can happen too
,
}`,
		},
		{
			name:   "nested object",
			schema: `{"type":"object","properties":{"point":{"type":"object","properties":{"x":{"type":"number"}},"required":["x"]}},"required":["point"]}`,
			want:   "{\npoint: {\n    x: number,\n    },\n}",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got, err := SchemaToTypeScript([]byte(test.schema))
			if err != nil {
				t.Fatalf("SchemaToTypeScript: %v", err)
			}
			if got != test.want {
				t.Errorf("SchemaToTypeScript =\n%s\nwant\n%s", got, test.want)
			}
		})
	}
}

func TestSchemaToTypeScriptInvalidJSON(t *testing.T) {
	t.Parallel()
	_, err := SchemaToTypeScript([]byte(`{"type":`))
	if kind, _ := KindOf(err); kind != KindEncoding {
		t.Errorf("error = %v, want encoding kind", err)
	}
}
