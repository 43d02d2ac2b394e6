// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestJSONOutput_EmitJSON(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	output := JSONOutput{}
	done, err := output.EmitJSON(&buffer, map[string]int{"tokens": 2})
	if done || err != nil || buffer.Len() != 0 {
		t.Fatalf("EmitJSON without --json = (%v, %v), wrote %q", done, err, buffer.String())
	}

	output.OutputJSON = true
	done, err = output.EmitJSON(&buffer, map[string]int{"tokens": 2})
	if !done || err != nil {
		t.Fatalf("EmitJSON with --json = (%v, %v)", done, err)
	}
	if got, want := buffer.String(), "{\n  \"tokens\": 2\n}\n"; got != want {
		t.Errorf("EmitJSON wrote %q, want %q", got, want)
	}
}

func TestJSONOutput_NilSliceIsEmptyArray(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	output := JSONOutput{OutputJSON: true}
	var messages []string
	if _, err := output.EmitJSON(&buffer, messages); err != nil {
		t.Fatalf("EmitJSON: %v", err)
	}
	if got := strings.TrimSpace(buffer.String()); got != "[]" {
		t.Errorf("nil slice encoded as %q, want []", got)
	}
}

func TestWriteJSONLine_KeepsSpecialTokenText(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	if err := WriteJSONLine(&buffer, map[string]string{"text": "<|start|>user"}); err != nil {
		t.Fatalf("WriteJSONLine: %v", err)
	}
	if got, want := buffer.String(), "{\"text\":\"<|start|>user\"}\n"; got != want {
		t.Errorf("WriteJSONLine wrote %q, want %q", got, want)
	}
}
