// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/bureau-foundation/harmony/lib/harmony"
)

func TestEncode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		stdin string
		args  []string
		want  []harmony.Rank
	}{
		{
			name: "arguments",
			args: []string{"encode", "hello", "world"},
			want: []harmony.Rank{259, 264},
		},
		{
			name:  "standard input drops one trailing newline",
			stdin: "hello world\n",
			args:  []string{"encode"},
			want:  []harmony.Rank{259, 264},
		},
		{
			name: "all special",
			args: []string{"encode", "--all-special", "<|start|>user"},
			want: []harmony.Rank{harmony.StartID, 'u', 's', 'e', 'r'},
		},
		{
			name: "allowed special",
			args: []string{"encode", "--allow", "<|end|>", "hello<|end|>"},
			want: []harmony.Rank{259, harmony.EndID},
		},
		{
			name: "ordinary",
			args: []string{"encode", "--ordinary", "<|end|>"},
			want: []harmony.Rank{'<', '|', 'e', 'n', 'd', '|', '>'},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got := decodeJSON[[]harmony.Rank](t, mustExecute(t, test.stdin, test.args...))
			if !reflect.DeepEqual(got, test.want) {
				t.Errorf("encoded %v, want %v", got, test.want)
			}
		})
	}
}

func TestEncodeRejectsSpecialText(t *testing.T) {
	t.Parallel()

	result := execute(t, "", "encode", "<|start|>user")
	if !errors.Is(result.err, harmony.ErrDisallowedSpecialToken) {
		t.Errorf("error = %v, want ErrDisallowedSpecialToken", result.err)
	}
	if kind, _ := harmony.KindOf(result.err); kind != harmony.KindEncoding {
		t.Errorf("error kind = %v, want encoding", kind)
	}
}

func TestEncodeModesAreExclusive(t *testing.T) {
	t.Parallel()

	result := execute(t, "", "encode", "--all-special", "--ordinary", "hello")
	if result.err == nil || !strings.Contains(result.err.Error(), "mutually exclusive") {
		t.Errorf("error = %v, want mutually exclusive", result.err)
	}
}

func TestEncodeTextOutput(t *testing.T) {
	t.Parallel()

	if got := mustExecute(t, "", "encode", "-o", "ids", "hello", "world"); strings.TrimSpace(got) != "259 264" {
		t.Errorf("ids output = %q", got)
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	if got := mustExecute(t, "259 264", "decode"); got != "hello world\n" {
		t.Errorf("decoded %q, want %q", got, "hello world\n")
	}
	if got := mustExecute(t, "200006 117 115 101 114 200008", "decode"); got != "<|start|>user<|message|>\n" {
		t.Errorf("decoded %q", got)
	}

	// 226 is the lead byte of a three-byte sequence.
	if got := mustExecute(t, "226", "decode"); got != "�\n" {
		t.Errorf("lossy decode = %q, want U+FFFD", got)
	}
	result := execute(t, "226", "decode", "--strict")
	if result.err == nil {
		t.Fatal("--strict accepted invalid UTF-8")
	}
	if kind, _ := harmony.KindOf(result.err); kind != harmony.KindDecoding {
		t.Errorf("error kind = %v, want decoding", kind)
	}
}
