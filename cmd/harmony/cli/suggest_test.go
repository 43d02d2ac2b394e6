// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1}, // substitution
		{"abc", "ab", 1},  // deletion
		{"ab", "abc", 1},  // insertion
		{"abc", "bac", 2}, // transposition (counted as 2 edits)
		{"kitten", "sitting", 3},
		{"render", "rendr", 1},
		{"stream", "steram", 2},
		{"inspect", "inspetc", 2},
	}

	for _, test := range tests {
		t.Run(test.a+"->"+test.b, func(t *testing.T) {
			got := levenshtein(test.a, test.b)
			if got != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
			}
		})
	}
}

func TestLevenshtein_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"abc", "abd"},
		{"parse", "prase"},
		{"tokens", "token"},
	}

	for _, pair := range pairs {
		forward := levenshtein(pair[0], pair[1])
		reverse := levenshtein(pair[1], pair[0])
		if forward != reverse {
			t.Errorf("levenshtein(%q, %q) = %d, but reverse = %d",
				pair[0], pair[1], forward, reverse)
		}
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{
		{Name: "render"},
		{Name: "parse"},
		{Name: "stream"},
		{Name: "inspect"},
		{Name: "version"},
	}

	tests := []struct {
		input string
		want  string
	}{
		{"rendr", "render"},    // missing letter
		{"renderr", "render"},  // extra letter
		{"prase", "parse"},     // transposition
		{"stram", "stream"},    // missing letter
		{"inspekt", "inspect"}, // substitution
		{"zzzzzzzzz", ""},      // nothing close
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			if got := suggestCommand(test.input, commands); got != test.want {
				t.Errorf("suggestCommand(%q) = %q, want %q", test.input, got, test.want)
			}
		})
	}
}

func TestSuggestFlag(t *testing.T) {
	newFlags := func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet("render", pflag.ContinueOnError)
		flagSet.String("output", "json", "")
		flagSet.String("next-role", "assistant", "")
		flagSet.Bool("keep-analysis", false, "")
		return flagSet
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"typo", []string{"--outptu", "ids"}, "--output"},
		{"typo with value", []string{"--next-rol=user"}, "--next-role"},
		{"known flags skipped", []string{"--output", "ids", "--keep-analyss"}, "--keep-analysis"},
		{"nothing close", []string{"--zzzzzzzzzz"}, ""},
		{"after terminator", []string{"--", "--outptu"}, ""},
		{"short flags ignored", []string{"-x"}, ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := suggestFlag(test.args, newFlags()); got != test.want {
				t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
			}
		})
	}
}
