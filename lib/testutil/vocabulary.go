// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/harmony/lib/tokenizer"
)

// Merges lists the multi-byte tokens of [Vocabulary] in rank order,
// starting at rank 256.
var Merges = []string{"he", "ll", "hell", "hello", " w", "or", " wor", "ld", " world"}

// Vocabulary returns the test ranks: every single byte at its own value
// followed by [Merges].
func Vocabulary() map[string]tokenizer.Rank {
	ranks := make(map[string]tokenizer.Rank, 256+len(Merges))
	for b := 0; b < 256; b++ {
		ranks[string([]byte{byte(b)})] = tokenizer.Rank(b)
	}
	for index, merge := range Merges {
		ranks[merge] = tokenizer.Rank(256 + index)
	}
	return ranks
}

// WriteVocabulary writes [Vocabulary] in tiktoken format to a new file
// named fileName in a temporary directory and returns the directory.
func WriteVocabulary(t *testing.T, fileName string) string {
	t.Helper()
	directory := t.TempDir()
	WriteFile(t, filepath.Join(directory, fileName), tokenizer.FormatVocabulary(Vocabulary()))
	return directory
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

// RealVocabularyDir returns the directory holding the published
// vocabulary files, or skips the test when TIKTOKEN_ENCODINGS_BASE is
// unset.
func RealVocabularyDir(t *testing.T) string {
	t.Helper()
	directory := os.Getenv(tokenizer.EncodingsBaseEnv)
	if directory == "" {
		t.Skipf("%s not set; skipping test against the published vocabulary", tokenizer.EncodingsBaseEnv)
	}
	return directory
}
