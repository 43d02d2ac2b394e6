// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test fixtures for harmony packages.
//
// [Vocabulary] is a tiny byte-pair vocabulary: the 256 single bytes
// plus the merges that spell "hello" and " world". Combined with the
// Harmony special tokens at their real ids it stands in for
// o200k_harmony in every test that does not check exact token ids of
// ordinary text, so the suite runs without the 3.6 MB vocabulary file
// or network access.
//
// [WriteVocabulary] writes that vocabulary in tiktoken format for
// tests of file loading, and [WriteFile] writes arbitrary fixtures.
//
// [RealVocabularyDir] returns the directory named by
// TIKTOKEN_ENCODINGS_BASE, skipping the test when it is unset. Golden
// tests against real token ids use it.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package depends only on lib/tokenizer.
package testutil
