// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tokenizer implements the byte-pair encoder that sits underneath
// the Harmony codec.
//
// A [CoreBPE] maps text to integer ranks in two passes. A pretokenizer
// regular expression splits the input into pieces (words, numbers,
// punctuation runs, whitespace runs), and each piece is reduced by
// repeatedly merging the adjacent byte pair with the lowest rank until no
// mergeable pair remains. Special tokens (the structural markers such as
// "<|start|>") are matched separately and never pass through the merge
// loop.
//
// Decoding is the inverse lookup. [CoreBPE.DecodeBytes] returns raw bytes
// and fails on ids outside the vocabulary. [CoreBPE.DecodeUTF8] is strict
// and fails on bytes that are not valid UTF-8. [CoreBPE.Decode] is lossy
// and substitutes U+FFFD for invalid sequences.
//
// Vocabularies use the tiktoken file format: one "base64-token rank" pair
// per line. [LoadVocabulary] resolves a vocabulary file from a local
// directory (optionally zstd or lz4 compressed), an on-disk cache, or a
// remote URL, and verifies its SHA-256 digest before parsing.
//
// A CoreBPE is immutable after construction and safe for concurrent use.
package tokenizer
