// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package harmony

import (
	"context"
	"fmt"
	"strings"

	"github.com/bureau-foundation/harmony/lib/tokenizer"
)

// HarmonyGptOss is the name of the gpt-oss Harmony encoding.
const HarmonyGptOss = "HarmonyGptOss"

const (
	// O200kHarmony is the tokenizer name of [HarmonyGptOss].
	O200kHarmony = "o200k_harmony"

	// DefaultVocabularyBaseURL is where published vocabularies live.
	DefaultVocabularyBaseURL = "https://openaipublic.blob.core.windows.net/encodings/"

	o200kFileName = "o200k_base.tiktoken"
	o200kSHA256   = "446a9538cb6c348e3516120d7c08b09f57c36495e2acfffe59a5bf8b0cfb1a2d"

	harmonyContextLength   = 1 << 20
	harmonyMaxActionLength = 1 << 19
)

// EncodingNames lists the encodings [LoadEncoding] knows.
func EncodingNames() []string {
	return []string{HarmonyGptOss}
}

// LookupDefinition returns the definition of a named encoding.
func LookupDefinition(name string) (Definition, error) {
	switch name {
	case HarmonyGptOss:
		return HarmonyGptOssDefinition(), nil
	}
	return Definition{}, &VocabularyError{Message: fmt.Sprintf("unknown encoding %q (known: %s)", name, strings.Join(EncodingNames(), ", "))}
}

// HarmonyGptOssDefinition returns the gpt-oss encoding definition.
func HarmonyGptOssDefinition() Definition {
	return Definition{
		Name:            HarmonyGptOss,
		TokenizerName:   O200kHarmony,
		ContextLength:   harmonyContextLength,
		MaxActionLength: harmonyMaxActionLength,
		Formatting:      harmonyFormatting(),
		StopTokens:      []FormattingToken{TokenReturn, TokenCall, TokenEndMessage},
		StopTokensForAssistantActions: []FormattingToken{
			TokenReturn,
			TokenCall,
		},
	}
}

// VocabularySource returns where the o200k_harmony vocabulary is
// fetched from. An empty baseURL selects [DefaultVocabularyBaseURL].
func VocabularySource(baseURL string) tokenizer.VocabularySource {
	if baseURL == "" {
		baseURL = DefaultVocabularyBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return tokenizer.VocabularySource{
		FileName: o200kFileName,
		URL:      baseURL + o200kFileName,
		SHA256:   o200kSHA256,
	}
}

// NewHarmonyTokenizer builds the o200k_harmony tokenizer from the
// ordinary ranks of o200k_base.
func NewHarmonyTokenizer(ranks map[string]Rank) (*tokenizer.CoreBPE, error) {
	bpe, err := tokenizer.NewCoreBPE(ranks, HarmonySpecialTokens(), tokenizer.O200kPattern)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", O200kHarmony, err)
	}
	return bpe, nil
}

// LoadOptions configures [LoadEncoding].
type LoadOptions struct {
	// Vocabulary controls where the vocabulary file is read, cached
	// and downloaded.
	Vocabulary tokenizer.LoadOptions

	// BaseURL overrides [DefaultVocabularyBaseURL].
	BaseURL string
}

// LoadEncoding loads a named encoding, fetching its vocabulary if
// needed. Nothing is cached in the process; callers keep the returned
// Encoding for as long as they need it.
func LoadEncoding(ctx context.Context, name string, options LoadOptions) (*Encoding, error) {
	definition, err := LookupDefinition(name)
	if err != nil {
		return nil, err
	}
	ranks, err := tokenizer.LoadVocabulary(ctx, VocabularySource(options.BaseURL), options.Vocabulary)
	if err != nil {
		return nil, fmt.Errorf("loading %s vocabulary: %w", definition.TokenizerName, err)
	}
	bpe, err := NewHarmonyTokenizer(ranks)
	if err != nil {
		return nil, err
	}
	return NewEncoding(definition, bpe)
}
