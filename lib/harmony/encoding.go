// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package harmony

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bureau-foundation/harmony/lib/tokenizer"
)

// Rank is a token id.
type Rank = tokenizer.Rank

// Tokenizer is the byte-pair encoder an [Encoding] renders through.
// [*tokenizer.CoreBPE] implements it.
type Tokenizer interface {
	// Encode encodes text, emitting dedicated ids for special tokens
	// in allowed and treating all other text as ordinary.
	Encode(text string, allowed tokenizer.SpecialSet) ([]Rank, error)

	// EncodeOrdinary encodes text without recognizing special tokens.
	EncodeOrdinary(text string) ([]Rank, error)

	// DecodeBytes returns the bytes of tokens, failing on ids outside
	// the vocabulary.
	DecodeBytes(tokens []Rank) ([]byte, error)

	SpecialTokens() []string
	IsSpecialToken(token Rank) bool
	SpecialTokenRank(name string) (Rank, bool)
}

// Definition describes an encoding independent of its vocabulary.
type Definition struct {
	Name            string
	TokenizerName   string
	ContextLength   int
	MaxActionLength int

	// Formatting maps grammar roles to special token text. Roles
	// missing from the map, or mapped to text the vocabulary lacks,
	// fail when rendered.
	Formatting map[FormattingToken]string

	StopTokens                    []FormattingToken
	StopTokensForAssistantActions []FormattingToken
}

// Encoding renders and parses Harmony conversations with one
// tokenizer. It is immutable after construction.
type Encoding struct {
	definition Definition
	tokenizer  Tokenizer

	// formattingIDs holds the id of every formatting token whose text
	// is a single special token of the vocabulary.
	formattingIDs map[FormattingToken]Rank
	idFormatting  map[Rank]FormattingToken

	stopTokens          []Rank
	assistantStopTokens []Rank

	// specialTokens and specialPattern back the encode guard.
	specialTokens  []string
	specialPattern *regexp.Regexp
}

// NewEncoding binds a definition to a tokenizer. Every stop token must
// resolve to a vocabulary id.
func NewEncoding(definition Definition, tok Tokenizer) (*Encoding, error) {
	encoding := &Encoding{
		definition:    definition,
		tokenizer:     tok,
		formattingIDs: make(map[FormattingToken]Rank, len(definition.Formatting)),
		idFormatting:  make(map[Rank]FormattingToken, len(definition.Formatting)),
		specialTokens: tok.SpecialTokens(),
	}
	for token, text := range definition.Formatting {
		if id, ok := tok.SpecialTokenRank(text); ok {
			encoding.formattingIDs[token] = id
			encoding.idFormatting[id] = token
		}
	}

	var err error
	if encoding.stopTokens, err = encoding.resolveStopTokens(definition.StopTokens); err != nil {
		return nil, err
	}
	if encoding.assistantStopTokens, err = encoding.resolveStopTokens(definition.StopTokensForAssistantActions); err != nil {
		return nil, err
	}

	if len(encoding.specialTokens) > 0 {
		alternatives := make([]string, len(encoding.specialTokens))
		copy(alternatives, encoding.specialTokens)
		sort.Slice(alternatives, func(i, j int) bool {
			return len(alternatives[i]) > len(alternatives[j])
		})
		for index, text := range alternatives {
			alternatives[index] = regexp.QuoteMeta(text)
		}
		encoding.specialPattern, err = regexp.Compile(strings.Join(alternatives, "|"))
		if err != nil {
			return nil, fmt.Errorf("compiling special token guard: %w", err)
		}
	}
	return encoding, nil
}

func (encoding *Encoding) resolveStopTokens(tokens []FormattingToken) ([]Rank, error) {
	ids := make([]Rank, 0, len(tokens))
	for _, token := range tokens {
		id, err := encoding.formattingID(token)
		if err != nil {
			return nil, fmt.Errorf("stop token %s: %w", token, err)
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (encoding *Encoding) String() string {
	return fmt.Sprintf("Renderer(%s)", encoding.definition.Name)
}

// Name returns the encoding name, such as "HarmonyGptOss".
func (encoding *Encoding) Name() string { return encoding.definition.Name }

// TokenizerName returns the vocabulary name, such as "o200k_harmony".
func (encoding *Encoding) TokenizerName() string { return encoding.definition.TokenizerName }

// ContextLength returns the model context window in tokens.
func (encoding *Encoding) ContextLength() int { return encoding.definition.ContextLength }

// MaxActionLength returns the token budget reserved for one action.
func (encoding *Encoding) MaxActionLength() int { return encoding.definition.MaxActionLength }

// MaxMessageTokens is the context window minus the action budget.
func (encoding *Encoding) MaxMessageTokens() int {
	return encoding.definition.ContextLength - encoding.definition.MaxActionLength
}

// Tokenizer returns the underlying tokenizer.
func (encoding *Encoding) Tokenizer() Tokenizer { return encoding.tokenizer }

// StopTokens returns the ids that end any generated message, sorted.
func (encoding *Encoding) StopTokens() []Rank {
	return append([]Rank(nil), encoding.stopTokens...)
}

// StopTokensForAssistantActions returns the ids that end an assistant
// action (a final answer or a tool call), sorted.
func (encoding *Encoding) StopTokensForAssistantActions() []Rank {
	return append([]Rank(nil), encoding.assistantStopTokens...)
}

// FormattingTokenID returns the vocabulary id of a formatting token.
func (encoding *Encoding) FormattingTokenID(token FormattingToken) (Rank, bool) {
	id, ok := encoding.formattingIDs[token]
	return id, ok
}

// FormattingTokenText returns the text a formatting token maps to.
func (encoding *Encoding) FormattingTokenText(token FormattingToken) (string, bool) {
	text, ok := encoding.definition.Formatting[token]
	return text, ok
}

func (encoding *Encoding) formattingID(token FormattingToken) (Rank, error) {
	if id, ok := encoding.formattingIDs[token]; ok {
		return id, nil
	}
	text, mapped := encoding.definition.Formatting[token]
	if !mapped {
		return 0, &VocabularyError{Message: fmt.Sprintf("tried to render unmapped formatting token %s", token)}
	}
	return 0, &VocabularyError{Message: fmt.Sprintf("formatting token %s maps to %q, which is not a special token of %s", token, text, encoding.definition.TokenizerName)}
}

// formattingTokenOf reports which formatting token an id is, if any.
func (encoding *Encoding) formattingTokenOf(id Rank) (FormattingToken, bool) {
	token, ok := encoding.idFormatting[id]
	return token, ok
}

// SpecialTokens returns the text of every special token, sorted.
func (encoding *Encoding) SpecialTokens() []string {
	return append([]string(nil), encoding.specialTokens...)
}

// IsSpecialToken reports whether id is a special token.
func (encoding *Encoding) IsSpecialToken(id Rank) bool {
	return encoding.tokenizer.IsSpecialToken(id)
}

// EncodeOrdinary encodes text treating special-token text as ordinary
// bytes.
func (encoding *Encoding) EncodeOrdinary(text string) ([]Rank, error) {
	tokens, err := encoding.tokenizer.EncodeOrdinary(text)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}
	return tokens, nil
}

// Encode encodes text, emitting dedicated ids for the special tokens in
// allowed. Any other special-token text in the input is an error.
func (encoding *Encoding) Encode(text string, allowed tokenizer.SpecialSet) ([]Rank, error) {
	return encoding.EncodeGuarded(text, allowed.Complement())
}

// EncodeGuarded encodes text with an explicit disallowed set. Special
// token text in disallowed fails with [ErrDisallowedSpecialToken]
// before anything is encoded. Every other special token encodes to its
// dedicated id.
func (encoding *Encoding) EncodeGuarded(text string, disallowed tokenizer.SpecialSet) ([]Rank, error) {
	if encoding.specialPattern != nil && !disallowed.IsEmpty() {
		for _, location := range encoding.specialPattern.FindAllStringIndex(text, -1) {
			found := text[location[0]:location[1]]
			if disallowed.Contains(found) {
				return nil, &EncodingError{
					Message: fmt.Sprintf("text contains %q at byte %d; allow it explicitly or encode it as ordinary text", found, location[0]),
					Err:     ErrDisallowedSpecialToken,
				}
			}
		}
	}
	tokens, err := encoding.tokenizer.Encode(text, disallowed.Complement())
	if err != nil {
		return nil, &EncodingError{Err: err}
	}
	return tokens, nil
}

// EncodeWithSpecialTokens encodes text recognizing every special token.
func (encoding *Encoding) EncodeWithSpecialTokens(text string) ([]Rank, error) {
	return encoding.EncodeGuarded(text, tokenizer.NoSpecial())
}

// DecodeBytes returns the raw bytes of tokens.
func (encoding *Encoding) DecodeBytes(tokens []Rank) ([]byte, error) {
	raw, err := encoding.tokenizer.DecodeBytes(tokens)
	if err != nil {
		return nil, wrapDecodeError(err)
	}
	return raw, nil
}

// DecodeUTF8 decodes tokens strictly: ids outside the vocabulary and
// invalid UTF-8 both fail.
func (encoding *Encoding) DecodeUTF8(tokens []Rank) (string, error) {
	raw, err := encoding.DecodeBytes(tokens)
	if err != nil {
		return "", err
	}
	text, err := strictString(raw)
	if err != nil {
		return "", err
	}
	return text, nil
}

// Decode decodes tokens, replacing invalid UTF-8 with U+FFFD.
func (encoding *Encoding) Decode(tokens []Rank) (string, error) {
	raw, err := encoding.DecodeBytes(tokens)
	if err != nil {
		return "", err
	}
	text, err := tokenizer.LossyString(raw)
	if err != nil {
		return "", &DecodingError{Err: err}
	}
	return text, nil
}

func strictString(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", &DecodingError{Err: fmt.Errorf("%w (%d bytes)", ErrInvalidUTF8, len(raw))}
	}
	return string(raw), nil
}
