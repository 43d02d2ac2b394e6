// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tokenizer

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/encoding/unicode"
)

// Rank is a token id. Lower ranks merge first during encoding.
type Rank = uint32

const maxRank Rank = math.MaxUint32

// ErrInvalidUTF8 is returned by [CoreBPE.DecodeUTF8] when the decoded
// bytes are not valid UTF-8.
var ErrInvalidUTF8 = errors.New("decoded bytes are not valid UTF-8")

// InvalidTokenError reports a token id that is neither an ordinary nor a
// special token of the vocabulary.
type InvalidTokenError struct {
	Token Rank
}

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("invalid token for decoding: %d", e.Token)
}

// CoreBPE is a byte-pair encoder over a fixed vocabulary.
type CoreBPE struct {
	encoder        map[string]Rank
	decoder        map[Rank]string
	specialEncoder map[string]Rank
	specialDecoder map[Rank]string

	// pattern splits ordinary text into merge pieces. It needs
	// lookahead, which the standard library engine does not provide.
	pattern *regexp2.Regexp

	// specialPattern matches any special token text. Alternatives are
	// ordered longest first so that a token whose text is a prefix of
	// another never shadows it.
	specialPattern *regexp.Regexp

	specialNames   []string
	vocabularySize int
}

// NewCoreBPE builds an encoder from ordinary ranks, special token ranks
// and a pretokenizer pattern. Ordinary and special ranks must not
// overlap and each rank must map to exactly one token.
func NewCoreBPE(encoder map[string]Rank, specials map[string]Rank, pattern string) (*CoreBPE, error) {
	compiled, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("compiling pretokenizer pattern: %w", err)
	}

	decoder := make(map[Rank]string, len(encoder))
	highest := -1
	for token, rank := range encoder {
		if _, duplicate := decoder[rank]; duplicate {
			return nil, fmt.Errorf("vocabulary maps rank %d to more than one token", rank)
		}
		decoder[rank] = token
		highest = max(highest, int(rank))
	}

	specialDecoder := make(map[Rank]string, len(specials))
	names := make([]string, 0, len(specials))
	for name, rank := range specials {
		if _, clash := decoder[rank]; clash {
			return nil, fmt.Errorf("special token %q reuses ordinary rank %d", name, rank)
		}
		if other, duplicate := specialDecoder[rank]; duplicate {
			return nil, fmt.Errorf("special tokens %q and %q share rank %d", name, other, rank)
		}
		specialDecoder[rank] = name
		names = append(names, name)
		highest = max(highest, int(rank))
	}
	sort.Strings(names)

	bpe := &CoreBPE{
		encoder:        encoder,
		decoder:        decoder,
		specialEncoder: specials,
		specialDecoder: specialDecoder,
		pattern:        compiled,
		specialNames:   names,
		vocabularySize: highest + 1,
	}

	if len(names) > 0 {
		alternatives := make([]string, len(names))
		copy(alternatives, names)
		sort.SliceStable(alternatives, func(i, j int) bool {
			return len(alternatives[i]) > len(alternatives[j])
		})
		for i, name := range alternatives {
			alternatives[i] = regexp.QuoteMeta(name)
		}
		bpe.specialPattern, err = regexp.Compile(strings.Join(alternatives, "|"))
		if err != nil {
			return nil, fmt.Errorf("compiling special token pattern: %w", err)
		}
	}

	return bpe, nil
}

// EncodeOrdinary encodes text without recognizing any special token.
// Special token text is encoded byte by byte like any other text.
func (bpe *CoreBPE) EncodeOrdinary(text string) ([]Rank, error) {
	return bpe.encodeOrdinaryInto(text, nil)
}

// Encode encodes text, emitting the dedicated rank for every special
// token in allowed and encoding all other text ordinarily.
func (bpe *CoreBPE) Encode(text string, allowed SpecialSet) ([]Rank, error) {
	if bpe.specialPattern == nil || allowed.IsEmpty() {
		return bpe.EncodeOrdinary(text)
	}

	var tokens []Rank
	start := 0
	for {
		matchStart, matchEnd := bpe.nextAllowedSpecial(text, start, allowed)
		end := len(text)
		if matchStart >= 0 {
			end = matchStart
		}

		var err error
		tokens, err = bpe.encodeOrdinaryInto(text[start:end], tokens)
		if err != nil {
			return nil, err
		}
		if matchStart < 0 {
			return tokens, nil
		}

		tokens = append(tokens, bpe.specialEncoder[text[matchStart:matchEnd]])
		start = matchEnd
	}
}

// EncodeWithSpecialTokens encodes text recognizing every special token.
func (bpe *CoreBPE) EncodeWithSpecialTokens(text string) ([]Rank, error) {
	return bpe.Encode(text, AllSpecial())
}

// FindSpecial returns the byte offsets of the first special token text
// in text at or after offset, or (-1, -1).
func (bpe *CoreBPE) FindSpecial(text string, offset int) (int, int) {
	return bpe.nextAllowedSpecial(text, offset, AllSpecial())
}

// nextAllowedSpecial returns the byte offsets of the first special token
// at or after offset whose text is in allowed, or (-1, -1).
func (bpe *CoreBPE) nextAllowedSpecial(text string, offset int, allowed SpecialSet) (int, int) {
	if bpe.specialPattern == nil {
		return -1, -1
	}
	for offset <= len(text) {
		location := bpe.specialPattern.FindStringIndex(text[offset:])
		if location == nil {
			return -1, -1
		}
		matchStart, matchEnd := offset+location[0], offset+location[1]
		if allowed.Contains(text[matchStart:matchEnd]) {
			return matchStart, matchEnd
		}
		offset = matchStart + 1
	}
	return -1, -1
}

func (bpe *CoreBPE) encodeOrdinaryInto(text string, tokens []Rank) ([]Rank, error) {
	if text == "" {
		return tokens, nil
	}

	// regexp2 matches over runes. Offsets are mapped back to bytes so
	// that invalid UTF-8 in text survives unchanged instead of being
	// rewritten to U+FFFD by the rune conversion.
	runes := []rune(text)
	offsets := make([]int, 0, len(runes)+1)
	for index := range text {
		offsets = append(offsets, index)
	}
	offsets = append(offsets, len(text))

	match, err := bpe.pattern.FindRunesMatch(runes)
	for match != nil && err == nil {
		piece := text[offsets[match.Index]:offsets[match.Index+match.Length]]
		if rank, ok := bpe.encoder[piece]; ok {
			tokens = append(tokens, rank)
		} else {
			tokens, err = bpe.appendMergedPiece(tokens, piece)
			if err != nil {
				return nil, err
			}
		}
		match, err = bpe.pattern.FindNextMatch(match)
	}
	if err != nil {
		return nil, fmt.Errorf("pretokenizing text: %w", err)
	}
	return tokens, nil
}

// appendMergedPiece reduces piece by repeatedly merging the adjacent
// pair with the lowest rank and appends the resulting ranks.
func (bpe *CoreBPE) appendMergedPiece(tokens []Rank, piece string) ([]Rank, error) {
	if len(piece) == 1 {
		rank, ok := bpe.encoder[piece]
		if !ok {
			return nil, fmt.Errorf("vocabulary has no token for byte 0x%02x", piece[0])
		}
		return append(tokens, rank), nil
	}

	boundaries := bytePairMerge(bpe.encoder, piece)
	for i := 0; i+1 < len(boundaries); i++ {
		part := piece[boundaries[i]:boundaries[i+1]]
		rank, ok := bpe.encoder[part]
		if !ok {
			return nil, fmt.Errorf("vocabulary has no token for %q", part)
		}
		tokens = append(tokens, rank)
	}
	return tokens, nil
}

type mergePart struct {
	start int
	rank  Rank
}

// bytePairMerge returns the start offsets of the merged parts of piece,
// followed by len(piece).
func bytePairMerge(ranks map[string]Rank, piece string) []int {
	parts := make([]mergePart, 0, len(piece)+1)
	minRank, minIndex := maxRank, -1
	for i := 0; i < len(piece)-1; i++ {
		rank, ok := ranks[piece[i:i+2]]
		if !ok {
			rank = maxRank
		}
		if rank < minRank {
			minRank, minIndex = rank, i
		}
		parts = append(parts, mergePart{start: i, rank: rank})
	}
	parts = append(parts,
		mergePart{start: len(piece) - 1, rank: maxRank},
		mergePart{start: len(piece), rank: maxRank},
	)

	rankAt := func(i int) Rank {
		if i+3 < len(parts) {
			if rank, ok := ranks[piece[parts[i].start:parts[i+3].start]]; ok {
				return rank
			}
		}
		return maxRank
	}

	for minRank != maxRank {
		i := minIndex
		if i > 0 {
			parts[i-1].rank = rankAt(i - 1)
		}
		parts[i].rank = rankAt(i)
		parts = append(parts[:i+1], parts[i+2:]...)

		minRank, minIndex = maxRank, -1
		for j := 0; j < len(parts)-1; j++ {
			if parts[j].rank < minRank {
				minRank, minIndex = parts[j].rank, j
			}
		}
	}

	boundaries := make([]int, len(parts))
	for i, part := range parts {
		boundaries[i] = part.start
	}
	return boundaries
}

// DecodeBytes returns the concatenated bytes of tokens. It fails on the
// first id that is not part of the vocabulary.
func (bpe *CoreBPE) DecodeBytes(tokens []Rank) ([]byte, error) {
	var output []byte
	for _, token := range tokens {
		if piece, ok := bpe.decoder[token]; ok {
			output = append(output, piece...)
			continue
		}
		if piece, ok := bpe.specialDecoder[token]; ok {
			output = append(output, piece...)
			continue
		}
		return nil, &InvalidTokenError{Token: token}
	}
	return output, nil
}

// DecodeUTF8 decodes tokens to text, failing on invalid ids and on
// bytes that are not valid UTF-8.
func (bpe *CoreBPE) DecodeUTF8(tokens []Rank) (string, error) {
	raw, err := bpe.DecodeBytes(tokens)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w (%d bytes)", ErrInvalidUTF8, len(raw))
	}
	return string(raw), nil
}

// Decode decodes tokens to text, replacing invalid UTF-8 sequences with
// U+FFFD. It still fails on ids outside the vocabulary.
func (bpe *CoreBPE) Decode(tokens []Rank) (string, error) {
	raw, err := bpe.DecodeBytes(tokens)
	if err != nil {
		return "", err
	}
	return LossyString(raw)
}

// LossyString converts raw to a string, replacing invalid UTF-8
// sequences with U+FFFD.
func LossyString(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("replacing invalid UTF-8: %w", err)
	}
	return string(decoded), nil
}

// TokenBytes returns the bytes of a single token.
func (bpe *CoreBPE) TokenBytes(token Rank) ([]byte, error) {
	return bpe.DecodeBytes([]Rank{token})
}

// SpecialTokens returns the text of every special token, sorted.
func (bpe *CoreBPE) SpecialTokens() []string {
	names := make([]string, len(bpe.specialNames))
	copy(names, bpe.specialNames)
	return names
}

// IsSpecialToken reports whether token is a special token id.
func (bpe *CoreBPE) IsSpecialToken(token Rank) bool {
	_, ok := bpe.specialDecoder[token]
	return ok
}

// SpecialTokenRank returns the id of the named special token.
func (bpe *CoreBPE) SpecialTokenRank(name string) (Rank, bool) {
	rank, ok := bpe.specialEncoder[name]
	return rank, ok
}

// VocabularySize returns one more than the highest id in the vocabulary.
func (bpe *CoreBPE) VocabularySize() int {
	return bpe.vocabularySize
}
