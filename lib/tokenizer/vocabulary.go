// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tokenizer

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
)

// HashMismatchError reports a vocabulary whose SHA-256 digest differs
// from the published one.
type HashMismatchError struct {
	Source   string
	Expected string
	Computed string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("vocabulary %s: hash mismatch (expected %s, computed %s)",
		e.Source, e.Expected, e.Computed)
}

// VerifyHash checks data against a hex SHA-256 digest. An empty expected
// digest skips the check.
func VerifyHash(source string, data []byte, expected string) error {
	if expected == "" {
		return nil
	}
	sum := sha256.Sum256(data)
	computed := hex.EncodeToString(sum[:])
	if computed != expected {
		return &HashMismatchError{Source: source, Expected: expected, Computed: computed}
	}
	return nil
}

// ParseVocabulary parses tiktoken vocabulary data: one line per token,
// holding the base64 encoding of the token bytes and its decimal rank
// separated by a single space. Blank lines are ignored.
func ParseVocabulary(data []byte) (map[string]Rank, error) {
	ranks := make(map[string]Rank, bytes.Count(data, []byte{'\n'})+1)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := bytes.TrimRight(scanner.Bytes(), "\r")
		if len(line) == 0 {
			continue
		}

		encoded, rankText, found := bytes.Cut(line, []byte{' '})
		if !found {
			return nil, fmt.Errorf("vocabulary line %d: missing rank", lineNumber)
		}
		token := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
		length, err := base64.StdEncoding.Decode(token, encoded)
		if err != nil {
			return nil, fmt.Errorf("vocabulary line %d: decoding token: %w", lineNumber, err)
		}
		rank, err := strconv.ParseUint(string(rankText), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("vocabulary line %d: parsing rank: %w", lineNumber, err)
		}
		ranks[string(token[:length])] = Rank(rank)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading vocabulary: %w", err)
	}
	return ranks, nil
}

// FormatVocabulary renders ranks in the tiktoken file format, ordered by
// rank. It is the inverse of [ParseVocabulary].
func FormatVocabulary(ranks map[string]Rank) []byte {
	ordered := make([]string, 0, len(ranks))
	for token := range ranks {
		ordered = append(ordered, token)
	}
	sortByRank(ordered, ranks)

	var buffer bytes.Buffer
	for _, token := range ordered {
		buffer.WriteString(base64.StdEncoding.EncodeToString([]byte(token)))
		buffer.WriteByte(' ')
		buffer.WriteString(strconv.FormatUint(uint64(ranks[token]), 10))
		buffer.WriteByte('\n')
	}
	return buffer.Bytes()
}

func sortByRank(tokens []string, ranks map[string]Rank) {
	sort.Slice(tokens, func(i, j int) bool {
		return ranks[tokens[i]] < ranks[tokens[j]]
	})
}
