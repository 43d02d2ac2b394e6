// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tokenizer

import (
	"errors"
	"reflect"
	"testing"
)

const (
	testStart   Rank = 300
	testMessage Rank = 301
	testEnd     Rank = 302
)

// newTestBPE builds a vocabulary of all 256 single bytes plus the merges
// needed to spell "hello" and " world", and three special tokens.
func newTestBPE(t *testing.T) *CoreBPE {
	t.Helper()
	ranks := make(map[string]Rank, 265)
	for b := 0; b < 256; b++ {
		ranks[string([]byte{byte(b)})] = Rank(b)
	}
	for i, merge := range []string{"he", "ll", "hell", "hello", " w", "or", " wor", "ld", " world"} {
		ranks[merge] = Rank(256 + i)
	}
	specials := map[string]Rank{
		"<|start|>":   testStart,
		"<|message|>": testMessage,
		"<|end|>":     testEnd,
	}
	bpe, err := NewCoreBPE(ranks, specials, O200kPattern)
	if err != nil {
		t.Fatalf("NewCoreBPE: %v", err)
	}
	return bpe
}

func TestEncodeOrdinary(t *testing.T) {
	t.Parallel()
	bpe := newTestBPE(t)

	tests := []struct {
		name string
		text string
		want []Rank
	}{
		{name: "whole pieces", text: "hello world", want: []Rank{259, 264}},
		{name: "merge loop", text: "hellod", want: []Rank{259, 'd'}},
		{name: "unmergeable", text: "hi", want: []Rank{'h', 'i'}},
		{name: "empty", text: "", want: nil},
		{name: "special text stays ordinary", text: "<|end|>", want: []Rank{'<', '|', 'e', 'n', 'd', '|', '>'}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := bpe.EncodeOrdinary(test.text)
			if err != nil {
				t.Fatalf("EncodeOrdinary(%q): %v", test.text, err)
			}
			if !reflect.DeepEqual(got, test.want) {
				t.Errorf("EncodeOrdinary(%q) = %v, want %v", test.text, got, test.want)
			}
		})
	}
}

func TestEncodeAllowedSpecials(t *testing.T) {
	t.Parallel()
	bpe := newTestBPE(t)

	got, err := bpe.Encode("<|start|>hi<|end|>", Specials("<|start|>"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []Rank{testStart, 'h', 'i', '<', '|', 'e', 'n', 'd', '|', '>'}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Encode with one allowed special = %v, want %v", got, want)
	}

	got, err = bpe.EncodeWithSpecialTokens("<|start|>hello<|message|>")
	if err != nil {
		t.Fatalf("EncodeWithSpecialTokens: %v", err)
	}
	want = []Rank{testStart, 259, testMessage}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EncodeWithSpecialTokens = %v, want %v", got, want)
	}
}

func TestEncodeInvalidUTF8Preserved(t *testing.T) {
	t.Parallel()
	bpe := newTestBPE(t)

	text := "he\xffllo"
	tokens, err := bpe.EncodeOrdinary(text)
	if err != nil {
		t.Fatalf("EncodeOrdinary: %v", err)
	}
	raw, err := bpe.DecodeBytes(tokens)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if string(raw) != text {
		t.Errorf("round trip = %q, want %q", raw, text)
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()
	bpe := newTestBPE(t)

	text, err := bpe.DecodeUTF8([]Rank{testStart, 259, 264, testEnd})
	if err != nil {
		t.Fatalf("DecodeUTF8: %v", err)
	}
	if text != "<|start|>hello world<|end|>" {
		t.Errorf("DecodeUTF8 = %q", text)
	}

	_, err = bpe.DecodeBytes([]Rank{259, 99999})
	var invalid *InvalidTokenError
	if !errors.As(err, &invalid) {
		t.Fatalf("DecodeBytes with unknown id: got %v, want *InvalidTokenError", err)
	}
	if invalid.Token != 99999 {
		t.Errorf("InvalidTokenError.Token = %d, want 99999", invalid.Token)
	}
	if err.Error() != "invalid token for decoding: 99999" {
		t.Errorf("error text = %q", err.Error())
	}

	if _, err := bpe.DecodeUTF8([]Rank{'a', 0xff}); !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("DecodeUTF8 of 0xff: got %v, want ErrInvalidUTF8", err)
	}
	lossy, err := bpe.Decode([]Rank{'a', 0xff})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if lossy != "a\uFFFD" {
		t.Errorf("Decode of 0xff = %q, want %q", lossy, "a\uFFFD")
	}
}

func TestSpecialTokenLookup(t *testing.T) {
	t.Parallel()
	bpe := newTestBPE(t)

	want := []string{"<|end|>", "<|message|>", "<|start|>"}
	if got := bpe.SpecialTokens(); !reflect.DeepEqual(got, want) {
		t.Errorf("SpecialTokens() = %v, want %v", got, want)
	}
	if !bpe.IsSpecialToken(testEnd) {
		t.Errorf("IsSpecialToken(%d) = false", testEnd)
	}
	if bpe.IsSpecialToken(259) {
		t.Error("IsSpecialToken(259) = true for an ordinary token")
	}
	if rank, ok := bpe.SpecialTokenRank("<|message|>"); !ok || rank != testMessage {
		t.Errorf("SpecialTokenRank(<|message|>) = %d, %v", rank, ok)
	}
	if got := bpe.VocabularySize(); got != int(testEnd)+1 {
		t.Errorf("VocabularySize() = %d, want %d", got, testEnd+1)
	}
	start, end := bpe.FindSpecial("ab<|end|>", 0)
	if start != 2 || end != 9 {
		t.Errorf("FindSpecial = (%d, %d), want (2, 9)", start, end)
	}
}

func TestNewCoreBPERejectsOverlap(t *testing.T) {
	t.Parallel()

	_, err := NewCoreBPE(map[string]Rank{"a": 0}, map[string]Rank{"<|x|>": 0}, O200kPattern)
	if err == nil {
		t.Fatal("expected error for special token sharing an ordinary rank")
	}
	_, err = NewCoreBPE(map[string]Rank{"a": 0, "b": 0}, nil, O200kPattern)
	if err == nil {
		t.Fatal("expected error for duplicate ordinary rank")
	}
}

func TestSpecialSet(t *testing.T) {
	t.Parallel()

	if !AllSpecial().Contains("<|anything|>") {
		t.Error("AllSpecial should contain every name")
	}
	if NoSpecial().Contains("<|start|>") || !NoSpecial().IsEmpty() {
		t.Error("NoSpecial should be empty")
	}
	set := Specials("<|b|>", "<|a|>")
	if !set.Contains("<|a|>") || set.Contains("<|c|>") {
		t.Error("Specials membership wrong")
	}
	if got := set.Names(); !reflect.DeepEqual(got, []string{"<|a|>", "<|b|>"}) {
		t.Errorf("Names() = %v", got)
	}

	complement := set.Complement()
	if complement.Contains("<|a|>") || !complement.Contains("<|c|>") {
		t.Error("Complement membership wrong")
	}
	if complement.IsAll() || complement.IsEmpty() {
		t.Error("Complement of a finite set is neither all nor empty")
	}
	if !NoSpecial().Complement().IsAll() || !AllSpecial().Complement().IsEmpty() {
		t.Error("Complement of NoSpecial/AllSpecial wrong")
	}
}
