// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package harmony

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/harmony/lib/chat"
	"github.com/bureau-foundation/harmony/lib/tokenizer"
)

// ErrorKind classifies codec failures.
type ErrorKind int

const (
	// KindVocabulary covers unknown roles, unknown policy values and
	// token ids outside the vocabulary.
	KindVocabulary ErrorKind = iota + 1

	// KindGrammar covers token sequences that violate the message
	// grammar.
	KindGrammar

	// KindEncoding covers text that cannot be encoded as requested,
	// such as disallowed special-token text.
	KindEncoding

	// KindDecoding covers bytes that are not valid UTF-8 under strict
	// decoding.
	KindDecoding
)

func (kind ErrorKind) String() string {
	switch kind {
	case KindVocabulary:
		return "vocabulary"
	case KindGrammar:
		return "grammar"
	case KindEncoding:
		return "encoding"
	case KindDecoding:
		return "decoding"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(kind))
}

var (
	// ErrUnknownRole is the chat package's sentinel, re-exported so
	// callers of this package need not import chat to test for it.
	ErrUnknownRole = chat.ErrUnknownRole

	// ErrInvalidUTF8 is returned (wrapped in a *DecodingError) when
	// strict decoding meets bytes that are not valid UTF-8.
	ErrInvalidUTF8 = tokenizer.ErrInvalidUTF8

	ErrInvalidToken           = errors.New("invalid token")
	ErrDisallowedSpecialToken = errors.New("disallowed special token")
	ErrUnexpectedEOS          = errors.New("unexpected end of stream")
	ErrParserTerminated       = errors.New("parser has terminated")
)

// VocabularyError reports a value outside a closed vocabulary.
type VocabularyError struct {
	Message string
	Err     error
}

func (e *VocabularyError) Error() string { return formatError(e.Message, e.Err) }
func (e *VocabularyError) Unwrap() error { return e.Err }

// Kind returns [KindVocabulary].
func (e *VocabularyError) Kind() ErrorKind { return KindVocabulary }

// GrammarError reports a token sequence that breaks the message
// grammar. Index is the position of the offending token in the input,
// or -1 when the failure is not tied to one token.
type GrammarError struct {
	Message string
	Index   int
	Err     error
}

func (e *GrammarError) Error() string {
	message := e.Message
	if e.Index >= 0 {
		message = fmt.Sprintf("%s (token %d)", message, e.Index)
	}
	return formatError(message, e.Err)
}

func (e *GrammarError) Unwrap() error { return e.Err }

// Kind returns [KindGrammar].
func (e *GrammarError) Kind() ErrorKind { return KindGrammar }

// EncodingError reports text that could not be encoded.
type EncodingError struct {
	Message string
	Err     error
}

func (e *EncodingError) Error() string { return formatError(e.Message, e.Err) }
func (e *EncodingError) Unwrap() error { return e.Err }

// Kind returns [KindEncoding].
func (e *EncodingError) Kind() ErrorKind { return KindEncoding }

// DecodingError reports bytes that could not be decoded as text.
type DecodingError struct {
	Message string
	Err     error
}

func (e *DecodingError) Error() string { return formatError(e.Message, e.Err) }
func (e *DecodingError) Unwrap() error { return e.Err }

// Kind returns [KindDecoding].
func (e *DecodingError) Kind() ErrorKind { return KindDecoding }

// KindOf returns the kind of the first typed codec error in err's
// chain.
func KindOf(err error) (ErrorKind, bool) {
	var kinded interface{ Kind() ErrorKind }
	if errors.As(err, &kinded) {
		return kinded.Kind(), true
	}
	return 0, false
}

func formatError(message string, err error) string {
	if err == nil {
		return message
	}
	if message == "" {
		return err.Error()
	}
	return message + ": " + err.Error()
}

func grammarError(index int, format string, args ...any) error {
	return &GrammarError{Message: fmt.Sprintf(format, args...), Index: index}
}

// wrapDecodeError sorts a tokenizer decode failure into the vocabulary
// or decoding kind.
func wrapDecodeError(err error) error {
	var invalid *tokenizer.InvalidTokenError
	if errors.As(err, &invalid) {
		return &VocabularyError{Err: fmt.Errorf("%w: %w", ErrInvalidToken, err)}
	}
	if errors.Is(err, tokenizer.ErrInvalidUTF8) {
		return &DecodingError{Err: err}
	}
	return err
}
