// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration shared by the
// Harmony libraries and the harmony CLI.
//
// Two serialization formats are in use, with a clear boundary:
//
//   - JSON for anything a person reads or writes: conversation files,
//     CLI output, the streaming parser's StateJSON view.
//   - CBOR for compact machine records: token sequences from
//     `harmony render -o cbor`, conversation files read with
//     --input-format cbor, and streaming parser snapshots restored
//     later to resume a generation.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// same conversation or parser state always produces identical bytes,
// so snapshots can be compared and hashed.
//
// For buffer-oriented operations (files, snapshots):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For CBOR sequences (one item after another on a stream):
//
//	encoder := codec.NewEncoder(output)
//
// # Struct Tag Rules
//
// A `cbor` tag marks a type that is only ever serialized as CBOR, such
// as the parser snapshot record. A `json` tag marks a type that is
// serialized as both: fxamacker/cbor reads `json` tags when `cbor` tags
// are absent, so one tag controls field naming and omitempty for both
// formats. Never put both tags on the same field.
package codec
