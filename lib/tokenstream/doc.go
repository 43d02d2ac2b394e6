// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tokenstream reads token ids from the forms a generator or a
// person produces them in, so the harmony CLI can feed them to the
// batch or streaming parser.
//
// A [Scanner] accepts, on one input:
//
//   - a JSON array spanning the whole input: [200006, 173781, 200008]
//   - whitespace- or comma-separated integers, on one or many lines
//   - JSON lines, each an integer, an array, or an object carrying a
//     "token" number or a "tokens" array
//   - Server-Sent Events whose data payloads are any of the above, as
//     emitted by inference servers; "data: [DONE]" ends the stream
//
// Tokens are delivered one at a time through Next/Token/Err. Line and
// SSE input is consumed a line at a time, so a live generator's tokens
// reach the caller as they arrive. Input whose first non-space
// character is '[' is read to the end before the first token is
// delivered.
package tokenstream
