// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package harmony

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// fingerprintContext separates token fingerprints from every other
// BLAKE3 use of the same bytes.
const fingerprintContext = "harmony 2026 token sequence fingerprint v1"

// Fingerprint returns a stable hex identifier for a token sequence:
// the BLAKE3 derive-key hash of the ids as little-endian uint32s,
// truncated to 128 bits. Identical renders have identical
// fingerprints, so callers can key prompt caches on it.
func Fingerprint(tokens []Rank) string {
	hasher := blake3.NewDeriveKey(fingerprintContext)
	buffer := make([]byte, 0, 4*len(tokens))
	for _, token := range tokens {
		buffer = binary.LittleEndian.AppendUint32(buffer, token)
	}
	hasher.Write(buffer)
	return hex.EncodeToString(hasher.Sum(nil)[:16])
}
