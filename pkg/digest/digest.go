// Package digest holds the hash primitives shared by header, transaction,
// and merkle-root computation: double-SHA-256, on-wire vs. display byte
// order, and the classical merkle pairing rule.
package digest

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// DoubleSHA256 hashes data with SHA-256 twice, the hash used for header and
// transaction identifiers throughout the Bitcoin family.
func DoubleSHA256(data []byte) chainhash.Hash {
	return chainhash.DoubleHashH(data)
}

// ReverseHex renders a hash's wire (little-endian) byte order reversed, the
// big-endian hex convention used for display (block explorers, RPC, CLI
// output).
func ReverseHex(h chainhash.Hash) string {
	reversed := make([]byte, len(h))
	for i := range h {
		reversed[i] = h[len(h)-1-i]
	}
	return hex.EncodeToString(reversed)
}

// MerkleRoot recomputes the merkle root over txids using the classical
// rule: pair adjacent hashes in order, duplicate the last hash when a level
// has an odd count, and double-SHA-256 each pair. Returns the zero hash for
// an empty input.
func MerkleRoot(txids []chainhash.Hash) chainhash.Hash {
	if len(txids) == 0 {
		return chainhash.Hash{}
	}
	level := make([]chainhash.Hash, len(txids))
	copy(level, txids)

	for len(level) > 1 {
		next := make([]chainhash.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			var buf [64]byte
			copy(buf[:32], left[:])
			copy(buf[32:], right[:])
			next = append(next, chainhash.DoubleHashH(buf[:]))
		}
		level = next
	}
	return level[0]
}
