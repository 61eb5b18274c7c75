package coordinator

import "encoding/binary"

// seed computes seed_i = H(i ∥ now) per §4.2: the PRNG is seeded from
// (nonce, current unix_timestamp) by concatenating their little-endian
// 8-byte representations and hashing with keccak256. Implementations must
// preserve this exact construction for cross-implementation determinism —
// it is a test-observable property, not an implementation detail.
func seed(nonce uint64, now int64) Digest {
	return hashBytes(le8(nonce), le8(uint64(now)))
}

// seedIndex interprets the trailing 8 bytes of a seed digest as a
// little-endian unsigned integer modulo rangeN, matching the source's
// Borsh `u64::try_from_slice(rightmost)` decode (programs/solearn_solana/
// src/utils.rs) rather than a big-endian read.
func seedIndex(d Digest, rangeN int) int {
	if rangeN <= 0 {
		return 0
	}
	trailing := d[24:32]
	n := binary.LittleEndian.Uint64(trailing)
	return int(n % uint64(rangeN))
}
