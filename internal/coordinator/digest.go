package coordinator

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// hashBytes computes the 256-bit cryptographic hash H used throughout §4.2
// (PRNG seeding) and §4.3/§4.4 (commitments and digests). The source uses
// keccak256; we preserve that exact primitive via golang.org/x/crypto/sha3's
// legacy-Keccak variant (NewLegacyKeccak256 is bit-for-bit Keccak, unlike
// sha3.New256 which is the later NIST SHA3-256 variant with a different
// padding rule).
func hashBytes(parts ...[]byte) Digest {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// le8 renders x as its little-endian 8-byte representation, matching the
// seed construction in §4.2 ("concatenating their little-endian 8-byte
// representations").
func le8(x uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, x)
	return b
}

// digestInferenceOutput computes digest = H(inferenceId ∥ data), the
// canonical per-assignment digest of §4.3 submit_solution/reveal.
func digestInferenceOutput(inferenceID uint64, data []byte) Digest {
	return hashBytes(le8(inferenceID), data)
}

// commitmentOf computes H(nonce ∥ workerId ∥ data), the validator
// commit-reveal hiding preimage of §4.3 reveal / GLOSSARY "Commitment".
func commitmentOf(nonce uint64, worker ID, data []byte) Digest {
	return hashBytes(le8(nonce), worker[:], data)
}
