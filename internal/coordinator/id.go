package coordinator

import (
	"encoding/hex"
	"fmt"
)

// ID is an opaque 32-byte identifier used for principals (miners, users,
// the admin, the treasury) and for model identifiers. Keeping it a fixed
// array rather than a byte slice makes it a valid map key, mirroring the
// packed-identifier approach the source used for rosters (§9 design notes).
type ID [32]byte

// ZeroID is the unset/absent identifier.
var ZeroID ID

func (id ID) IsZero() bool {
	return id == ZeroID
}

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", id.String())), nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("coordinator: invalid ID json %q", data)
	}
	s = s[1 : len(s)-1]
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("coordinator: invalid ID hex %q: %w", s, err)
	}
	if len(b) != 32 {
		return fmt.Errorf("coordinator: ID must be 32 bytes, got %d", len(b))
	}
	copy(id[:], b)
	return nil
}

// IDFromString parses a hex-encoded 32-byte identifier.
func IDFromString(s string) (ID, error) {
	var id ID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("coordinator: invalid ID hex %q: %w", s, err)
	}
	if len(b) != 32 {
		return id, fmt.Errorf("coordinator: ID must be 32 bytes, got %d", len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Digest is the 32-byte output of H(), used both for commit-reveal digests
// and commitments.
type Digest [32]byte

func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}
