package codec

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 fingerprint.
type Digest [32]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:8])
}

// fingerprintKey separates section fingerprints from any other BLAKE3 use.
var fingerprintKey = [32]byte{
	'p', 'a', 's', 's', 'k', 'e', 'e', 'p', 'e', 'r', '.', 's', 'e', 'c', 't', 'i',
	'o', 'n', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Fingerprint returns the keyed BLAKE3 digest of v's deterministic CBOR
// encoding. Two values have equal fingerprints iff they encode identically.
func Fingerprint(v any) (Digest, error) {
	raw, err := Marshal(v)
	if err != nil {
		return Digest{}, fmt.Errorf("fingerprint: %w", err)
	}

	hasher, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		panic("codec: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = hasher.Write(raw)

	var d Digest
	copy(d[:], hasher.Sum(nil))
	return d, nil
}
