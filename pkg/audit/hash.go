package audit

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Hasher hashes identifiers that should not be stored verbatim.
type Hasher interface {
	Hash(data string) string
}

type blake2bHasher struct {
	key []byte
}

// NewBlake2bHasher returns a keyed BLAKE2b-256 hasher. The same key must be
// used across deployments for hashes to stay comparable.
func NewBlake2bHasher(key []byte) (Hasher, error) {
	if len(key) == 0 || len(key) > blake2b.Size {
		return nil, ErrInvalidHasherKey
	}
	if _, err := blake2b.New256(key); err != nil {
		return nil, err
	}
	return &blake2bHasher{key: append([]byte(nil), key...)}, nil
}

func (h *blake2bHasher) Hash(data string) string {
	// New256 only fails on key length, checked in the constructor.
	d, _ := blake2b.New256(h.key)
	d.Write([]byte(data))
	return hex.EncodeToString(d.Sum(nil))
}
