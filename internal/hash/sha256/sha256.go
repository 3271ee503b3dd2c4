// Package sha256 computes the content hashes used to dedupe stories.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements story.Hasher. Input is passed through the normalizer before
// hashing so cosmetic differences in page text do not produce new hashes.
type Hasher struct {
	normalize func(string) string
}

// New returns a SHA-256 hasher. A nil normalize hashes the raw bytes.
func New(normalize func(string) string) *Hasher {
	return &Hasher{normalize: normalize}
}

// Hash returns the hex digest of the normalized input.
func (h *Hasher) Hash(data []byte) (string, error) {
	if h.normalize != nil {
		data = []byte(h.normalize(string(data)))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
