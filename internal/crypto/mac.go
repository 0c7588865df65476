package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
)

// MAC accumulates the integrity code over a document's plaintext leaves in
// walk order, keyed with the document data key. The resulting hex string is
// what the envelope stores as its opaque integrity code.
type MAC struct {
	h hash.Hash
}

// NewMAC creates an accumulator keyed with the data key.
func NewMAC(dataKey []byte) *MAC {
	return &MAC{h: hmac.New(sha256.New, dataKey)}
}

// Add feeds one plaintext leaf into the accumulator.
func (m *MAC) Add(value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize value for integrity code: %w", err)
	}
	m.h.Write(encoded)
	return nil
}

// Sum returns the hex-encoded integrity code.
func (m *MAC) Sum() string {
	return hex.EncodeToString(m.h.Sum(nil))
}

// Verify compares a stored integrity code against the accumulated one in
// constant time.
func (m *MAC) Verify(stored string) bool {
	expected, err := hex.DecodeString(stored)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, m.h.Sum(nil))
}
