package crypto

import (
	"crypto/rand"
	"fmt"
	"io"
)

// GenerateDataKey returns a fresh random AES-256 data key. One key encrypts
// every leaf of one document; recipients receive wrapped copies of it.
func GenerateDataKey() ([]byte, error) {
	key := make([]byte, DataKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}
	return key, nil
}
