// Package crypto implements the value-level cryptography behind the format
// layer: AES-256-GCM over individual document leaves, data-key generation,
// and the integrity code over the plaintext leaf stream.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	// DataKeySize is the AES-256 data key length in bytes.
	DataKeySize = 32

	encPrefix = "ENC[v1:"
	encSuffix = "]"
)

// ValueCipher encrypts and decrypts single document leaves with a shared
// data key. The leaf's path in the document tree is bound into the ciphertext
// as additional authenticated data, so a value moved to another field fails
// to decrypt.
type ValueCipher struct{}

// NewValueCipher creates a ValueCipher.
func NewValueCipher() *ValueCipher {
	return &ValueCipher{}
}

// EncryptValue encrypts one leaf value into the opaque "ENC[v1:...]" string
// form stored in the document. The value is serialized to JSON first so its
// type survives the round trip.
func (c *ValueCipher) EncryptValue(dataKey []byte, value any, path string) (string, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to serialize value at %s: %w", path, err)
	}
	aesGCM, err := newGCM(dataKey)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aesGCM.Seal(nonce, nonce, plaintext, []byte(path))
	return encPrefix + base64.StdEncoding.EncodeToString(sealed) + encSuffix, nil
}

// DecryptValue reverses EncryptValue. The same path must be supplied or
// authentication fails.
func (c *ValueCipher) DecryptValue(dataKey []byte, encrypted, path string) (any, error) {
	if !IsEncryptedValue(encrypted) {
		return nil, fmt.Errorf("value at %s is not in encrypted form", path)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(encrypted, encPrefix), encSuffix)
	sealed, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode value at %s: %w", path, err)
	}
	aesGCM, err := newGCM(dataKey)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aesGCM.NonceSize() {
		return nil, fmt.Errorf("invalid ciphertext size at %s", path)
	}
	nonce, ciphertext := sealed[:aesGCM.NonceSize()], sealed[aesGCM.NonceSize():]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, []byte(path))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt value at %s: %w", path, err)
	}
	var value any
	if err := json.Unmarshal(plaintext, &value); err != nil {
		return nil, fmt.Errorf("failed to deserialize value at %s: %w", path, err)
	}
	return value, nil
}

// IsEncryptedValue reports whether a string carries the opaque encrypted form.
func IsEncryptedValue(s string) bool {
	return strings.HasPrefix(s, encPrefix) && strings.HasSuffix(s, encSuffix)
}

func newGCM(dataKey []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(dataKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
