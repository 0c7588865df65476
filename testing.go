package envmeta

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// StaticKeyWrapper is an in-memory KeyWrapper for tests and examples. It
// wraps data keys with AES-GCM under a random per-instance key, so wrap and
// unwrap stay consistent within one instance without any external backend.
type StaticKeyWrapper struct {
	backend   Backend
	recipient string
	key       []byte
}

// NewStaticKeyWrapper creates a test wrapper posing as the given backend and
// recipient.
func NewStaticKeyWrapper(backend Backend, recipient string) *StaticKeyWrapper {
	key := make([]byte, 32)
	rand.Read(key)
	return &StaticKeyWrapper{backend: backend, recipient: recipient, key: key}
}

func (w *StaticKeyWrapper) Backend() Backend  { return w.backend }
func (w *StaticKeyWrapper) Recipient() string { return w.recipient }

func (w *StaticKeyWrapper) Wrap(ctx context.Context, dataKey []byte) (string, error) {
	if len(dataKey) == 0 {
		return "", NewMissingArgumentError("dataKey")
	}
	block, err := aes.NewCipher(w.key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWrapFailed, err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWrapFailed, err)
	}
	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("%w: %w", ErrWrapFailed, err)
	}
	sealed := aesGCM.Seal(nonce, nonce, dataKey, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (w *StaticKeyWrapper) Unwrap(ctx context.Context, wrappedKey string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(wrappedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnwrapFailed, err)
	}
	block, err := aes.NewCipher(w.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnwrapFailed, err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnwrapFailed, err)
	}
	if len(sealed) < aesGCM.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrUnwrapFailed)
	}
	nonce, ciphertext := sealed[:aesGCM.NonceSize()], sealed[aesGCM.NonceSize():]
	dataKey, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnwrapFailed, err)
	}
	return dataKey, nil
}
