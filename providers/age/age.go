// Package age implements the age-style X25519 key-wrapping backend: the
// document data key is sealed to a recipient's Curve25519 public key with an
// ephemeral key exchange, HKDF-SHA256 derivation and ChaCha20-Poly1305.
//
// Recipients and identities are hex-encoded 32-byte Curve25519 keys. A
// wrapper built from a recipient alone can only wrap; unwrapping requires the
// identity (the private scalar).
package age

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/hengadev/envmeta"
)

const hkdfInfo = "envmeta/age/v1"

// Wrapper implements envmeta.KeyWrapper for one X25519 recipient.
type Wrapper struct {
	recipient string
	publicKey []byte
	identity  []byte // nil when the wrapper can only wrap
}

// NewWrapper builds a wrap-only Wrapper from a hex-encoded recipient public
// key.
func NewWrapper(recipient string) (*Wrapper, error) {
	publicKey, err := decodeKey(recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient: %w", envmeta.ErrInvalidConfiguration, err)
	}
	return &Wrapper{recipient: recipient, publicKey: publicKey}, nil
}

// NewWrapperWithIdentity builds a Wrapper from a hex-encoded identity. The
// recipient public key is derived from it, so the wrapper can both wrap and
// unwrap.
func NewWrapperWithIdentity(identity string) (*Wrapper, error) {
	secret, err := decodeKey(identity)
	if err != nil {
		return nil, fmt.Errorf("%w: identity: %w", envmeta.ErrInvalidConfiguration, err)
	}
	publicKey, err := curve25519.X25519(secret, curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("%w: identity: %w", envmeta.ErrInvalidConfiguration, err)
	}
	return &Wrapper{
		recipient: hex.EncodeToString(publicKey),
		publicKey: publicKey,
		identity:  secret,
	}, nil
}

// GenerateIdentity creates a fresh identity/recipient pair.
func GenerateIdentity() (identity, recipient string, err error) {
	secret := make([]byte, curve25519.ScalarSize)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return "", "", fmt.Errorf("failed to generate identity: %w", err)
	}
	publicKey, err := curve25519.X25519(secret, curve25519.Basepoint)
	if err != nil {
		return "", "", fmt.Errorf("failed to derive recipient: %w", err)
	}
	return hex.EncodeToString(secret), hex.EncodeToString(publicKey), nil
}

func (w *Wrapper) Backend() envmeta.Backend { return envmeta.BackendAge }
func (w *Wrapper) Recipient() string        { return w.recipient }

// Wrap seals the data key to the recipient. The blob layout is
// base64(ephemeral public key || ChaCha20-Poly1305 ciphertext).
func (w *Wrapper) Wrap(ctx context.Context, dataKey []byte) (string, error) {
	if len(dataKey) == 0 {
		return "", envmeta.NewMissingArgumentError("dataKey")
	}

	ephemeralSecret := make([]byte, curve25519.ScalarSize)
	if _, err := io.ReadFull(rand.Reader, ephemeralSecret); err != nil {
		return "", fmt.Errorf("%w: %w", envmeta.ErrWrapFailed, err)
	}
	ephemeralPublic, err := curve25519.X25519(ephemeralSecret, curve25519.Basepoint)
	if err != nil {
		return "", fmt.Errorf("%w: %w", envmeta.ErrWrapFailed, err)
	}
	shared, err := curve25519.X25519(ephemeralSecret, w.publicKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", envmeta.ErrWrapFailed, err)
	}

	aead, err := deriveAEAD(shared, ephemeralPublic, w.publicKey)
	if err != nil {
		return "", fmt.Errorf("%w: %w", envmeta.ErrWrapFailed, err)
	}
	nonce := make([]byte, aead.NonceSize())
	sealed := aead.Seal(nil, nonce, dataKey, nil)

	blob := make([]byte, 0, len(ephemeralPublic)+len(sealed))
	blob = append(blob, ephemeralPublic...)
	blob = append(blob, sealed...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Unwrap opens a blob produced by Wrap. It fails unless the wrapper holds the
// identity.
func (w *Wrapper) Unwrap(ctx context.Context, wrappedKey string) ([]byte, error) {
	if w.identity == nil {
		return nil, fmt.Errorf("%w: wrapper for recipient '%s' holds no identity", envmeta.ErrUnwrapFailed, w.recipient)
	}
	blob, err := base64.StdEncoding.DecodeString(wrappedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", envmeta.ErrUnwrapFailed, err)
	}
	if len(blob) <= curve25519.PointSize {
		return nil, fmt.Errorf("%w: blob too short", envmeta.ErrUnwrapFailed)
	}
	ephemeralPublic, sealed := blob[:curve25519.PointSize], blob[curve25519.PointSize:]

	shared, err := curve25519.X25519(w.identity, ephemeralPublic)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", envmeta.ErrUnwrapFailed, err)
	}
	aead, err := deriveAEAD(shared, ephemeralPublic, w.publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", envmeta.ErrUnwrapFailed, err)
	}
	nonce := make([]byte, aead.NonceSize())
	dataKey, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", envmeta.ErrUnwrapFailed, err)
	}
	return dataKey, nil
}

// deriveAEAD derives the wrapping key from the shared secret, salted with
// both public keys so each wrap binds its key exchange. The nonce can then be
// all zeros: the wrapping key is unique per ephemeral key.
func deriveAEAD(shared, ephemeralPublic, recipientPublic []byte) (cipher.AEAD, error) {
	salt := make([]byte, 0, len(ephemeralPublic)+len(recipientPublic))
	salt = append(salt, ephemeralPublic...)
	salt = append(salt, recipientPublic...)

	wrappingKey := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, shared, salt, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, wrappingKey); err != nil {
		return nil, err
	}
	return chacha20poly1305.New(wrappingKey)
}

func decodeKey(encoded string) ([]byte, error) {
	key, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("not a hex-encoded key: %w", err)
	}
	if len(key) != curve25519.ScalarSize {
		return nil, fmt.Errorf("expected %d key bytes, got %d", curve25519.ScalarSize, len(key))
	}
	return key, nil
}
