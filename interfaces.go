package envmeta

import "context"

// KeyWrapper is the contract between the envelope and a key-wrapping backend.
//
// Implementations encrypt the document data key for one recipient and decrypt
// it back. The envelope never inspects either side of the exchange: recipient
// identifiers and wrapped-key blobs are stored verbatim and handed back
// verbatim.
//
// Implementations:
//   - age X25519 recipients: github.com/hengadev/envmeta/providers/age
//   - AWS KMS: github.com/hengadev/envmeta/providers/awskms
//   - HashiCorp Vault Transit: github.com/hengadev/envmeta/providers/hcvault
type KeyWrapper interface {
	// Backend names the envelope list this wrapper's entries belong to.
	Backend() Backend

	// Recipient returns the opaque recipient identifier recorded next to
	// each wrapped key this wrapper produces.
	Recipient() string

	// Wrap encrypts the document data key for this wrapper's recipient and
	// returns the opaque ciphertext blob to store in the envelope.
	Wrap(ctx context.Context, dataKey []byte) (string, error)

	// Unwrap decrypts a blob previously produced by Wrap (or by a foreign
	// implementation of the same backend) back into the data key.
	Unwrap(ctx context.Context, wrappedKey string) ([]byte, error)
}

// DocumentStore reads and writes raw document bytes. The library itself never
// touches storage; stores exist so hosts can plug remote locations (S3, etc.)
// into their load/save path.
type DocumentStore interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Store(ctx context.Context, name string, data []byte) error
}
