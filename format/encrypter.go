package format

import (
	"context"
	"fmt"

	"github.com/hengadev/errsx"

	"github.com/hengadev/envmeta"
	"github.com/hengadev/envmeta/internal/audit"
	"github.com/hengadev/envmeta/internal/crypto"
)

// Encrypter runs the whole-document encryption and decryption flow: decode,
// envelope handling, key wrapping through the configured backends, the scoped
// tree walk, the integrity code, and encode.
type Encrypter struct {
	codec    Codec
	wrappers []envmeta.KeyWrapper
	metaOpts []envmeta.Option
	journal  *audit.Journal
}

// EncrypterOption configures an Encrypter.
type EncrypterOption func(*Encrypter) error

// WithCodec selects the document codec. JSONCodec is the default.
func WithCodec(c Codec) EncrypterOption {
	return func(e *Encrypter) error {
		if c == nil {
			return fmt.Errorf("%w: codec cannot be nil", envmeta.ErrInvalidConfiguration)
		}
		e.codec = c
		return nil
	}
}

// WithKeyWrappers sets the key-wrapping backends. Encryption wraps the data
// key once per wrapper; decryption tries them until one unwraps.
func WithKeyWrappers(wrappers ...envmeta.KeyWrapper) EncrypterOption {
	return func(e *Encrypter) error {
		if len(wrappers) == 0 {
			return fmt.Errorf("%w: at least one key wrapper is required", envmeta.ErrInvalidConfiguration)
		}
		e.wrappers = append(e.wrappers, wrappers...)
		return nil
	}
}

// WithMetadataOptions forwards envelope options (scope rules, version) to the
// Metadata constructed for each freshly encrypted document.
func WithMetadataOptions(opts ...envmeta.Option) EncrypterOption {
	return func(e *Encrypter) error {
		e.metaOpts = append(e.metaOpts, opts...)
		return nil
	}
}

// WithAuditJournal enables the SQLite wrap-event journal at the given path.
func WithAuditJournal(path string) EncrypterOption {
	return func(e *Encrypter) error {
		if path == "" {
			return fmt.Errorf("%w: audit journal path cannot be empty", envmeta.ErrInvalidConfiguration)
		}
		journal, err := audit.Open(path)
		if err != nil {
			return fmt.Errorf("%w: %w", envmeta.ErrInvalidConfiguration, err)
		}
		e.journal = journal
		return nil
	}
}

// NewEncrypter assembles an Encrypter. At least one key wrapper must be
// configured.
func NewEncrypter(opts ...EncrypterOption) (*Encrypter, error) {
	e := &Encrypter{codec: JSONCodec{}}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if len(e.wrappers) == 0 {
		return nil, fmt.Errorf("%w: at least one key wrapper is required", envmeta.ErrInvalidConfiguration)
	}
	return e, nil
}

// Close releases resources held by optional components.
func (e *Encrypter) Close() error {
	if e.journal != nil {
		return e.journal.Close()
	}
	return nil
}

// Encrypt turns a plaintext document into its encrypted form. The name
// identifies the document in the wrap-event journal only; it does not affect
// the output bytes.
//
// A fresh data key is generated, wrapped once per configured backend and
// recorded in the envelope, every field ruled in scope is encrypted, the
// integrity code is computed over the plaintext leaves, and the envelope is
// merged into the document before encoding.
func (e *Encrypter) Encrypt(ctx context.Context, name string, plaintext []byte) ([]byte, error) {
	doc, err := e.codec.Unmarshal(plaintext)
	if err != nil {
		return nil, err
	}
	if _, found := doc[envmeta.EnvelopeKey]; found {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyEncrypted, name)
	}

	meta, err := envmeta.New(e.metaOpts...)
	if err != nil {
		return nil, err
	}
	dataKey, err := crypto.GenerateDataKey()
	if err != nil {
		return nil, err
	}

	for _, wrapper := range e.wrappers {
		wrappedKey, err := wrapper.Wrap(ctx, dataKey)
		if err != nil {
			return nil, fmt.Errorf("wrapping data key for %s recipient '%s': %w",
				wrapper.Backend(), wrapper.Recipient(), err)
		}
		if err := meta.AddKeyWrapping(wrapper.Backend(), wrapper.Recipient(), wrappedKey); err != nil {
			return nil, err
		}
		if e.journal != nil {
			if err := e.journal.Record(ctx, name, wrapper.Backend().String(), wrapper.Recipient()); err != nil {
				return nil, err
			}
		}
	}

	w := newWalker(meta, dataKey)
	encrypted, err := w.encrypt(doc, nil, true)
	if err != nil {
		return nil, err
	}
	out := encrypted.(map[string]any)

	meta.SetMAC(w.mac.Sum())
	meta.RefreshTimestamp()
	out[envmeta.EnvelopeKey] = meta.ToRecord()

	return e.codec.Marshal(out)
}

// Decrypt reverses Encrypt: it extracts the envelope, unwraps the data key
// through the configured backends, decrypts every encrypted leaf and verifies
// the integrity code before encoding the plaintext document.
func (e *Encrypter) Decrypt(ctx context.Context, raw []byte) ([]byte, error) {
	doc, err := e.codec.Unmarshal(raw)
	if err != nil {
		return nil, err
	}
	meta, ok, err := envmeta.FromRecord(doc[envmeta.EnvelopeKey])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoEnvelope
	}
	delete(doc, envmeta.EnvelopeKey)

	dataKey, err := e.unwrapDataKey(ctx, meta)
	if err != nil {
		return nil, err
	}

	w := newWalker(meta, dataKey)
	decrypted, err := w.decrypt(doc, nil)
	if err != nil {
		return nil, err
	}

	if mac := meta.MAC(); mac != "" && !w.mac.Verify(mac) {
		return nil, ErrIntegrityCheckFailed
	}

	return e.codec.Marshal(decrypted.(map[string]any))
}

// unwrapDataKey tries every envelope entry of every configured backend until
// one unwraps. Entries recorded for the wrapper's own recipient are tried
// first.
func (e *Encrypter) unwrapDataKey(ctx context.Context, meta *envmeta.Metadata) ([]byte, error) {
	var errs errsx.Map
	for _, wrapper := range e.wrappers {
		group := meta.KeyWrappings(wrapper.Backend())
		for _, own := range []bool{true, false} {
			for _, entry := range group {
				if (entry.Recipient == wrapper.Recipient()) != own {
					continue
				}
				dataKey, err := wrapper.Unwrap(ctx, entry.WrappedKey)
				if err == nil {
					return dataKey, nil
				}
				errs.Set(fmt.Sprintf("%s recipient '%s'", wrapper.Backend(), entry.Recipient), err)
			}
		}
	}
	if errs.IsEmpty() {
		return nil, fmt.Errorf("%w: no envelope entry matches a configured backend", ErrNoUsableKeyWrapping)
	}
	return nil, fmt.Errorf("%w: %w", ErrNoUsableKeyWrapping, errs.AsError())
}
