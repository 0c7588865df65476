package format

import (
	"context"

	"github.com/hengadev/envmeta"
	"github.com/hengadev/envmeta/providers/age"
	"github.com/hengadev/envmeta/providers/awskms"
	"github.com/hengadev/envmeta/providers/hcvault"
)

// NewEncrypterFromConfig assembles an Encrypter from a validated Config:
// one age wrapper per recipient, the KMS and Vault Transit wrappers when
// configured, and the audit journal when a path is set. Extra options are
// applied afterwards and may add wrappers or override the codec.
//
// Note that age wrappers built from recipients alone can only wrap; a host
// that needs to decrypt passes a wrapper built with
// age.NewWrapperWithIdentity through WithKeyWrappers instead.
func NewEncrypterFromConfig(ctx context.Context, cfg envmeta.Config, opts ...EncrypterOption) (*Encrypter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var wrappers []envmeta.KeyWrapper
	for _, recipient := range cfg.AgeRecipients {
		w, err := age.NewWrapper(recipient)
		if err != nil {
			return nil, err
		}
		wrappers = append(wrappers, w)
	}
	if cfg.KMSKeyID != "" {
		w, err := awskms.New(ctx, awskms.Config{KeyID: cfg.KMSKeyID, Region: cfg.KMSRegion})
		if err != nil {
			return nil, err
		}
		wrappers = append(wrappers, w)
	}
	if cfg.VaultTransitKey != "" {
		w, err := hcvault.New(cfg.VaultTransitKey)
		if err != nil {
			return nil, err
		}
		wrappers = append(wrappers, w)
	}

	assembled := []EncrypterOption{WithKeyWrappers(wrappers...)}
	if cfg.AuditDBPath != "" {
		assembled = append(assembled, WithAuditJournal(cfg.AuditDBPath))
	}
	assembled = append(assembled, opts...)

	return NewEncrypter(assembled...)
}
