package envmeta

import (
	"fmt"
	"strings"

	"github.com/hengadev/errsx"
)

// Config collects the host-side settings needed to assemble key wrappers and
// the optional wrap-event journal. It exists for hosts that configure the
// library from the environment; everything here can equally be passed to the
// provider constructors directly.
type Config struct {
	// AgeRecipients are hex-encoded X25519 recipient public keys for the
	// age backend, one wrapper per entry.
	AgeRecipients []string

	// KMSKeyID is the AWS KMS key (ID, ARN or alias) used for the kms
	// backend. Empty disables the backend.
	KMSKeyID  string
	KMSRegion string

	// VaultTransitKey is the Vault Transit Engine key name used for the
	// hc_vault backend. Empty disables the backend. Vault address and token
	// come from the standard VAULT_* environment variables.
	VaultTransitKey string

	// AuditDBPath is the SQLite file recording wrap events. Empty disables
	// the journal.
	AuditDBPath string
}

// Validate checks that the configuration names at least one usable backend
// and that each named backend is complete.
func (c *Config) Validate() error {
	var errs errsx.Map
	if len(c.AgeRecipients) == 0 && c.KMSKeyID == "" && c.VaultTransitKey == "" {
		errs.Set("backends", fmt.Errorf("%w: no key-wrapping backend configured", ErrInvalidConfiguration))
	}
	for i, r := range c.AgeRecipients {
		if strings.TrimSpace(r) == "" {
			errs.Set(fmt.Sprintf("age recipient %d", i), fmt.Errorf("%w: recipient is blank", ErrInvalidConfiguration))
		}
	}
	return errs.AsError()
}
