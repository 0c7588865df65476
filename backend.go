package envmeta

// Backend names a key-wrapping backend. The set is fixed: only age has a
// functional provider in this module, the rest are carried verbatim through
// load/export so foreign envelopes survive a rewrite.
type Backend string

const (
	BackendAge     Backend = "age"
	BackendPGP     Backend = "pgp"
	BackendAWSKMS  Backend = "kms"
	BackendGCPKMS  Backend = "gcp_kms"
	BackendAzureKV Backend = "azure_kv"
	BackendHCVault Backend = "hc_vault"
)

// backends lists every known backend in wire order. ToRecord emits one list
// per entry even when empty; downstream consumers expect every key to exist.
var backends = []Backend{
	BackendAge,
	BackendPGP,
	BackendAWSKMS,
	BackendGCPKMS,
	BackendAzureKV,
	BackendHCVault,
}

// ParseBackend validates a backend name read from caller input.
func ParseBackend(name string) (Backend, error) {
	b := Backend(name)
	for _, known := range backends {
		if b == known {
			return b, nil
		}
	}
	return "", NewUnknownBackendError(name)
}

func (b Backend) String() string { return string(b) }
