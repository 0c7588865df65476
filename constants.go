package envmeta

const (
	// EnvelopeKey is the top-level document key the envelope record lives under.
	EnvelopeKey = "sops"

	// DefaultVersion is the compatibility constant written when no explicit
	// envelope version is set. It tracks the wire format other implementations
	// of the envelope expect.
	DefaultVersion = "3.7.3"

	// DefaultUnencryptedSuffix is applied at construction unless overridden.
	DefaultUnencryptedSuffix = "_unencrypted"

	// timestampLayout is the lastmodified wire form: ISO-8601 UTC, whole
	// seconds, Z-suffixed.
	timestampLayout = "2006-01-02T15:04:05Z"
)

// Wire field names of the envelope record.
const (
	fieldLastModified      = "lastmodified"
	fieldMAC               = "mac"
	fieldVersion           = "version"
	fieldUnencryptedSuffix = "unencrypted_suffix"
	fieldEncryptedSuffix   = "encrypted_suffix"
	fieldUnencryptedRegex  = "unencrypted_regex"
	fieldEncryptedRegex    = "encrypted_regex"

	fieldRecipient  = "recipient"
	fieldWrappedKey = "enc"
)
