package envmeta

// Option configures a Metadata entity at construction.
type Option func(*Metadata) error

// WithVersion overrides the envelope version constant. An empty value falls
// back to DefaultVersion.
func WithVersion(version string) Option {
	return func(m *Metadata) error {
		if version == "" {
			version = DefaultVersion
		}
		m.version = version
		return nil
	}
}

// WithUnencryptedSuffix replaces the "_unencrypted" construction default.
// Passing the empty string clears the rule entirely.
func WithUnencryptedSuffix(suffix string) Option {
	return func(m *Metadata) error {
		m.rules.unencryptedSuffix = suffix
		return nil
	}
}

// WithEncryptedSuffix configures the authoritative encrypted-suffix rule:
// once set, only names carrying the suffix are encrypted.
func WithEncryptedSuffix(suffix string) Option {
	return func(m *Metadata) error {
		m.rules.encryptedSuffix = suffix
		return nil
	}
}

// WithUnencryptedRegex configures the plaintext-pattern rule. The pattern is
// compiled immediately; a malformed pattern fails construction with
// ErrInvalidRule.
func WithUnencryptedRegex(pattern string) Option {
	return func(m *Metadata) error {
		return m.rules.setUnencryptedRegex(pattern)
	}
}

// WithEncryptedRegex configures the authoritative encrypted-pattern rule,
// compiled immediately like WithUnencryptedRegex.
func WithEncryptedRegex(pattern string) Option {
	return func(m *Metadata) error {
		return m.rules.setEncryptedRegex(pattern)
	}
}
