package envmeta

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	assert.Equal(t, DefaultVersion, m.Version())
	assert.Empty(t, m.MAC())
	assert.Empty(t, m.LastModified())

	// Key-wrapping lists default to empty, never nil.
	for _, b := range backends {
		group := m.KeyWrappings(b)
		assert.NotNil(t, group, "backend %s", b)
		assert.Empty(t, group, "backend %s", b)
	}

	// The construction default suffix rule is active.
	assert.False(t, m.ShouldEncrypt("comment_unencrypted"))
	assert.True(t, m.ShouldEncrypt("comment"))
}

func TestNew_OptionOverrides(t *testing.T) {
	m, err := New(
		WithVersion("3.8.1"),
		WithUnencryptedSuffix(""), // clear the default
		WithEncryptedRegex("^secret_"),
	)
	require.NoError(t, err)

	assert.Equal(t, "3.8.1", m.Version())
	assert.True(t, m.ShouldEncrypt("secret_token"))
	assert.False(t, m.ShouldEncrypt("plain_unencrypted"), "cleared suffix rule must not apply; encrypted regex decides")
	assert.False(t, m.ShouldEncrypt("username"))
}

func TestNew_InvalidRegexOption(t *testing.T) {
	_, err := New(WithEncryptedRegex("(unclosed"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestAddKeyWrapping(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	require.NoError(t, m.AddKeyWrapping(BackendAge, "r1", "blob1"))
	require.NoError(t, m.AddKeyWrapping(BackendAge, "r2", "blob2"))

	group := m.KeyWrappings(BackendAge)
	require.Len(t, group, 2)
	assert.Equal(t, KeyWrapping{Recipient: "r1", WrappedKey: "blob1"}, group[0])
	assert.Equal(t, KeyWrapping{Recipient: "r2", WrappedKey: "blob2"}, group[1])

	// Same recipient twice is two entries; deduplication is the caller's job.
	require.NoError(t, m.AddKeyWrapping(BackendAge, "r1", "blob3"))
	assert.Len(t, m.KeyWrappings(BackendAge), 3)
}

func TestAddKeyWrapping_Validation(t *testing.T) {
	tests := []struct {
		name       string
		backend    Backend
		recipient  string
		wrappedKey string
		wantErr    error
	}{
		{"empty recipient", BackendAge, "", "blob", ErrInvalidArgument},
		{"empty wrapped key", BackendAge, "r1", "", ErrInvalidArgument},
		{"unknown backend", Backend("gpg"), "r1", "blob", ErrUnknownBackend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New()
			require.NoError(t, err)

			err = m.AddKeyWrapping(tt.backend, tt.recipient, tt.wrappedKey)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			// Failed calls leave the entity untouched.
			for _, b := range backends {
				assert.Empty(t, m.KeyWrappings(b))
			}
		})
	}
}

func TestKeyWrappings_Snapshot(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	require.NoError(t, m.AddKeyWrapping(BackendPGP, "fingerprint", "blob"))

	snapshot := m.KeyWrappings(BackendPGP)
	snapshot[0] = KeyWrapping{Recipient: "tampered", WrappedKey: "tampered"}

	assert.Equal(t, "fingerprint", m.KeyWrappings(BackendPGP)[0].Recipient)
}

func TestRefreshTimestamp(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	got := m.RefreshTimestamp()
	assert.Same(t, m, got, "RefreshTimestamp chains")

	assert.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z$`), m.LastModified())
}

func TestToRecord_BackendListTotality(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	record := m.ToRecord()
	for _, b := range backends {
		raw, found := record[string(b)]
		require.True(t, found, "backend %s missing from export", b)
		entries, ok := raw.([]any)
		require.True(t, ok, "backend %s is not a list", b)
		assert.Empty(t, entries)
	}
}

func TestToRecord_OmitsUnsetScalars(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	record := m.ToRecord()
	assert.NotContains(t, record, fieldMAC)
	assert.NotContains(t, record, fieldLastModified)
	assert.NotContains(t, record, fieldEncryptedSuffix)
	assert.NotContains(t, record, fieldUnencryptedRegex)
	assert.NotContains(t, record, fieldEncryptedRegex)

	// version and the default suffix are always present.
	assert.Equal(t, DefaultVersion, record[fieldVersion])
	assert.Equal(t, DefaultUnencryptedSuffix, record[fieldUnencryptedSuffix])
}

func TestToRecord_Pure(t *testing.T) {
	m, err := New(WithEncryptedRegex("^secret_"))
	require.NoError(t, err)
	require.NoError(t, m.AddKeyWrapping(BackendAge, "r1", "blob1"))
	m.SetMAC("mac-value")
	m.RefreshTimestamp()

	assert.Equal(t, m.ToRecord(), m.ToRecord())
}

func TestFromRecord_SoftFail(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"string input", "not-a-record"},
		{"nil input", nil},
		{"list input", []any{"a", "b"}},
		{"number input", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok, err := FromRecord(tt.input)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, m)
		})
	}
}

func TestFromRecord_AppliesDefaults(t *testing.T) {
	m, ok, err := FromRecord(map[string]any{})
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, DefaultVersion, m.Version())
	for _, b := range backends {
		assert.Empty(t, m.KeyWrappings(b))
	}
	// Missing unencrypted_suffix receives the construction default.
	assert.False(t, m.ShouldEncrypt("note_unencrypted"))
}

func TestFromRecord_ReadsKnownFields(t *testing.T) {
	record := map[string]any{
		"age": []any{
			map[string]any{"recipient": "age1abc", "enc": "ciphertext"},
		},
		"lastmodified":       "2023-05-11T08:16:00Z",
		"mac":                "ENC[mac]",
		"version":            "3.8.1",
		"unencrypted_suffix": "_plain",
	}

	m, ok, err := FromRecord(record)
	require.NoError(t, err)
	require.True(t, ok)

	group := m.KeyWrappings(BackendAge)
	require.Len(t, group, 1)
	assert.Equal(t, "age1abc", group[0].Recipient)
	assert.Equal(t, "ciphertext", group[0].WrappedKey)
	assert.Equal(t, "ENC[mac]", m.MAC())
	assert.Equal(t, "3.8.1", m.Version())
	assert.False(t, m.ShouldEncrypt("note_plain"))
	assert.True(t, m.ShouldEncrypt("note_unencrypted"), "explicit suffix replaces the default")
}

func TestFromRecord_DropsUnknownFields(t *testing.T) {
	m, ok, err := FromRecord(map[string]any{
		"future_backend": []any{map[string]any{"recipient": "x", "enc": "y"}},
		"shamir_shares":  3,
	})
	require.NoError(t, err)
	require.True(t, ok)

	record := m.ToRecord()
	assert.NotContains(t, record, "future_backend")
	assert.NotContains(t, record, "shamir_shares")
}

func TestFromRecord_MalformedFields(t *testing.T) {
	tests := []struct {
		name   string
		record map[string]any
	}{
		{"backend list is not a list", map[string]any{"age": "oops"}},
		{"entry is not a record", map[string]any{"age": []any{"oops"}}},
		{"recipient is not a string", map[string]any{"age": []any{map[string]any{"recipient": 1, "enc": "e"}}}},
		{"mac is not a string", map[string]any{"mac": 12}},
		{"bad unencrypted regex", map[string]any{"unencrypted_regex": "(unclosed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok, err := FromRecord(tt.record)
			assert.True(t, ok, "a record input means an envelope is present")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedEnvelope)
			assert.Nil(t, m)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	m, err := New(WithEncryptedSuffix("_secret"), WithUnencryptedSuffix(""))
	require.NoError(t, err)
	require.NoError(t, m.AddKeyWrapping(BackendAge, "age1abc", "blob1"))
	require.NoError(t, m.AddKeyWrapping(BackendHCVault, "transit/keys/app", "vault:v1:abc"))
	m.SetMAC("ENC[mac]")
	m.RefreshTimestamp()

	exported := m.ToRecord()

	reloaded, ok, err := FromRecord(exported)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, exported, reloaded.ToRecord())
}
