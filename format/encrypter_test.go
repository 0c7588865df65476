package format

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/envmeta"
	"github.com/hengadev/envmeta/providers/age"
)

const plainJSON = `{
	"database": {
		"host_unencrypted": "db.internal",
		"password": "hunter2",
		"port": 5432
	},
	"tokens": ["tok-1", "tok-2"],
	"welcome_unencrypted": "hello"
}`

func newTestEncrypter(t *testing.T, opts ...EncrypterOption) *Encrypter {
	t.Helper()
	base := []EncrypterOption{
		WithKeyWrappers(envmeta.NewStaticKeyWrapper(envmeta.BackendAge, "test-recipient")),
	}
	e, err := NewEncrypter(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestNewEncrypter_RequiresWrappers(t *testing.T) {
	_, err := NewEncrypter()
	require.Error(t, err)
	assert.ErrorIs(t, err, envmeta.ErrInvalidConfiguration)
}

func TestEncrypter_EncryptDecrypt_JSON(t *testing.T) {
	ctx := context.Background()
	e := newTestEncrypter(t)

	encrypted, err := e.Encrypt(ctx, "app.json", []byte(plainJSON))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(encrypted, &doc))

	// The envelope is merged under the "sops" key.
	envelope, ok := doc[envmeta.EnvelopeKey].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, envmeta.DefaultVersion, envelope["version"])
	assert.NotEmpty(t, envelope["mac"])
	assert.NotEmpty(t, envelope["lastmodified"])
	ageGroup, ok := envelope["age"].([]any)
	require.True(t, ok)
	require.Len(t, ageGroup, 1)

	// In-scope values are opaque, suffix-excluded ones stay readable.
	database := doc["database"].(map[string]any)
	assert.NotEqual(t, "hunter2", database["password"])
	assert.Equal(t, "db.internal", database["host_unencrypted"])
	assert.Equal(t, "hello", doc["welcome_unencrypted"])

	decrypted, err := e.Decrypt(ctx, encrypted)
	require.NoError(t, err)

	var got, want map[string]any
	require.NoError(t, json.Unmarshal(decrypted, &got))
	require.NoError(t, json.Unmarshal([]byte(plainJSON), &want))
	assert.Equal(t, want, got)
}

func TestEncrypter_EncryptDecrypt_YAML(t *testing.T) {
	ctx := context.Background()
	e := newTestEncrypter(t, WithCodec(YAMLCodec{}))

	plain := []byte("username: alice\npassword: hunter2\nrole_unencrypted: admin\n")
	encrypted, err := e.Encrypt(ctx, "app.yaml", plain)
	require.NoError(t, err)
	assert.Contains(t, string(encrypted), "role_unencrypted: admin")
	assert.NotContains(t, string(encrypted), "hunter2")

	decrypted, err := e.Decrypt(ctx, encrypted)
	require.NoError(t, err)
	assert.Contains(t, string(decrypted), "password: hunter2")
	assert.NotContains(t, string(decrypted), envmeta.EnvelopeKey+":")
}

func TestEncrypter_ScopeOptionsApply(t *testing.T) {
	ctx := context.Background()
	e := newTestEncrypter(t, WithMetadataOptions(
		envmeta.WithUnencryptedSuffix(""),
		envmeta.WithEncryptedRegex("^secret_"),
	))

	encrypted, err := e.Encrypt(ctx, "app.json", []byte(`{"secret_token": "abc", "public_url": "https://example.com"}`))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(encrypted, &doc))
	assert.NotEqual(t, "abc", doc["secret_token"])
	assert.Equal(t, "https://example.com", doc["public_url"])
}

func TestEncrypter_EncryptTwiceFails(t *testing.T) {
	ctx := context.Background()
	e := newTestEncrypter(t)

	encrypted, err := e.Encrypt(ctx, "app.json", []byte(plainJSON))
	require.NoError(t, err)

	_, err = e.Encrypt(ctx, "app.json", encrypted)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyEncrypted)
}

func TestEncrypter_DecryptWithoutEnvelope(t *testing.T) {
	e := newTestEncrypter(t)

	_, err := e.Decrypt(context.Background(), []byte(plainJSON))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoEnvelope)
}

func TestEncrypter_DecryptWithWrongWrapper(t *testing.T) {
	ctx := context.Background()
	e := newTestEncrypter(t)

	encrypted, err := e.Encrypt(ctx, "app.json", []byte(plainJSON))
	require.NoError(t, err)

	other, err := NewEncrypter(WithKeyWrappers(
		envmeta.NewStaticKeyWrapper(envmeta.BackendAge, "test-recipient"),
	))
	require.NoError(t, err)

	// Same backend and recipient name, but a different instance holds a
	// different wrapping key.
	_, err = other.Decrypt(ctx, encrypted)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoUsableKeyWrapping)
}

func TestEncrypter_TamperedValueFailsIntegrity(t *testing.T) {
	ctx := context.Background()
	e := newTestEncrypter(t)

	encrypted, err := e.Encrypt(ctx, "app.json", []byte(`{"a": "one", "b_unencrypted": "two"}`))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(encrypted, &doc))
	doc["b_unencrypted"] = "tampered"
	tampered, err := json.Marshal(doc)
	require.NoError(t, err)

	_, err = e.Decrypt(ctx, tampered)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIntegrityCheckFailed)
}

func TestEncrypter_MultipleWrappers(t *testing.T) {
	ctx := context.Background()

	identity, _, err := age.GenerateIdentity()
	require.NoError(t, err)
	ageWrapper, err := age.NewWrapperWithIdentity(identity)
	require.NoError(t, err)
	staticWrapper := envmeta.NewStaticKeyWrapper(envmeta.BackendHCVault, "transit/keys/app")

	e, err := NewEncrypter(WithKeyWrappers(ageWrapper, staticWrapper))
	require.NoError(t, err)

	encrypted, err := e.Encrypt(ctx, "app.json", []byte(plainJSON))
	require.NoError(t, err)

	// Either wrapper alone suffices to decrypt.
	ageOnly, err := NewEncrypter(WithKeyWrappers(ageWrapper))
	require.NoError(t, err)
	_, err = ageOnly.Decrypt(ctx, encrypted)
	require.NoError(t, err)

	vaultOnly, err := NewEncrypter(WithKeyWrappers(staticWrapper))
	require.NoError(t, err)
	_, err = vaultOnly.Decrypt(ctx, encrypted)
	require.NoError(t, err)
}

func TestEncrypter_AuditJournal(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audit.db")
	e := newTestEncrypter(t, WithAuditJournal(path))

	_, err := e.Encrypt(ctx, "prod/app.json", []byte(plainJSON))
	require.NoError(t, err)

	events, err := e.journal.Events(ctx, "prod/app.json")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "age", events[0].Backend)
	assert.Equal(t, "test-recipient", events[0].Recipient)
}

func TestEncrypter_DeterministicOutput(t *testing.T) {
	ctx := context.Background()
	e := newTestEncrypter(t)

	encrypted, err := e.Encrypt(ctx, "app.json", []byte(plainJSON))
	require.NoError(t, err)

	first, err := e.Decrypt(ctx, encrypted)
	require.NoError(t, err)
	second, err := e.Decrypt(ctx, encrypted)
	require.NoError(t, err)
	assert.Equal(t, first, second, "repeated decodes of one document are byte-identical")
}
