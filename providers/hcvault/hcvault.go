// Package hcvault implements the hc_vault key-wrapping backend on HashiCorp
// Vault's Transit Engine: the document data key is encrypted by the engine
// and the envelope stores the "vault:v1:..." ciphertext next to the transit
// key path.
//
// The Transit Engine must be enabled in Vault before use:
//
//	vault secrets enable transit
package hcvault

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"

	"github.com/hashicorp/vault/api"

	"github.com/hengadev/envmeta"
)

// logicalClient is the slice of Vault's logical API the wrapper needs
// (allows mocking).
type logicalClient interface {
	WriteWithContext(ctx context.Context, path string, data map[string]any) (*api.Secret, error)
}

// Wrapper implements envmeta.KeyWrapper using one Transit Engine key.
type Wrapper struct {
	logical logicalClient
	keyName string
}

// New creates a Transit wrapper for the named engine key. The Vault client is
// configured from the standard environment variables:
//
//   - VAULT_ADDR: Vault server address (required)
//   - VAULT_TOKEN: authentication token (required)
//   - VAULT_NAMESPACE: namespace for HCP Vault (optional)
func New(keyName string) (*Wrapper, error) {
	if keyName == "" {
		return nil, fmt.Errorf("%w: transit key name cannot be empty", envmeta.ErrInvalidConfiguration)
	}

	client, err := createVaultClient()
	if err != nil {
		return nil, err
	}
	return &Wrapper{logical: client.Logical(), keyName: keyName}, nil
}

func createVaultClient() (*api.Client, error) {
	config := api.DefaultConfig()
	if addr := os.Getenv("VAULT_ADDR"); addr != "" {
		config.Address = addr
	}
	if config.Address == "" {
		return nil, fmt.Errorf("%w: VAULT_ADDR environment variable is required", envmeta.ErrInvalidConfiguration)
	}
	config.HttpClient.Transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Vault client: %w", envmeta.ErrBackendUnavailable, err)
	}
	if namespace := os.Getenv("VAULT_NAMESPACE"); namespace != "" {
		client.SetNamespace(namespace)
	}

	token := os.Getenv("VAULT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("%w: VAULT_TOKEN environment variable is required", envmeta.ErrInvalidConfiguration)
	}
	client.SetToken(token)
	return client, nil
}

func (w *Wrapper) Backend() envmeta.Backend { return envmeta.BackendHCVault }

// Recipient returns the transit key path recorded in the envelope.
func (w *Wrapper) Recipient() string { return "transit/keys/" + w.keyName }

// Wrap encrypts the data key through the Transit Engine. The blob is Vault's
// own ciphertext format ("vault:v1:base64...") and is stored verbatim.
func (w *Wrapper) Wrap(ctx context.Context, dataKey []byte) (string, error) {
	if len(dataKey) == 0 {
		return "", envmeta.NewMissingArgumentError("dataKey")
	}

	// Vault Transit expects base64-encoded plaintext.
	resp, err := w.logical.WriteWithContext(ctx, fmt.Sprintf("transit/encrypt/%s", w.keyName), map[string]any{
		"plaintext": base64.StdEncoding.EncodeToString(dataKey),
	})
	if err != nil {
		return "", fmt.Errorf("%w: transit key '%s': %w", envmeta.ErrWrapFailed, w.keyName, err)
	}
	if resp == nil || resp.Data == nil {
		return "", fmt.Errorf("%w: no response from Vault Transit encrypt", envmeta.ErrWrapFailed)
	}
	ciphertext, ok := resp.Data["ciphertext"].(string)
	if !ok {
		return "", fmt.Errorf("%w: ciphertext not found in response", envmeta.ErrWrapFailed)
	}
	return ciphertext, nil
}

// Unwrap decrypts a blob produced by Wrap (or by any other implementation
// wrapping through the same transit key).
func (w *Wrapper) Unwrap(ctx context.Context, wrappedKey string) ([]byte, error) {
	resp, err := w.logical.WriteWithContext(ctx, fmt.Sprintf("transit/decrypt/%s", w.keyName), map[string]any{
		"ciphertext": wrappedKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: transit key '%s': %w", envmeta.ErrUnwrapFailed, w.keyName, err)
	}
	if resp == nil || resp.Data == nil {
		return nil, fmt.Errorf("%w: no response from Vault Transit decrypt", envmeta.ErrUnwrapFailed)
	}
	encoded, ok := resp.Data["plaintext"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: plaintext not found in response", envmeta.ErrUnwrapFailed)
	}
	dataKey, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode plaintext: %w", envmeta.ErrUnwrapFailed, err)
	}
	return dataKey, nil
}
