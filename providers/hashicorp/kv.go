package hashicorp

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/hashicorp/vault/api"

	"github.com/hengadev/tenantvault"
)

// KVSource implements tenantvault.RootSecretSource using HashiCorp Vault's
// KV v2 secrets engine.
//
// Writes are versioned by the engine, so a rotated root secret keeps its
// history in Vault.
type KVSource struct {
	client *api.Client
}

// NewKVSource creates a KVSource configured from environment variables (see
// createVaultClient).
//
// Usage:
//
//	source, err := hashicorp.NewKVSource()
//	if err != nil {
//	    log.Fatal(err)
//	}
func NewKVSource() (*KVSource, error) {
	client, err := createVaultClient()
	if err != nil {
		return nil, err
	}
	return &KVSource{client: client}, nil
}

// StoragePath returns the Vault KV v2 path for a deployment alias.
//
// Path format: "secret/data/tenantvault/{alias}/root-secret". The "/data/"
// segment is required by the KV v2 API.
func (k *KVSource) StoragePath(alias string) string {
	return fmt.Sprintf(tenantvault.VaultRootSecretPathTemplate, alias)
}

// StoreRootSecret writes the root secret for alias, base64-encoded under the
// "value" key. An existing secret gets a new KV v2 version.
func (k *KVSource) StoreRootSecret(ctx context.Context, alias string, secret []byte) error {
	if len(secret) < tenantvault.RootSecretMinLength {
		return fmt.Errorf("%w: root secret must be at least %d bytes, got %d",
			tenantvault.ErrInvalidConfiguration, tenantvault.RootSecretMinLength, len(secret))
	}

	path := k.StoragePath(alias)

	// KV v2 requires payloads wrapped in a "data" key.
	data := map[string]interface{}{
		"data": map[string]interface{}{
			"value": base64.StdEncoding.EncodeToString(secret),
		},
	}

	if _, err := k.client.Logical().WriteWithContext(ctx, path, data); err != nil {
		return fmt.Errorf("%w: failed to store root secret in Vault KV: %w",
			tenantvault.ErrSecretSourceUnavailable, err)
	}
	return nil
}

// GetRootSecret retrieves and decodes the root secret for alias.
func (k *KVSource) GetRootSecret(ctx context.Context, alias string) ([]byte, error) {
	path := k.StoragePath(alias)

	secret, err := k.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read root secret from Vault KV: %w",
			tenantvault.ErrSecretSourceUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: root secret not found for alias: %s",
			tenantvault.ErrSecretSourceUnavailable, alias)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: invalid KV v2 secret format for alias: %s",
			tenantvault.ErrSecretSourceUnavailable, alias)
	}

	encoded, ok := data["value"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: root secret value not found or invalid format for alias: %s",
			tenantvault.ErrSecretSourceUnavailable, alias)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode root secret: %w",
			tenantvault.ErrSecretSourceUnavailable, err)
	}

	if len(raw) < tenantvault.RootSecretMinLength {
		return nil, fmt.Errorf("%w: stored root secret is %d bytes, need at least %d",
			tenantvault.ErrSecretSourceUnavailable, len(raw), tenantvault.RootSecretMinLength)
	}

	return raw, nil
}

// RootSecretExists checks whether a root secret exists for alias. Absence is
// not an error; only a failed read is.
func (k *KVSource) RootSecretExists(ctx context.Context, alias string) (bool, error) {
	path := k.StoragePath(alias)

	secret, err := k.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return false, fmt.Errorf("%w: failed to check if root secret exists: %w",
			tenantvault.ErrSecretSourceUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return false, nil
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return false, nil
	}
	_, ok = data["value"].(string)
	return ok, nil
}
