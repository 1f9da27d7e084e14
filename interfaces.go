package tenantvault

import "context"

// RootSecretSource is the contract for retrieving the root secret that seeds
// per-tenant key derivation.
//
// Implementations back the secret with an external secret manager so the raw
// bytes never live in deployment config. The source is consulted once at
// service construction; a deployment that rotates the root secret restarts
// the service.
//
// Implementations:
//   - HashiCorp Vault KV v2: github.com/hengadev/tenantvault/providers/hashicorp.KVSource
//   - AWS Secrets Manager: github.com/hengadev/tenantvault/providers/aws.SecretsManagerSource
type RootSecretSource interface {
	// StoreRootSecret writes the root secret for the given deployment alias.
	// The secret must be at least RootSecretMinLength bytes.
	StoreRootSecret(ctx context.Context, alias string, secret []byte) error

	// GetRootSecret retrieves the root secret for the given deployment alias.
	GetRootSecret(ctx context.Context, alias string) ([]byte, error)

	// RootSecretExists checks whether a root secret exists for the alias.
	// It returns an error only if the check itself fails, not when the
	// secret is simply absent.
	RootSecretExists(ctx context.Context, alias string) (bool, error)

	// StoragePath returns the provider-specific path the secret lives at,
	// for diagnostics and logging.
	StoragePath(alias string) string
}
