// Package hashicorp provides HashiCorp Vault KV v2 integration for
// tenantvault.
//
// This package implements the tenantvault.RootSecretSource interface over
// Vault's KV v2 secrets engine, so the root secret that seeds per-tenant key
// derivation lives in Vault instead of deployment configuration.
//
// # Basic Usage
//
//	import (
//	    "context"
//	    "github.com/hengadev/tenantvault"
//	    vaultkv "github.com/hengadev/tenantvault/providers/hashicorp"
//	)
//
//	source, err := vaultkv.NewKVSource()
//	if err != nil {
//	    // handle error
//	}
//
//	svc, err := tenantvault.NewService(ctx,
//	    tenantvault.WithRootSecretSource(source, "payments-prod"),
//	)
//
// # Configuration
//
// The Vault client is configured from environment variables:
//
//   - VAULT_ADDR: Vault server address (required)
//   - VAULT_NAMESPACE: namespace for HCP Vault (optional)
//   - VAULT_TOKEN: direct token authentication (optional)
//   - VAULT_ROLE_ID / VAULT_SECRET_ID: AppRole authentication (optional)
//
// Either VAULT_TOKEN or the AppRole pair must be set.
//
// # Secret Layout
//
// Root secrets are stored at:
//
//	secret/data/tenantvault/{alias}/root-secret
//
// with the base64-encoded secret under the "value" key. The KV v2 engine must
// be enabled before use:
//
//	vault secrets enable -path=secret kv-v2
package hashicorp
