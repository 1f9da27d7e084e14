// Package tenantvault implements a multi-tenant credential vault: clients
// authenticate with an opaque master key and store, resolve, and delete
// encrypted credential records scoped to their tenant.
//
// # Architecture
//
// A single root secret seeds HKDF-SHA256 derivation of per-tenant encryption
// keys, so tenant keys are never stored; they are recomputed from the root
// secret and the tenant's salt on every authentication. Master keys are
// verified against argon2id hashes and never persisted in recoverable form.
// Credential payloads are sealed with AES-256-GCM and stored as separate
// ciphertext, nonce, and tag components; any post-write corruption surfaces
// as ErrTampered on resolve.
//
// # Usage
//
//	svc, err := tenantvault.NewService(ctx,
//	    tenantvault.WithRootSecret(rootSecret),
//	    tenantvault.WithAutoProvision(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close()
//
//	sess, err := svc.Authenticate(ctx, masterKey, clientAddr)
//	if err != nil {
//	    // Uniform failure: tenantvault.IsAuthError(err) is true for any
//	    // invalid, unknown, or malformed key.
//	}
//
//	id, err := svc.RegisterStore(ctx, sess, "production-api", secretBytes)
//	payload, err := svc.ResolveStore(ctx, sess, "production-api")
//
// All operations pass through a token-bucket rate limiter: per-origin for
// authentication, per-tenant for store operations. Denials return a
// *RateLimitError carrying a retry-after hint.
//
// The root secret can come from configuration, the environment, or an
// external secret manager; see the providers/hashicorp and providers/aws
// subpackages for RootSecretSource implementations.
package tenantvault
