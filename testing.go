package tenantvault

import (
	"bytes"
	"context"
	"testing"

	"github.com/hengadev/tenantvault/internal/storage"
)

// testRootSecret is a fixed 32-byte root secret for deterministic tests.
var testRootSecret = bytes.Repeat([]byte{0xA7}, RootSecretMinLength)

// TestArgon2Params returns hash parameters tuned for test speed, not
// security. Never use them in production.
func TestArgon2Params() *Argon2Params {
	return &Argon2Params{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// NewTestService creates a Service backed by in-memory storage with fast hash
// parameters and auto-provisioning enabled, for use in tests.
//
// Example:
//
//	svc := tenantvault.NewTestService(t)
//	sess, err := svc.Authenticate(ctx, masterKey, "test-origin")
func NewTestService(t *testing.T, options ...Option) *Service {
	t.Helper()

	base := []Option{
		WithRootSecret(testRootSecret),
		WithArgon2Params(TestArgon2Params()),
		WithStorage(storage.NewMemory()),
		WithAuditSink(NoopAuditSink{}),
		WithAutoProvision(true),
	}

	svc, err := NewService(context.Background(), append(base, options...)...)
	if err != nil {
		t.Fatalf("failed to create test service: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

// NewTestVault creates a Vault over a fixed root secret for crypto-level
// tests that do not need the full service.
func NewTestVault(t *testing.T) *Vault {
	t.Helper()

	deriver, err := NewKeyDeriver(testRootSecret)
	if err != nil {
		t.Fatalf("failed to create key deriver: %v", err)
	}
	vault, err := NewVault(deriver)
	if err != nil {
		t.Fatalf("failed to create vault: %v", err)
	}
	return vault
}
