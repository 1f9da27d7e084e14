package tenantvault

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeyDeriver derives per-tenant symmetric keys from the root secret using
// HKDF-SHA256. Derivation is deterministic: the same (root secret, tenant
// salt, info) always yields the same key, which allows the key to be
// re-derived on every decrypt instead of cached.
type KeyDeriver struct {
	rootSecret []byte
}

// NewKeyDeriver creates a KeyDeriver over the given root secret. Root secrets
// shorter than RootSecretMinLength are rejected here, at startup, so a weak
// key never reaches first use.
func NewKeyDeriver(rootSecret []byte) (*KeyDeriver, error) {
	if len(rootSecret) < RootSecretMinLength {
		return nil, fmt.Errorf("%w: root secret must be at least %d bytes, got %d",
			ErrInvalidConfiguration, RootSecretMinLength, len(rootSecret))
	}
	secret := make([]byte, len(rootSecret))
	copy(secret, rootSecret)
	return &KeyDeriver{rootSecret: secret}, nil
}

// Derive expands the root secret and tenant salt into a TenantKeyLength-byte
// key. The info string provides domain separation between distinct uses of
// the root secret; callers inside this module pass InfoTenantKey.
func (d *KeyDeriver) Derive(tenantSalt []byte, info string) ([]byte, error) {
	if len(tenantSalt) == 0 {
		return nil, fmt.Errorf("%w: tenant salt is empty", ErrInvalidConfiguration)
	}
	if info == "" {
		return nil, fmt.Errorf("%w: derivation info string is empty", ErrInvalidConfiguration)
	}

	r := hkdf.New(sha256.New, d.rootSecret, tenantSalt, []byte(info))
	key := make([]byte, TenantKeyLength)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	return key, nil
}

// TenantKey derives the encryption key for a tenant's credential records.
func (d *KeyDeriver) TenantKey(tenantSalt []byte) ([]byte, error) {
	return d.Derive(tenantSalt, InfoTenantKey)
}
