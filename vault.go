package tenantvault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// Sealed is the output of an authenticated encryption of one secret payload.
// The three components are always persisted atomically together; a record
// missing any of them is unrecoverable.
type Sealed struct {
	Ciphertext []byte
	Nonce      []byte
	Tag        []byte
}

// Vault performs authenticated encryption and decryption of tenant-owned
// secrets with AES-256-GCM. It owns nonce generation and tamper detection;
// persistence is the caller's responsibility.
type Vault struct {
	deriver *KeyDeriver
}

// NewVault creates a Vault over the given KeyDeriver.
func NewVault(deriver *KeyDeriver) (*Vault, error) {
	if deriver == nil {
		return nil, fmt.Errorf("%w: key deriver is nil", ErrInvalidConfiguration)
	}
	return &Vault{deriver: deriver}, nil
}

// TenantKey derives the encryption key for the given tenant salt.
func (v *Vault) TenantKey(tenantSalt []byte) ([]byte, error) {
	return v.deriver.TenantKey(tenantSalt)
}

// Seal encrypts plaintext under tenantKey with a fresh random nonce. Nonces
// are never reused under the same key; reuse would break both confidentiality
// and integrity of GCM.
func (v *Vault) Seal(tenantKey, plaintext []byte) (Sealed, error) {
	aead, err := newGCM(tenantKey)
	if err != nil {
		return Sealed{}, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return Sealed{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := aead.Seal(nil, nonce, plaintext, nil)

	// GCM appends the tag to the ciphertext; split them so the storage layer
	// can persist the components in separate columns.
	tagStart := len(out) - GCMTagLength
	return Sealed{
		Ciphertext: out[:tagStart],
		Nonce:      nonce,
		Tag:        out[tagStart:],
	}, nil
}

// Unseal decrypts a sealed record under tenantKey, verifying the
// authentication tag. Any verification failure yields ErrTampered: a key
// derived for a different tenant and a corrupted record fail through the same
// code path, so the error does not act as an oracle for which one happened.
func (v *Vault) Unseal(tenantKey []byte, sealed Sealed) ([]byte, error) {
	aead, err := newGCM(tenantKey)
	if err != nil {
		return nil, err
	}

	if len(sealed.Nonce) != aead.NonceSize() || len(sealed.Tag) != GCMTagLength {
		return nil, fmt.Errorf("%w: malformed record components", ErrTampered)
	}

	combined := make([]byte, 0, len(sealed.Ciphertext)+len(sealed.Tag))
	combined = append(combined, sealed.Ciphertext...)
	combined = append(combined, sealed.Tag...)

	plaintext, err := aead.Open(nil, sealed.Nonce, combined, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTampered, err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != TenantKeyLength {
		return nil, fmt.Errorf("%w: tenant key must be %d bytes, got %d",
			ErrInvalidConfiguration, TenantKeyLength, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}
