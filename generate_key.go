package tenantvault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// GenerateMasterKey generates a cryptographically secure master key for
// issuing to a new operator. MasterKeyBytes random bytes encode to a
// 64-character URL-safe string.
func GenerateMasterKey() (string, error) {
	raw := make([]byte, MasterKeyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate master key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// GenerateTenantSalt generates the per-tenant HKDF salt created once at
// provisioning time.
func GenerateTenantSalt() ([]byte, error) {
	salt := make([]byte, TenantSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate tenant salt: %w", err)
	}
	return salt, nil
}

// ValidateMasterKeyStrength checks that a master key meets the minimum
// requirements: at least MasterKeyMinLength characters from the URL-safe
// base64 alphabet.
func ValidateMasterKeyStrength(masterKey string) error {
	if len(masterKey) < MasterKeyMinLength {
		return fmt.Errorf("%w: master key must be at least %d characters", ErrValidation, MasterKeyMinLength)
	}
	for _, c := range masterKey {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return fmt.Errorf("%w: master key contains invalid characters", ErrValidation)
		}
	}
	return nil
}

// Fingerprint computes the fast, non-secret lookup fingerprint of a master
// key. It narrows tenant candidates to an indexed lookup; the authentication
// decision itself always goes through the slow constant-time hash.
func Fingerprint(masterKey string) string {
	sum := sha256.Sum256([]byte(masterKey))
	return hex.EncodeToString(sum[:])
}
