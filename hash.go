package tenantvault

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Hasher wraps slow, salted one-way hashing of master keys with Argon2id.
//
// Hash output is a self-describing encoded string carrying the algorithm
// version, work-factor parameters, salt, and digest:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt-b64>$<digest-b64>
//
// Verify re-derives the digest from the encoded parameters, so records hashed
// under older parameters keep verifying after the defaults are tuned up.
type Hasher struct {
	params *Argon2Params
	pepper []byte
}

// NewHasher creates a Hasher with the given parameters. A nil params uses
// DefaultArgon2Params. The optional pepper is mixed into every hash; it is
// part of the service configuration, not stored with the record.
func NewHasher(params *Argon2Params, pepper []byte) (*Hasher, error) {
	if params == nil {
		params = DefaultArgon2Params()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Hasher{params: params, pepper: pepper}, nil
}

// Hash hashes a secret with a fresh cryptographically secure salt. Salts are
// never reused across calls.
func (h *Hasher) Hash(secret string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	peppered := append([]byte(secret), h.pepper...)

	digest := argon2.IDKey(
		peppered,
		salt,
		h.params.Iterations,
		h.params.Memory,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	)

	return encoded, nil
}

// Verify reports whether secret matches the encoded hash. The digest
// comparison is constant-time. Malformed input yields false, never an error:
// the caller must not be able to distinguish a corrupt record from a wrong
// secret.
func (h *Hasher) Verify(secret, encoded string) bool {
	salt, digest, iterations, memory, parallelism, ok := decodeHash(encoded)
	if !ok {
		return false
	}

	peppered := append([]byte(secret), h.pepper...)

	computed := argon2.IDKey(
		peppered,
		salt,
		iterations,
		memory,
		parallelism,
		uint32(len(digest)),
	)

	return subtle.ConstantTimeCompare(digest, computed) == 1
}

// decodeHash parses the encoded hash string back into its components.
func decodeHash(encoded string) (salt, digest []byte, iterations, memory uint32, parallelism uint8, ok bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, 0, 0, 0, false
	}

	var p uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &p); err != nil {
		return nil, nil, 0, 0, 0, false
	}
	if p == 0 || p > 255 || iterations == 0 {
		return nil, nil, 0, 0, 0, false
	}
	parallelism = uint8(p)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, nil, 0, 0, 0, false
	}

	digest, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(digest) == 0 {
		return nil, nil, 0, 0, 0, false
	}

	return salt, digest, iterations, memory, parallelism, true
}
