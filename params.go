package tenantvault

import (
	"fmt"

	"github.com/hengadev/errsx"
)

// Argon2Params defines the parameters for Argon2id master-key hashing.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns recommended parameters for Argon2id.
func DefaultArgon2Params() *Argon2Params {
	return &Argon2Params{
		Memory:      64 * 1024, // 64MB
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Validate checks that the parameters are usable. Zero-valued parameters
// would silently weaken the hash, so every problem is collected and reported.
func (p *Argon2Params) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: argon2 parameters are nil", ErrInvalidConfiguration)
	}

	var errs errsx.Map
	if p.Memory < 8*1024 {
		errs.Set("memory", fmt.Errorf("memory must be at least 8192 KiB, got %d", p.Memory))
	}
	if p.Iterations == 0 {
		errs.Set("iterations", fmt.Errorf("iterations must be at least 1, got %d", p.Iterations))
	}
	if p.Parallelism == 0 {
		errs.Set("parallelism", fmt.Errorf("parallelism must be at least 1, got %d", p.Parallelism))
	}
	if p.SaltLength < 8 {
		errs.Set("saltLength", fmt.Errorf("salt length must be at least 8 bytes, got %d", p.SaltLength))
	}
	if p.KeyLength < 16 {
		errs.Set("keyLength", fmt.Errorf("key length must be at least 16 bytes, got %d", p.KeyLength))
	}

	if err := errs.AsError(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return nil
}
