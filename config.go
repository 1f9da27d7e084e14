package tenantvault

import (
	"fmt"
	"log/slog"

	"github.com/hengadev/tenantvault/internal/storage"
)

// Config holds the configuration for creating a Service instance.
//
// The struct contains only data, no behavior. Configuration can be loaded
// from any source (environment variables, a YAML file, code) and passed
// explicitly to NewService; there is no ambient global lookup.
//
// Exactly one of RootSecret or (RootSecretSource, RootSecretAlias) is
// required. Everything else has working defaults applied by Validate.
type Config struct {
	// RootSecret is the raw root secret seeding per-tenant key derivation.
	// Must be at least RootSecretMinLength bytes.
	RootSecret []byte

	// RootSecretSource retrieves the root secret from an external secret
	// manager at construction time, as an alternative to RootSecret.
	RootSecretSource RootSecretSource

	// RootSecretAlias is the deployment alias passed to RootSecretSource.
	RootSecretAlias string

	// Pepper is an optional secret mixed into master-key hashes. Unlike the
	// per-record salt it is configuration, not stored data.
	Pepper []byte

	// Argon2 tunes the master-key hash work factor. Nil uses
	// DefaultArgon2Params.
	Argon2 *Argon2Params

	// AutoProvision enables zero-tenant bootstrap: the first master key
	// presented to an empty system creates its tenant. Off by default so a
	// deployment stays closed to new tenants after initial setup unless it
	// explicitly opts in.
	AutoProvision bool

	// DBPath is the directory holding the vault database.
	// Default: DefaultDBPath.
	DBPath string

	// DBFilename is the database filename. Default: DefaultDBFilename.
	DBFilename string

	// RateLimitRPM is the per-tenant budget in requests per minute; burst
	// capacity is twice this. Default: DefaultRateLimitRPM.
	RateLimitRPM int

	// LoginRPM is the per-origin budget for authentication attempts.
	// Default: DefaultLoginRPM.
	LoginRPM int

	// SignupRPM is the per-origin budget for signup-class operations.
	// Default: DefaultSignupRPM.
	SignupRPM int

	// Storage overrides the SQLite backend, mainly for tests.
	Storage storage.Store

	// AuditSink receives structured security events. Nil uses a slog-backed
	// sink over Logger.
	AuditSink AuditSink

	// Logger is the structured logger. Nil uses slog.Default.
	Logger *slog.Logger
}

// Validate checks that the configuration is usable and applies defaults to
// optional fields. Misconfiguration is fatal by design: it must prevent
// service start, not surface at first use.
func (c *Config) Validate() error {
	hasSecret := len(c.RootSecret) > 0
	hasSource := c.RootSecretSource != nil

	if !hasSecret && !hasSource {
		return fmt.Errorf("%w: either RootSecret or RootSecretSource is required", ErrInvalidConfiguration)
	}
	if hasSecret && hasSource {
		return fmt.Errorf("%w: RootSecret and RootSecretSource are mutually exclusive", ErrInvalidConfiguration)
	}
	if hasSecret && len(c.RootSecret) < RootSecretMinLength {
		return fmt.Errorf("%w: root secret must be at least %d bytes, got %d",
			ErrInvalidConfiguration, RootSecretMinLength, len(c.RootSecret))
	}
	if hasSource && c.RootSecretAlias == "" {
		return fmt.Errorf("%w: RootSecretAlias is required with RootSecretSource", ErrInvalidConfiguration)
	}

	if c.Argon2 == nil {
		c.Argon2 = DefaultArgon2Params()
	}
	if err := c.Argon2.Validate(); err != nil {
		return err
	}

	if c.DBPath == "" {
		c.DBPath = DefaultDBPath
	}
	if c.DBFilename == "" {
		c.DBFilename = DefaultDBFilename
	}
	if c.RateLimitRPM <= 0 {
		c.RateLimitRPM = DefaultRateLimitRPM
	}
	if c.LoginRPM <= 0 {
		c.LoginRPM = DefaultLoginRPM
	}
	if c.SignupRPM <= 0 {
		c.SignupRPM = DefaultSignupRPM
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.AuditSink == nil {
		c.AuditSink = NewSlogAuditSink(c.Logger)
	}

	return nil
}

// limits builds the rate limiter configuration from the validated budgets.
func (c *Config) limits() map[OperationClass]Limit {
	return map[OperationClass]Limit{
		OpRead:   LimitForRPM(c.RateLimitRPM),
		OpWrite:  LimitForRPM(c.RateLimitRPM),
		OpLogin:  {Capacity: float64(c.LoginRPM), Rate: float64(c.LoginRPM) / 60.0},
		OpSignup: {Capacity: float64(c.SignupRPM), Rate: float64(c.SignupRPM) / 60.0},
	}
}
