package tenantvault

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hengadev/tenantvault/internal/storage"
)

// Option represents a configuration option for creating a Service instance.
type Option func(*Config) error

// WithRootSecret sets the raw root secret.
func WithRootSecret(secret []byte) Option {
	return func(c *Config) error {
		if len(secret) < RootSecretMinLength {
			return fmt.Errorf("%w: root secret must be at least %d bytes, got %d",
				ErrInvalidConfiguration, RootSecretMinLength, len(secret))
		}
		c.RootSecret = secret
		return nil
	}
}

// WithRootSecretSource sets an external source for the root secret.
func WithRootSecretSource(source RootSecretSource, alias string) Option {
	return func(c *Config) error {
		if source == nil {
			return fmt.Errorf("%w: root secret source cannot be nil", ErrInvalidConfiguration)
		}
		if strings.TrimSpace(alias) == "" {
			return fmt.Errorf("%w: root secret alias cannot be empty", ErrInvalidConfiguration)
		}
		c.RootSecretSource = source
		c.RootSecretAlias = strings.TrimSpace(alias)
		return nil
	}
}

// WithPepper sets the hashing pepper.
func WithPepper(pepper []byte) Option {
	return func(c *Config) error {
		if len(pepper) == 0 {
			return fmt.Errorf("%w: pepper cannot be empty", ErrInvalidConfiguration)
		}
		allZeros := true
		for _, b := range pepper {
			if b != 0 {
				allZeros = false
				break
			}
		}
		if allZeros {
			return fmt.Errorf("%w: pepper is uninitialized (all zeros)", ErrInvalidConfiguration)
		}
		c.Pepper = pepper
		return nil
	}
}

// WithArgon2Params overrides the master-key hash work factor.
func WithArgon2Params(params *Argon2Params) Option {
	return func(c *Config) error {
		if err := params.Validate(); err != nil {
			return err
		}
		c.Argon2 = params
		return nil
	}
}

// WithAutoProvision toggles zero-tenant bootstrap provisioning.
func WithAutoProvision(enabled bool) Option {
	return func(c *Config) error {
		c.AutoProvision = enabled
		return nil
	}
}

// WithDatabasePath sets the database directory and filename.
func WithDatabasePath(dir, filename string) Option {
	return func(c *Config) error {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("%w: database path cannot be empty", ErrInvalidConfiguration)
		}
		c.DBPath = dir
		if filename != "" {
			c.DBFilename = filename
		}
		return nil
	}
}

// WithRateLimits sets the per-tenant and per-origin request budgets in
// requests per minute. Zero values keep their defaults.
func WithRateLimits(tenantRPM, loginRPM, signupRPM int) Option {
	return func(c *Config) error {
		if tenantRPM < 0 || loginRPM < 0 || signupRPM < 0 {
			return fmt.Errorf("%w: rate limits cannot be negative", ErrInvalidConfiguration)
		}
		c.RateLimitRPM = tenantRPM
		c.LoginRPM = loginRPM
		c.SignupRPM = signupRPM
		return nil
	}
}

// WithStorage injects a storage backend, replacing the default SQLite one.
func WithStorage(store storage.Store) Option {
	return func(c *Config) error {
		if store == nil {
			return fmt.Errorf("%w: storage cannot be nil", ErrInvalidConfiguration)
		}
		c.Storage = store
		return nil
	}
}

// WithAuditSink sets the audit collaborator.
func WithAuditSink(sink AuditSink) Option {
	return func(c *Config) error {
		if sink == nil {
			return fmt.Errorf("%w: audit sink cannot be nil", ErrInvalidConfiguration)
		}
		c.AuditSink = sink
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) error {
		if logger == nil {
			return fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfiguration)
		}
		c.Logger = logger
		return nil
	}
}

// WithConfig replaces the whole configuration at once. Later options still
// apply on top of it.
func WithConfig(cfg Config) Option {
	return func(c *Config) error {
		*c = cfg
		return nil
	}
}
