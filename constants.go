package tenantvault

// Key material constraints
const (
	// RootSecretMinLength is the minimum length in bytes for the root secret.
	// Shorter secrets are rejected at construction time, never at first use.
	RootSecretMinLength = 32

	// TenantKeyLength is the length in bytes of a derived per-tenant key
	// (AES-256).
	TenantKeyLength = 32

	// TenantSaltLength is the length in bytes of the random salt generated
	// once per tenant at provisioning time. The salt is stored alongside the
	// tenant record; it is not secret but must be unpredictable.
	TenantSaltLength = 32

	// MasterKeyMinLength is the minimum accepted length in characters for a
	// presented master key.
	MasterKeyMinLength = 32

	// MasterKeyBytes is the number of random bytes behind a generated master
	// key. 48 bytes encode to a 64-character URL-safe string.
	MasterKeyBytes = 48

	// GCMNonceLength is the nonce length in bytes for AES-GCM.
	GCMNonceLength = 12

	// GCMTagLength is the authentication tag length in bytes for AES-GCM.
	GCMTagLength = 16
)

// Domain-separation info strings for HKDF. Distinct uses of the root secret
// must never share an info string.
const (
	InfoTenantKey = "tenantvault/v1/tenant-key"
)

// Environment variable names
const (
	// EnvRootSecret is the environment variable holding the base64-encoded
	// root secret (32+ bytes decoded).
	EnvRootSecret = "TENANTVAULT_ROOT_SECRET"

	// EnvDBPath is the environment variable for the database directory path.
	EnvDBPath = "TENANTVAULT_DB_PATH"

	// EnvDBFilename is the environment variable for the database filename.
	EnvDBFilename = "TENANTVAULT_DB_FILENAME"

	// EnvAutoProvision toggles zero-tenant bootstrap provisioning
	// ("true"/"false", default false).
	EnvAutoProvision = "TENANTVAULT_AUTO_PROVISION"

	// EnvRateLimitRPM sets the per-tenant request budget in requests per
	// minute.
	EnvRateLimitRPM = "TENANTVAULT_RATE_LIMIT_RPM"
)

// Default values
const (
	// DefaultDBPath is the default directory for the vault database.
	DefaultDBPath = ".tenantvault"

	// DefaultDBFilename is the default filename for the vault database.
	DefaultDBFilename = "vault.db"

	// DefaultRateLimitRPM is the default per-tenant budget in requests per
	// minute. Burst capacity is twice the per-minute rate.
	DefaultRateLimitRPM = 120

	// DefaultLoginRPM is the default per-origin budget for authentication
	// attempts.
	DefaultLoginRPM = 10

	// DefaultSignupRPM is the default per-origin budget for signup-class
	// operations.
	DefaultSignupRPM = 5

	// MaxStoreLabelLength is the maximum accepted length for a store label.
	MaxStoreLabelLength = 255
)

// Storage path templates for root-secret providers
const (
	// AWSRootSecretPathTemplate is the path template for the root secret in
	// AWS Secrets Manager. The %s placeholder is the deployment alias.
	AWSRootSecretPathTemplate = "tenantvault/%s/root-secret"

	// VaultRootSecretPathTemplate is the path template for the root secret in
	// HashiCorp Vault KV v2. The %s placeholder is the deployment alias.
	VaultRootSecretPathTemplate = "secret/data/tenantvault/%s/root-secret"
)
