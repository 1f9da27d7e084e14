package tenantvault

import (
	"errors"
	"fmt"
	"time"
)

var (
	// High-level service errors
	ErrAuthenticationFailed    = errors.New("authentication failed")
	ErrInvalidConfiguration    = errors.New("invalid configuration")
	ErrSecretSourceUnavailable = errors.New("root secret source unavailable")
	ErrStorageUnavailable      = errors.New("storage unavailable")

	// Vault errors
	ErrTampered = errors.New("credential record failed integrity verification")

	// Request errors
	ErrValidation  = errors.New("validation failed")
	ErrConflict    = errors.New("conflict")
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// RateLimitError wraps ErrRateLimited with the retry-after hint computed by
// the token bucket.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// NewNotFoundError builds a NotFound error naming the missing resource.
func NewNotFoundError(resource, identifier string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, resource, identifier)
}

// NewConflictError builds a Conflict error for a uniqueness violation.
func NewConflictError(detail string) error {
	return fmt.Errorf("%w: %s", ErrConflict, detail)
}

// IsAuthError returns true if the error represents an authentication problem.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed)
}

// IsConfigurationError returns true if the error represents a configuration
// problem that must prevent service start.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsTamperError returns true if the error represents an authenticated-decryption
// tag mismatch. Wrong-key and corrupted-data failures are deliberately
// indistinguishable.
func IsTamperError(err error) bool {
	return errors.Is(err, ErrTampered)
}

// IsValidationError returns true if the error represents malformed input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConflictError returns true if the error represents a uniqueness violation.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsNotFoundError returns true if the error represents an unknown reference.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRateLimitError returns true if the error represents a throttled request.
func IsRateLimitError(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsRetryableError returns true if the error represents a transient failure
// that might succeed on retry. Only lookup paths retry internally; mutations
// and authentication never do.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, ErrSecretSourceUnavailable)
}
