package tenantvault

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		classify func(error) bool
	}{
		{name: "auth", err: ErrAuthenticationFailed, classify: IsAuthError},
		{name: "configuration", err: fmt.Errorf("%w: bad knob", ErrInvalidConfiguration), classify: IsConfigurationError},
		{name: "tamper", err: fmt.Errorf("%w: tag mismatch", ErrTampered), classify: IsTamperError},
		{name: "validation", err: fmt.Errorf("%w: empty label", ErrValidation), classify: IsValidationError},
		{name: "conflict", err: NewConflictError("label taken"), classify: IsConflictError},
		{name: "not found", err: NewNotFoundError("store", "alpha"), classify: IsNotFoundError},
		{name: "rate limit", err: &RateLimitError{RetryAfter: time.Second}, classify: IsRateLimitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.classify(tt.err))
			// Classes are disjoint: no other classifier matches.
			all := []func(error) bool{
				IsAuthError, IsConfigurationError, IsTamperError,
				IsValidationError, IsConflictError, IsNotFoundError, IsRateLimitError,
			}
			matches := 0
			for _, classify := range all {
				if classify(tt.err) {
					matches++
				}
			}
			assert.Equal(t, 1, matches)
		})
	}
}

func TestRateLimitError(t *testing.T) {
	err := &RateLimitError{RetryAfter: 90 * time.Second}

	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Contains(t, err.Error(), "1m30s")

	var rle *RateLimitError
	require.True(t, errors.As(error(err), &rle))
	assert.Equal(t, 90*time.Second, rle.RetryAfter)
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("store", "alpha")
	assert.Contains(t, err.Error(), "store")
	assert.Contains(t, err.Error(), `"alpha"`)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(fmt.Errorf("%w: locked", ErrStorageUnavailable)))
	assert.True(t, IsRetryableError(fmt.Errorf("%w: timeout", ErrSecretSourceUnavailable)))
	assert.False(t, IsRetryableError(ErrAuthenticationFailed))
	assert.False(t, IsRetryableError(ErrValidation))
	assert.False(t, IsRetryableError(nil))
}
