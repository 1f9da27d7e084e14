package tenantvault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hengadev/tenantvault/internal/reliability"
	"github.com/hengadev/tenantvault/internal/storage"
)

// Authenticator verifies presented master keys, resolves them to a tenant
// identity, and provisions the first tenant of a fresh deployment when
// auto-provisioning is enabled.
//
// Per request it moves Unauthenticated -> Verifying -> Authenticated or
// Rejected. Failures are uniform: the caller cannot tell a malformed key from
// an unrecognized one. Authentication is never retried internally; retry
// policy belongs to the transport.
type Authenticator struct {
	store         storage.TenantStore
	hasher        *Hasher
	deriver       *KeyDeriver
	audit         AuditSink
	autoProvision bool

	retry reliability.Config
	now   func() time.Time
}

// NewAuthenticator wires an Authenticator over its collaborators.
func NewAuthenticator(store storage.TenantStore, hasher *Hasher, deriver *KeyDeriver, audit AuditSink, autoProvision bool) (*Authenticator, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: tenant store is nil", ErrInvalidConfiguration)
	}
	if hasher == nil {
		return nil, fmt.Errorf("%w: hasher is nil", ErrInvalidConfiguration)
	}
	if deriver == nil {
		return nil, fmt.Errorf("%w: key deriver is nil", ErrInvalidConfiguration)
	}
	if audit == nil {
		audit = NoopAuditSink{}
	}

	retry := reliability.DefaultConfig()
	retry.ShouldRetry = func(err error, _ int) bool {
		return errors.Is(err, storage.ErrUnavailable)
	}

	return &Authenticator{
		store:         store,
		hasher:        hasher,
		deriver:       deriver,
		audit:         audit,
		autoProvision: autoProvision,
		retry:         retry,
		now:           time.Now,
	}, nil
}

// Authenticate verifies presentedKey and returns a fresh Session carrying the
// tenant identity and derived tenant key.
//
// On an empty system with auto-provisioning enabled, the first presented key
// creates the tenant. The insert relies on the storage fingerprint constraint
// to stay atomic under concurrent first requests: a duplicate means someone
// else won the race, and this request re-verifies against what they inserted.
func (a *Authenticator) Authenticate(ctx context.Context, presentedKey string) (*Session, error) {
	if presentedKey == "" {
		return nil, a.reject(ctx, "empty master key")
	}

	fingerprint := Fingerprint(presentedKey)

	count, err := a.countTenants(ctx)
	if err != nil {
		return nil, err
	}

	if count == 0 && a.autoProvision {
		tenant, err := a.provision(ctx, presentedKey, fingerprint)
		if err == nil {
			return a.establish(ctx, tenant)
		}
		if !errors.Is(err, storage.ErrDuplicate) {
			return nil, err
		}
		// Lost the bootstrap race; verify against the winner's record below.
	}

	tenant, err := a.lookup(ctx, presentedKey, fingerprint)
	if err != nil {
		return nil, err
	}
	return a.establish(ctx, tenant)
}

// provision creates the first tenant of the system from presentedKey.
func (a *Authenticator) provision(ctx context.Context, presentedKey, fingerprint string) (*storage.TenantRecord, error) {
	if err := ValidateMasterKeyStrength(presentedKey); err != nil {
		return nil, a.reject(ctx, "bootstrap key below strength requirements")
	}

	hash, err := a.hasher.Hash(presentedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to hash master key: %w", err)
	}
	salt, err := GenerateTenantSalt()
	if err != nil {
		return nil, err
	}

	tenant := &storage.TenantRecord{
		ID:             uuid.NewString(),
		MasterKeyHash:  hash,
		KeyFingerprint: fingerprint,
		TenantSalt:     salt,
		CreatedAt:      a.now().UTC(),
	}

	// Mutating path: no internal retry. An ambiguous failure fails closed and
	// the caller re-authenticates.
	if err := a.store.InsertTenant(ctx, tenant); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("tenant provisioning failed: %w", err)
	}

	a.audit.Record(ctx, AuditEvent{
		Kind:     AuditTenantProvision,
		TenantID: tenant.ID,
		Outcome:  OutcomeSuccess,
		At:       a.now().UTC(),
	})

	return tenant, nil
}

// lookup resolves presentedKey to a tenant. The fingerprint narrows
// candidates to an indexed fetch; the decision is always the constant-time
// slow hash, so legacy rows without a fingerprint verify identically.
func (a *Authenticator) lookup(ctx context.Context, presentedKey, fingerprint string) (*storage.TenantRecord, error) {
	var candidates []storage.TenantRecord
	err := reliability.Do(ctx, a.retry, func() error {
		var lookupErr error
		candidates, lookupErr = a.store.FindTenantCandidates(ctx, fingerprint)
		return lookupErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	for i := range candidates {
		if a.hasher.Verify(presentedKey, candidates[i].MasterKeyHash) {
			return &candidates[i], nil
		}
	}

	return nil, a.reject(ctx, "unrecognized master key")
}

// establish constructs the session for a verified tenant.
func (a *Authenticator) establish(ctx context.Context, tenant *storage.TenantRecord) (*Session, error) {
	tenantKey, err := a.deriver.TenantKey(tenant.TenantSalt)
	if err != nil {
		return nil, err
	}

	session := NewSession(tenant.ID, tenantKey)

	if err := a.store.TouchTenantAuth(ctx, tenant.ID, a.now().UTC()); err != nil {
		// The tenant is verified; a failed timestamp update is not grounds to
		// reject the request.
		a.audit.Record(ctx, AuditEvent{
			Kind:          AuditAuthSuccess,
			TenantID:      tenant.ID,
			CorrelationID: session.CorrelationID(),
			Outcome:       OutcomeFailure,
			Detail:        "last-auth timestamp update failed",
			At:            a.now().UTC(),
		})
		return session, nil
	}

	a.audit.Record(ctx, AuditEvent{
		Kind:          AuditAuthSuccess,
		TenantID:      tenant.ID,
		CorrelationID: session.CorrelationID(),
		Outcome:       OutcomeSuccess,
		At:            a.now().UTC(),
	})

	return session, nil
}

// reject records an authentication failure and returns the uniform error.
// The audit detail keeps the real reason; the caller never sees it.
func (a *Authenticator) reject(ctx context.Context, detail string) error {
	a.audit.Record(ctx, AuditEvent{
		Kind:    AuditAuthFailure,
		Outcome: OutcomeFailure,
		Detail:  detail,
		At:      a.now().UTC(),
	})
	return ErrAuthenticationFailed
}

func (a *Authenticator) countTenants(ctx context.Context) (int64, error) {
	var count int64
	err := reliability.Do(ctx, a.retry, func() error {
		var countErr error
		count, countErr = a.store.CountTenants(ctx)
		return countErr
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return count, nil
}
