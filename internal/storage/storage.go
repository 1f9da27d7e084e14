// Package storage provides the persistence collaborator for the tenant
// credential vault: tenants, credential records, and the uniqueness
// invariants both rely on.
//
// Two implementations exist: SQLite for production and an in-memory store for
// tests. Both enforce the same constraints, so the first-tenant provisioning
// race resolves identically against either.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDuplicate reports a uniqueness constraint violation: master-key
	// fingerprint for tenants, (tenant id, label) or id for stores.
	ErrDuplicate = errors.New("storage: duplicate record")

	// ErrNotExist reports an unknown tenant or store reference.
	ErrNotExist = errors.New("storage: record does not exist")

	// ErrUnavailable reports a transient storage failure (lock contention,
	// busy handle). Callers may retry idempotent lookups, never mutations.
	ErrUnavailable = errors.New("storage: temporarily unavailable")
)

// TenantRecord is one tenant identity row. MasterKeyHash is the one-way
// salted hash; KeyFingerprint is the fast non-secret lookup narrowing key.
// TenantSalt feeds per-tenant key derivation and is generated exactly once at
// provisioning. A zero LastAuthAt means the tenant has never authenticated.
type TenantRecord struct {
	ID             string
	MasterKeyHash  string
	KeyFingerprint string
	TenantSalt     []byte
	CreatedAt      time.Time
	LastAuthAt     time.Time
}

// StoreRecord is one encrypted credential row owned by exactly one tenant.
// Ciphertext, Nonce and Tag are always written atomically together.
type StoreRecord struct {
	ID         string
	TenantID   string
	Label      string
	Ciphertext []byte
	Nonce      []byte
	Tag        []byte
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// TenantStore persists tenant identities.
type TenantStore interface {
	// InsertTenant writes a new tenant. Returns ErrDuplicate if a tenant with
	// the same key fingerprint already exists; the unique constraint is what
	// resolves the concurrent first-provision race.
	InsertTenant(ctx context.Context, t *TenantRecord) error

	// FindTenantCandidates returns tenants whose fingerprint matches, plus
	// legacy rows without a fingerprint. The caller makes the final decision
	// with the slow constant-time hash.
	FindTenantCandidates(ctx context.Context, fingerprint string) ([]TenantRecord, error)

	// GetTenant fetches one tenant by id. Returns ErrNotExist if absent.
	GetTenant(ctx context.Context, id string) (*TenantRecord, error)

	// CountTenants reports the system-wide tenant count, used for the
	// zero-tenant bootstrap check.
	CountTenants(ctx context.Context) (int64, error)

	// TouchTenantAuth updates the last-authenticated timestamp.
	TouchTenantAuth(ctx context.Context, id string, at time.Time) error

	// DeleteTenant removes a tenant and cascades to all owned stores; a store
	// cannot outlive its tenant.
	DeleteTenant(ctx context.Context, id string) error
}

// CredentialStore persists encrypted credential records.
type CredentialStore interface {
	// InsertStore writes a new credential record. Returns ErrDuplicate when
	// the (tenant id, label) pair already exists for the tenant.
	InsertStore(ctx context.Context, s *StoreRecord) error

	// FindStore resolves a record by id first, then by label
	// (case-insensitive), scoped to the tenant. Returns ErrNotExist if
	// neither matches.
	FindStore(ctx context.Context, tenantID, identifier string) (*StoreRecord, error)

	// ListStores returns all of a tenant's records, newest first, without
	// decrypting anything.
	ListStores(ctx context.Context, tenantID string) ([]StoreRecord, error)

	// DeleteStore removes one record by id or label. Returns ErrNotExist if
	// absent.
	DeleteStore(ctx context.Context, tenantID, identifier string) error
}

// Store is the full persistence surface consumed by the vault service.
type Store interface {
	TenantStore
	CredentialStore
	Close() error
}
