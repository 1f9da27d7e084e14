package tenantvault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hengadev/errsx"

	"github.com/hengadev/tenantvault/internal/reliability"
	"github.com/hengadev/tenantvault/internal/storage"
)

// StoreInfo is the non-secret view of a credential record returned by
// ListStores. It never carries ciphertext or plaintext.
type StoreInfo struct {
	ID         string
	Label      string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// Service is the tenant credential vault facade. It wires the rate limiter,
// authenticator, vault, storage, and audit collaborators into the exposed
// operations: Authenticate, RegisterStore, ResolveStore, DeleteStore,
// ListStores, and CheckRate.
//
// Every request follows the same path: rate-limit admission, authentication
// (or an established Session), the operation itself, then an audit event.
type Service struct {
	store   storage.Store
	hasher  *Hasher
	deriver *KeyDeriver
	vault   *Vault
	auth    *Authenticator
	limiter *RateLimiter
	audit   AuditSink
	logger  *slog.Logger

	retry       reliability.Config
	now         func() time.Time
	ownsStorage bool
}

// NewService creates a Service with comprehensive configuration validation.
// This is the recommended constructor for production use.
//
// Example usage:
//
//	svc, err := tenantvault.NewService(ctx,
//	    tenantvault.WithRootSecret(rootSecret),
//	    tenantvault.WithDatabasePath("/var/lib/myapp", "vault.db"),
//	    tenantvault.WithAutoProvision(true),
//	)
func NewService(ctx context.Context, options ...Option) (*Service, error) {
	config := &Config{}

	for i, opt := range options {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("invalid option %d: %w", i+1, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	rootSecret := config.RootSecret
	if config.RootSecretSource != nil {
		fetched, err := config.RootSecretSource.GetRootSecret(ctx, config.RootSecretAlias)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to fetch root secret for alias %q: %w",
				ErrSecretSourceUnavailable, config.RootSecretAlias, err)
		}
		rootSecret = fetched
	}

	hasher, err := NewHasher(config.Argon2, config.Pepper)
	if err != nil {
		return nil, err
	}

	deriver, err := NewKeyDeriver(rootSecret)
	if err != nil {
		return nil, err
	}

	vault, err := NewVault(deriver)
	if err != nil {
		return nil, err
	}

	store := config.Storage
	ownsStorage := false
	if store == nil {
		sqlite, err := setupDatabase(config)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to set up database: %w", ErrStorageUnavailable, err)
		}
		store = sqlite
		ownsStorage = true
	}

	auth, err := NewAuthenticator(store, hasher, deriver, config.AuditSink, config.AutoProvision)
	if err != nil {
		if ownsStorage {
			store.Close()
		}
		return nil, err
	}

	retry := reliability.DefaultConfig()
	retry.ShouldRetry = func(err error, _ int) bool {
		return errors.Is(err, storage.ErrUnavailable)
	}

	return &Service{
		store:       store,
		hasher:      hasher,
		deriver:     deriver,
		vault:       vault,
		auth:        auth,
		limiter:     NewRateLimiter(config.limits()),
		audit:       config.AuditSink,
		logger:      config.Logger,
		retry:       retry,
		now:         time.Now,
		ownsStorage: ownsStorage,
	}, nil
}

// setupDatabase creates the database directory and opens the SQLite backend.
func setupDatabase(config *Config) (*storage.SQLite, error) {
	if err := os.MkdirAll(config.DBPath, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory %q: %w", config.DBPath, err)
	}
	return storage.OpenSQLite(filepath.Join(config.DBPath, config.DBFilename))
}

// Close releases the storage backend if the service opened it.
func (s *Service) Close() error {
	if s.ownsStorage {
		return s.store.Close()
	}
	return nil
}

// Authenticate verifies a presented master key and returns a Session. The
// origin (client address or equivalent) keys the login-class rate limit; the
// admission check runs before any hashing work.
func (s *Service) Authenticate(ctx context.Context, masterKey, origin string) (*Session, error) {
	if err := s.admit(ctx, origin, OpLogin, ""); err != nil {
		return nil, err
	}
	return s.auth.Authenticate(ctx, masterKey)
}

// RegisterStore encrypts secretPayload under the session tenant's key and
// persists it as a new credential record with the given label. Returns the
// new store id, ErrValidation for malformed input, or ErrConflict when the
// label is already taken by this tenant.
func (s *Service) RegisterStore(ctx context.Context, session *Session, label string, secretPayload []byte) (string, error) {
	if err := requireSession(session); err != nil {
		return "", err
	}
	if err := s.admit(ctx, session.TenantID(), OpWrite, session.CorrelationID()); err != nil {
		return "", err
	}

	var errs errsx.Map
	if label == "" {
		errs.Set("label", errors.New("label is required"))
	}
	if len(label) > MaxStoreLabelLength {
		errs.Set("label", fmt.Errorf("label must be at most %d characters, got %d", MaxStoreLabelLength, len(label)))
	}
	if len(secretPayload) == 0 {
		errs.Set("secret", errors.New("secret payload is required"))
	}
	if err := errs.AsError(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}

	sealed, err := s.vault.Seal(session.TenantKey(), secretPayload)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	rec := &storage.StoreRecord{
		ID:         uuid.NewString(),
		TenantID:   session.TenantID(),
		Label:      label,
		Ciphertext: sealed.Ciphertext,
		Nonce:      sealed.Nonce,
		Tag:        sealed.Tag,
		CreatedAt:  now,
		ModifiedAt: now,
	}

	// Mutation: never retried internally.
	if err := s.store.InsertStore(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return "", NewConflictError(fmt.Sprintf("store label %q already exists for this tenant", label))
		}
		return "", fmt.Errorf("failed to persist store: %w", err)
	}

	s.recordAudit(ctx, session, AuditStoreRegister, rec.ID, OutcomeSuccess, "")
	return rec.ID, nil
}

// ResolveStore locates a credential record by store id or label
// (case-insensitive) and returns the decrypted secret payload. A record that
// fails tag verification yields ErrTampered and a security audit event; it is
// never treated as missing data.
func (s *Service) ResolveStore(ctx context.Context, session *Session, identifier string) ([]byte, error) {
	rec, err := s.findStore(ctx, session, identifier)
	if err != nil {
		return nil, err
	}

	plaintext, err := s.vault.Unseal(session.TenantKey(), Sealed{
		Ciphertext: rec.Ciphertext,
		Nonce:      rec.Nonce,
		Tag:        rec.Tag,
	})
	if err != nil {
		if IsTamperError(err) {
			s.recordAudit(ctx, session, AuditTamperDetected, rec.ID, OutcomeFailure,
				"authentication tag mismatch on decrypt")
			s.logger.WarnContext(ctx, "credential record failed integrity verification",
				slog.String("tenant_id", session.TenantID()),
				slog.String("store_id", rec.ID),
			)
		}
		return nil, err
	}

	s.recordAudit(ctx, session, AuditStoreResolve, rec.ID, OutcomeSuccess, "")
	return plaintext, nil
}

// DeleteStore removes a credential record by store id or label.
func (s *Service) DeleteStore(ctx context.Context, session *Session, identifier string) error {
	if err := requireSession(session); err != nil {
		return err
	}
	if err := s.admit(ctx, session.TenantID(), OpWrite, session.CorrelationID()); err != nil {
		return err
	}

	if err := s.store.DeleteStore(ctx, session.TenantID(), identifier); err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return NewNotFoundError("store", identifier)
		}
		return fmt.Errorf("failed to delete store: %w", err)
	}

	s.recordAudit(ctx, session, AuditStoreDelete, identifier, OutcomeSuccess, "")
	return nil
}

// ListStores returns the session tenant's credential records, newest first,
// without decrypting anything.
func (s *Service) ListStores(ctx context.Context, session *Session) ([]StoreInfo, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if err := s.admit(ctx, session.TenantID(), OpRead, session.CorrelationID()); err != nil {
		return nil, err
	}

	var records []storage.StoreRecord
	err := reliability.Do(ctx, s.retry, func() error {
		var listErr error
		records, listErr = s.store.ListStores(ctx, session.TenantID())
		return listErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	out := make([]StoreInfo, 0, len(records))
	for _, rec := range records {
		out = append(out, StoreInfo{
			ID:         rec.ID,
			Label:      rec.Label,
			CreatedAt:  rec.CreatedAt,
			ModifiedAt: rec.ModifiedAt,
		})
	}
	return out, nil
}

// CheckRate runs an admission check for (key, class) without performing any
// operation. Transports use it to guard endpoints the vault itself does not
// implement.
func (s *Service) CheckRate(key string, class OperationClass) Decision {
	return s.limiter.Acquire(key, class)
}

// DeleteTenant removes a tenant and every credential record it owns.
// Ownership is exclusive: a store cannot outlive its tenant.
func (s *Service) DeleteTenant(ctx context.Context, session *Session) error {
	if err := requireSession(session); err != nil {
		return err
	}
	if err := s.admit(ctx, session.TenantID(), OpWrite, session.CorrelationID()); err != nil {
		return err
	}

	if err := s.store.DeleteTenant(ctx, session.TenantID()); err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return NewNotFoundError("tenant", session.TenantID())
		}
		return fmt.Errorf("failed to delete tenant: %w", err)
	}

	s.recordAudit(ctx, session, AuditTenantDelete, "", OutcomeSuccess, "tenant and owned stores deleted")
	return nil
}

// findStore resolves a record for the session tenant. Lookups are idempotent
// and retry on transient storage failures.
func (s *Service) findStore(ctx context.Context, session *Session, identifier string) (*storage.StoreRecord, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if identifier == "" {
		identifier = session.ActiveStoreID()
	}
	if identifier == "" {
		return nil, fmt.Errorf("%w: store identifier is required", ErrValidation)
	}
	if err := s.admit(ctx, session.TenantID(), OpRead, session.CorrelationID()); err != nil {
		return nil, err
	}

	var rec *storage.StoreRecord
	err := reliability.Do(ctx, s.retry, func() error {
		var findErr error
		rec, findErr = s.store.FindStore(ctx, session.TenantID(), identifier)
		if errors.Is(findErr, storage.ErrNotExist) {
			// Absence is a definitive answer, not a transient failure.
			return nil
		}
		return findErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if rec == nil {
		return nil, NewNotFoundError("store", identifier)
	}
	return rec, nil
}

// admit runs the rate-limit admission check and converts a denial into a
// RateLimitError with the retry-after hint.
func (s *Service) admit(ctx context.Context, key string, class OperationClass, correlationID string) error {
	if key == "" {
		key = "unknown"
	}
	decision := s.limiter.Acquire(key, class)
	if decision.Allowed {
		return nil
	}

	s.audit.Record(ctx, AuditEvent{
		Kind:          AuditRateLimited,
		Actor:         key,
		CorrelationID: correlationID,
		Outcome:       OutcomeFailure,
		Detail:        string(class),
		At:            s.now().UTC(),
	})
	return &RateLimitError{RetryAfter: decision.RetryAfter}
}

func (s *Service) recordAudit(ctx context.Context, session *Session, kind, storeID, outcome, detail string) {
	s.audit.Record(ctx, AuditEvent{
		Kind:          kind,
		TenantID:      session.TenantID(),
		StoreID:       storeID,
		CorrelationID: session.CorrelationID(),
		Outcome:       outcome,
		Detail:        detail,
		At:            s.now().UTC(),
	})
}

func requireSession(session *Session) error {
	if session == nil || session.TenantID() == "" {
		return ErrAuthenticationFailed
	}
	return nil
}
