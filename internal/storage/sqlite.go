package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

const schema = `
	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		master_key_hash TEXT NOT NULL,
		key_fingerprint TEXT NOT NULL DEFAULT '',
		tenant_salt BLOB NOT NULL,
		created_at DATETIME NOT NULL,
		last_auth_at DATETIME
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_tenants_fingerprint
		ON tenants(key_fingerprint) WHERE key_fingerprint != '';

	CREATE TABLE IF NOT EXISTS stores (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		label TEXT NOT NULL COLLATE NOCASE,
		ciphertext BLOB NOT NULL,
		nonce BLOB NOT NULL,
		tag BLOB NOT NULL,
		created_at DATETIME NOT NULL,
		modified_at DATETIME NOT NULL,
		UNIQUE (tenant_id, label)
	);

	CREATE INDEX IF NOT EXISTS idx_stores_tenant_id ON stores(tenant_id);
`

// SQLite implements Store over a single SQLite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// Foreign keys are enabled so tenant deletion cascades to owned stores.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %q: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database connection test failed for %q: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create database schema in %q: %w", path, err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) InsertTenant(ctx context.Context, t *TenantRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (id, master_key_hash, key_fingerprint, tenant_salt, created_at, last_auth_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, t.MasterKeyHash, t.KeyFingerprint, t.TenantSalt, t.CreatedAt, nullableTime(t.LastAuthAt))
	if err != nil {
		return mapSQLiteError(err, "insert tenant")
	}
	return nil
}

func (s *SQLite) FindTenantCandidates(ctx context.Context, fingerprint string) ([]TenantRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, master_key_hash, key_fingerprint, tenant_salt, created_at, last_auth_at
		FROM tenants
		WHERE key_fingerprint = ? OR key_fingerprint = ''
	`, fingerprint)
	if err != nil {
		return nil, mapSQLiteError(err, "find tenant candidates")
	}
	defer rows.Close()

	var out []TenantRecord
	for rows.Next() {
		var t TenantRecord
		var lastAuth sql.NullTime
		if err := rows.Scan(&t.ID, &t.MasterKeyHash, &t.KeyFingerprint, &t.TenantSalt, &t.CreatedAt, &lastAuth); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		if lastAuth.Valid {
			t.LastAuthAt = lastAuth.Time
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) GetTenant(ctx context.Context, id string) (*TenantRecord, error) {
	var t TenantRecord
	var lastAuth sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, master_key_hash, key_fingerprint, tenant_salt, created_at, last_auth_at
		FROM tenants WHERE id = ?
	`, id).Scan(&t.ID, &t.MasterKeyHash, &t.KeyFingerprint, &t.TenantSalt, &t.CreatedAt, &lastAuth)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, mapSQLiteError(err, "get tenant")
	}
	if lastAuth.Valid {
		t.LastAuthAt = lastAuth.Time
	}
	return &t, nil
}

func (s *SQLite) CountTenants(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&n); err != nil {
		return 0, mapSQLiteError(err, "count tenants")
	}
	return n, nil
}

func (s *SQLite) TouchTenantAuth(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tenants SET last_auth_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return mapSQLiteError(err, "touch tenant auth")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotExist
	}
	return nil
}

func (s *SQLite) DeleteTenant(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = ?`, id)
	if err != nil {
		return mapSQLiteError(err, "delete tenant")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotExist
	}
	return nil
}

func (s *SQLite) InsertStore(ctx context.Context, rec *StoreRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stores (id, tenant_id, label, ciphertext, nonce, tag, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.TenantID, rec.Label, rec.Ciphertext, rec.Nonce, rec.Tag, rec.CreatedAt, rec.ModifiedAt)
	if err != nil {
		return mapSQLiteError(err, "insert store")
	}
	return nil
}

func (s *SQLite) FindStore(ctx context.Context, tenantID, identifier string) (*StoreRecord, error) {
	// id match first, label (NOCASE) as fallback, mirroring resolution order.
	var rec StoreRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, label, ciphertext, nonce, tag, created_at, modified_at
		FROM stores
		WHERE tenant_id = ? AND (id = ? OR label = ?)
		ORDER BY CASE WHEN id = ? THEN 0 ELSE 1 END
		LIMIT 1
	`, tenantID, identifier, identifier, identifier).Scan(
		&rec.ID, &rec.TenantID, &rec.Label, &rec.Ciphertext, &rec.Nonce, &rec.Tag, &rec.CreatedAt, &rec.ModifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, mapSQLiteError(err, "find store")
	}
	return &rec, nil
}

func (s *SQLite) ListStores(ctx context.Context, tenantID string) ([]StoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, label, ciphertext, nonce, tag, created_at, modified_at
		FROM stores WHERE tenant_id = ?
		ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, mapSQLiteError(err, "list stores")
	}
	defer rows.Close()

	var out []StoreRecord
	for rows.Next() {
		var rec StoreRecord
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.Label, &rec.Ciphertext, &rec.Nonce, &rec.Tag, &rec.CreatedAt, &rec.ModifiedAt); err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) DeleteStore(ctx context.Context, tenantID, identifier string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM stores WHERE tenant_id = ? AND (id = ? OR label = ?)
	`, tenantID, identifier, identifier)
	if err != nil {
		return mapSQLiteError(err, "delete store")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotExist
	}
	return nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// mapSQLiteError translates driver errors into the package's sentinel set so
// callers never depend on driver types.
func mapSQLiteError(err error, op string) error {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		switch serr.Code {
		case sqlite3.ErrConstraint:
			return fmt.Errorf("%s: %w", op, ErrDuplicate)
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
