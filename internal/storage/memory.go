package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory implements Store entirely in memory. It enforces the same
// uniqueness constraints as the SQLite backend, including the fingerprint
// constraint that resolves the first-provision race, so concurrency tests
// run against it faithfully.
type Memory struct {
	mu      sync.Mutex
	tenants map[string]*TenantRecord
	stores  map[string]*StoreRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		tenants: make(map[string]*TenantRecord),
		stores:  make(map[string]*StoreRecord),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) InsertTenant(_ context.Context, t *TenantRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tenants[t.ID]; ok {
		return ErrDuplicate
	}
	if t.KeyFingerprint != "" {
		for _, existing := range m.tenants {
			if existing.KeyFingerprint == t.KeyFingerprint {
				return ErrDuplicate
			}
		}
	}

	cp := *t
	m.tenants[t.ID] = &cp
	return nil
}

func (m *Memory) FindTenantCandidates(_ context.Context, fingerprint string) ([]TenantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []TenantRecord
	for _, t := range m.tenants {
		if t.KeyFingerprint == fingerprint || t.KeyFingerprint == "" {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *Memory) GetTenant(_ context.Context, id string) (*TenantRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[id]
	if !ok {
		return nil, ErrNotExist
	}
	cp := *t
	return &cp, nil
}

func (m *Memory) CountTenants(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.tenants)), nil
}

func (m *Memory) TouchTenantAuth(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[id]
	if !ok {
		return ErrNotExist
	}
	t.LastAuthAt = at
	return nil
}

func (m *Memory) DeleteTenant(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tenants[id]; !ok {
		return ErrNotExist
	}
	delete(m.tenants, id)
	for sid, s := range m.stores {
		if s.TenantID == id {
			delete(m.stores, sid)
		}
	}
	return nil
}

func (m *Memory) InsertStore(_ context.Context, rec *StoreRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stores[rec.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range m.stores {
		if existing.TenantID == rec.TenantID && strings.EqualFold(existing.Label, rec.Label) {
			return ErrDuplicate
		}
	}

	cp := *rec
	m.stores[rec.ID] = &cp
	return nil
}

func (m *Memory) FindStore(_ context.Context, tenantID, identifier string) (*StoreRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.stores[identifier]; ok && rec.TenantID == tenantID {
		cp := *rec
		return &cp, nil
	}
	for _, rec := range m.stores {
		if rec.TenantID == tenantID && strings.EqualFold(rec.Label, identifier) {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, ErrNotExist
}

func (m *Memory) ListStores(_ context.Context, tenantID string) ([]StoreRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []StoreRecord
	for _, rec := range m.stores {
		if rec.TenantID == tenantID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) DeleteStore(_ context.Context, tenantID, identifier string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec, ok := m.stores[identifier]; ok && rec.TenantID == tenantID {
		delete(m.stores, identifier)
		return nil
	}
	for id, rec := range m.stores {
		if rec.TenantID == tenantID && strings.EqualFold(rec.Label, identifier) {
			delete(m.stores, id)
			return nil
		}
	}
	return ErrNotExist
}
