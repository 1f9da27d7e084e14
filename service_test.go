package tenantvault

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/tenantvault/internal/storage"
)

func authenticatedSession(t *testing.T, svc *Service) *Session {
	t.Helper()

	masterKey, err := GenerateMasterKey()
	require.NoError(t, err)
	sess, err := svc.Authenticate(context.Background(), masterKey, "test-origin")
	require.NoError(t, err)
	return sess
}

func TestServiceRegisterAndResolveStore(t *testing.T) {
	ctx := context.Background()
	svc := NewTestService(t)
	sess := authenticatedSession(t, svc)

	secret := []byte("sk_live_123")
	id, err := svc.RegisterStore(ctx, sess, "alpha", secret)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	tests := []struct {
		name       string
		identifier string
	}{
		{name: "by id", identifier: id},
		{name: "by label", identifier: "alpha"},
		{name: "by label case-insensitive", identifier: "ALPHA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := svc.ResolveStore(ctx, sess, tt.identifier)
			require.NoError(t, err)
			assert.Equal(t, secret, payload)
		})
	}
}

func TestServiceRegisterStoreValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewTestService(t)
	sess := authenticatedSession(t, svc)

	longLabel := make([]byte, MaxStoreLabelLength+1)
	for i := range longLabel {
		longLabel[i] = 'a'
	}

	tests := []struct {
		name    string
		label   string
		payload []byte
	}{
		{name: "empty label", label: "", payload: []byte("x")},
		{name: "label too long", label: string(longLabel), payload: []byte("x")},
		{name: "empty payload", label: "alpha", payload: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterStore(ctx, sess, tt.label, tt.payload)
			require.Error(t, err)
			assert.True(t, IsValidationError(err), "expected validation error, got: %v", err)
		})
	}
}

func TestServiceDuplicateLabelConflicts(t *testing.T) {
	ctx := context.Background()
	svc := NewTestService(t)
	sess := authenticatedSession(t, svc)

	_, err := svc.RegisterStore(ctx, sess, "alpha", []byte("first"))
	require.NoError(t, err)

	_, err = svc.RegisterStore(ctx, sess, "alpha", []byte("second"))
	require.Error(t, err)
	assert.True(t, IsConflictError(err))

	// Label uniqueness is case-insensitive within a tenant.
	_, err = svc.RegisterStore(ctx, sess, "Alpha", []byte("third"))
	require.Error(t, err)
	assert.True(t, IsConflictError(err))
}

func TestServiceLabelsAreScopedPerTenant(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	svc := NewTestService(t, WithStorage(store))
	sessA := authenticatedSession(t, svc)

	// A second tenant on the same deployment, provisioned directly since
	// auto-provision only covers the empty system.
	sessB := provisionSecondTenant(t, svc, store)

	idA, err := svc.RegisterStore(ctx, sessA, "alpha", []byte("tenant A secret"))
	require.NoError(t, err)
	idB, err := svc.RegisterStore(ctx, sessB, "alpha", []byte("tenant B secret"))
	require.NoError(t, err, "the same label under different tenants is no conflict")
	require.NotEqual(t, idA, idB)

	payloadA, err := svc.ResolveStore(ctx, sessA, "alpha")
	require.NoError(t, err)
	payloadB, err := svc.ResolveStore(ctx, sessB, "alpha")
	require.NoError(t, err)
	assert.Equal(t, []byte("tenant A secret"), payloadA)
	assert.Equal(t, []byte("tenant B secret"), payloadB)

	// A tenant cannot reach another tenant's record by id either.
	_, err = svc.ResolveStore(ctx, sessA, idB)
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func provisionSecondTenant(t *testing.T, svc *Service, store storage.TenantStore) *Session {
	t.Helper()
	ctx := context.Background()

	masterKey, err := GenerateMasterKey()
	require.NoError(t, err)
	hash, err := svc.hasher.Hash(masterKey)
	require.NoError(t, err)
	salt, err := GenerateTenantSalt()
	require.NoError(t, err)

	require.NoError(t, store.InsertTenant(ctx, &storage.TenantRecord{
		ID:             "tenant-b",
		MasterKeyHash:  hash,
		KeyFingerprint: Fingerprint(masterKey),
		TenantSalt:     salt,
		CreatedAt:      time.Now().UTC(),
	}))

	sess, err := svc.Authenticate(ctx, masterKey, "test-origin-b")
	require.NoError(t, err)
	return sess
}

func TestServiceResolveMissingStore(t *testing.T) {
	ctx := context.Background()
	svc := NewTestService(t)
	sess := authenticatedSession(t, svc)

	_, err := svc.ResolveStore(ctx, sess, "no-such-store")
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
	assert.Contains(t, err.Error(), "no-such-store")
}

func TestServiceResolveUsesActiveStore(t *testing.T) {
	ctx := context.Background()
	svc := NewTestService(t)
	sess := authenticatedSession(t, svc)

	id, err := svc.RegisterStore(ctx, sess, "alpha", []byte("payload"))
	require.NoError(t, err)

	// An empty identifier falls back to the session's active store.
	payload, err := svc.ResolveStore(ctx, sess.WithActiveStore(id), "")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), payload)

	_, err = svc.ResolveStore(ctx, sess, "")
	require.Error(t, err)
	assert.True(t, IsValidationError(err), "no identifier and no active store is a validation error")
}

func TestServiceResolveTamperedRecord(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	sink := &recordingSink{}
	svc := NewTestService(t, WithStorage(store), WithAuditSink(sink))
	sess := authenticatedSession(t, svc)

	id, err := svc.RegisterStore(ctx, sess, "alpha", []byte("payload"))
	require.NoError(t, err)

	// Corrupt the persisted ciphertext behind the service's back.
	rec, err := store.FindStore(ctx, sess.TenantID(), id)
	require.NoError(t, err)
	rec.Ciphertext[0] ^= 0x01
	require.NoError(t, store.DeleteStore(ctx, sess.TenantID(), id))
	require.NoError(t, store.InsertStore(ctx, rec))

	_, err = svc.ResolveStore(ctx, sess, id)
	require.Error(t, err)
	assert.True(t, IsTamperError(err))
	assert.Contains(t, sink.kinds(), AuditTamperDetected)
}

func TestServiceDeleteStore(t *testing.T) {
	ctx := context.Background()
	svc := NewTestService(t)
	sess := authenticatedSession(t, svc)

	id, err := svc.RegisterStore(ctx, sess, "alpha", []byte("payload"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteStore(ctx, sess, id))

	_, err = svc.ResolveStore(ctx, sess, id)
	assert.True(t, IsNotFoundError(err))

	err = svc.DeleteStore(ctx, sess, id)
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err), "deleting twice reports not found, not success")

	// The label is free for reuse after deletion.
	_, err = svc.RegisterStore(ctx, sess, "alpha", []byte("replacement"))
	assert.NoError(t, err)
}

func TestServiceListStores(t *testing.T) {
	ctx := context.Background()
	svc := NewTestService(t)
	sess := authenticatedSession(t, svc)

	list, err := svc.ListStores(ctx, sess)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.RegisterStore(ctx, sess, "alpha", []byte("a"))
	require.NoError(t, err)
	_, err = svc.RegisterStore(ctx, sess, "beta", []byte("b"))
	require.NoError(t, err)

	list, err = svc.ListStores(ctx, sess)
	require.NoError(t, err)
	require.Len(t, list, 2)
	labels := []string{list[0].Label, list[1].Label}
	assert.ElementsMatch(t, []string{"alpha", "beta"}, labels)
}

func TestServiceDeleteTenantCascades(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	svc := NewTestService(t, WithStorage(store))
	sess := authenticatedSession(t, svc)

	_, err := svc.RegisterStore(ctx, sess, "alpha", []byte("a"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTenant(ctx, sess))

	count, err := store.CountTenants(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	records, err := store.ListStores(ctx, sess.TenantID())
	require.NoError(t, err)
	assert.Empty(t, records, "stores must not outlive their tenant")
}

func TestServiceRejectsMissingSession(t *testing.T) {
	ctx := context.Background()
	svc := NewTestService(t)

	_, err := svc.RegisterStore(ctx, nil, "alpha", []byte("x"))
	assert.True(t, IsAuthError(err))

	_, err = svc.ResolveStore(ctx, nil, "alpha")
	assert.True(t, IsAuthError(err))

	err = svc.DeleteStore(ctx, nil, "alpha")
	assert.True(t, IsAuthError(err))

	_, err = svc.ListStores(ctx, nil)
	assert.True(t, IsAuthError(err))
}

func TestServiceLoginRateLimit(t *testing.T) {
	ctx := context.Background()
	svc := NewTestService(t, WithRateLimits(0, 3, 0))

	// Exhaust the per-origin login budget with failing attempts.
	for i := 0; i < 3; i++ {
		_, err := svc.Authenticate(ctx, "", "10.0.0.1")
		require.Error(t, err)
		require.True(t, IsAuthError(err))
	}

	_, err := svc.Authenticate(ctx, "", "10.0.0.1")
	require.Error(t, err)
	assert.True(t, IsRateLimitError(err))

	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Greater(t, rle.RetryAfter, time.Duration(0))

	// A different origin is unaffected.
	_, err = svc.Authenticate(ctx, "", "10.0.0.2")
	assert.True(t, IsAuthError(err))
}

func TestServiceTenantRateLimit(t *testing.T) {
	ctx := context.Background()
	svc := NewTestService(t, WithRateLimits(1, 10, 0))
	sess := authenticatedSession(t, svc)

	// RPM 1 means capacity 2; one write costs both tokens.
	_, err := svc.RegisterStore(ctx, sess, "alpha", []byte("a"))
	require.NoError(t, err)

	_, err = svc.RegisterStore(ctx, sess, "beta", []byte("b"))
	require.Error(t, err)
	assert.True(t, IsRateLimitError(err))
}

func TestServiceCheckRate(t *testing.T) {
	svc := NewTestService(t, WithRateLimits(0, 0, 2))

	assert.True(t, svc.CheckRate("10.0.0.1", OpSignup).Allowed)
	assert.True(t, svc.CheckRate("10.0.0.1", OpSignup).Allowed)

	d := svc.CheckRate("10.0.0.1", OpSignup)
	assert.False(t, d.Allowed)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
}
