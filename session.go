package tenantvault

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is the request-scoped carrier of tenant identity, derived tenant
// key, active store, and correlation id. One instance is created per logical
// request during authentication and passed explicitly (or on the context)
// through every downstream call; concurrent requests never share an instance.
//
// A Session is immutable once constructed. WithActiveStore returns a copy;
// it never mutates the receiver. Sessions hold no resources and are simply
// discarded when the owning request finishes or is cancelled.
type Session struct {
	tenantID      string
	tenantKey     []byte
	activeStoreID string
	correlationID string
	createdAt     time.Time
}

// NewSession constructs a Session for an authenticated tenant. The
// correlation id is generated here if the caller does not supply one via
// NewSessionWithCorrelation.
func NewSession(tenantID string, tenantKey []byte) *Session {
	return NewSessionWithCorrelation(tenantID, tenantKey, uuid.NewString())
}

// NewSessionWithCorrelation constructs a Session with an explicit correlation
// id, for transports that propagate their own request ids.
func NewSessionWithCorrelation(tenantID string, tenantKey []byte, correlationID string) *Session {
	key := make([]byte, len(tenantKey))
	copy(key, tenantKey)
	return &Session{
		tenantID:      tenantID,
		tenantKey:     key,
		correlationID: correlationID,
		createdAt:     time.Now().UTC(),
	}
}

// TenantID returns the authenticated tenant's id.
func (s *Session) TenantID() string { return s.tenantID }

// CorrelationID returns the request correlation id.
func (s *Session) CorrelationID() string { return s.correlationID }

// CreatedAt returns the instant the session was constructed.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// ActiveStoreID returns the currently selected store id, or "" if none.
func (s *Session) ActiveStoreID() string { return s.activeStoreID }

// TenantKey returns the derived tenant encryption key. The key lives only in
// memory for the lifetime of the session; it is never persisted or logged.
func (s *Session) TenantKey() []byte { return s.tenantKey }

// WithActiveStore returns a copy of the session with the active store set.
func (s *Session) WithActiveStore(storeID string) *Session {
	cp := *s
	cp.activeStoreID = storeID
	return &cp
}

type sessionContextKey struct{}

// WithSession returns a context carrying the session.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFromContext extracts the session from a context, if present.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(*Session)
	return s, ok
}
