package tenantvault

import (
	"context"
	"log/slog"
	"time"
)

// Audit event kinds emitted by the vault core.
const (
	AuditAuthSuccess     = "auth.success"
	AuditAuthFailure     = "auth.failure"
	AuditTenantProvision = "tenant.provision"
	AuditTenantDelete    = "tenant.delete"
	AuditStoreRegister   = "store.register"
	AuditStoreResolve    = "store.resolve"
	AuditStoreDelete     = "store.delete"
	AuditTamperDetected  = "store.tamper"
	AuditRateLimited     = "rate.denied"
)

// Audit outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// AuditEvent is the structured event handed to the audit collaborator.
// Secrets never appear in an event; identifiers and outcomes only.
type AuditEvent struct {
	Kind          string
	TenantID      string
	StoreID       string
	Actor         string
	CorrelationID string
	Outcome       string
	Detail        string
	At            time.Time
}

// AuditSink receives structured events from the vault core. Record is
// fire-and-forget: implementations must never block the primary operation or
// surface failures to it. A sink that cannot deliver logs locally and drops
// the event.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent)
}

// NoopAuditSink discards all events.
type NoopAuditSink struct{}

func (NoopAuditSink) Record(context.Context, AuditEvent) {}

// SlogAuditSink writes audit events as structured log records.
type SlogAuditSink struct {
	logger *slog.Logger
}

// NewSlogAuditSink creates a sink over the given logger. A nil logger uses
// slog.Default.
func NewSlogAuditSink(logger *slog.Logger) *SlogAuditSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAuditSink{logger: logger}
}

func (s *SlogAuditSink) Record(ctx context.Context, event AuditEvent) {
	level := slog.LevelInfo
	if event.Outcome == OutcomeFailure || event.Kind == AuditTamperDetected {
		level = slog.LevelWarn
	}

	attrs := []any{
		slog.String("kind", event.Kind),
		slog.String("outcome", event.Outcome),
		slog.Time("at", event.At),
	}
	if event.TenantID != "" {
		attrs = append(attrs, slog.String("tenant_id", event.TenantID))
	}
	if event.StoreID != "" {
		attrs = append(attrs, slog.String("store_id", event.StoreID))
	}
	if event.Actor != "" {
		attrs = append(attrs, slog.String("actor", event.Actor))
	}
	if event.CorrelationID != "" {
		attrs = append(attrs, slog.String("correlation_id", event.CorrelationID))
	}
	if event.Detail != "" {
		attrs = append(attrs, slog.String("detail", event.Detail))
	}

	s.logger.Log(ctx, level, "audit", attrs...)
}
