package delivery

import (
	"context"
	"log/slog"

	"github.com/roach88/deliver/internal/ir"
)

// AuditLogger writes one structured record per appended event and one
// warning per denied operation.
type AuditLogger struct {
	log *slog.Logger
}

// NewAuditLogger returns an audit logger writing to log, or to
// slog.Default() if log is nil.
func NewAuditLogger(log *slog.Logger) *AuditLogger {
	if log == nil {
		log = slog.Default()
	}
	return &AuditLogger{log: log.With("component", "audit")}
}

// Event records an appended event.
func (a *AuditLogger) Event(ctx context.Context, ev ir.CandidateEvent) {
	typ := string(ev.TestType)
	if ev.Category == ir.CategoryItem || ev.TestType == ir.TestEventItemEvent {
		typ = string(ev.ItemType)
	}
	attrs := []any{
		"session", int64(ev.SessionID),
		"event", int64(ev.ID),
		"category", string(ev.Category),
		"type", typ,
	}
	if ev.ItemKey != "" {
		attrs = append(attrs, "item", string(ev.ItemKey))
	}
	if ev.TargetEventID != nil {
		attrs = append(attrs, "target", int64(*ev.TargetEventID))
	}
	a.log.InfoContext(ctx, "event appended", attrs...)
}

// Forbidden records a denied operation and the privilege it lacked.
func (a *AuditLogger) Forbidden(ctx context.Context, op string, err *Error) {
	a.log.WarnContext(ctx, "operation forbidden",
		"op", op,
		"session", int64(err.SessionID),
		"privilege", string(err.Privilege),
	)
}

// Result records a computed assessment result.
func (a *AuditLogger) Result(ctx context.Context, r ir.AssessmentResult) {
	a.log.InfoContext(ctx, "result computed",
		"session", int64(r.SessionID),
		"event", int64(r.EventID),
		"items", len(r.ItemResults),
	)
}
