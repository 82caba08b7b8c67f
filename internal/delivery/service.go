package delivery

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/deliver/internal/ir"
	"github.com/roach88/deliver/internal/render"
	"github.com/roach88/deliver/internal/runtime"
	"github.com/roach88/deliver/internal/store"
)

// Service is the delivery engine.
//
// Thread-safety: safe for concurrent use. Operations on one session are
// expected to come from one candidate at a time; racing operations each
// re-check permissions against the state they read.
type Service struct {
	store    *store.Store
	rt       runtime.Runtime
	renderer *render.Manager
	logger   *slog.Logger
	audit    *AuditLogger
	clock    Clock
	seeds    SeedSource
	tokens   TokenGenerator
	tempDir  string
	tp       trace.TracerProvider
	tracer   trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for engine and audit records.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock sets the clock event timestamps are read from.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithSeeds sets the source of template processing seeds.
func WithSeeds(src SeedSource) Option {
	return func(s *Service) { s.seeds = src }
}

// WithTokens sets the session token generator.
func WithTokens(g TokenGenerator) Option {
	return func(s *Service) { s.tokens = g }
}

// WithRenderer sets the render manager, e.g. one reading external
// stylesheets.
func WithRenderer(m *render.Manager) Option {
	return func(s *Service) { s.renderer = m }
}

// WithTempDir sets the directory RenderBuffered writes into.
func WithTempDir(dir string) Option {
	return func(s *Service) { s.tempDir = dir }
}

// WithTracerProvider sets the provider operation spans are started from.
// It is passed on to the default renderer. The global provider is used
// otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tp = tp }
}

// New creates a Service over a store and an item runtime.
func New(st *store.Store, rt runtime.Runtime, opts ...Option) *Service {
	s := &Service{
		store:  st,
		rt:     rt,
		logger: slog.Default(),
		clock:  SystemClock{},
		seeds:  randomSeeds{},
		tokens: UUIDGenerator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.clock = newMonotonicClock(s.clock)
	s.audit = NewAuditLogger(s.logger)
	if s.tp == nil {
		s.tp = otel.GetTracerProvider()
	}
	if s.renderer == nil {
		s.renderer = render.NewManager(nil, s.logger, render.WithTracerProvider(s.tp))
	}
	s.tracer = s.tp.Tracer("github.com/roach88/deliver/internal/delivery")
	return s
}

// Transition is what a state-changing operation returns: the updated
// session and the event it appended.
type Transition struct {
	Session ir.CandidateSession `json:"session"`
	Event   ir.CandidateEvent   `json:"event"`
}

// begin starts a span for an operation. The returned func ends it,
// recording err; forbidden errors are audited instead of marked as span
// errors.
func (s *Service) begin(ctx context.Context, op string, id ir.SessionID) (context.Context, func(*error)) {
	ctx, span := s.tracer.Start(ctx, "delivery."+op,
		trace.WithAttributes(attribute.Int64("session", int64(id))))
	return ctx, func(errp *error) {
		defer span.End()
		err := *errp
		if err == nil {
			return
		}
		var de *Error
		if errors.As(err, &de) {
			span.SetAttributes(attribute.String("error.kind", string(de.Kind)))
			if de.Kind == KindForbidden {
				s.audit.Forbidden(ctx, op, de)
				return
			}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.ErrorContext(ctx, "operation failed", "op", op, "session", int64(id), "error", err)
	}
}

// access resolves a session and its delivery and checks the token and
// delivery kind. kind "" accepts either kind.
func (s *Service) access(ctx context.Context, st *store.Store, id ir.SessionID, token string, kind ir.DeliveryKind) (ir.CandidateSession, ir.Delivery, error) {
	sess, err := st.ReadSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ir.CandidateSession{}, ir.Delivery{}, notFound(id, "session %d", id)
	}
	if err != nil {
		return ir.CandidateSession{}, ir.Delivery{}, internal(id, "read session", err)
	}
	if subtle.ConstantTimeCompare([]byte(sess.Token), []byte(token)) != 1 {
		return ir.CandidateSession{}, ir.Delivery{}, forbidden(id, PrivAccessCandidateSession)
	}
	if kind != "" && sess.Kind != kind {
		p := PrivAccessCandidateSessionAsItem
		if kind == ir.DeliveryTest {
			p = PrivAccessCandidateSessionAsTest
		}
		return ir.CandidateSession{}, ir.Delivery{}, forbidden(id, p)
	}
	d, err := st.ReadDelivery(ctx, sess.DeliveryID)
	if errors.Is(err, store.ErrNotFound) {
		return ir.CandidateSession{}, ir.Delivery{}, notFound(id, "delivery %q", sess.DeliveryID)
	}
	if err != nil {
		return ir.CandidateSession{}, ir.Delivery{}, internal(id, "read delivery", err)
	}
	return sess, d, nil
}

// launchDelivery reads the delivery a new session is launched on.
func launchDelivery(ctx context.Context, st *store.Store, deliveryID string, kind ir.DeliveryKind) (ir.Delivery, error) {
	d, err := st.ReadDelivery(ctx, deliveryID)
	if errors.Is(err, store.ErrNotFound) {
		return ir.Delivery{}, notFound(0, "delivery %q", deliveryID)
	}
	if err != nil {
		return ir.Delivery{}, internal(0, "read delivery", err)
	}
	if d.Kind != kind {
		p := PrivAccessCandidateSessionAsItem
		if kind == ir.DeliveryTest {
			p = PrivAccessCandidateSessionAsTest
		}
		return ir.Delivery{}, forbidden(0, p)
	}
	return d, nil
}

// runtimeErr maps item runtime failures: unknown assessments are NotFound,
// anything else is a logic fault.
func runtimeErr(id ir.SessionID, ref string, err error) error {
	if errors.Is(err, runtime.ErrUnknownAssessment) {
		return &Error{Kind: KindNotFound, SessionID: id, Message: "assessment " + ref, Err: err}
	}
	return internal(id, "item runtime", err)
}

// SafeExitURL returns u if it is a relative path or an http(s) URL, and ""
// otherwise.
func SafeExitURL(u string) string {
	switch {
	case strings.HasPrefix(u, "//"), strings.HasPrefix(u, `/\`):
		return ""
	case strings.HasPrefix(u, "/"), strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "https://"):
		return u
	default:
		return ""
	}
}

func (s *Service) exitURL(ctx context.Context, u string) string {
	safe := SafeExitURL(u)
	if safe == "" && u != "" {
		s.logger.WarnContext(ctx, "ignoring unsafe exit URL", "url", u)
	}
	return safe
}
