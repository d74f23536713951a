// Package intake runs the enrollment pipeline: admission control,
// validation, duplicate suppression, ledger append. Stages run in that
// order and short-circuit on failure; each request ends in exactly one
// terminal Outcome.
package intake

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/academia-hn/enrollment-intake/internal/dedupe"
	"github.com/academia-hn/enrollment-intake/internal/ledger"
	"github.com/academia-hn/enrollment-intake/internal/metrics"
	"github.com/academia-hn/enrollment-intake/internal/models"
	"github.com/academia-hn/enrollment-intake/internal/ratelimit"
	"github.com/academia-hn/enrollment-intake/internal/stats"
	"github.com/academia-hn/enrollment-intake/internal/validate"
)

const timestampLayout = "2006-01-02 15:04:05"

// Service holds the pipeline's collaborators. The limiter is injected, not
// ambient, so tests can drive it with a controlled clock.
type Service struct {
	limiter       *ratelimit.SlidingWindow
	store         ledger.Store
	stats         stats.Store
	sink          metrics.Sink
	log           *zap.Logger
	now           func() time.Time
	ledgerTimeout time.Duration
}

type Option func(*Service)

// WithClock overrides the service clock. Tests only.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithMetrics(sink metrics.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithStats enables best-effort recording of admission decisions.
func WithStats(st stats.Store) Option {
	return func(s *Service) { s.stats = st }
}

// WithLedgerTimeout bounds each ledger call (read and append separately).
func WithLedgerTimeout(d time.Duration) Option {
	return func(s *Service) { s.ledgerTimeout = d }
}

// NewService wires the pipeline around a limiter and a ledger backend.
func NewService(limiter *ratelimit.SlidingWindow, store ledger.Store, opts ...Option) *Service {
	s := &Service{
		limiter:       limiter,
		store:         store,
		sink:          metrics.NewNoopSink(),
		log:           zap.NewNop(),
		now:           time.Now,
		ledgerTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process runs one submission through the pipeline.
func (s *Service) Process(ctx context.Context, clientKey string, req models.IntakeRequest) Outcome {
	now := s.now()

	dec := s.limiter.Decide(clientKey, now)
	s.recordDecision(ctx, clientKey, dec.Allowed, now)
	if !dec.Allowed {
		return s.finish(Outcome{
			Kind:       KindThrottled,
			RetryAfter: dec.RetryAfter,
			Message: fmt.Sprintf(
				"Demasiadas solicitudes. Por favor intente de nuevo en %d minutos.",
				retryMinutes(dec.RetryAfter)),
		}, clientKey, req)
	}

	if verr := validate.Request(req, now); verr != nil {
		out := Outcome{Kind: KindRejected, Message: verr.Message}
		if verr.Reason == validate.ReasonMissingFields {
			out.MissingFields = verr.Fields
		}
		return s.finish(out, clientKey, req)
	}

	if s.isDuplicate(ctx, req) {
		return s.finish(Outcome{
			Kind:    KindDuplicate,
			Message: "Ya existe una solicitud registrada para este estudiante.",
		}, clientKey, req)
	}

	row := buildRow(req, now)
	if err := s.append(ctx, row); err != nil {
		if ledger.IsSchemaMismatch(err) {
			return s.finish(Outcome{
				Kind:    KindMisconfigured,
				Message: "El servicio no está disponible en este momento. Por favor intente más tarde.",
				Err:     err,
			}, clientKey, req)
		}
		return s.finish(Outcome{
			Kind:    KindWriteFailed,
			Message: "No se pudo registrar la solicitud. Por favor intente más tarde.",
			Err:     err,
		}, clientKey, req)
	}

	return s.finish(Outcome{
		Kind:    KindAppended,
		Message: "¡Solicitud enviada con éxito! Nos pondremos en contacto pronto.",
	}, clientKey, req)
}

// buildRow flattens a validated request into its immutable ledger row.
// Optional fields are written as the placeholder, never blank.
func buildRow(req models.IntakeRequest, now time.Time) ledger.Row {
	return ledger.Row{
		Timestamp:    now.UTC().Format(timestampLayout),
		StudentName:  req.StudentName,
		BirthDate:    req.BirthDate,
		Address:      req.Address,
		GuardianName: req.GuardianName,
		Phone:        req.Phone,
		Email:        orPlaceholder(req.Email),
		ProgramID:    req.ProgramID,
		GradeLabel:   req.GradeLabel,
		Message:      orPlaceholder(req.Message),
	}
}

func orPlaceholder(v string) string {
	if v == "" {
		return ledger.Placeholder
	}
	return v
}

func (s *Service) isDuplicate(ctx context.Context, req models.IntakeRequest) bool {
	rctx, cancel := context.WithTimeout(ctx, s.ledgerTimeout)
	defer cancel()

	return dedupe.IsDuplicate(rctx, readFailureCounter{s}, req, s.log)
}

func (s *Service) append(ctx context.Context, row ledger.Row) error {
	wctx, cancel := context.WithTimeout(ctx, s.ledgerTimeout)
	defer cancel()

	start := time.Now()
	err := s.store.Append(wctx, row)
	s.sink.AppendObserved(time.Since(start), err)
	return err
}

// readFailureCounter wraps the ledger reader so the fail-open path in
// dedupe also shows up in metrics.
type readFailureCounter struct {
	s *Service
}

func (r readFailureCounter) ReadAll(ctx context.Context) ([]ledger.Row, error) {
	rows, err := r.s.store.ReadAll(ctx)
	if err != nil {
		r.s.sink.LedgerReadFailure()
	}
	return rows, err
}

func (s *Service) recordDecision(ctx context.Context, clientKey string, allowed bool, now time.Time) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Record(ctx, stats.Event{Key: clientKey, Allowed: allowed, At: now}); err != nil {
		s.log.Warn("throttle stats record failed", zap.Error(err))
	}
}

func (s *Service) finish(out Outcome, clientKey string, req models.IntakeRequest) Outcome {
	s.sink.Outcome(string(out.Kind))

	fields := []zap.Field{
		zap.String("outcome", string(out.Kind)),
		zap.String("client_key", clientKey),
		zap.String("student_name", req.StudentName),
	}
	if out.Err != nil {
		fields = append(fields, zap.Error(out.Err))
	}

	switch out.Kind {
	case KindMisconfigured, KindWriteFailed:
		s.log.Error("intake request failed", fields...)
	case KindAppended:
		s.log.Info("intake request appended", fields...)
	default:
		s.log.Info("intake request finished", fields...)
	}
	return out
}

func retryMinutes(d time.Duration) int {
	m := int(math.Ceil(d.Minutes()))
	if m < 1 {
		m = 1
	}
	return m
}
