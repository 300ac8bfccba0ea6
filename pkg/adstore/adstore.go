// Package adstore is the ad format data-access layer. Every operation reads or
// mutates the repository, answers through the simulated transport and hands
// back a result.Outcome; nothing here panics or returns a bare error.
package adstore

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wilhg/adformats/pkg/adformat"
	"github.com/wilhg/adformats/pkg/errmodel"
	"github.com/wilhg/adformats/pkg/metrics"
	"github.com/wilhg/adformats/pkg/result"
	"github.com/wilhg/adformats/pkg/store"
	"github.com/wilhg/adformats/pkg/transport"
)

// Operation names used for transport calls, metrics and spans.
const (
	OpList         = "list"
	OpGet          = "get"
	OpUpdateEvents = "update_events"
)

// Store serves ad format records.
type Store struct {
	repo     store.Repository
	tr       *transport.Transport
	logger   *zap.Logger
	metrics  *metrics.Recorder
	tracer   trace.Tracer
	lenient  bool
	validate bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records every operation on m.
func WithMetrics(m *metrics.Recorder) Option { return func(s *Store) { s.metrics = m } }

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Store) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithLenientUpdates makes UpdateEvents on an unknown id succeed and echo its
// input without mutating anything.
func WithLenientUpdates() Option { return func(s *Store) { s.lenient = true } }

// WithoutEventValidation accepts event labels with arbitrary codes.
func WithoutEventValidation() Option { return func(s *Store) { s.validate = false } }

// New constructs a Store over repo. A nil tr uses a transport with default settings.
func New(repo store.Repository, tr *transport.Transport, opts ...Option) *Store {
	if tr == nil {
		tr = transport.New()
	}
	s := &Store{
		repo:     repo,
		tr:       tr,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("adstore"),
		validate: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every record, ordered by id.
func (s *Store) List(ctx context.Context) result.Outcome[[]adformat.AdFormat] {
	ctx, span := s.tracer.Start(ctx, "Store.List")
	defer span.End()
	start := time.Now()

	recs, err := s.repo.List(ctx)
	if err != nil {
		return finish(s, span, OpList, start, result.Failed[[]adformat.AdFormat](s.classify(err, 0)))
	}
	out := result.TryTo(ctx, transport.Send(ctx, s.tr, OpList, result.OK(recs)))
	if out.Data != nil {
		span.SetAttributes(attribute.Int("ad_format.count", len(out.Data.Data)))
	}
	return finish(s, span, OpList, start, out)
}

// Get returns one record.
func (s *Store) Get(ctx context.Context, id int) result.Outcome[adformat.AdFormat] {
	ctx, span := s.tracer.Start(ctx, "Store.Get", trace.WithAttributes(attribute.Int("ad_format.id", id)))
	defer span.End()
	start := time.Now()

	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return finish(s, span, OpGet, start, result.Failed[adformat.AdFormat](s.classify(err, id)))
	}
	return finish(s, span, OpGet, start, result.TryTo(ctx, transport.Send(ctx, s.tr, OpGet, result.OK(rec))))
}

// UpdateEvents replaces the events of record id with events. The stored list
// and the echoed list are both independent copies of events.
func (s *Store) UpdateEvents(ctx context.Context, id int, events []adformat.EventLabel) result.Outcome[adformat.EventsUpdate] {
	ctx, span := s.tracer.Start(ctx, "Store.UpdateEvents", trace.WithAttributes(
		attribute.Int("ad_format.id", id),
		attribute.Int("ad_format.events", len(events)),
	))
	defer span.End()
	start := time.Now()

	if s.validate {
		if err := adformat.ValidateEvents(events); err != nil {
			verr := errmodel.Validation(errmodel.CodeInvalidEvents, err.Error(), map[string]any{"id": id})
			return finish(s, span, OpUpdateEvents, start, result.Failed[adformat.EventsUpdate](verr))
		}
	}

	in := adformat.CloneEvents(events)
	if _, err := s.repo.ReplaceEvents(ctx, id, in); err != nil {
		if !errors.Is(err, store.ErrNotFound) || !s.lenient {
			return finish(s, span, OpUpdateEvents, start, result.Failed[adformat.EventsUpdate](s.classify(err, id)))
		}
		s.logger.Warn("update for unknown ad format ignored", zap.Int("id", id))
	}

	echo := adformat.EventsUpdate{ID: id, Events: adformat.CloneEvents(in)}
	out := result.TryTo(ctx, transport.Send(ctx, s.tr, OpUpdateEvents, result.OK(echo)))
	return finish(s, span, OpUpdateEvents, start, out)
}

func (s *Store) classify(err error, id int) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errmodel.NotFound("ad format not found", map[string]any{"id": id})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return errmodel.System(errmodel.CodeInternal, "repository failure", nil, err)
	}
}

func finish[T any](s *Store, span trace.Span, op string, start time.Time, out result.Outcome[T]) result.Outcome[T] {
	elapsed := time.Since(start)
	s.metrics.Observe(op, out.Error == nil, elapsed)
	if out.Error != nil {
		span.SetStatus(codes.Error, out.Error.Message)
		span.SetAttributes(attribute.String("error.code", out.Error.Code))
		s.logger.Warn("ad format operation failed",
			zap.String("op", op),
			zap.String("code", out.Error.Code),
			zap.String("message", out.Error.Message),
			zap.Duration("elapsed", elapsed))
		return out
	}
	span.SetStatus(codes.Ok, "")
	s.logger.Debug("ad format operation", zap.String("op", op), zap.Duration("elapsed", elapsed))
	return out
}
