// Package httpapi serves the ad format store over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wilhg/adformats/pkg/adformat"
	"github.com/wilhg/adformats/pkg/errmodel"
	"github.com/wilhg/adformats/pkg/result"
)

const maxBodyBytes = 1 << 20

// Store is the subset of *adstore.Store the API serves.
type Store interface {
	List(ctx context.Context) result.Outcome[[]adformat.AdFormat]
	Get(ctx context.Context, id int) result.Outcome[adformat.AdFormat]
	UpdateEvents(ctx context.Context, id int, events []adformat.EventLabel) result.Outcome[adformat.EventsUpdate]
}

type server struct {
	store    Store
	logger   *zap.Logger
	gatherer prometheus.Gatherer
	events   *jsonschema.Schema
	tp       trace.TracerProvider
}

// Option configures the handler.
type Option func(*server)

// WithLogger sets the access logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGatherer serves g at /metrics instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *server) {
		if g != nil {
			s.gatherer = g
		}
	}
}

// WithTracerProvider overrides the global provider for request spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *server) { s.tp = tp }
}

// New builds the HTTP handler.
func New(st Store, opts ...Option) (http.Handler, error) {
	s := &server{store: st, logger: zap.NewNop(), gatherer: prometheus.DefaultGatherer}
	for _, opt := range opts {
		opt(s)
	}
	sch, err := compileSchema[eventsRequest](eventsSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("events request schema: %w", err)
	}
	s.events = sch

	routes := []struct {
		method, path string
		h            http.Handler
	}{
		{http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})},
		{http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})},
		{http.MethodGet, "/api/ad-formats", http.HandlerFunc(s.list)},
		{http.MethodGet, "/api/ad-formats/{id}", http.HandlerFunc(s.get)},
		{http.MethodPut, "/api/ad-formats/{id}/events", http.HandlerFunc(s.updateEvents)},
	}
	mux := http.NewServeMux()
	for _, rt := range routes {
		mux.Handle(rt.method+" "+rt.path, rt.h)
		// the method-less pattern is less specific, so it only sees other methods
		mux.Handle(rt.path, methodNotAllowed(rt.method))
	}
	mux.HandleFunc("/", s.fallback)

	var otelOpts []otelhttp.Option
	if s.tp != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(s.tp))
	}
	return otelhttp.NewHandler(s.accessLog(mux), "adformats", otelOpts...), nil
}

func (s *server) list(w http.ResponseWriter, r *http.Request) {
	writeOutcome(w, r, s.store.List(r.Context()))
}

func (s *server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	writeOutcome(w, r, s.store.Get(r.Context(), id))
}

func (s *server) updateEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		errmodel.WriteHTTP(w, r, errmodel.Validation(errmodel.CodeBadRequest, "read body: "+err.Error(), nil))
		return
	}
	var req eventsRequest
	if err := decodeValidated(s.events, body, &req); err != nil {
		errmodel.WriteHTTP(w, r, errmodel.Validation(errmodel.CodeBadRequest, err.Error(), nil))
		return
	}
	writeOutcome(w, r, s.store.UpdateEvents(r.Context(), id, req.Events))
}

func (s *server) fallback(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		http.Redirect(w, r, "/api/ad-formats", http.StatusFound)
		return
	}
	errmodel.WriteHTTP(w, r, errmodel.NotFound("no route for "+r.Method+" "+r.URL.Path, nil))
}

func methodNotAllowed(allow string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if allow == http.MethodGet {
			allow += ", " + http.MethodHead
		}
		w.Header().Set("Allow", allow)
		errmodel.WriteHTTP(w, r, errmodel.Validation(errmodel.CodeMethodNotAllowed,
			r.Method+" not allowed on "+r.URL.Path, map[string]any{"allow": allow}))
	})
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		errmodel.WriteHTTP(w, r, errmodel.Validation(errmodel.CodeBadRequest, "invalid id", map[string]any{"id": raw}))
		return 0, false
	}
	return id, true
}

// writeOutcome renders a success envelope as 200 and an error envelope
// through errmodel.
func writeOutcome[T any](w http.ResponseWriter, r *http.Request, out result.Outcome[T]) {
	if out.Error != nil {
		errmodel.WriteHTTP(w, r, errmodel.New(out.Error.Category, out.Error.Code, out.Error.Message, nil))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(out.Data)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("trace_id", errmodel.TraceID(r)),
		)
	})
}
