package adstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"

	"github.com/wilhg/adformats/pkg/adformat"
	"github.com/wilhg/adformats/pkg/errmodel"
	"github.com/wilhg/adformats/pkg/metrics"
	"github.com/wilhg/adformats/pkg/result"
	"github.com/wilhg/adformats/pkg/store"
	"github.com/wilhg/adformats/pkg/store/memstore"
	"github.com/wilhg/adformats/pkg/transport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newStore returns a freshly seeded store answering without latency.
func newStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	repo, err := memstore.NewSeeded(adformat.Seed(adformat.DefaultSeedCount))
	if err != nil {
		t.Fatal(err)
	}
	return New(repo, transport.New(transport.WithDelay(0)), opts...)
}

func mustList(t *testing.T, s *Store) []adformat.AdFormat {
	t.Helper()
	recs, err := s.List(t.Context()).Unwrap()
	if err != nil {
		t.Fatal(err)
	}
	return recs
}

func TestListSeed(t *testing.T) {
	recs := mustList(t, newStore(t))
	if len(recs) != adformat.DefaultSeedCount {
		t.Fatalf("len=%d want %d", len(recs), adformat.DefaultSeedCount)
	}
	for i, r := range recs {
		if r.ID != i+1 {
			t.Fatalf("recs[%d].ID=%d", i, r.ID)
		}
	}
	want := []adformat.EventLabel{
		{Code: "click", Label: "點擊"},
		{Code: "swipe_left", Label: "左滑"},
		{Code: "swipe_right", Label: "右滑"},
	}
	if diff := cmp.Diff(want, recs[0].Events); diff != "" {
		t.Fatalf("record 1 events (-want +got):\n%s", diff)
	}
	for _, r := range recs[1:] {
		if len(r.Events) != 0 {
			t.Fatalf("record %d has %d events", r.ID, len(r.Events))
		}
	}
}

func TestListCopyIsolation(t *testing.T) {
	s := newStore(t)
	first := mustList(t, s)
	first[0].Events = nil
	first[1].Name = "renamed"

	again := mustList(t, s)
	if len(again[0].Events) != 3 || again[1].Name != "Ad Format 2" {
		t.Fatalf("store state changed through a returned value: %+v %+v", again[0], again[1])
	}
}

func TestUpdateReplacesNotMerges(t *testing.T) {
	s := newStore(t)
	out := s.UpdateEvents(t.Context(), 1, []adformat.EventLabel{})
	if !out.OK() {
		t.Fatalf("update failed: %+v", out.Error)
	}
	if got := mustList(t, s)[0].Events; len(got) != 0 {
		t.Fatalf("record 1 events=%v want none", got)
	}
}

func TestUpdateEchoesIndependentCopy(t *testing.T) {
	s := newStore(t, WithoutEventValidation())
	in := []adformat.EventLabel{{Code: "a", Label: "x"}}
	out := s.UpdateEvents(t.Context(), 5, in)
	if !out.OK() {
		t.Fatalf("update failed: %+v", out.Error)
	}
	if diff := cmp.Diff(adformat.EventsUpdate{ID: 5, Events: []adformat.EventLabel{{Code: "a", Label: "x"}}}, out.Data.Data); diff != "" {
		t.Fatalf("echo (-want +got):\n%s", diff)
	}

	in[0].Label = "changed"
	out.Data.Data.Events[0].Label = "changed too"
	stored := mustList(t, s)[4].Events
	if diff := cmp.Diff([]adformat.EventLabel{{Code: "a", Label: "x"}}, stored); diff != "" {
		t.Fatalf("stored events (-want +got):\n%s", diff)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	s := newStore(t, WithoutEventValidation())
	out := s.UpdateEvents(t.Context(), 9999, []adformat.EventLabel{{Code: "a", Label: "x"}})
	if out.OK() || out.Error == nil {
		t.Fatalf("expected error outcome, got %+v", out)
	}
	if out.Error.Code != errmodel.CodeNotFound || out.Error.Status != result.StatusError {
		t.Fatalf("error=%+v", out.Error)
	}
	if diff := cmp.Diff(adformat.Seed(adformat.DefaultSeedCount), mustList(t, s)); diff != "" {
		t.Fatalf("collection changed (-want +got):\n%s", diff)
	}
}

func TestUpdateUnknownIDLenient(t *testing.T) {
	s := newStore(t, WithoutEventValidation(), WithLenientUpdates())
	out := s.UpdateEvents(t.Context(), 9999, []adformat.EventLabel{{Code: "a", Label: "x"}})
	if !out.OK() {
		t.Fatalf("lenient update should succeed: %+v", out.Error)
	}
	if diff := cmp.Diff(adformat.EventsUpdate{ID: 9999, Events: []adformat.EventLabel{{Code: "a", Label: "x"}}}, out.Data.Data); diff != "" {
		t.Fatalf("echo (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(adformat.Seed(adformat.DefaultSeedCount), mustList(t, s)); diff != "" {
		t.Fatalf("collection changed (-want +got):\n%s", diff)
	}
}

func TestUpdateRejectsInvalidEvents(t *testing.T) {
	s := newStore(t)
	out := s.UpdateEvents(t.Context(), 2, []adformat.EventLabel{{Code: "hover", Label: "懸停"}})
	if out.Error == nil || out.Error.Code != errmodel.CodeInvalidEvents {
		t.Fatalf("out=%+v", out)
	}
	if got := mustList(t, s)[1].Events; len(got) != 0 {
		t.Fatalf("invalid update was applied: %v", got)
	}
}

func TestGet(t *testing.T) {
	s := newStore(t)
	rec, err := s.Get(t.Context(), 1).Unwrap()
	if err != nil {
		t.Fatal(err)
	}
	if rec.Name != "Ad Format 1" || len(rec.Events) != 3 {
		t.Fatalf("rec=%+v", rec)
	}
	out := s.Get(t.Context(), 42)
	if out.Error == nil || out.Error.Code != errmodel.CodeNotFound {
		t.Fatalf("out=%+v", out)
	}
}

func TestLatency(t *testing.T) {
	cases := []struct {
		name string
		call func(s *Store) bool
	}{
		{"List", func(s *Store) bool { return s.List(context.Background()).OK() }},
		{"Get", func(s *Store) bool { return s.Get(context.Background(), 1).OK() }},
		{"UpdateEvents", func(s *Store) bool {
			return s.UpdateEvents(context.Background(), 2, adformat.DefaultEvents()).OK()
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fc := clockwork.NewFakeClock()
			repo, _ := memstore.NewSeeded(adformat.Seed(adformat.DefaultSeedCount))
			s := New(repo, transport.New(transport.WithClock(fc)))

			done := make(chan bool, 1)
			go func() { done <- tc.call(s) }()

			ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
			defer cancel()
			if err := fc.BlockUntilContext(ctx, 1); err != nil {
				t.Fatalf("transport timer never armed: %v", err)
			}
			fc.Advance(transport.DefaultDelay - time.Millisecond)
			select {
			case <-done:
				t.Fatalf("%s settled before the configured delay", tc.name)
			default:
			}

			fc.Advance(time.Millisecond)
			select {
			case ok := <-done:
				if !ok {
					t.Fatalf("%s failed", tc.name)
				}
			case <-ctx.Done():
				t.Fatalf("%s did not settle after the delay", tc.name)
			}
		})
	}
}

func TestEnvelopeShape(t *testing.T) {
	s := newStore(t)
	list := s.List(t.Context())
	upd := s.UpdateEvents(t.Context(), 3, adformat.DefaultEvents())
	if list.Data.Status != result.StatusSuccess || list.Error != nil {
		t.Fatalf("list=%+v", list)
	}
	if upd.Data.Status != result.StatusSuccess || upd.Error != nil {
		t.Fatalf("update=%+v", upd)
	}
}

func TestTransportFault(t *testing.T) {
	repo, _ := memstore.NewSeeded(adformat.Seed(2))
	tr := transport.New(transport.WithDelay(0), transport.WithFaultInjector(func(op string) error {
		return errors.New("gateway unreachable")
	}))
	s := New(repo, tr)

	out := s.List(t.Context())
	if out.Error == nil || out.Error.Code != errmodel.CodeTransport || out.Error.Message != "gateway unreachable" {
		t.Fatalf("out=%+v", out)
	}
}

type failingRepo struct{ store.Repository }

func (failingRepo) List(context.Context) ([]adformat.AdFormat, error) {
	return nil, errors.New("disk on fire")
}

func TestRepositoryFailure(t *testing.T) {
	s := New(failingRepo{}, transport.New(transport.WithDelay(0)))
	out := s.List(t.Context())
	if out.Error == nil || out.Error.Code != errmodel.CodeInternal || out.Error.Category != errmodel.CategorySystem {
		t.Fatalf("out=%+v", out)
	}
}

func TestCancelledContext(t *testing.T) {
	repo, _ := memstore.NewSeeded(adformat.Seed(2))
	s := New(repo, transport.New(transport.WithClock(clockwork.NewFakeClock())))
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	out := s.List(ctx)
	if out.Error == nil || out.Error.Code != errmodel.CodeCanceled {
		t.Fatalf("out=%+v", out)
	}
}

func TestSpansAndMetrics(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	rec := metrics.New(prometheus.NewRegistry())

	s := newStore(t, WithTracer(tp.Tracer("test")), WithMetrics(rec))
	s.List(t.Context())
	s.UpdateEvents(t.Context(), 9999, nil)

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("spans=%d want 2", len(spans))
	}
	if spans[0].Name() != "Store.List" || spans[1].Name() != "Store.UpdateEvents" {
		t.Fatalf("span names %q %q", spans[0].Name(), spans[1].Name())
	}
	if spans[1].Status().Code.String() != "Error" {
		t.Fatalf("update span status=%v", spans[1].Status())
	}

	reg := prometheus.NewRegistry()
	rec2 := metrics.New(reg)
	s2 := newStore(t, WithMetrics(rec2))
	s2.List(t.Context())
	s2.List(t.Context())
	if n, err := testutil.GatherAndCount(reg, "adformats_store_operations_total"); err != nil || n != 1 {
		t.Fatalf("series=%d err=%v", n, err)
	}
}

func TestOpenRepository(t *testing.T) {
	repo, err := OpenRepository(t.Context(), memstore.Backend, "", 4)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	recs, _ := repo.List(t.Context())
	if len(recs) != 4 {
		t.Fatalf("len=%d want 4", len(recs))
	}
	if _, err := OpenRepository(t.Context(), "nope", "", 1); err == nil {
		t.Fatal("expected unknown backend error")
	}
}
