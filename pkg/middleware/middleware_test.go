package middleware

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/listdiff/internal/errors"
	"github.com/vango-dev/listdiff/pkg/listdiff"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewMetrics(WithRegistry(reg), WithNamespace("test")), reg
}

func TestMetricsHandler(t *testing.T) {
	m, _ := newTestMetrics(t)

	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Post("/fail", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	for _, path := range []string{"/items/1", "/items/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/fail", nil))

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("/items/{id}", "GET", "200")); got != 2 {
		t.Errorf("items requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("/fail", "POST", "500")); got != 1 {
		t.Errorf("fail requests = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.requestDuration); got != 2 {
		t.Errorf("duration series = %d, want 2", got)
	}
}

func TestMetricsObserveDiff(t *testing.T) {
	m, _ := newTestMetrics(t)

	ops := []listdiff.Operation{
		{Op: listdiff.OpMoveSection, At: listdiff.SectionPath(1), To: listdiff.SectionPath(0)},
		{Op: listdiff.OpDeleteElement, At: listdiff.ElementPath(0, 1), To: listdiff.NoPath},
		{Op: listdiff.OpDeleteElement, At: listdiff.ElementPath(0, 2), To: listdiff.NoPath},
	}
	m.ObserveDiff(time.Millisecond, 2, ops, nil)
	m.ObserveDiff(time.Millisecond, 0, nil, errors.New("E101"))
	m.ObserveDiff(time.Millisecond, 0, nil, stderrors.New("plain"))

	if got := testutil.ToFloat64(m.operationsTotal.WithLabelValues("DeleteElement")); got != 2 {
		t.Errorf("DeleteElement = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.diffsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok diffs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.diffsTotal.WithLabelValues("E101")); got != 1 {
		t.Errorf("E101 diffs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.diffsTotal.WithLabelValues("internal")); got != 1 {
		t.Errorf("internal diffs = %v, want 1", got)
	}
}

func TestMetricsSessions(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.SessionStarted()
	m.SessionStarted()
	m.StageApplied()
	m.SessionEnded(OutcomeComplete)
	m.FrameError("unexpected_frame")

	if got := testutil.ToFloat64(m.activeSessions); got != 1 {
		t.Errorf("active = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.sessionsTotal.WithLabelValues(OutcomeComplete)); got != 1 {
		t.Errorf("complete = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.stagesApplied); got != 1 {
		t.Errorf("stages = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.frameErrors.WithLabelValues("unexpected_frame")); got != 1 {
		t.Errorf("frame errors = %v, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveDiff(0, 0, nil, nil)
	m.SessionStarted()
	m.SessionEnded(OutcomeError)
	m.StageApplied()
	m.FrameError("x")

	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("code = %d", rec.Code)
	}
}

type recordingSpan struct {
	noop.Span
	name   string
	attrs  []attribute.KeyValue
	status codes.Code
	errs   []error
	ended  bool
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) { s.attrs = append(s.attrs, kv...) }
func (s *recordingSpan) SetStatus(c codes.Code, _ string)      { s.status = c }
func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) {
	s.errs = append(s.errs, err)
}
func (s *recordingSpan) End(...trace.SpanEndOption) { s.ended = true }
func (s *recordingSpan) IsRecording() bool          { return true }

func (s *recordingSpan) attr(key string) (attribute.Value, bool) {
	for _, kv := range s.attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

type recordingTracer struct {
	noop.Tracer
	spans []*recordingSpan
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordingSpan{name: name, attrs: cfg.Attributes()}
	t.spans = append(t.spans, s)
	return trace.ContextWithSpan(ctx, s), s
}

func TestOpenTelemetryMiddleware(t *testing.T) {
	tracer := &recordingTracer{}

	r := chi.NewRouter()
	r.Use(OpenTelemetry(
		WithTracer(tracer),
		WithRequestFilter(func(r *http.Request) bool { return r.URL.Path != "/healthz" }),
		WithAttributeExtractor(func(*http.Request) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if SpanFromContext(r.Context()) != nil {
			t.Error("expected no span for filtered request")
		}
	})
	r.Post("/v1/{op}", func(w http.ResponseWriter, r *http.Request) {
		if SpanFromContext(r.Context()) == nil {
			t.Error("expected a span in the handler context")
		}
		w.WriteHeader(http.StatusBadGateway)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/diff", nil))

	if len(tracer.spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(tracer.spans))
	}
	span := tracer.spans[0]
	if span.name != "listdiff POST /v1/diff" || !span.ended {
		t.Errorf("span = %q ended=%v", span.name, span.ended)
	}
	if v, ok := span.attr("http.route"); !ok || v.AsString() != "/v1/{op}" {
		t.Errorf("http.route = %v", v.Emit())
	}
	if v, ok := span.attr("test.attr"); !ok || v.AsString() != "ok" {
		t.Errorf("test.attr = %v", v.Emit())
	}
	if span.status != codes.Error {
		t.Errorf("status = %v, want Error", span.status)
	}
}

func TestTrace(t *testing.T) {
	tracer := &recordingTracer{}

	err := Trace(context.Background(), tracer, "ok", func(ctx context.Context) error {
		if SpanFromContext(ctx) == nil {
			t.Error("expected span in ctx")
		}
		return nil
	}, attribute.Int("n", 3))
	if err != nil {
		t.Fatalf("Trace: %v", err)
	}

	want := errors.New("E101")
	if err := Trace(context.Background(), tracer, "fail", func(context.Context) error { return want }); err != want {
		t.Fatalf("err = %v, want %v", err, want)
	}

	if tracer.spans[0].status != codes.Ok {
		t.Errorf("ok status = %v", tracer.spans[0].status)
	}
	failed := tracer.spans[1]
	if failed.status != codes.Error || len(failed.errs) != 1 {
		t.Errorf("fail span = %+v", failed)
	}
	if v, ok := failed.attr("listdiff.error_code"); !ok || v.AsString() != "E101" {
		t.Errorf("error_code = %v", v.Emit())
	}
}

func TestSpanFromContextEmpty(t *testing.T) {
	if SpanFromContext(context.Background()) != nil {
		t.Error("expected nil span")
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(RequestLogger(logger))
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	out := buf.String()
	for _, want := range []string{"level=WARN", "route=/boom", "status=503"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}
}
