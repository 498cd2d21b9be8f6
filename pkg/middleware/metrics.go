package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/listdiff/internal/errors"
	"github.com/vango-dev/listdiff/pkg/listdiff"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "listdiff").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "listdiff",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Apply session outcomes.
const (
	OutcomeComplete    = "complete"
	OutcomeInterrupted = "interrupted"
	OutcomeRejected    = "rejected"
	OutcomeError       = "error"
)

// Metrics holds the Prometheus metrics of a listdiff server. A nil *Metrics
// records nothing.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	diffsTotal      *prometheus.CounterVec
	diffDuration    prometheus.Histogram
	diffStages      prometheus.Histogram
	operationsTotal *prometheus.CounterVec
	activeSessions  prometheus.Gauge
	sessionsTotal   *prometheus.CounterVec
	stagesApplied   prometheus.Counter
	frameErrors     *prometheus.CounterVec
}

// NewMetrics registers the listdiff metrics.
//
// Metrics collected:
//   - listdiff_http_requests_total: Counter of requests by route, method and code
//   - listdiff_http_request_duration_seconds: Histogram of request duration by route
//   - listdiff_diffs_total: Counter of diffs by status ("ok" or an error code)
//   - listdiff_diff_duration_seconds: Histogram of diff computation time
//   - listdiff_diff_stages: Histogram of stages per changeset
//   - listdiff_operations_total: Counter of staged operations by kind
//   - listdiff_active_sessions: Gauge of open apply sessions
//   - listdiff_sessions_total: Counter of finished apply sessions by outcome
//   - listdiff_stages_applied_total: Counter of acknowledged stages
//   - listdiff_frame_errors_total: Counter of protocol errors by type
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	m := middleware.NewMetrics(middleware.WithRegistry(reg))
//	r.Use(m.Handler)
//	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "method", "code"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),

		diffsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "diffs_total",
			Help:        "Total number of computed diffs by status",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		diffDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "diff_duration_seconds",
			Help:        "Diff computation time in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		diffStages: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "diff_stages",
			Help:        "Number of stages per changeset",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{0, 1, 2, 3, 4, 6, 8},
		}),

		operationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "operations_total",
			Help:        "Total number of staged operations by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of open apply sessions",
			ConstLabels: config.ConstLabels,
		}),

		sessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "sessions_total",
			Help:        "Total number of finished apply sessions by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		stagesApplied: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "stages_applied_total",
			Help:        "Total number of stages acknowledged by consumers",
			ConstLabels: config.ConstLabels,
		}),

		frameErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frame_errors_total",
			Help:        "Total protocol errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// Handler records request count and duration, labelled by the chi route
// pattern so path parameters do not inflate cardinality.
func (m *Metrics) Handler(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		route := routePattern(r)
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.Status())).Inc()
	})
}

// ObserveDiff records one diff. ops are the staged operations.
func (m *Metrics) ObserveDiff(d time.Duration, stages int, ops []listdiff.Operation, err error) {
	if m == nil {
		return
	}
	m.diffDuration.Observe(d.Seconds())
	if err != nil {
		m.diffsTotal.WithLabelValues(errorLabel(err)).Inc()
		return
	}
	m.diffsTotal.WithLabelValues("ok").Inc()
	m.diffStages.Observe(float64(stages))
	for _, op := range ops {
		m.operationsTotal.WithLabelValues(op.Op.String()).Inc()
	}
}

// SessionStarted records a new apply session.
func (m *Metrics) SessionStarted() {
	if m != nil {
		m.activeSessions.Inc()
	}
}

// SessionEnded records the end of an apply session.
func (m *Metrics) SessionEnded(outcome string) {
	if m != nil {
		m.activeSessions.Dec()
		m.sessionsTotal.WithLabelValues(outcome).Inc()
	}
}

// StageApplied records an acknowledged stage.
func (m *Metrics) StageApplied() {
	if m != nil {
		m.stagesApplied.Inc()
	}
}

// FrameError records a protocol error.
func (m *Metrics) FrameError(errorType string) {
	if m != nil {
		m.frameErrors.WithLabelValues(errorType).Inc()
	}
}

// errorLabel maps an error to its registry code, keeping label values bounded.
func errorLabel(err error) string {
	if code := errors.CodeOf(err); code != "" {
		return code
	}
	return "internal"
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
