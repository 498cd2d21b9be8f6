// Package middleware provides HTTP middleware and instrumentation for the
// listdiff server.
//
// This package includes:
//   - Prometheus metrics for requests, diffs and apply sessions
//   - OpenTelemetry request tracing and a span helper for diff work
//   - Structured request logging with log/slog
//
// # OpenTelemetry Middleware
//
//	r := chi.NewRouter()
//	r.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("listdiff"),
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
//
// The tracer comes from the global provider. Configure it in main():
//
//	otel.SetTracerProvider(tp)
//
// # Prometheus Metrics
//
//	m := middleware.NewMetrics(middleware.WithNamespace("listdiff"))
//	r.Use(m.Handler)
//	r.Handle("/metrics", promhttp.Handler())
//
// Diff and session metrics are recorded by the server through
// ObserveDiff, SessionStarted, StageApplied and SessionEnded. A nil
// *Metrics is valid and records nothing.
package middleware
