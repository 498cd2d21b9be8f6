package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/listdiff/internal/config"
	"github.com/vango-dev/listdiff/pkg/document"
	"github.com/vango-dev/listdiff/pkg/middleware"
)

// Config holds the server settings.
type Config struct {
	// Address is the address to listen on (e.g., ":7070").
	Address string

	// ReadTimeout bounds reading one request, and one frame on a session.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing one response or frame.
	WriteTimeout time.Duration

	// AckTimeout is how long a session waits for a stage Ack.
	AckTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// MaxDocumentBytes limits each snapshot document.
	MaxDocumentBytes int64

	// CrossSectionMoves and Verify are the differ defaults. A request may
	// turn cross-section moves off.
	CrossSectionMoves bool
	Verify            bool

	// CheckOrigin validates websocket origins. Nil allows same-origin
	// requests and requests without an Origin header.
	CheckOrigin func(r *http.Request) bool

	// Registry resolves element and section kinds (default: document.DefaultRegistry).
	Registry *document.Registry

	// Metrics records request, diff and session metrics. Nil disables them.
	Metrics *middleware.Metrics

	// Gatherer serves the metrics endpoint. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// MetricsPath is the metrics endpoint path (default: "/metrics").
	MetricsPath string

	// Tracer traces requests and diffs. Nil disables tracing.
	Tracer trace.Tracer

	// Logger is the structured logger (default: slog.Default()).
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:           config.DefaultAddr,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		AckTimeout:        30 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		MaxDocumentBytes:  config.DefaultMaxDocumentBytes,
		CrossSectionMoves: true,
		Verify:            true,
		MetricsPath:       "/metrics",
	}
}

// ConfigFrom builds a server Config from a loaded listdiff.json.
func ConfigFrom(c *config.Config) *Config {
	sc := DefaultConfig()
	sc.Address = c.Server.Addr
	sc.ReadTimeout = c.ReadTimeout()
	sc.WriteTimeout = c.WriteTimeout()
	sc.AckTimeout = c.AckTimeout()
	sc.MaxDocumentBytes = c.Server.MaxDocumentBytes
	sc.CrossSectionMoves = c.CrossSectionMoves()
	sc.Verify = c.Verify()
	sc.MetricsPath = c.Metrics.Path
	if len(c.Server.AllowedOrigins) > 0 {
		sc.CheckOrigin = AllowOrigins(c.Server.AllowedOrigins...)
	}
	return sc
}

// withDefaults fills unset fields.
func (c *Config) withDefaults() *Config {
	out := *c
	d := DefaultConfig()
	if out.Address == "" {
		out.Address = d.Address
	}
	if out.ReadTimeout == 0 {
		out.ReadTimeout = d.ReadTimeout
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.AckTimeout == 0 {
		out.AckTimeout = d.AckTimeout
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = d.ShutdownTimeout
	}
	if out.MaxDocumentBytes == 0 {
		out.MaxDocumentBytes = d.MaxDocumentBytes
	}
	if out.MetricsPath == "" {
		out.MetricsPath = d.MetricsPath
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = sameOrigin
	}
	if out.Registry == nil {
		out.Registry = document.DefaultRegistry
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return &out
}

// AllowOrigins returns a CheckOrigin accepting the given origins, compared
// case-insensitively, plus requests without an Origin header.
func AllowOrigins(origins ...string) func(r *http.Request) bool {
	allowed := make([]string, len(origins))
	for i, o := range origins {
		allowed[i] = strings.ToLower(strings.TrimRight(o, "/"))
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return slices.Contains(allowed, strings.ToLower(origin))
	}
}

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
