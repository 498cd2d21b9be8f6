package server

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vango-dev/listdiff/pkg/document"
	"github.com/vango-dev/listdiff/pkg/listdiff"
	"github.com/vango-dev/listdiff/pkg/middleware"
	"github.com/vango-dev/listdiff/pkg/protocol"
)

// Server serves the diff API and staged apply sessions.
type Server struct {
	config   *Config
	router   chi.Router
	upgrader websocket.Upgrader
	logger   *slog.Logger

	httpServer *http.Server
	sessions   atomic.Int64
}

// New creates a new Server. A nil config uses DefaultConfig.
func New(cfg *Config) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.withDefaults()

	s := &Server{
		config: cfg,
		logger: cfg.Logger.With("component", "server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	if s.config.Tracer != nil {
		r.Use(middleware.OpenTelemetry(
			middleware.WithTracer(s.config.Tracer),
			middleware.WithRequestFilter(func(r *http.Request) bool {
				return r.URL.Path != "/healthz" && r.URL.Path != s.config.MetricsPath
			}),
		))
	}
	r.Use(s.config.Metrics.Handler)
	r.Use(middleware.RequestLogger(s.logger))

	r.Get("/healthz", s.handleHealth)
	if s.config.Gatherer != nil {
		r.Handle(s.config.MetricsPath, promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/diff", s.handleDiff)
		r.Get("/kinds", s.handleKinds)
		r.Get("/apply", s.handleApply)
	})
	return r
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ActiveSessions returns the number of open apply sessions.
func (s *Server) ActiveSessions() int {
	return int(s.sessions.Load())
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadTimeout,
		ReadTimeout:       s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "active_sessions", s.ActiveSessions())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

// diff computes a changeset, recording metrics and a trace span.
func (s *Server) diff(ctx context.Context, old, new *document.Document, crossSectionMoves bool) (*listdiff.Changeset[document.Header, document.Element], error) {
	var cs *listdiff.Changeset[document.Header, document.Element]
	run := func(context.Context) error {
		var err error
		cs, err = s.config.Registry.Diff(old, new,
			listdiff.WithCrossSectionMoves(crossSectionMoves),
			listdiff.WithVerification(s.config.Verify),
		)
		return err
	}

	start := time.Now()
	var err error
	if s.config.Tracer != nil {
		oldSecs, oldEls := old.Stats()
		newSecs, newEls := new.Stats()
		err = middleware.Trace(ctx, s.config.Tracer, "listdiff.diff", run,
			attribute.Int("listdiff.old.sections", oldSecs),
			attribute.Int("listdiff.old.elements", oldEls),
			attribute.Int("listdiff.new.sections", newSecs),
			attribute.Int("listdiff.new.elements", newEls),
		)
	} else {
		err = run(ctx)
	}

	if err != nil {
		s.config.Metrics.ObserveDiff(time.Since(start), 0, nil, err)
		s.logger.Error("diff failed", "error", err)
		return nil, err
	}
	s.config.Metrics.ObserveDiff(time.Since(start), len(cs.Stages), cs.Operations(), nil)
	return cs, nil
}

// frameErrorType labels protocol failures for metrics.
func frameErrorType(code protocol.ErrorCode) string {
	switch code {
	case protocol.ErrInvalidFrame:
		return "invalid_frame"
	case protocol.ErrUnexpectedFrame:
		return "unexpected_frame"
	case protocol.ErrOutOfOrder:
		return "out_of_order"
	case protocol.ErrTimeout:
		return "timeout"
	}
	return "server"
}
