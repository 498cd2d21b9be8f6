package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/vango-dev/listdiff/pkg/middleware"
	"github.com/vango-dev/listdiff/pkg/server"
)

func serveCmd(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the listdiff HTTP and websocket server",
		Long: `Run the listdiff server.

Routes:
  POST /v1/diff    diff two documents
  GET  /v1/apply   staged apply websocket session
  GET  /v1/kinds   registered kinds
  GET  /healthz    liveness check
  GET  /metrics    Prometheus metrics (metrics.enabled)

The listen address comes from --addr, LISTDIFF_ADDR or listdiff.json,
in that order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			sc := server.ConfigFrom(cfg)
			if addr != "" {
				sc.Address = addr
			}
			sc.Logger = slog.Default()

			if cfg.Metrics.Enabled {
				reg := prometheus.NewRegistry()
				reg.MustRegister(
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)
				sc.Metrics = middleware.NewMetrics(
					middleware.WithRegistry(reg),
					middleware.WithNamespace(cfg.Metrics.Namespace),
				)
				sc.Gatherer = reg
			}
			if cfg.Tracing.Enabled {
				sc.Tracer = otel.Tracer(cfg.Tracing.TracerName)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			slog.Info("listdiff server starting",
				"addr", sc.Address,
				"metrics", cfg.Metrics.Enabled,
				"tracing", cfg.Tracing.Enabled,
				"version", version)
			if err := server.New(sc).ListenAndServe(ctx); err != nil {
				return err
			}
			slog.Info("listdiff server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}
