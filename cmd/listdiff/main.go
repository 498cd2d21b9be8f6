package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vango-dev/listdiff/internal/config"
	"github.com/vango-dev/listdiff/internal/errors"
	"github.com/vango-dev/listdiff/internal/store"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configDir string
	verbose   bool
	colorMode string

	cfg *config.Config
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "listdiff",
		Short: "Staged diffs for sectioned lists",
		Long: `listdiff computes the difference between two snapshots of a
sectioned list and splits it into stages a list view can apply one
batch at a time.

Snapshots are JSON or YAML documents, read from local paths or
s3://bucket/key locations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configDir, "config", "c", ".", "Directory containing "+config.ConfigFileName)
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.colorMode, "color", "auto", "Color output: auto, always or never")

	rootCmd.AddCommand(
		diffCmd(opts),
		applyCmd(opts),
		serveCmd(opts),
		initCmd(opts),
		kindsCmd(),
		versionCmd(),
	)
	return rootCmd
}

func (o *globalOptions) init() error {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	switch o.colorMode {
	case "always":
		color.NoColor = false
		errors.EnableColors()
	case "never":
		color.NoColor = true
		errors.DisableColors()
	case "auto":
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			color.NoColor = true
			errors.DisableColors()
		}
	default:
		return errors.New("E160").WithDetailf("--color %q", o.colorMode).
			WithSuggestion("Use auto, always or never")
	}

	cfg, err := config.LoadOrDefault(o.configDir)
	if err != nil {
		return err
	}
	o.cfg = cfg
	slog.Debug("config loaded", "path", cfg.Path(), "addr", cfg.Server.Addr)
	return nil
}

// source returns the snapshot loader for local paths and s3:// locations.
func (o *globalOptions) source() store.Source {
	max := o.cfg.Server.MaxDocumentBytes
	mux := store.NewMux(max)
	mux.Handle("s3", store.NewS3Source(store.NewS3Client(o.cfg.S3.Region, o.cfg.S3.Endpoint, o.cfg.S3.PathStyle), max))
	return mux
}
