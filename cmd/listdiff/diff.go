package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/listdiff/internal/errors"
	"github.com/vango-dev/listdiff/pkg/document"
	"github.com/vango-dev/listdiff/pkg/listdiff"
	"github.com/vango-dev/listdiff/pkg/server"
)

func diffCmd(opts *globalOptions) *cobra.Command {
	var (
		output       string
		noCrossMoves bool
		noVerify     bool
	)

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Print the staged changeset between two snapshots",
		Long: `Compute the staged changeset turning OLD into NEW.

OLD and NEW are JSON or YAML documents, given as local paths or
s3://bucket/key URIs.

Examples:
  listdiff diff old.json new.json
  listdiff diff --output yaml s3://lists/v1.yaml s3://lists/v2.yaml
  listdiff diff --no-cross-moves old.json new.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			old, new, err := loadPair(cmd.Context(), opts, args[0], args[1])
			if err != nil {
				return err
			}

			cs, err := document.DefaultRegistry.Diff(old, new, differOptions(opts, noCrossMoves, noVerify)...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch output {
			case "text":
				p := &printer{out: out}
				p.summary(cs)
				if cs.IsEmpty() {
					return nil
				}
				return p.stageTable(cs)
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(server.NewDiffResponse(cs))
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(server.NewDiffResponse(cs)); err != nil {
					return err
				}
				return enc.Close()
			}
			return errors.New("E160").WithDetailf("--output %q", output).
				WithSuggestion("Use text, json or yaml")
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json or yaml")
	cmd.Flags().BoolVar(&noCrossMoves, "no-cross-moves", false, "Report section changes as delete + insert")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip replaying every stage")
	return cmd
}

// loadPair loads both snapshots concurrently.
func loadPair(ctx context.Context, opts *globalOptions, oldLoc, newLoc string) (old, new *document.Document, err error) {
	src := opts.source()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		old, err = src.Load(gctx, oldLoc)
		return err
	})
	g.Go(func() error {
		var err error
		new, err = src.Load(gctx, newLoc)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return old, new, nil
}

// differOptions merges config defaults with command line overrides.
func differOptions(opts *globalOptions, noCrossMoves, noVerify bool) []listdiff.Option {
	return []listdiff.Option{
		listdiff.WithCrossSectionMoves(opts.cfg.CrossSectionMoves() && !noCrossMoves),
		listdiff.WithVerification(opts.cfg.Verify() && !noVerify),
	}
}
