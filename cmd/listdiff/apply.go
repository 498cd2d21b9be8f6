package main

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/listdiff/internal/errors"
	"github.com/vango-dev/listdiff/pkg/document"
	"github.com/vango-dev/listdiff/pkg/listdiff"
	"github.com/vango-dev/listdiff/pkg/server"
)

// listApplier stands in for a list view: it prints every stage, checks it
// against the list it holds and keeps the committed snapshot.
type listApplier struct {
	p       *printer
	current document.Snapshot
	stage   int
	stopAt  int

	// check validates one stage's operations against current.
	check func(current document.Snapshot, stage int, ops []listdiff.Operation) error
}

func (a *listApplier) ApplyOperations(ops []listdiff.Operation) error {
	if a.check != nil {
		if err := a.check(a.current, a.stage, ops); err != nil {
			return err
		}
	}
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.String()
	}
	a.p.info("stage %d: %s", a.stage+1, strings.Join(names, ", "))
	return nil
}

func (a *listApplier) CommitSnapshot(s document.Snapshot) {
	a.current = s
	a.stage++
}

func (a *listApplier) Interrupted() bool {
	return a.stopAt > 0 && a.stage >= a.stopAt
}

func applyCmd(opts *globalOptions) *cobra.Command {
	var (
		remote         string
		interruptAfter int
		noCrossMoves   bool
	)

	cmd := &cobra.Command{
		Use:   "apply OLD NEW",
		Short: "Apply the staged changeset stage by stage",
		Long: `Apply the changeset turning OLD into NEW to an in-memory list,
one stage at a time, the way a list view consumes it.

Every stage is checked against the list before it is committed. With
--remote the stages are computed by a listdiff server and streamed over
a websocket session.

Examples:
  listdiff apply old.json new.json
  listdiff apply --interrupt-after 2 old.json new.json
  listdiff apply --remote ws://localhost:7070/v1/apply old.yaml new.yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			old, new, err := loadPair(cmd.Context(), opts, args[0], args[1])
			if err != nil {
				return err
			}

			p := &printer{out: cmd.OutOrStdout()}
			differ := document.DefaultRegistry.Differ(differOptions(opts, noCrossMoves, false)...)
			a := &listApplier{p: p, current: old.Snapshot(), stopAt: interruptAfter}

			var report listdiff.ApplyReport
			if remote != "" {
				report, err = applyRemote(cmd, opts, remote, old, new, noCrossMoves, a)
			} else {
				var cs *listdiff.Changeset[document.Header, document.Element]
				cs, err = differ.Diff(old.Snapshot(), new.Snapshot())
				if err != nil {
					return err
				}
				a.check = func(current document.Snapshot, stage int, _ []listdiff.Operation) error {
					return differ.Verify(current, cs.Stages[stage])
				}
				report, err = listdiff.StagedApply(cmd.Context(), cs, a)
			}

			switch {
			case stderrors.Is(err, listdiff.ErrInterrupted):
				p.warn("Interrupted after %d of %d stages, reloading", report.Applied, report.Total)
				a.current = new.Snapshot()
			case err != nil:
				return err
			}

			// The list must end up showing new, whether staged or reloaded.
			rest, err := differ.Diff(a.current, new.Snapshot())
			if err != nil {
				return err
			}
			if !rest.IsEmpty() {
				return errors.New("E101").
					WithDetailf("%d operations left after the last stage", len(rest.Operations()))
			}
			if report.Complete() {
				p.success("Applied %d stages", report.Applied)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "", "Stream stages from a listdiff server (ws://host/v1/apply)")
	cmd.Flags().IntVar(&interruptAfter, "interrupt-after", 0, "Interrupt after N stages (0 applies all)")
	cmd.Flags().BoolVar(&noCrossMoves, "no-cross-moves", false, "Report section changes as delete + insert")
	return cmd
}

// applyRemote sends both documents to a server and applies the stages it
// streams back.
func applyRemote(cmd *cobra.Command, opts *globalOptions, url string, old, new *document.Document, noCrossMoves bool, a *listApplier) (listdiff.ApplyReport, error) {
	encode := func(d *document.Document) ([]byte, error) {
		var buf bytes.Buffer
		if err := document.Encode(&buf, d, document.FormatJSON); err != nil {
			return nil, fmt.Errorf("encode: %w", err)
		}
		return buf.Bytes(), nil
	}
	oldJSON, err := encode(old)
	if err != nil {
		return listdiff.ApplyReport{}, err
	}
	newJSON, err := encode(new)
	if err != nil {
		return listdiff.ApplyReport{}, err
	}

	c := server.NewClient(url)
	c.CrossSectionMoves = opts.cfg.CrossSectionMoves() && !noCrossMoves
	c.Timeout = opts.cfg.AckTimeout()
	a.check = func(_ document.Snapshot, _ int, ops []listdiff.Operation) error {
		return listdiff.CheckStage(ops)
	}
	return c.Apply(cmd.Context(), oldJSON, newJSON, document.FormatJSON, a)
}
