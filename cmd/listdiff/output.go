package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/vango-dev/listdiff/pkg/document"
	"github.com/vango-dev/listdiff/pkg/listdiff"
)

// printer writes human readable output.
type printer struct {
	out io.Writer
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

// success prints a success message.
func (p *printer) success(format string, args ...any) {
	fmt.Fprintf(p.out, "%s %s\n", green("✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func (p *printer) info(format string, args ...any) {
	fmt.Fprintf(p.out, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func (p *printer) warn(format string, args ...any) {
	fmt.Fprintf(p.out, "%s %s\n", yellow("⚠"), fmt.Sprintf(format, args...))
}

// opColor colors an operation name by what it does to the list.
func opColor(k listdiff.OpKind) string {
	switch k {
	case listdiff.OpInsertSection, listdiff.OpInsertElement:
		return green(k.String())
	case listdiff.OpDeleteSection, listdiff.OpDeleteElement:
		return red(k.String())
	case listdiff.OpMoveSection, listdiff.OpMoveElement:
		return cyan(k.String())
	}
	return yellow(k.String())
}

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
}

// stageTable prints one row per staged operation.
func (p *printer) stageTable(cs *listdiff.Changeset[document.Header, document.Element]) error {
	table := newTable(p.out)
	table.Header([]string{"Stage", "Operation", "At", "To", "Item"})

	var rows [][]string
	for i, st := range cs.Stages {
		for _, op := range st.Operations {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				opColor(op.Op),
				op.At.String(),
				op.To.String(),
				itemLabel(st, op),
			})
		}
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// itemLabel names the section or element an operation touches.
func itemLabel(st listdiff.Stage[document.Header, document.Element], op listdiff.Operation) string {
	if op.Op == listdiff.OpDeleteSection || op.Op == listdiff.OpDeleteElement {
		return faint("-")
	}
	p := op.To
	if p.Section < 0 || p.Section >= len(st.Result) {
		return ""
	}
	sec := st.Result[p.Section]
	if p.Element < 0 {
		return sec.Model.ID
	}
	if p.Element >= len(sec.Elements) {
		return ""
	}
	return sec.Model.ID + "/" + sec.Elements[p.Element].ID
}

// summary prints the totals of a changeset.
func (p *printer) summary(cs *listdiff.Changeset[document.Header, document.Element]) {
	if cs.IsEmpty() {
		p.success("Snapshots are equivalent")
		return
	}
	p.success("%d operations in %d stages", len(cs.Operations()), len(cs.Stages))
	for k := listdiff.OpDeleteSection; k <= listdiff.OpUpdateElement; k++ {
		if n := cs.Count(k); n > 0 {
			p.info("%-14s %d", k.String(), n)
		}
	}
}
