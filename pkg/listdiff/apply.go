package listdiff

import (
	"context"

	"github.com/vango-dev/listdiff/internal/errors"
)

// ErrInterrupted is returned by StagedApply when the consumer interrupts
// between stages. Match it with errors.Is.
var ErrInterrupted = errors.New("E111")

// Applier is the consumer side of a staged apply. It is a non-owning handle
// to the consumer's list: StagedApply uses it for the duration of one call
// and never retains it.
type Applier[S, E any] interface {
	// ApplyOperations performs one stage's operations on the real list.
	ApplyOperations(ops []Operation) error

	// CommitSnapshot hands over the snapshot the list now shows.
	CommitSnapshot(snapshot Snapshot[S, E])

	// Interrupted is polled before every stage.
	Interrupted() bool
}

// ApplierFuncs adapts plain functions to Applier. Nil fields are no-ops.
type ApplierFuncs[S, E any] struct {
	Apply     func(ops []Operation) error
	Commit    func(snapshot Snapshot[S, E])
	Interrupt func() bool
}

// ApplyOperations implements Applier.
func (f ApplierFuncs[S, E]) ApplyOperations(ops []Operation) error {
	if f.Apply == nil {
		return nil
	}
	return f.Apply(ops)
}

// CommitSnapshot implements Applier.
func (f ApplierFuncs[S, E]) CommitSnapshot(snapshot Snapshot[S, E]) {
	if f.Commit != nil {
		f.Commit(snapshot)
	}
}

// Interrupted implements Applier.
func (f ApplierFuncs[S, E]) Interrupted() bool {
	return f.Interrupt != nil && f.Interrupt()
}

// ApplyReport describes how far a staged apply got.
type ApplyReport struct {
	Applied     int
	Total       int
	Interrupted bool
}

// Complete returns true if every stage was applied.
func (r ApplyReport) Complete() bool {
	return r.Applied == r.Total
}

// StagedApply presents the stages of cs to a strictly in order. For every
// stage it calls ApplyOperations and then CommitSnapshot with the stage's
// result. Interrupted and ctx are checked before each stage; on interrupt the
// remaining stages are skipped and ErrInterrupted is returned, leaving the
// consumer to reload cs.New directly. An ApplyOperations error stops the
// sequence as well; there is no retry.
func StagedApply[S, E any](ctx context.Context, cs *Changeset[S, E], a Applier[S, E]) (ApplyReport, error) {
	report := ApplyReport{Total: len(cs.Stages)}

	for i, st := range cs.Stages {
		if a.Interrupted() || ctx.Err() != nil {
			report.Interrupted = true
			return report, errors.New("E111").
				WithDetailf("stopped before stage %d of %d", i+1, report.Total).
				Wrap(ctx.Err())
		}
		if err := a.ApplyOperations(st.Operations); err != nil {
			return report, errors.New("E110").
				WithDetailf("stage %d of %d", i+1, report.Total).
				Wrap(err)
		}
		a.CommitSnapshot(st.Result)
		report.Applied++
	}
	return report, nil
}

// ApplyStage replays st's operations on prev the way a list applies one
// batch update: deletes and move sources address prev, inserts and move
// destinations address the result, and untouched items keep their relative
// order. Inserted items and updated content are read from st.Result.
//
// Any coordinate outside the snapshot it addresses fails with E100.
func ApplyStage[S, E any](prev Snapshot[S, E], st Stage[S, E]) (Snapshot[S, E], error) {
	result := st.Result

	// Element removals address sections of prev.
	removedElems := make(map[Path]bool)
	movedElems := make(map[int]E)
	for idx, op := range st.Operations {
		if op.Op != OpDeleteElement && op.Op != OpMoveElement {
			continue
		}
		v, ok := prev.At(op.At)
		if !ok {
			return nil, opBounds(idx, op, "source", prev)
		}
		if removedElems[op.At] {
			return nil, errors.New("E102").WithDetailf("operation %d (%s): source removed twice", idx, op)
		}
		removedElems[op.At] = true
		if op.Op == OpMoveElement {
			movedElems[idx] = v
		}
	}

	survivors := make(Snapshot[S, E], len(prev))
	for s, sec := range prev {
		survivors[s].Model = sec.Model
		elems := make([]E, 0, len(sec.Elements))
		for e, v := range sec.Elements {
			if !removedElems[ElementPath(s, e)] {
				elems = append(elems, v)
			}
		}
		survivors[s].Elements = elems
	}

	// Section level.
	removedSecs := make(map[int]bool)
	placed := make(map[int]Section[S, E])
	for idx, op := range st.Operations {
		switch op.Op {
		case OpDeleteSection, OpMoveSection:
			if op.At.Section < 0 || op.At.Section >= len(prev) {
				return nil, opBounds(idx, op, "source", prev)
			}
			if removedSecs[op.At.Section] {
				return nil, errors.New("E102").WithDetailf("operation %d (%s): section removed twice", idx, op)
			}
			removedSecs[op.At.Section] = true
		}
	}
	for idx, op := range st.Operations {
		switch op.Op {
		case OpInsertSection, OpMoveSection:
			if op.To.Section < 0 || op.To.Section >= len(result) {
				return nil, opBounds(idx, op, "destination", result)
			}
			if _, dup := placed[op.To.Section]; dup {
				return nil, errors.New("E102").WithDetailf("operation %d (%s): section filled twice", idx, op)
			}
			if op.Op == OpInsertSection {
				src := result[op.To.Section]
				placed[op.To.Section] = Section[S, E]{Model: src.Model, Elements: append([]E(nil), src.Elements...)}
			} else {
				placed[op.To.Section] = survivors[op.At.Section]
			}
		}
	}

	post := make(Snapshot[S, E], len(result))
	next := 0
	for s := range post {
		if sec, ok := placed[s]; ok {
			post[s] = sec
			continue
		}
		for next < len(survivors) && removedSecs[next] {
			next++
		}
		if next == len(survivors) {
			return nil, errors.New("E101").WithDetailf("result has %d sections, operations produce fewer", len(result))
		}
		post[s] = survivors[next]
		next++
	}
	for next < len(survivors) && removedSecs[next] {
		next++
	}
	if next != len(survivors) {
		return nil, errors.New("E101").WithDetailf("result has %d sections, operations produce more", len(result))
	}

	// Element insertions address sections of the result.
	incoming := make(map[int]map[int]E)
	for idx, op := range st.Operations {
		if op.Op != OpInsertElement && op.Op != OpMoveElement {
			continue
		}
		s := op.To.Section
		if s < 0 || s >= len(post) {
			return nil, opBounds(idx, op, "destination", result)
		}
		if incoming[s] == nil {
			incoming[s] = make(map[int]E)
		}
		if _, dup := incoming[s][op.To.Element]; dup {
			return nil, errors.New("E102").WithDetailf("operation %d (%s): destination filled twice", idx, op)
		}
		if op.Op == OpMoveElement {
			incoming[s][op.To.Element] = movedElems[idx]
			continue
		}
		v, ok := result.At(op.To)
		if !ok {
			return nil, opBounds(idx, op, "destination", result)
		}
		incoming[s][op.To.Element] = v
	}
	for s, fills := range incoming {
		current := post[s].Elements
		elems := make([]E, len(current)+len(fills))
		k := 0
		for e := range elems {
			if v, ok := fills[e]; ok {
				elems[e] = v
				continue
			}
			if k == len(current) {
				return nil, errors.New("E100").WithDetailf("section %d: element destination beyond %d slots", s, len(elems))
			}
			elems[e] = current[k]
			k++
		}
		if len(fills) > 0 && k != len(current) {
			return nil, errors.New("E100").WithDetailf("section %d: element destinations leave gaps", s)
		}
		post[s].Elements = elems
	}

	// Updates take their content from the result.
	for idx, op := range st.Operations {
		switch op.Op {
		case OpUpdateSection:
			if op.At.Section < 0 || op.At.Section >= len(prev) {
				return nil, opBounds(idx, op, "source", prev)
			}
			if op.To.Section < 0 || op.To.Section >= len(post) {
				return nil, opBounds(idx, op, "destination", result)
			}
			post[op.To.Section].Model = result[op.To.Section].Model
		case OpUpdateElement:
			if _, ok := prev.At(op.At); !ok {
				return nil, opBounds(idx, op, "source", prev)
			}
			v, ok := result.At(op.To)
			if !ok || op.To.Element >= len(post[op.To.Section].Elements) {
				return nil, opBounds(idx, op, "destination", result)
			}
			post[op.To.Section].Elements[op.To.Element] = v
		}
	}
	return post, nil
}

// Verify replays st on prev and checks that the outcome matches st.Result
// by identity and content.
func (d *Differ[S, E, SK, EK]) Verify(prev Snapshot[S, E], st Stage[S, E]) error {
	got, err := ApplyStage(prev, st)
	if err != nil {
		return err
	}
	if err := CheckStage(st.Operations); err != nil {
		return err
	}
	return d.compare(got, st.Result)
}

// compare reports the first difference between got and want.
func (d *Differ[S, E, SK, EK]) compare(got, want Snapshot[S, E]) error {
	if len(got) != len(want) {
		return errors.New("E101").WithDetailf("%d sections, want %d", len(got), len(want))
	}
	for s := range want {
		g, w := got[s], want[s]
		if d.sections.Identify(g.Model) != d.sections.Identify(w.Model) {
			return errors.New("E101").WithDetailf("section %d has a different identity", s)
		}
		if !d.sections.equal(g.Model, w.Model) {
			return errors.New("E101").WithDetailf("section %d content differs", s)
		}
		if len(g.Elements) != len(w.Elements) {
			return errors.New("E101").WithDetailf("section %d has %d elements, want %d", s, len(g.Elements), len(w.Elements))
		}
		for e := range w.Elements {
			if d.elements.Identify(g.Elements[e]) != d.elements.Identify(w.Elements[e]) {
				return errors.New("E101").WithDetailf("element %d.%d has a different identity", s, e)
			}
			if !d.elements.equal(g.Elements[e], w.Elements[e]) {
				return errors.New("E101").WithDetailf("element %d.%d content differs", s, e)
			}
		}
	}
	return nil
}

func opBounds[S, E any](idx int, op Operation, side string, snap Snapshot[S, E]) error {
	return errors.New("E100").WithDetailf("operation %d (%s): %s outside snapshot of %d sections", idx, op, side, len(snap))
}
