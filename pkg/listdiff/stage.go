package listdiff

import (
	stderrors "errors"
	"slices"

	"github.com/vango-dev/listdiff/internal/errors"
)

// Stage is a conflict-free batch of operations together with the snapshot
// the consumer's list holds once the batch is applied.
type Stage[S, E any] struct {
	Operations []Operation    `json:"operations"`
	Result     Snapshot[S, E] `json:"result"`
}

// Changeset is the outcome of one diff.
type Changeset[S, E any] struct {
	// Old and New are the snapshots the changeset was computed from.
	Old Snapshot[S, E] `json:"-"`
	New Snapshot[S, E] `json:"-"`

	// Raw lists every operation in one batch, At in old coordinates and To
	// in new coordinates.
	Raw []Operation `json:"raw"`

	// Stages are the ordered batches to apply.
	Stages []Stage[S, E] `json:"stages"`
}

// IsEmpty returns true if old and new are equivalent.
func (c *Changeset[S, E]) IsEmpty() bool {
	return len(c.Stages) == 0
}

// Operations returns every staged operation in application order.
func (c *Changeset[S, E]) Operations() []Operation {
	var ops []Operation
	for _, st := range c.Stages {
		ops = append(ops, st.Operations...)
	}
	return ops
}

// Count returns the number of staged operations of the given kind.
func (c *Changeset[S, E]) Count(kind OpKind) int {
	n := 0
	for _, st := range c.Stages {
		for _, op := range st.Operations {
			if op.Op == kind {
				n++
			}
		}
	}
	return n
}

// splitState is the stage splitter's state.
type splitState uint8

const (
	stateCollecting splitState = iota // taking the next primitive
	stateValidating                   // checking it against the open stage
	stateSealed                       // closing the open stage
	stateDone
)

// String returns the string representation of the splitState.
func (s splitState) String() string {
	switch s {
	case stateCollecting:
		return "Collecting"
	case stateValidating:
		return "Validating"
	case stateSealed:
		return "Sealed"
	case stateDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// splitter turns the primitive sequence of a plan into stages.
type splitter[S, E any] struct {
	ws workspace

	sectionVals []S
	elemVals    []E
	pendingSec  map[int]S
	pendingElem map[int]E

	prev   Snapshot[S, E]
	guard  stageGuard
	ops    []Operation
	stages []Stage[S, E]

	verify func(prev Snapshot[S, E], st Stage[S, E]) error
}

func (sp *splitter[S, E]) run(prims []primitive) ([]Stage[S, E], error) {
	sp.guard.reset()

	state := stateCollecting
	next := 0
	var cand Operation

	for state != stateDone {
		switch state {
		case stateCollecting:
			if next == len(prims) {
				if len(sp.ops) > 0 {
					state = stateSealed
				} else {
					state = stateDone
				}
				continue
			}
			op, err := sp.ws.locate(prims[next])
			if err != nil {
				return nil, err
			}
			cand = op
			state = stateValidating

		case stateValidating:
			if len(sp.ops) > 0 && sp.guard.conflict(cand) != "" {
				state = stateSealed
				continue
			}
			sp.guard.record(cand)
			sp.ops = append(sp.ops, cand)
			sp.commit(prims[next], cand)
			next++
			state = stateCollecting

		case stateSealed:
			if err := sp.seal(); err != nil {
				return nil, err
			}
			state = stateCollecting
		}
	}
	return sp.stages, nil
}

// commit applies an admitted primitive to the workspace and swaps in new
// content for updates.
func (sp *splitter[S, E]) commit(p primitive, op Operation) {
	sp.ws.apply(p, op)
	switch p.op {
	case OpUpdateSection:
		if v, ok := sp.pendingSec[p.section]; ok {
			sp.sectionVals[p.section] = v
			delete(sp.pendingSec, p.section)
		}
	case OpUpdateElement:
		if v, ok := sp.pendingElem[p.element]; ok {
			sp.elemVals[p.element] = v
			delete(sp.pendingElem, p.element)
		}
	}
}

func (sp *splitter[S, E]) seal() error {
	ops := slices.Clone(sp.ops)
	slices.SortStableFunc(ops, func(a, b Operation) int {
		return opRank(a.Op) - opRank(b.Op)
	})

	st := Stage[S, E]{Operations: ops, Result: sp.snapshot()}
	if sp.verify != nil {
		if err := sp.verify(sp.prev, st); err != nil {
			return errors.FromError(err, "E101").WithDetailf("stage %d: %s", len(sp.stages)+1, detailOf(err))
		}
	}

	sp.stages = append(sp.stages, st)
	sp.prev = st.Result
	sp.ops = sp.ops[:0]
	sp.guard.reset()
	return nil
}

func (sp *splitter[S, E]) snapshot() Snapshot[S, E] {
	out := make(Snapshot[S, E], len(sp.ws.sections))
	for i, sec := range sp.ws.sections {
		out[i].Model = sp.sectionVals[sec.token]
		elems := make([]E, len(sec.elems))
		for k, t := range sec.elems {
			elems[k] = sp.elemVals[t]
		}
		out[i].Elements = elems
	}
	return out
}

// opRank orders operations inside a sealed stage: removals, moves, inserts,
// then updates, sections before elements.
func opRank(k OpKind) int {
	switch k {
	case OpDeleteSection:
		return 0
	case OpDeleteElement:
		return 1
	case OpMoveSection:
		return 2
	case OpMoveElement:
		return 3
	case OpInsertSection:
		return 4
	case OpInsertElement:
		return 5
	case OpUpdateSection:
		return 6
	default:
		return 7
	}
}

func detailOf(err error) string {
	var le *errors.ListError
	if stderrors.As(err, &le) && le.Detail != "" {
		return le.Detail
	}
	return err.Error()
}

// split builds the splitter for p and runs it.
func (d *Differ[S, E, SK, EK]) split(p *plan[S, E]) ([]Stage[S, E], error) {
	m := len(p.old)

	oldBase := make([]int, len(p.old))
	total := 0
	for i, sec := range p.old {
		oldBase[i] = total
		total += len(sec.Elements)
	}
	newBase := make([]int, len(p.new))
	for j, sec := range p.new {
		newBase[j] = total
		total += len(sec.Elements)
	}

	sp := &splitter[S, E]{
		sectionVals: make([]S, m+len(p.new)),
		elemVals:    make([]E, total),
		pendingSec:  make(map[int]S),
		pendingElem: make(map[int]E),
		prev:        p.old,
	}
	if d.opts.verify {
		sp.verify = d.Verify
	}

	// Matched items carry their new content from the start unless they are
	// updated, in which case the old content stays until the update stage.
	for i, sec := range p.old {
		sp.sectionVals[i] = sec.Model
		if j := p.oldToNew[i]; j >= 0 {
			if p.sectionChanged[j] {
				sp.pendingSec[i] = p.new[j].Model
			} else {
				sp.sectionVals[i] = p.new[j].Model
			}
		}
		ws := wsSection{token: i, elems: make([]int, len(sec.Elements))}
		for e, elem := range sec.Elements {
			tok := oldBase[i] + e
			ws.elems[e] = tok
			sp.elemVals[tok] = elem
			if np := p.elemNew[i][e]; np != NoPath {
				next := p.new[np.Section].Elements[np.Element]
				if p.elemUpdated[np.Section][np.Element] {
					sp.pendingElem[tok] = next
				} else {
					sp.elemVals[tok] = next
				}
			}
		}
		sp.ws.sections = append(sp.ws.sections, ws)
	}
	for j, sec := range p.new {
		if p.newToOld[j] < 0 {
			sp.sectionVals[m+j] = sec.Model
		}
		for e, elem := range sec.Elements {
			if p.elemOld[j][e] == NoPath {
				sp.elemVals[newBase[j]+e] = elem
			}
		}
	}

	stages, err := sp.run(p.primitives(oldBase, newBase))
	if err != nil {
		return nil, err
	}

	if d.opts.verify && len(stages) > 0 {
		if err := d.compare(stages[len(stages)-1].Result, p.new); err != nil {
			return nil, errors.FromError(err, "E101").WithDetailf("final stage: %s", detailOf(err))
		}
	}
	return stages, nil
}

// primitives emits the sequential edits in staging order: section deletes,
// section moves, section inserts, element deletes, element moves, element
// inserts, element updates, section updates.
func (p *plan[S, E]) primitives(oldBase, newBase []int) []primitive {
	var prims []primitive
	m := len(p.old)

	for k := len(p.sections.Deletes) - 1; k >= 0; k-- {
		prims = append(prims, primitive{op: OpDeleteSection, section: p.sections.Deletes[k], element: -1})
	}

	movedSections := make([]bool, m)
	for _, mv := range p.sections.Moves {
		movedSections[mv.From] = true
	}
	anchor := -1
	for _, i := range p.newToOld {
		if i < 0 {
			continue
		}
		if movedSections[i] {
			prims = append(prims, primitive{op: OpMoveSection, section: i, element: -1, anchor: anchor})
		}
		anchor = i
	}

	for _, j := range p.sections.Inserts {
		elems := make([]int, len(p.new[j].Elements))
		for e := range elems {
			elems[e] = newBase[j] + e
		}
		prims = append(prims, primitive{op: OpInsertSection, section: m + j, element: -1, index: j, elems: elems})
	}

	for j := len(p.new) - 1; j >= 0; j-- {
		i := p.newToOld[j]
		if i < 0 {
			continue
		}
		for e := len(p.elemNew[i]) - 1; e >= 0; e-- {
			if p.elemNew[i][e] == NoPath {
				prims = append(prims, primitive{op: OpDeleteElement, section: i, element: oldBase[i] + e})
			}
		}
	}

	for j, i := range p.newToOld {
		if i < 0 {
			continue
		}
		anchor := -1
		for e, src := range p.elemOld[j] {
			if src == NoPath {
				continue
			}
			tok := oldBase[src.Section] + src.Element
			if p.elemMoved[j][e] {
				prims = append(prims, primitive{op: OpMoveElement, section: src.Section, element: tok, target: i, anchor: anchor})
			}
			anchor = tok
		}
	}

	for j, i := range p.newToOld {
		if i < 0 {
			continue
		}
		for e, src := range p.elemOld[j] {
			if src == NoPath {
				prims = append(prims, primitive{op: OpInsertElement, section: i, element: newBase[j] + e, index: e})
			}
		}
	}

	for j, i := range p.newToOld {
		if i < 0 {
			continue
		}
		for e, src := range p.elemOld[j] {
			if src != NoPath && p.elemUpdated[j][e] {
				prims = append(prims, primitive{op: OpUpdateElement, section: i, element: oldBase[src.Section] + src.Element})
			}
		}
	}

	for j, i := range p.newToOld {
		if i >= 0 && p.sectionDirty[j] {
			prims = append(prims, primitive{op: OpUpdateSection, section: i, element: -1})
		}
	}
	return prims
}
