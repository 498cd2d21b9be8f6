package listdiff

import "slices"

// Option configures a Differ.
type Option func(*options)

type options struct {
	crossSectionMoves bool
	verify            bool
}

func defaultOptions() options {
	return options{
		crossSectionMoves: true,
		verify:            true,
	}
}

// WithCrossSectionMoves selects how elements that change section are
// reported. Enabled (the default) emits one atomic MoveElement carrying both
// section coordinates; disabled emits DeleteElement + InsertElement for
// consumers whose list cannot move items between sections.
func WithCrossSectionMoves(enabled bool) Option {
	return func(o *options) {
		o.crossSectionMoves = enabled
	}
}

// WithVerification toggles replaying every sealed stage against the previous
// snapshot. Verification is on by default.
func WithVerification(enabled bool) Option {
	return func(o *options) {
		o.verify = enabled
	}
}

// Differ computes staged changesets between two-level snapshots.
// A Differ holds no state between calls and is safe for concurrent use.
type Differ[S, E any, SK, EK comparable] struct {
	sections Contract[S, SK]
	elements Contract[E, EK]
	opts     options
}

// New creates a Differ from a section contract and an element contract.
func New[S, E any, SK, EK comparable](sections Contract[S, SK], elements Contract[E, EK], opts ...Option) *Differ[S, E, SK, EK] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Differ[S, E, SK, EK]{
		sections: sections,
		elements: elements,
		opts:     o,
	}
}

// Diff computes the staged changeset turning old into new. Neither snapshot
// is modified. An error is returned only when the engine breaks one of its
// own invariants.
func (d *Differ[S, E, SK, EK]) Diff(old, new Snapshot[S, E]) (*Changeset[S, E], error) {
	p := d.plan(old, new)
	stages, err := d.split(p)
	if err != nil {
		return nil, err
	}
	return &Changeset[S, E]{
		Old:    old,
		New:    new,
		Raw:    p.raw,
		Stages: stages,
	}, nil
}

// plan is the combined raw operation set of one diff, before staging.
type plan[S, E any] struct {
	old, new Snapshot[S, E]

	sections LinearResult
	oldToNew []int // section: old index -> new index, -1 when deleted
	newToOld []int // section: new index -> old index, -1 when inserted

	elemNew     [][]Path // old section, element -> new path (NoPath when deleted)
	elemOld     [][]Path // new section, element -> old path (NoPath when inserted)
	elemMoved   [][]bool // new section, element -> emitted as a move
	elemUpdated [][]bool // new section, element -> content changed

	sectionChanged []bool // new section -> own content changed
	sectionDirty   []bool // new section -> tagged UpdateSection

	raw []Operation
}

func (d *Differ[S, E, SK, EK]) plan(old, new Snapshot[S, E]) *plan[S, E] {
	p := &plan[S, E]{
		old:      old,
		new:      new,
		sections: Linear(old, new, sectionContract[S, E](d.sections)),
		oldToNew: filled(len(old), -1),
		newToOld: filled(len(new), -1),
	}
	for _, m := range p.sections.Matches {
		p.oldToNew[m.Old] = m.New
		p.newToOld[m.New] = m.Old
	}

	p.elemNew = make([][]Path, len(old))
	for i, sec := range old {
		p.elemNew[i] = filledPaths(len(sec.Elements))
	}
	p.elemOld = make([][]Path, len(new))
	p.elemMoved = make([][]bool, len(new))
	p.elemUpdated = make([][]bool, len(new))
	for j, sec := range new {
		p.elemOld[j] = filledPaths(len(sec.Elements))
		p.elemMoved[j] = make([]bool, len(sec.Elements))
		p.elemUpdated[j] = make([]bool, len(sec.Elements))
	}
	p.sectionChanged = make([]bool, len(new))
	p.sectionDirty = make([]bool, len(new))

	// Elements of each matched pair are diffed in place first; only the
	// leftovers are candidates for cross-section moves.
	var leftoverOld, leftoverNew []Path
	for _, m := range p.sections.Matches {
		i, j := m.Old, m.New
		lin := Linear(old[i].Elements, new[j].Elements, d.elements)
		for _, pair := range lin.Matches {
			p.link(ElementPath(i, pair.Old), ElementPath(j, pair.New))
		}
		for _, mv := range lin.Moves {
			p.elemMoved[j][mv.To] = true
		}
		for _, e := range lin.Deletes {
			leftoverOld = append(leftoverOld, ElementPath(i, e))
		}
		for _, e := range lin.Inserts {
			leftoverNew = append(leftoverNew, ElementPath(j, e))
		}
		if lin.HasStructuralChanges() {
			p.sectionDirty[j] = true
		}
		if !d.sections.equal(old[i].Model, new[j].Model) {
			p.sectionChanged[j] = true
			p.sectionDirty[j] = true
		}
	}

	if d.opts.crossSectionMoves && len(leftoverOld) > 0 && len(leftoverNew) > 0 {
		d.matchAcrossSections(p, leftoverOld, leftoverNew)
	}

	for j, sec := range new {
		for e, src := range p.elemOld[j] {
			if src == NoPath {
				continue
			}
			if !d.elements.equal(old[src.Section].Elements[src.Element], sec.Elements[e]) {
				p.elemUpdated[j][e] = true
			}
		}
	}

	p.raw = p.rawOperations()
	return p
}

// matchAcrossSections pairs leftover deletes with leftover inserts of other
// matched sections. Leftovers are walked in old order and paired first come,
// first served per identity, mirroring Linear's duplicate policy.
func (d *Differ[S, E, SK, EK]) matchAcrossSections(p *plan[S, E], leftoverOld, leftoverNew []Path) {
	slices.SortStableFunc(leftoverOld, comparePaths)
	slices.SortStableFunc(leftoverNew, comparePaths)

	queues := make(map[EK][]Path, len(leftoverNew))
	for _, np := range leftoverNew {
		k := d.elements.Identify(p.new[np.Section].Elements[np.Element])
		queues[k] = append(queues[k], np)
	}
	for _, op := range leftoverOld {
		k := d.elements.Identify(p.old[op.Section].Elements[op.Element])
		q := queues[k]
		if len(q) == 0 {
			continue
		}
		np := q[0]
		queues[k] = q[1:]
		p.link(op, np)
		p.elemMoved[np.Section][np.Element] = true
		p.sectionDirty[np.Section] = true
		p.sectionDirty[p.oldToNew[op.Section]] = true
	}
}

func (p *plan[S, E]) link(oldPath, newPath Path) {
	p.elemNew[oldPath.Section][oldPath.Element] = newPath
	p.elemOld[newPath.Section][newPath.Element] = oldPath
}

// rawOperations lists every operation with At in old coordinates and To in
// new coordinates, the way a consumer applying everything in one batch
// would address them.
func (p *plan[S, E]) rawOperations() []Operation {
	var ops []Operation
	for _, i := range p.sections.Deletes {
		ops = append(ops, Operation{Op: OpDeleteSection, At: SectionPath(i), To: NoPath})
	}
	for _, j := range p.sections.Inserts {
		ops = append(ops, Operation{Op: OpInsertSection, At: NoPath, To: SectionPath(j)})
	}
	for _, mv := range p.sections.Moves {
		ops = append(ops, Operation{Op: OpMoveSection, At: SectionPath(mv.From), To: SectionPath(mv.To)})
	}
	for j, i := range p.newToOld {
		if i >= 0 && p.sectionDirty[j] {
			ops = append(ops, Operation{Op: OpUpdateSection, At: SectionPath(i), To: SectionPath(j)})
		}
	}
	for i, dests := range p.elemNew {
		if p.oldToNew[i] < 0 {
			continue
		}
		for e, np := range dests {
			if np == NoPath {
				ops = append(ops, Operation{Op: OpDeleteElement, At: ElementPath(i, e), To: NoPath})
			}
		}
	}
	for j, srcs := range p.elemOld {
		if p.newToOld[j] < 0 {
			continue
		}
		for e, src := range srcs {
			if src == NoPath {
				ops = append(ops, Operation{Op: OpInsertElement, At: NoPath, To: ElementPath(j, e)})
			}
		}
	}
	for j, srcs := range p.elemOld {
		for e, src := range srcs {
			if src != NoPath && p.elemMoved[j][e] {
				ops = append(ops, Operation{Op: OpMoveElement, At: src, To: ElementPath(j, e)})
			}
		}
	}
	for j, srcs := range p.elemOld {
		for e, src := range srcs {
			if src != NoPath && p.elemUpdated[j][e] {
				ops = append(ops, Operation{Op: OpUpdateElement, At: src, To: ElementPath(j, e)})
			}
		}
	}
	return ops
}

func filled(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func filledPaths(n int) []Path {
	s := make([]Path, n)
	for i := range s {
		s[i] = NoPath
	}
	return s
}

func comparePaths(a, b Path) int {
	if a.Section != b.Section {
		return a.Section - b.Section
	}
	return a.Element - b.Element
}
