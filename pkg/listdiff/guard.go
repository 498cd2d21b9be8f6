package listdiff

import (
	"math"

	"github.com/vango-dev/listdiff/internal/errors"
)

// opClass groups operations that may share a stage.
type opClass uint8

const (
	classNone opClass = iota
	classSectionEdit
	classSectionMove
	classElementEdit
	classElementMove
	classElementUpdate
	classSectionUpdate
)

func classOf(k OpKind) opClass {
	switch k {
	case OpDeleteSection, OpInsertSection:
		return classSectionEdit
	case OpMoveSection:
		return classSectionMove
	case OpDeleteElement, OpInsertElement:
		return classElementEdit
	case OpMoveElement:
		return classElementMove
	case OpUpdateElement:
		return classElementUpdate
	case OpUpdateSection:
		return classSectionUpdate
	}
	return classNone
}

// moveRange is the span of slots whose index a move shifts. section is -1
// for ranges over section indices.
type moveRange struct {
	section int
	lo, hi  int
}

func (r moveRange) overlaps(o moveRange) bool {
	return r.section == o.section && r.lo <= o.hi && o.lo <= r.hi
}

// rangesOf returns the slots a move shifts: the closed interval between
// source and destination for moves inside one list, and the open suffix
// from the source and from the destination for moves between sections.
func rangesOf(op Operation) []moveRange {
	switch {
	case op.Op == OpMoveSection:
		return []moveRange{{section: -1, lo: min(op.At.Section, op.To.Section), hi: max(op.At.Section, op.To.Section)}}
	case op.Op != OpMoveElement:
		return nil
	case op.At.Section == op.To.Section:
		return []moveRange{{section: op.At.Section, lo: min(op.At.Element, op.To.Element), hi: max(op.At.Element, op.To.Element)}}
	default:
		return []moveRange{
			{section: op.At.Section, lo: op.At.Element, hi: math.MaxInt},
			{section: op.To.Section, lo: op.To.Element, hi: math.MaxInt},
		}
	}
}

// stageGuard enforces the conflict predicate for one stage: a single class
// of operations, no slot targeted twice in either coordinate space, and no
// two moves with overlapping ranges.
type stageGuard struct {
	class  opClass
	pre    map[Path]struct{}
	post   map[Path]struct{}
	ranges []moveRange
}

func (g *stageGuard) reset() {
	g.class = classNone
	g.pre = make(map[Path]struct{})
	g.post = make(map[Path]struct{})
	g.ranges = g.ranges[:0]
}

// conflict returns a description of why op cannot join the stage, or "".
func (g *stageGuard) conflict(op Operation) string {
	if g.class != classNone && classOf(op.Op) != g.class {
		return "operation class changes"
	}
	if op.Op.removes() || !op.Op.IsStructural() {
		if _, ok := g.pre[op.At]; ok {
			return "source " + op.At.String() + " already targeted"
		}
	}
	if op.Op.fills() || !op.Op.IsStructural() {
		if _, ok := g.post[op.To]; ok {
			return "destination " + op.To.String() + " already targeted"
		}
	}
	for _, r := range rangesOf(op) {
		for _, o := range g.ranges {
			if r.overlaps(o) {
				return "move range overlaps another move"
			}
		}
	}
	return ""
}

func (g *stageGuard) record(op Operation) {
	if g.pre == nil {
		g.reset()
	}
	g.class = classOf(op.Op)
	if op.Op.removes() || !op.Op.IsStructural() {
		g.pre[op.At] = struct{}{}
	}
	if op.Op.fills() || !op.Op.IsStructural() {
		g.post[op.To] = struct{}{}
	}
	g.ranges = append(g.ranges, rangesOf(op)...)
}

// CheckStage reports whether ops can be applied as one atomic batch: they
// share one class, target every slot at most once, and no two moves have
// overlapping ranges.
func CheckStage(ops []Operation) error {
	var g stageGuard
	g.reset()
	for i, op := range ops {
		if reason := g.conflict(op); reason != "" {
			return errors.New("E102").WithDetailf("operation %d (%s): %s", i, op, reason)
		}
		g.record(op)
	}
	return nil
}
