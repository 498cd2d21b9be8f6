package listdiff

import (
	"slices"

	"github.com/vango-dev/listdiff/internal/errors"
)

// primitive is one sequential edit of the working snapshot. Items are named
// by tokens that stay stable while positions shift, so a primitive can be
// located again whichever stage it ends up in.
type primitive struct {
	op      OpKind
	section int   // section token; source section for element operations
	element int   // element token, -1 for section operations
	target  int   // destination section token for element moves
	anchor  int   // token the moved item lands after, -1 for the front
	index   int   // insert position
	elems   []int // element tokens of an inserted section
}

type wsSection struct {
	token int
	elems []int
}

// workspace is the token-level shape of the snapshot being staged.
type workspace struct {
	sections []wsSection
}

func (w *workspace) sectionIndex(token int) int {
	for i := range w.sections {
		if w.sections[i].token == token {
			return i
		}
	}
	return -1
}

func (w *workspace) elementIndex(section, token int) int {
	return slices.Index(w.sections[section].elems, token)
}

// locate returns the operation p performs on the current workspace, with At
// addressing the workspace before p and To addressing it after p.
func (w *workspace) locate(p primitive) (Operation, error) {
	op := Operation{Op: p.op, At: NoPath, To: NoPath}

	switch p.op {
	case OpDeleteSection, OpUpdateSection:
		s, err := w.findSection(p.section)
		if err != nil {
			return op, err
		}
		op.At = SectionPath(s)
		if p.op == OpUpdateSection {
			op.To = op.At
		}

	case OpInsertSection:
		if p.index < 0 || p.index > len(w.sections) {
			return op, outOfBounds("insert section at %d, %d sections", p.index, len(w.sections))
		}
		op.To = SectionPath(p.index)

	case OpMoveSection:
		from, err := w.findSection(p.section)
		if err != nil {
			return op, err
		}
		to := 0
		if p.anchor >= 0 {
			a, err := w.findSection(p.anchor)
			if err != nil {
				return op, err
			}
			if from < a {
				a--
			}
			to = a + 1
		}
		op.At, op.To = SectionPath(from), SectionPath(to)

	case OpDeleteElement, OpUpdateElement:
		at, err := w.findElement(p.section, p.element)
		if err != nil {
			return op, err
		}
		op.At = at
		if p.op == OpUpdateElement {
			op.To = at
		}

	case OpInsertElement:
		s, err := w.findSection(p.section)
		if err != nil {
			return op, err
		}
		if n := len(w.sections[s].elems); p.index < 0 || p.index > n {
			return op, outOfBounds("insert element at %d.%d, section has %d elements", s, p.index, n)
		}
		op.To = ElementPath(s, p.index)

	case OpMoveElement:
		at, err := w.findElement(p.section, p.element)
		if err != nil {
			return op, err
		}
		s2, err := w.findSection(p.target)
		if err != nil {
			return op, err
		}
		to := 0
		if p.anchor >= 0 {
			a := w.elementIndex(s2, p.anchor)
			if a < 0 {
				return op, unknownToken("element", p.anchor)
			}
			if at.Section == s2 && at.Element < a {
				a--
			}
			to = a + 1
		}
		op.At, op.To = at, ElementPath(s2, to)

	default:
		return op, errors.New("E103").WithDetailf("unknown primitive %s", p.op)
	}
	return op, nil
}

// apply performs a located primitive.
func (w *workspace) apply(p primitive, op Operation) {
	switch p.op {
	case OpDeleteSection:
		w.sections = slices.Delete(w.sections, op.At.Section, op.At.Section+1)

	case OpInsertSection:
		w.sections = slices.Insert(w.sections, op.To.Section, wsSection{
			token: p.section,
			elems: slices.Clone(p.elems),
		})

	case OpMoveSection:
		sec := w.sections[op.At.Section]
		w.sections = slices.Delete(w.sections, op.At.Section, op.At.Section+1)
		w.sections = slices.Insert(w.sections, op.To.Section, sec)

	case OpDeleteElement:
		sec := &w.sections[op.At.Section]
		sec.elems = slices.Delete(sec.elems, op.At.Element, op.At.Element+1)

	case OpInsertElement:
		sec := &w.sections[op.To.Section]
		sec.elems = slices.Insert(sec.elems, op.To.Element, p.element)

	case OpMoveElement:
		src := &w.sections[op.At.Section]
		src.elems = slices.Delete(src.elems, op.At.Element, op.At.Element+1)
		dst := &w.sections[op.To.Section]
		dst.elems = slices.Insert(dst.elems, op.To.Element, p.element)
	}
}

func (w *workspace) findSection(token int) (int, error) {
	s := w.sectionIndex(token)
	if s < 0 {
		return -1, unknownToken("section", token)
	}
	return s, nil
}

func (w *workspace) findElement(sectionToken, token int) (Path, error) {
	s, err := w.findSection(sectionToken)
	if err != nil {
		return NoPath, err
	}
	e := w.elementIndex(s, token)
	if e < 0 {
		return NoPath, unknownToken("element", token)
	}
	return ElementPath(s, e), nil
}

func unknownToken(kind string, token int) error {
	return errors.New("E103").WithDetailf("%s #%d not in working snapshot", kind, token)
}

func outOfBounds(format string, args ...any) error {
	return errors.New("E100").WithDetailf(format, args...)
}
