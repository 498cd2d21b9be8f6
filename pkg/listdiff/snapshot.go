package listdiff

// Section is one group of a snapshot: the section's own model plus its
// ordered elements.
type Section[S, E any] struct {
	Model    S   `json:"model"`
	Elements []E `json:"elements"`
}

// Snapshot is the full ordered section/element state at one instant.
type Snapshot[S, E any] []Section[S, E]

// NewSection creates a section from a model and its elements.
func NewSection[S, E any](model S, elements ...E) Section[S, E] {
	return Section[S, E]{Model: model, Elements: elements}
}

// Clone returns a copy with fresh element slices. Models and elements are
// copied by value.
func (s Snapshot[S, E]) Clone() Snapshot[S, E] {
	if s == nil {
		return nil
	}
	out := make(Snapshot[S, E], len(s))
	for i, sec := range s {
		out[i].Model = sec.Model
		out[i].Elements = append([]E(nil), sec.Elements...)
	}
	return out
}

// ElementCount returns the total number of elements across all sections.
func (s Snapshot[S, E]) ElementCount() int {
	n := 0
	for _, sec := range s {
		n += len(sec.Elements)
	}
	return n
}

// At returns the element at p. ok is false when p is out of bounds or
// addresses a section.
func (s Snapshot[S, E]) At(p Path) (elem E, ok bool) {
	if p.Section < 0 || p.Section >= len(s) {
		return elem, false
	}
	elems := s[p.Section].Elements
	if p.Element < 0 || p.Element >= len(elems) {
		return elem, false
	}
	return elems[p.Element], true
}
