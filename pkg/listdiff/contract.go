package listdiff

// Contract ties an item type to its identity and content equality.
//
// Identify must be a pure function of the item's conceptual identity and must
// not change when only displayed content changes; otherwise moves degrade to
// delete+insert pairs. Equal reports whether two items with the same identity
// render the same. A nil Equal treats every matched pair as unchanged.
type Contract[T any, K comparable] struct {
	Identify func(T) K
	Equal    func(a, b T) bool
}

func (c Contract[T, K]) equal(a, b T) bool {
	if c.Equal == nil {
		return true
	}
	return c.Equal(a, b)
}

// Comparable returns a contract for comparable values where the value is
// both identity and content.
func Comparable[T comparable]() Contract[T, T] {
	return Contract[T, T]{
		Identify: func(v T) T { return v },
		Equal:    func(a, b T) bool { return a == b },
	}
}

// KeyFunc returns a contract identifying items by key and comparing them
// with equal.
func KeyFunc[T any, K comparable](key func(T) K, equal func(a, b T) bool) Contract[T, K] {
	return Contract[T, K]{Identify: key, Equal: equal}
}

// sectionContract lifts a model contract to whole sections.
func sectionContract[S, E any, K comparable](c Contract[S, K]) Contract[Section[S, E], K] {
	return Contract[Section[S, E], K]{
		Identify: func(s Section[S, E]) K { return c.Identify(s.Model) },
		Equal:    func(a, b Section[S, E]) bool { return c.equal(a.Model, b.Model) },
	}
}
