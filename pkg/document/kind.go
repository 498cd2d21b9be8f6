package document

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"sync"

	"github.com/vango-dev/listdiff/internal/errors"
	"github.com/vango-dev/listdiff/pkg/listdiff"
)

// Built-in kind names.
const (
	KindItem  = "item"
	KindText  = "text"
	KindGroup = "group"
)

// Key identifies a section or element. Items of different kinds never match,
// even when their ids collide.
type Key struct {
	Kind string
	ID   string
}

// String returns "kind:id".
func (k Key) String() string {
	return k.Kind + ":" + k.ID
}

// Kind carries the content equality of one kind of section or element.
type Kind struct {
	Name string

	// Equal compares the data (elements) or attrs (sections) of two items
	// with the same identity. Nil compares canonical JSON.
	Equal func(a, b map[string]any) bool
}

func (k Kind) equal(a, b map[string]any) bool {
	if k.Equal == nil {
		return CanonicalEqual(a, b)
	}
	return k.Equal(a, b)
}

// Registry maps kind names to kinds. Unknown kinds behave like item.
// A Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

// NewRegistry creates a registry holding the built-in kinds.
func NewRegistry() *Registry {
	r := &Registry{kinds: make(map[string]Kind)}
	r.kinds[KindItem] = Kind{Name: KindItem}
	r.kinds[KindGroup] = Kind{Name: KindGroup}
	r.kinds[KindText] = Kind{Name: KindText, Equal: fieldEqual("text")}
	return r
}

// DefaultRegistry is the registry used by Decode and the server.
var DefaultRegistry = NewRegistry()

// Register adds a kind. Names must be unique.
func (r *Registry) Register(k Kind) error {
	if k.Name == "" {
		return errors.New("E123").WithDetail("kind name is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.kinds[k.Name]; ok {
		return errors.New("E123").WithDetailf("kind %q already registered", k.Name)
	}
	r.kinds[k.Name] = k
	return nil
}

// Lookup returns the kind registered under name, falling back to item.
func (r *Registry) Lookup(name string) Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if k, ok := r.kinds[name]; ok {
		return k
	}
	return r.kinds[KindItem]
}

// Names returns the registered kind names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SectionContract returns the identity/equality contract for headers.
// Sections without a kind are groups.
func (r *Registry) SectionContract() listdiff.Contract[Header, Key] {
	return listdiff.Contract[Header, Key]{
		Identify: func(h Header) Key {
			return Key{Kind: kindOr(h.Kind, KindGroup), ID: h.ID}
		},
		Equal: func(a, b Header) bool {
			return r.Lookup(kindOr(a.Kind, KindGroup)).equal(a.Attrs, b.Attrs)
		},
	}
}

// ElementContract returns the identity/equality contract for elements.
// Elements without a kind are items.
func (r *Registry) ElementContract() listdiff.Contract[Element, Key] {
	return listdiff.Contract[Element, Key]{
		Identify: func(e Element) Key {
			return Key{Kind: kindOr(e.Kind, KindItem), ID: e.ID}
		},
		Equal: func(a, b Element) bool {
			return r.Lookup(kindOr(a.Kind, KindItem)).equal(a.Data, b.Data)
		},
	}
}

// Differ returns a differ for documents using this registry's kinds.
func (r *Registry) Differ(opts ...listdiff.Option) *listdiff.Differ[Header, Element, Key, Key] {
	return listdiff.New(r.SectionContract(), r.ElementContract(), opts...)
}

// Diff diffs two documents.
func (r *Registry) Diff(old, new *Document, opts ...listdiff.Option) (*listdiff.Changeset[Header, Element], error) {
	return r.Differ(opts...).Diff(old.Snapshot(), new.Snapshot())
}

func kindOr(kind, fallback string) string {
	if kind == "" {
		return fallback
	}
	return kind
}

// CanonicalEqual compares two maps by their JSON encoding. Map keys are
// sorted by encoding/json, and numbers decoded from JSON or YAML compare by
// value. Values JSON cannot encode are compared structurally.
func CanonicalEqual(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return bytes.Equal(ja, jb)
}

// fieldEqual compares a single field and ignores the rest.
func fieldEqual(field string) func(a, b map[string]any) bool {
	return func(a, b map[string]any) bool {
		return CanonicalEqual(map[string]any{field: a[field]}, map[string]any{field: b[field]})
	}
}
