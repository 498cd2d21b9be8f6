package listdiff

import "fmt"

// OpKind is the type of a staged operation.
type OpKind uint8

const (
	OpDeleteSection OpKind = 0x01 // Remove a whole section
	OpInsertSection OpKind = 0x02 // Insert a whole section
	OpMoveSection   OpKind = 0x03 // Move a section to a new index
	OpUpdateSection OpKind = 0x04 // Refresh a section's own content
	OpDeleteElement OpKind = 0x05 // Remove an element
	OpInsertElement OpKind = 0x06 // Insert an element
	OpMoveElement   OpKind = 0x07 // Move an element, possibly across sections
	OpUpdateElement OpKind = 0x08 // Refresh an element's content
)

// String returns the string representation of the OpKind.
func (k OpKind) String() string {
	switch k {
	case OpDeleteSection:
		return "DeleteSection"
	case OpInsertSection:
		return "InsertSection"
	case OpMoveSection:
		return "MoveSection"
	case OpUpdateSection:
		return "UpdateSection"
	case OpDeleteElement:
		return "DeleteElement"
	case OpInsertElement:
		return "InsertElement"
	case OpMoveElement:
		return "MoveElement"
	case OpUpdateElement:
		return "UpdateElement"
	default:
		return "Unknown"
	}
}

// ParseOpKind parses the name returned by String.
func ParseOpKind(name string) (OpKind, error) {
	for k := OpDeleteSection; k <= OpUpdateElement; k++ {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("listdiff: unknown operation %q", name)
}

// MarshalText encodes the kind by name.
func (k OpKind) MarshalText() ([]byte, error) {
	if k < OpDeleteSection || k > OpUpdateElement {
		return nil, fmt.Errorf("listdiff: unknown operation %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *OpKind) UnmarshalText(text []byte) error {
	v, err := ParseOpKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// IsSection returns true for operations addressing whole sections.
func (k OpKind) IsSection() bool {
	return k >= OpDeleteSection && k <= OpUpdateSection
}

// IsStructural returns true for inserts, deletes and moves.
func (k OpKind) IsStructural() bool {
	switch k {
	case OpUpdateSection, OpUpdateElement:
		return false
	}
	return k >= OpDeleteSection && k <= OpUpdateElement
}

// removes reports whether the operation vacates its At coordinate.
func (k OpKind) removes() bool {
	return k == OpDeleteSection || k == OpMoveSection || k == OpDeleteElement || k == OpMoveElement
}

// fills reports whether the operation occupies its To coordinate.
func (k OpKind) fills() bool {
	return k == OpInsertSection || k == OpMoveSection || k == OpInsertElement || k == OpMoveElement
}

// Path addresses a section (Element == -1) or an element within a section.
type Path struct {
	Section int `json:"section"`
	Element int `json:"element"`
}

// NoPath marks an unused coordinate.
var NoPath = Path{Section: -1, Element: -1}

// SectionPath returns the path of a whole section.
func SectionPath(section int) Path {
	return Path{Section: section, Element: -1}
}

// ElementPath returns the path of an element.
func ElementPath(section, element int) Path {
	return Path{Section: section, Element: element}
}

// IsSection returns true if the path addresses a whole section.
func (p Path) IsSection() bool {
	return p.Section >= 0 && p.Element < 0
}

// String returns "s" for sections and "s.e" for elements.
func (p Path) String() string {
	switch {
	case p.Section < 0:
		return "-"
	case p.Element < 0:
		return fmt.Sprintf("%d", p.Section)
	default:
		return fmt.Sprintf("%d.%d", p.Section, p.Element)
	}
}

// Operation is a single staged change.
//
// At is the coordinate in the snapshot before the operation's stage (deletes,
// move sources, updates). To is the coordinate in the snapshot after the
// stage (inserts, move destinations, updates). Unused coordinates are NoPath.
type Operation struct {
	Op OpKind `json:"op"`
	At Path   `json:"at"`
	To Path   `json:"to"`
}

// String returns a compact human readable form, e.g. "MoveElement 0.3->1.0".
func (o Operation) String() string {
	switch o.Op {
	case OpDeleteSection, OpDeleteElement:
		return fmt.Sprintf("%s %s", o.Op, o.At)
	case OpInsertSection, OpInsertElement:
		return fmt.Sprintf("%s %s", o.Op, o.To)
	default:
		return fmt.Sprintf("%s %s->%s", o.Op, o.At, o.To)
	}
}

// IsCrossSection returns true for element moves between two sections.
func (o Operation) IsCrossSection() bool {
	return o.Op == OpMoveElement && o.At.Section != o.To.Section
}
