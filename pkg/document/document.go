package document

import "github.com/vango-dev/listdiff/pkg/listdiff"

// Element is one entry of a section.
type Element struct {
	ID   string         `json:"id" yaml:"id"`
	Kind string         `json:"kind,omitempty" yaml:"kind,omitempty"`
	Data map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// Header is a section's own content, without its elements.
type Header struct {
	ID    string         `json:"id" yaml:"id"`
	Kind  string         `json:"kind,omitempty" yaml:"kind,omitempty"`
	Attrs map[string]any `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// Section is a header plus its ordered elements.
type Section struct {
	Header   `yaml:",inline"`
	Elements []Element `json:"elements" yaml:"elements"`
}

// Document is the on-disk form of a snapshot.
type Document struct {
	Sections []Section `json:"sections" yaml:"sections"`
}

// Snapshot is the snapshot type documents diff as.
type Snapshot = listdiff.Snapshot[Header, Element]

// Snapshot converts the document for diffing.
func (d *Document) Snapshot() Snapshot {
	if d == nil {
		return nil
	}
	snap := make(Snapshot, len(d.Sections))
	for i, sec := range d.Sections {
		snap[i] = listdiff.NewSection(sec.Header, sec.Elements...)
	}
	return snap
}

// FromSnapshot converts a snapshot back into a document.
func FromSnapshot(s Snapshot) *Document {
	d := &Document{Sections: make([]Section, len(s))}
	for i, sec := range s {
		d.Sections[i] = Section{Header: sec.Model, Elements: append([]Element(nil), sec.Elements...)}
	}
	return d
}

// Stats returns the number of sections and elements.
func (d *Document) Stats() (sections, elements int) {
	for _, sec := range d.Sections {
		elements += len(sec.Elements)
	}
	return len(d.Sections), elements
}
