package document

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/listdiff/internal/errors"
	"github.com/vango-dev/listdiff/pkg/listdiff"
)

const inboxJSON = `{
  "sections": [
    {"id": "inbox", "attrs": {"title": "Inbox"}, "elements": [
      {"id": "m1", "data": {"subject": "Hello", "size": 3}},
      {"id": "n1", "kind": "text", "data": {"text": "2 unread", "color": "red"}}
    ]},
    {"id": "archive", "elements": []}
  ]
}`

const inboxYAML = `
sections:
  - id: inbox
    attrs: {title: Inbox}
    elements:
      - {id: m1, data: {subject: Hello, size: 3}}
      - {id: n1, kind: text, data: {text: 2 unread, color: blue}}
  - id: archive
    elements: []
`

func TestDecodeFormats(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
	}{
		{"json", inboxJSON, FormatJSON},
		{"yaml", inboxYAML, FormatYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Decode(strings.NewReader(tt.input), tt.format)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			sections, elements := doc.Stats()
			if sections != 2 || elements != 2 {
				t.Errorf("Stats() = %d, %d, want 2, 2", sections, elements)
			}
			if got := doc.Sections[0].Attrs["title"]; got != "Inbox" {
				t.Errorf("title = %v, want Inbox", got)
			}
			if got := doc.Sections[0].Elements[1].Kind; got != KindText {
				t.Errorf("kind = %q, want text", got)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
		code   string
	}{
		{"malformed json", `{"sections": [`, FormatJSON, "E120"},
		{"unknown field", `{"sections": [], "extra": 1}`, FormatJSON, "E120"},
		{"missing section id", `{"sections": [{"elements": []}]}`, FormatJSON, "E122"},
		{"missing element id", "sections:\n  - id: a\n    elements:\n      - kind: item\n", FormatYAML, "E122"},
		{"unsupported format", `{}`, Format("toml"), "E121"},
		{"nan data", "sections:\n  - id: a\n    elements:\n      - {id: x, data: {v: .nan}}\n", FormatYAML, "E120"},
		{"infinite attrs", "sections:\n  - id: a\n    attrs: {w: [1, .inf]}\n    elements: []\n", FormatYAML, "E120"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input), tt.format)
			if !errors.HasCode(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"a.json", FormatJSON, false},
		{"dir/a.YAML", FormatYAML, false},
		{"a.yml", FormatYAML, false},
		{"a.toml", "", true},
		{"noext", "", true},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.path)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("FormatOf(%q) = %q, %v", tt.path, got, err)
		}
	}
}

func TestDecodeFileAndEncode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inbox.yaml")
	if err := os.WriteFile(path, []byte(inboxYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile: %v", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, doc, FormatJSON); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	again, err := Decode(&buf, FormatJSON)
	if err != nil {
		t.Fatalf("Decode(Encode()): %v", err)
	}

	cs, err := DefaultRegistry.Diff(doc, again)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if !cs.IsEmpty() {
		t.Errorf("re-encoded document differs: %v", cs.Operations())
	}

	if _, err := DecodeFile(filepath.Join(dir, "missing.json")); !errors.HasCode(err, "E120") {
		t.Errorf("missing file err = %v, want E120", err)
	}
}

func TestRegistryKinds(t *testing.T) {
	r := NewRegistry()
	ec := r.ElementContract()

	tests := []struct {
		name      string
		a, b      Element
		sameKey   bool
		wantEqual bool
	}{
		{
			name:      "item compares all data",
			a:         Element{ID: "1", Data: map[string]any{"x": 1, "y": 2}},
			b:         Element{ID: "1", Data: map[string]any{"x": 1, "y": 3}},
			sameKey:   true,
			wantEqual: false,
		},
		{
			name:      "numbers compare by value",
			a:         Element{ID: "1", Data: map[string]any{"x": 1}},
			b:         Element{ID: "1", Data: map[string]any{"x": 1.0}},
			sameKey:   true,
			wantEqual: true,
		},
		{
			name:      "text ignores other fields",
			a:         Element{ID: "1", Kind: KindText, Data: map[string]any{"text": "a", "color": "red"}},
			b:         Element{ID: "1", Kind: KindText, Data: map[string]any{"text": "a", "color": "blue"}},
			sameKey:   true,
			wantEqual: true,
		},
		{
			name:    "kinds never share identity",
			a:       Element{ID: "1", Kind: KindText},
			b:       Element{ID: "1"},
			sameKey: false,
		},
		{
			name:      "unknown kind compares like item",
			a:         Element{ID: "1", Kind: "badge", Data: map[string]any{"n": 1}},
			b:         Element{ID: "1", Kind: "badge", Data: map[string]any{"n": 2}},
			sameKey:   true,
			wantEqual: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ec.Identify(tt.a) == ec.Identify(tt.b); got != tt.sameKey {
				t.Fatalf("same identity = %v, want %v", got, tt.sameKey)
			}
			if !tt.sameKey {
				return
			}
			if got := ec.Equal(tt.a, tt.b); got != tt.wantEqual {
				t.Errorf("Equal() = %v, want %v", got, tt.wantEqual)
			}
		})
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Kind{Name: "badge", Equal: func(a, b map[string]any) bool { return true }})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(Kind{Name: "badge"}); !errors.HasCode(err, "E123") {
		t.Errorf("duplicate Register() = %v, want E123", err)
	}
	if err := r.Register(Kind{}); !errors.HasCode(err, "E123") {
		t.Errorf("empty Register() = %v, want E123", err)
	}

	ec := r.ElementContract()
	a := Element{ID: "1", Kind: "badge", Data: map[string]any{"n": 1}}
	b := Element{ID: "1", Kind: "badge", Data: map[string]any{"n": 2}}
	if !ec.Equal(a, b) {
		t.Error("registered kind equality not used")
	}

	want := []string{"badge", KindGroup, KindItem, KindText}
	got := r.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestDocumentDiff(t *testing.T) {
	old, err := Decode(strings.NewReader(inboxJSON), FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	new, err := Decode(strings.NewReader(inboxYAML), FormatYAML)
	if err != nil {
		t.Fatal(err)
	}

	cs, err := DefaultRegistry.Diff(old, new)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if !cs.IsEmpty() {
		t.Errorf("only text color changed, want no operations, got %v", cs.Operations())
	}

	new.Sections[0].Elements[0].Data["subject"] = "Bye"
	cs, err = DefaultRegistry.Diff(old, new, listdiff.WithCrossSectionMoves(false))
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if n := cs.Count(listdiff.OpUpdateElement); n != 1 || len(cs.Stages) != 1 {
		t.Errorf("Count(UpdateElement) = %d, stages = %d, want 1, 1", n, len(cs.Stages))
	}

	back := FromSnapshot(cs.Stages[0].Result)
	if back.Sections[0].Elements[0].Data["subject"] != "Bye" {
		t.Errorf("FromSnapshot lost the update: %+v", back.Sections[0])
	}
}

func TestDecodeYAMLNonStringKeys(t *testing.T) {
	const input = `
sections:
  - id: a
    attrs: {sizes: {1: small, 2: large}}
    elements:
      - {id: x, data: {m: {1: a, true: b}, list: [{2: c}]}}
`
	doc, err := Decode(strings.NewReader(input), FormatYAML)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	sizes, ok := doc.Sections[0].Attrs["sizes"].(map[string]any)
	if !ok || sizes["1"] != "small" || sizes["2"] != "large" {
		t.Errorf("attrs.sizes = %#v, want string keys", doc.Sections[0].Attrs["sizes"])
	}
	data := doc.Sections[0].Elements[0].Data
	if m, ok := data["m"].(map[string]any); !ok || m["1"] != "a" || m["true"] != "b" {
		t.Errorf("data.m = %#v, want string keys", data["m"])
	}
	list, _ := data["list"].([]any)
	if len(list) != 1 {
		t.Fatalf("data.list = %#v", data["list"])
	}
	if m, ok := list[0].(map[string]any); !ok || m["2"] != "c" {
		t.Errorf("data.list[0] = %#v, want string keys", list[0])
	}

	var buf bytes.Buffer
	if err := Encode(&buf, doc, FormatJSON); err != nil {
		t.Errorf("Encode JSON: %v", err)
	}
}

func TestDiffYAMLWithItself(t *testing.T) {
	const input = `
sections:
  - id: a
    attrs: {layout: {1: wide}}
    elements:
      - {id: x, data: {m: {1: a}}}
      - {id: y, data: {nested: [{3: z}]}}
`
	old, err := Decode(strings.NewReader(input), FormatYAML)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	same, err := Decode(strings.NewReader(input), FormatYAML)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	cs, err := DefaultRegistry.Diff(old, same)
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if !cs.IsEmpty() {
		t.Errorf("self diff = %v, want no operations", cs.Operations())
	}
}

func TestCanonicalEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b map[string]any
		want bool
	}{
		{"both empty", nil, map[string]any{}, true},
		{"key order", map[string]any{"a": 1, "b": 2}, map[string]any{"b": 2, "a": 1}, true},
		{"different value", map[string]any{"a": 1}, map[string]any{"a": 2}, false},
		{"unencodable equal", map[string]any{"m": map[any]any{1: "a"}}, map[string]any{"m": map[any]any{1: "a"}}, true},
		{"unencodable different", map[string]any{"m": map[any]any{1: "a"}}, map[string]any{"m": map[any]any{1: "b"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanonicalEqual(tt.a, tt.b); got != tt.want {
				t.Errorf("CanonicalEqual() = %v, want %v", got, tt.want)
			}
		})
	}
}
