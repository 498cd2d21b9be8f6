package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "invariant error",
			code:    "E100",
			wantMsg: "Coordinate out of bounds",
			wantCat: CategoryInvariant,
		},
		{
			name:    "apply error",
			code:    "E111",
			wantMsg: "Staged apply interrupted",
			wantCat: CategoryApply,
		},
		{
			name:    "store error",
			code:    "E140",
			wantMsg: "Unsupported snapshot location",
			wantCat: CategoryStore,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryDocument, "file %q not found", "old.json")
	if err.Message != `file "old.json" not found` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Category != CategoryDocument {
		t.Errorf("Category = %q, want %q", err.Category, CategoryDocument)
	}
}

func TestListError_Error(t *testing.T) {
	err := New("E100")
	if got, want := err.Error(), "E100: Coordinate out of bounds"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	err = New("E100").WithDetail("section 4 of 2")
	if got, want := err.Error(), "E100: Coordinate out of bounds (section 4 of 2)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	plain := &ListError{Message: "test error"}
	if plain.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", plain.Error(), "test error")
	}
}

func TestListError_Wrap(t *testing.T) {
	inner := fmt.Errorf("boom")
	outer := New("E110").Wrap(inner)

	if outer.Unwrap() != inner {
		t.Error("Unwrap() should return wrapped error")
	}
	if !stderrors.Is(outer, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
	if !strings.HasSuffix(outer.Error(), ": boom") {
		t.Errorf("Error() = %q, want cause suffix", outer.Error())
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("diff: %w", New("E101"))
	if !HasCode(err, "E101") {
		t.Error("HasCode should find E101 through fmt wrapping")
	}
	if HasCode(err, "E100") {
		t.Error("HasCode should not match a different code")
	}
	if HasCode(nil, "E100") {
		t.Error("HasCode(nil) should be false")
	}
	if got := CodeOf(err); got != "E101" {
		t.Errorf("CodeOf = %q, want E101", got)
	}
	if got := CodeOf(fmt.Errorf("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E100") != nil {
		t.Error("FromError(nil, ...) should return nil")
	}

	le := New("E100")
	if FromError(fmt.Errorf("ctx: %w", le), "E141") != le {
		t.Error("FromError should return the ListError already in the chain")
	}

	std := fmt.Errorf("disk on fire")
	got := FromError(std, "E141")
	if got.Wrapped != std || got.Code != "E141" {
		t.Errorf("FromError = %+v, want E141 wrapping std error", got)
	}
}

func TestRegistryComplete(t *testing.T) {
	for _, code := range Codes() {
		tmpl := registry[code]
		if tmpl.Message == "" || tmpl.Category == "" {
			t.Errorf("%s: missing message or category", code)
		}
		if !strings.HasSuffix(tmpl.DocURL, code) {
			t.Errorf("%s: DocURL %q does not end with code", code, tmpl.DocURL)
		}
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E110").WithSuggestion("reload the list").Wrap(fmt.Errorf("table view busy"))
	out := err.Format()

	for _, want := range []string{
		"ERROR E110: Stage rejected by consumer",
		"Fall back to a full reload",
		"Cause: table view busy",
		"Hint: reload the list",
		"Learn more: https://vango.dev/docs/listdiff/errors/E110",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
}

func TestFormatCompactAndJSON(t *testing.T) {
	err := New("E120").WithDetail("line 3")
	if got, want := err.FormatCompact(), "E120: Snapshot document could not be decoded (line 3)"; got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
	js := err.FormatJSON()
	if !strings.Contains(js, `"code":"E120"`) || !strings.Contains(js, `"detail":"line 3"`) {
		t.Errorf("FormatJSON() = %s", js)
	}
}

func TestPrintError(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	PrintError(&buf, New("E160"))
	if !strings.Contains(buf.String(), "E160: Invalid arguments") {
		t.Errorf("PrintError = %q", buf.String())
	}

	buf.Reset()
	PrintError(&buf, fmt.Errorf("plain failure"))
	if !strings.Contains(buf.String(), "ERROR: plain failure") {
		t.Errorf("PrintError = %q", buf.String())
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six seven", 10)
	for _, l := range lines {
		if len(l) > 10 {
			t.Errorf("line %q longer than 10", l)
		}
	}
	if strings.Join(lines, " ") != "one two three four five six seven" {
		t.Errorf("wrapText lost words: %v", lines)
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText(\"\") should be nil")
	}
}
