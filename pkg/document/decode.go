package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/listdiff/internal/errors"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", errors.New("E121").WithDetailf("format %q", s)
}

// FormatOf returns the format implied by a file name's extension.
func FormatOf(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", errors.New("E121").WithDetailf("%s has no extension", path)
	}
	return ParseFormat(ext)
}

// Decode reads one document from r.
func Decode(r io.Reader, f Format) (*Document, error) {
	var doc Document
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.New("E120").Wrap(err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && err != io.EOF {
			return nil, errors.New("E120").Wrap(err)
		}
		doc.normalize()
	default:
		return nil, errors.New("E121").WithDetailf("format %q", f)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DecodeBytes decodes a document held in memory.
func DecodeBytes(data []byte, f Format) (*Document, error) {
	return Decode(bytes.NewReader(data), f)
}

// DecodeFile reads a document from disk, choosing the format by extension.
func DecodeFile(path string) (*Document, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.New("E120").WithDetail(path).Wrap(err)
	}
	defer file.Close()

	doc, err := Decode(file, f)
	if err != nil {
		return nil, errors.FromError(err, "E120").WithDetail(path)
	}
	return doc, nil
}

// Encode writes d to w.
func Encode(w io.Writer, d *Document, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return err
		}
		return enc.Close()
	}
	return errors.New("E121").WithDetailf("format %q", f)
}

// Validate checks that every section and element has an id and that all
// attrs and data can be encoded as JSON.
func (d *Document) Validate() error {
	for i, sec := range d.Sections {
		if sec.ID == "" {
			return errors.New("E122").WithDetailf("section %d", i)
		}
		if path, ok := nonFinite(sec.Attrs); !ok {
			return errors.New("E120").WithDetailf("section %q attrs.%s is not a finite number", sec.ID, path)
		}
		for j, el := range sec.Elements {
			if el.ID == "" {
				return errors.New("E122").WithDetailf("section %q element %d", sec.ID, j)
			}
			if path, ok := nonFinite(el.Data); !ok {
				return errors.New("E120").WithDetailf("element %q data.%s is not a finite number", el.ID, path)
			}
		}
	}
	return nil
}

// normalize rewrites YAML maps with non-string keys into JSON objects so
// both formats decode to the same values.
func (d *Document) normalize() {
	for i := range d.Sections {
		sec := &d.Sections[i]
		sec.Attrs = normalizeMap(sec.Attrs)
		for j := range sec.Elements {
			sec.Elements[j].Data = normalizeMap(sec.Elements[j].Data)
		}
	}
}

func normalizeMap(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
	return m
}

func normalizeValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return normalizeMap(v)
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case []any:
		for i := range v {
			v[i] = normalizeValue(v[i])
		}
		return v
	}
	return v
}

// nonFinite reports the path of the first NaN or infinite number in v.
func nonFinite(v any) (string, bool) {
	switch v := v.(type) {
	case float64:
		return "", !math.IsNaN(v) && !math.IsInf(v, 0)
	case float32:
		return nonFinite(float64(v))
	case map[string]any:
		for k, val := range v {
			if path, ok := nonFinite(val); !ok {
				return joinPath(k, path), false
			}
		}
	case []any:
		for i, val := range v {
			if path, ok := nonFinite(val); !ok {
				return joinPath(strconv.Itoa(i), path), false
			}
		}
	}
	return "", true
}

func joinPath(head, tail string) string {
	if tail == "" {
		return head
	}
	return head + "." + tail
}
