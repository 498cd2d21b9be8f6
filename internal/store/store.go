package store

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/vango-dev/listdiff/internal/errors"
	"github.com/vango-dev/listdiff/pkg/document"
)

// Source loads snapshot documents from a location.
type Source interface {
	Load(ctx context.Context, location string) (*document.Document, error)
}

// Mux dispatches a location to a Source by its scheme. Locations without a
// scheme, or with file://, go to the file source.
type Mux struct {
	sources map[string]Source
}

// NewMux creates a Mux that loads local files with the given size limit.
func NewMux(maxBytes int64) *Mux {
	m := &Mux{sources: make(map[string]Source)}
	m.Handle("file", &FileSource{MaxBytes: maxBytes})
	return m
}

// Handle registers src for scheme, replacing any previous source.
func (m *Mux) Handle(scheme string, src Source) {
	m.sources[strings.ToLower(scheme)] = src
}

// Load implements Source.
func (m *Mux) Load(ctx context.Context, location string) (*document.Document, error) {
	scheme := "file"
	if i := strings.Index(location, "://"); i > 0 {
		scheme = strings.ToLower(location[:i])
	}
	src, ok := m.sources[scheme]
	if !ok {
		return nil, errors.New("E140").
			WithDetailf("no source for %q", location).
			WithSuggestion("Use a local path or an s3://bucket/key URI")
	}
	return src.Load(ctx, location)
}

// readLimited reads r fully, failing with E142 once more than max bytes
// arrive. A max of zero means no limit.
func readLimited(r io.Reader, max int64, location string) ([]byte, error) {
	if max <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.New("E141").WithDetail(location).Wrap(err)
		}
		return data, nil
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, max+1))
	if err != nil {
		return nil, errors.New("E141").WithDetail(location).Wrap(err)
	}
	if n > max {
		return nil, errors.New("E142").WithDetailf("%s exceeds %d bytes", location, max)
	}
	return buf.Bytes(), nil
}

func decode(data []byte, location string) (*document.Document, error) {
	f, err := document.FormatOf(location)
	if err != nil {
		return nil, err
	}
	doc, err := document.DecodeBytes(data, f)
	if err != nil {
		return nil, errors.FromError(err, "E120").WithDetail(location)
	}
	return doc, nil
}
