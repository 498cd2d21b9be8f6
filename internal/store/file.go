package store

import (
	"context"
	"os"
	"strings"

	"github.com/vango-dev/listdiff/internal/errors"
	"github.com/vango-dev/listdiff/pkg/document"
)

// FileSource loads documents from the local file system.
type FileSource struct {
	// MaxBytes limits the file size. Zero means no limit.
	MaxBytes int64
}

// Load implements Source.
func (s *FileSource) Load(ctx context.Context, location string) (*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.New("E141").WithDetail(location).Wrap(err)
	}
	path := strings.TrimPrefix(location, "file://")

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetailf("%s does not exist", path).
				Wrap(err)
		}
		return nil, errors.New("E141").WithDetail(path).Wrap(err)
	}
	defer f.Close()

	data, err := readLimited(f, s.MaxBytes, path)
	if err != nil {
		return nil, err
	}
	return decode(data, path)
}
