package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yyyoichi/httpcache-go"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrIO     = errors.New("dataset: io error")
	ErrFormat = errors.New("dataset: format error")
)

type (
	// Option configures how a dataset is fetched.
	Option func(*loader)
	loader struct {
		cacheDir string
		client   *httpcache.Client
	}
)

// WithCacheDir sets the directory used to cache remote datasets.
func WithCacheDir(dir string) Option {
	return func(l *loader) {
		l.cacheDir = dir
	}
}

// Load reads an R x C matrix of comma separated reals from path.
// Paths starting with http:// or https:// are fetched through a disk cache.
// Only the first rows records are read; fewer records, a record with a
// different number of fields or a non-finite cell fail with ErrFormat.
func Load(ctx context.Context, path string, rows, cols int, opts ...Option) (*mat.Dense, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("%w: shape %dx%d", ErrFormat, rows, cols)
	}
	var l loader
	for _, opt := range opts {
		opt(&l)
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return l.fetch(ctx, path, rows, cols)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()
	return Parse(f, rows, cols)
}

func (l *loader) fetch(ctx context.Context, uri string, rows, cols int) (*mat.Dense, error) {
	if l.client == nil {
		dir := l.cacheDir
		if dir == "" {
			dir = filepath.Join(os.TempDir(), "emeans_http_cache")
		}
		l.client = &httpcache.Client{
			Client:  http.DefaultClient,
			Cache:   httpcache.NewStorageCache(dir + "/"),
			Handler: httpcache.NewDefaultHandler(),
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch: %w", ErrIO, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: bad status: %d", ErrIO, resp.StatusCode)
	}
	return Parse(resp.Body, rows, cols)
}

// Parse reads rows records of cols reals from r. A trailing empty field
// produced by a terminating comma is ignored.
func Parse(r io.Reader, rows, cols int) (*mat.Dense, error) {
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("%w: shape %dx%d", ErrFormat, rows, cols)
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	data := make([]float64, 0, rows*cols)
	for i := range rows {
		record, err := cr.Read()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: got %d rows, want %d", ErrFormat, i, rows)
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, fmt.Errorf("%w: %w", ErrFormat, err)
			}
			return nil, fmt.Errorf("%w: %w", ErrIO, err)
		}
		for len(record) > 0 && strings.TrimSpace(record[len(record)-1]) == "" {
			record = record[:len(record)-1]
		}
		if len(record) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrFormat, i+1, len(record), cols)
		}
		for j, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %w", ErrFormat, i+1, j+1, err)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: row %d column %d is not finite", ErrFormat, i+1, j+1)
			}
			data = append(data, v)
		}
	}
	return mat.NewDense(rows, cols, data), nil
}
