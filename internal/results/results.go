// Package results writes the best clustering of a run to plain files.
package results

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/yyyoichi/emeans/internal/evolution"
	"gonum.org/v1/gonum/mat"
)

var ErrWrite = errors.New("writing results")

// Paths names the output files. Empty entries are skipped.
type Paths struct {
	Fitness   string
	Centroids string
	Clusters  string
}

// FileWriter replaces its files on every improvement. Each file is written
// to a temporary sibling and renamed into place, so readers never observe
// a partial solution.
type FileWriter struct {
	paths Paths
	data  *mat.Dense
}

// NewFileWriter returns a writer for solutions over data. The clusters file
// lists every data row prefixed with its cluster label.
func NewFileWriter(paths Paths, data *mat.Dense) *FileWriter {
	return &FileWriter{paths: paths, data: data}
}

func (w *FileWriter) Write(b *evolution.Best) error {
	if w.paths.Fitness != "" {
		var buf bytes.Buffer
		fmt.Fprintf(&buf, "generation,index,fitness\n%d,%d,%s\n",
			b.Generation, b.Index, strconv.FormatFloat(b.Fitness, 'g', -1, 64))
		if err := atomicWrite(w.paths.Fitness, buf.Bytes()); err != nil {
			return err
		}
	}
	if w.paths.Centroids != "" {
		if err := atomicWrite(w.paths.Centroids, matrixCSV(b.Centroids, nil)); err != nil {
			return err
		}
	}
	if w.paths.Clusters != "" && w.data != nil {
		if err := atomicWrite(w.paths.Clusters, matrixCSV(w.data, b.Labels)); err != nil {
			return err
		}
	}
	return nil
}

// matrixCSV renders m one row per line. When labels is non-nil each line
// starts with the row's label.
func matrixCSV(m *mat.Dense, labels []int) []byte {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	rows, cols := m.Dims()
	record := make([]string, 0, cols+1)
	for i := range rows {
		record = record[:0]
		if labels != nil {
			record = append(record, strconv.Itoa(labels[i]))
		}
		for _, v := range m.RawRowView(i) {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		_ = cw.Write(record)
	}
	cw.Flush()
	return buf.Bytes()
}

func atomicWrite(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	return nil
}

// Multi fans a solution out to several writers, stopping at the first error.
type Multi []evolution.ResultWriter

func (m Multi) Write(b *evolution.Best) error {
	for _, w := range m {
		if err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}
