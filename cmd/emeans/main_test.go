package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yyyoichi/emeans/internal/store"
)

const blobs = `0,0
0,1
1,0
1,1
10,10
10,11
11,10
11,11
`

func writeConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	data := filepath.Join(dir, "blobs.csv")
	require.NoError(t, os.WriteFile(data, []byte(blobs), 0o644))
	doc := fmt.Sprintf(`
clusters: 2
population: 10
max_generations: 3
rows: 8
cols: 2
data_file: %s
seed: 5
degenerate: zero
%s`, data, extra)
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("writes every result", func(t *testing.T) {
		dir := t.TempDir()
		out := filepath.Join(dir, "out")
		path := writeConfig(t, dir, fmt.Sprintf(`results:
  fitness: %[1]s/fitness.csv
  centroids: %[1]s/centroids.csv
  clusters: %[1]s/clusters.csv
  database: %[1]s/emeans.db
  report: %[1]s/report.html
`, out))
		require.NoError(t, os.MkdirAll(out, 0o755))

		var stderr bytes.Buffer
		code := run(ctx, []string{"-v", "-config", path}, &stderr, nil)
		require.Equal(t, exitOK, code, stderr.String())
		assert.Contains(t, stderr.String(), "run finished")

		for _, name := range []string{"fitness.csv", "centroids.csv", "clusters.csv", "report.html"} {
			_, err := os.Stat(filepath.Join(out, name))
			assert.NoError(t, err, name)
		}

		db, err := store.Open(filepath.Join(out, "emeans.db"))
		require.NoError(t, err)
		defer db.Close()
		ids, err := db.ListRunIDs(ctx)
		require.NoError(t, err)
		require.Len(t, ids, 1)
		runID := ids[0]
		r, err := db.GetRun(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, store.StatusCompleted, r.Status)
		best, err := db.LatestBest(ctx, runID)
		require.NoError(t, err)
		assert.Len(t, best.Labels, 8)
	})

	t.Run("debug phase", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "")
		var stderr bytes.Buffer
		require.Equal(t, exitOK, run(ctx, []string{"-debug", "6", "-config", path}, &stderr, nil))
		assert.Contains(t, stderr.String(), "phase=dunn")
		assert.NotContains(t, stderr.String(), "phase=crossover")
	})

	t.Run("degenerate abort fails", func(t *testing.T) {
		dir := t.TempDir()
		data := filepath.Join(dir, "flat.csv")
		require.NoError(t, os.WriteFile(data, []byte("1,1\n1,1\n1,1\n1,1\n"), 0o644))
		path := filepath.Join(dir, "flat.yaml")
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(
			"clusters: 2\npopulation: 4\nmax_generations: 2\nrows: 4\ncols: 2\ndata_file: %s\n", data)), 0o644))
		var stderr bytes.Buffer
		assert.Equal(t, exitError, run(ctx, []string{"-config", path}, &stderr, nil))
		assert.Contains(t, stderr.String(), "degenerate clustering")
	})

	test := []struct {
		name string
		args []string
		code int
	}{
		{"unknown flag", []string{"-nope"}, exitUsage},
		{"unknown debug code", []string{"-debug", "9"}, exitUsage},
		{"positional argument", []string{"extra"}, exitUsage},
		{"help", []string{"-h"}, exitOK},
		{"missing config", []string{"-config", filepath.Join(t.TempDir(), "none.yaml")}, exitError},
	}
	for _, tt := range test {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, run(ctx, tt.args, &bytes.Buffer{}, nil))
		})
	}
}
