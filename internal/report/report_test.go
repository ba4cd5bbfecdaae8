package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yyyoichi/emeans/internal/evolution"
	"gonum.org/v1/gonum/mat"
)

func input() Input {
	return Input{
		Title: "blobs",
		History: []evolution.GenerationStats{
			{Generation: 0, Best: 2, Mean: 1, Worst: 0, Degenerate: 1},
			{Generation: 1, Best: 3.5, Mean: 2, Worst: 0.5},
		},
		Best: &evolution.Best{
			Generation: 1,
			Fitness:    3.5,
			Centroids:  mat.NewDense(2, 2, []float64{0.5, 0.5, 10.5, 10.5}),
			Labels:     []int{0, 0, 1, 1},
		},
		Data: mat.NewDense(4, 2, []float64{0, 0, 1, 1, 10, 10, 11, 11}),
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, input()))
	html := buf.String()
	assert.Contains(t, html, "Dunn Index by generation")
	assert.Contains(t, html, "Best clustering (generation 1)")
	assert.Contains(t, html, "Centroids")
	assert.Contains(t, html, "Cluster 1 (2)")

	t.Run("history only", func(t *testing.T) {
		in := input()
		in.Best = nil
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, in))
		assert.NotContains(t, buf.String(), "Best clustering")
	})

	t.Run("projected", func(t *testing.T) {
		in := input()
		in.Data = mat.NewDense(4, 3, []float64{0, 0, 1, 1, 1, 0, 10, 10, 2, 11, 11, 3})
		in.Best.Centroids = mat.NewDense(2, 3, []float64{0.5, 0.5, 0.5, 10.5, 10.5, 2.5})
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, in))
		assert.Contains(t, buf.String(), "pc1")
	})

	t.Run("empty history", func(t *testing.T) {
		assert.Error(t, Render(&bytes.Buffer{}, Input{}))
	})
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, WriteFile(path, input()))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "<html")
}
