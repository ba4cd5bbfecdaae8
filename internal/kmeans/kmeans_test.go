package kmeans

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yyyoichi/emeans/internal/rng"
	"gonum.org/v1/gonum/mat"
)

func twoBlobs() *mat.Dense {
	return mat.NewDense(6, 2, []float64{
		0, 0,
		0, 2,
		1, 1,
		10, 0,
		10, 2,
		11, 1,
	})
}

func TestCluster(t *testing.T) {
	t.Run("partition", func(t *testing.T) {
		data := twoBlobs()
		src := rng.New(3)
		for k := 1; k <= 6; k++ {
			centroids := mat.NewDense(k, 2, nil)
			for i := range k {
				centroids.Set(i, 0, src.Float64()*11)
				centroids.Set(i, 1, src.Float64()*2)
			}
			res := New().Cluster(centroids, data)

			seen := make([]int, 6)
			total := 0
			for c := range k {
				for _, r := range res.Clusters.Rows(c) {
					seen[r]++
					assert.Equal(t, c, res.Clusters.Labels()[r])
				}
				total += res.Clusters.Size(c)
			}
			assert.Equal(t, 6, total, "k=%d", k)
			for r, n := range seen {
				assert.Equal(t, 1, n, "row %d with k=%d", r, k)
			}
		}
	})

	t.Run("fixed point converges", func(t *testing.T) {
		centroids := mat.NewDense(2, 2, []float64{
			0, 1,
			10, 1,
		})
		data := mat.NewDense(4, 2, []float64{0, 0, 0, 2, 10, 0, 10, 2})
		res := New(WithMaxIterations(50)).Cluster(centroids, data)
		assert.True(t, res.Converged)
		assert.Less(t, res.Iterations, 50)
		assert.True(t, mat.Equal(centroids, res.Centroids))
		assert.Equal(t, []int{0, 0, 1, 1}, res.Clusters.Labels())
	})

	t.Run("input centroids untouched", func(t *testing.T) {
		centroids := mat.NewDense(2, 2, []float64{3, 3, 8, 8})
		orig := mat.DenseCopyOf(centroids)
		res := New().Cluster(centroids, twoBlobs())
		assert.True(t, mat.Equal(orig, centroids))
		assert.False(t, mat.Equal(orig, res.Centroids))
	})

	t.Run("empty cluster keeps its centroid", func(t *testing.T) {
		centroids := mat.NewDense(3, 2, []float64{
			0, 1,
			10, 1,
			1000, 1000,
		})
		res := New().Cluster(centroids, twoBlobs())
		assert.Equal(t, 0, res.Clusters.Size(2))
		assert.Nil(t, res.Clusters.Matrix(2))
		assert.Equal(t, []float64{1000, 1000}, res.Centroids.RawRowView(2))
		assert.Equal(t, 2, res.Clusters.NonEmpty())
	})

	t.Run("ties go to the lowest index", func(t *testing.T) {
		data := mat.NewDense(1, 2, []float64{5, 0})
		centroids := mat.NewDense(3, 2, []float64{
			0, 0,
			10, 0,
			5, 5,
		})
		for range 10 {
			res := New(WithMaxIterations(1)).Cluster(centroids, data)
			assert.Equal(t, []int{0}, res.Clusters.Labels())
		}
	})

	t.Run("iteration cap", func(t *testing.T) {
		centroids := mat.NewDense(2, 2, []float64{0, 0, 0.5, 0.5})
		res := New(WithMaxIterations(1)).Cluster(centroids, twoBlobs())
		assert.Equal(t, 1, res.Iterations)
		assert.False(t, res.Converged)
		assert.Len(t, res.Clusters.Labels(), 6)
	})

	t.Run("matrix view", func(t *testing.T) {
		centroids := mat.NewDense(2, 2, []float64{0, 1, 10, 1})
		res := New().Cluster(centroids, twoBlobs())
		m := res.Clusters.Matrix(1)
		require.NotNil(t, m)
		r, c := m.Dims()
		assert.Equal(t, 3, r)
		assert.Equal(t, 2, c)
		assert.Equal(t, []float64{10, 0}, m.RawRowView(0))
	})
}

func TestClusterRandom(t *testing.T) {
	data := twoBlobs()

	t.Run("separates blobs", func(t *testing.T) {
		c := New(WithRandomInit(20, rng.New(11)))
		res, err := c.ClusterRandom(2, data)
		require.NoError(t, err)
		labels := res.Clusters.Labels()
		assert.Equal(t, labels[0], labels[1])
		assert.Equal(t, labels[0], labels[2])
		assert.Equal(t, labels[3], labels[4])
		assert.NotEqual(t, labels[0], labels[3])
		assert.InDelta(t, 16.0/3, res.SSE(), 1e-9)
	})

	t.Run("invalid k", func(t *testing.T) {
		c := New(WithRandomInit(1, rng.New(1)))
		_, err := c.ClusterRandom(7, data)
		assert.True(t, errors.Is(err, ErrInvalidK))
		_, err = c.ClusterRandom(0, data)
		assert.True(t, errors.Is(err, ErrInvalidK))
	})

	t.Run("missing rng", func(t *testing.T) {
		_, err := New().ClusterRandom(2, data)
		assert.Error(t, err)
	})
}
