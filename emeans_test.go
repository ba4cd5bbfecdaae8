package emeans

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func blobs() *mat.Dense {
	return mat.NewDense(8, 2, []float64{
		0, 0, 0, 1, 1, 0, 1, 1,
		10, 10, 10, 11, 11, 10, 11, 11,
	})
}

func TestOptions(t *testing.T) {
	test := []struct {
		name string
		opt  Option
	}{
		{"clusters", WithClusters(0)},
		{"odd population", WithPopulation(5)},
		{"generations", WithGenerations(0)},
		{"iterations", WithMaxIterations(-1)},
		{"rates", WithRates(1.2, 0)},
		{"trials", WithTrials(0)},
		{"parallelism", WithParallelism(0)},
		{"policy", WithDegeneratePolicy(DegeneratePolicy(7))},
	}
	for _, tt := range test {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig))
		})
	}
}

func TestFit(t *testing.T) {
	ctx := context.Background()

	t.Run("replays with the reported seed", func(t *testing.T) {
		opts := []Option{WithGenerations(4), WithPopulation(8), WithDegeneratePolicy(Zero)}
		first, err := Fit(ctx, blobs(), opts...)
		require.NoError(t, err)
		require.NotZero(t, first.Seed)
		assert.Len(t, first.History, 4)

		again, err := Fit(ctx, blobs(), append(opts, WithSeed(first.Seed), WithParallelism(3))...)
		require.NoError(t, err)
		assert.Equal(t, first.Best.Fitness, again.Best.Fitness)
		assert.Equal(t, first.Best.Labels, again.Best.Labels)
	})

	t.Run("error taxonomy", func(t *testing.T) {
		_, err := Fit(ctx, blobs(), WithClusters(9))
		assert.True(t, errors.Is(err, ErrConfig))

		flat := mat.NewDense(4, 1, []float64{3, 3, 3, 3})
		res, err := Fit(ctx, flat, WithPopulation(2), WithSeed(1))
		assert.True(t, errors.Is(err, ErrDegenerateClustering))
		require.NotNil(t, res)
		assert.Nil(t, res.Best)

		wide := mat.NewDense(1, 1<<10, nil)
		_, err = Fit(ctx, wide, WithClusters(1), WithPopulation(1<<18))
		assert.True(t, errors.Is(err, ErrAllocation))
	})

	t.Run("stop flag", func(t *testing.T) {
		var flag StopFlag
		flag.Request()
		res, err := Fit(ctx, blobs(), WithStopSignal(&flag), WithDegeneratePolicy(Zero))
		require.NoError(t, err)
		assert.Len(t, res.History, 1)
	})

	t.Run("result writer", func(t *testing.T) {
		var calls int
		w := writerFunc(func(*Best) error { calls++; return nil })
		res, err := Fit(ctx, blobs(), WithGenerations(3), WithResultWriter(w), WithDegeneratePolicy(Zero))
		require.NoError(t, err)
		improved := 0
		for _, s := range res.History {
			if s.Improved {
				improved++
			}
		}
		assert.Equal(t, improved, calls)
	})
}

type writerFunc func(*Best) error

func (f writerFunc) Write(b *Best) error { return f(b) }

func TestCluster(t *testing.T) {
	t.Run("random restarts", func(t *testing.T) {
		e, err := New(WithClusters(2), WithTrials(10), WithSeed(3))
		require.NoError(t, err)
		c, err := e.Cluster(blobs(), nil)
		require.NoError(t, err)
		assert.Equal(t, []int{4, 4}, c.Sizes)
		assert.True(t, c.Converged)
		assert.InDelta(t, 4.0, c.SSE, 1e-9)
	})

	t.Run("too many clusters", func(t *testing.T) {
		e, err := New(WithClusters(9))
		require.NoError(t, err)
		_, err = e.Cluster(blobs(), nil)
		assert.True(t, errors.Is(err, ErrInvalidK))
	})

	t.Run("column mismatch", func(t *testing.T) {
		e, err := New()
		require.NoError(t, err)
		_, err = e.Cluster(blobs(), mat.NewDense(2, 3, nil))
		assert.True(t, errors.Is(err, ErrConfig))
	})
}

func TestDunnIndex(t *testing.T) {
	d, err := DunnIndex(mat.NewDense(2, 2, []float64{0.5, 0.5, 10.5, 10.5}), blobs())
	require.NoError(t, err)
	assert.Greater(t, d, 10.0)

	_, err = DunnIndex(mat.NewDense(1, 2, []float64{0, 0}), blobs())
	assert.True(t, errors.Is(err, ErrDegenerateClustering))
}
