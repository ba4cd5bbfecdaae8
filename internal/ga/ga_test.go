package ga

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yyyoichi/emeans/internal/rng"
	"gonum.org/v1/gonum/mat"
)

// scripted replays fixed draws in order, cycling when exhausted.
type scripted struct {
	ints   []int
	floats []float64
	i, f   int
}

func (s *scripted) IntN(n int) int {
	v := s.ints[s.i%len(s.ints)]
	s.i++
	if v >= n {
		panic("scripted IntN out of range")
	}
	return v
}

func (s *scripted) Float64() float64 {
	v := s.floats[s.f%len(s.floats)]
	s.f++
	return v
}

func TestCrossover(t *testing.T) {
	t.Run("cut at row two", func(t *testing.T) {
		a := mat.NewDense(4, 2, []float64{1, 1, 2, 2, 3, 3, 4, 4})
		b := mat.NewDense(4, 2, []float64{-1, -1, -2, -2, -3, -3, -4, -4})
		origA, origB := mat.DenseCopyOf(a), mat.DenseCopyOf(b)

		cut := Crossover(a, b, &scripted{ints: []int{1}})
		require.Equal(t, 2, cut)

		for i := range 2 {
			assert.Equal(t, origA.RawRowView(i), a.RawRowView(i))
			assert.Equal(t, origA.RawRowView(i), b.RawRowView(i))
		}
		for i := 2; i < 4; i++ {
			assert.Equal(t, origB.RawRowView(i), a.RawRowView(i))
			assert.Equal(t, origB.RawRowView(i), b.RawRowView(i))
		}
	})

	t.Run("cut stays within bounds", func(t *testing.T) {
		src := rng.New(42)
		for range 200 {
			a := mat.NewDense(5, 1, []float64{1, 2, 3, 4, 5})
			b := mat.NewDense(5, 1, []float64{6, 7, 8, 9, 10})
			cut := Crossover(a, b, src)
			assert.GreaterOrEqual(t, cut, 1)
			assert.LessOrEqual(t, cut, 4)
		}
	})

	t.Run("single row is a no-op", func(t *testing.T) {
		a := mat.NewDense(1, 2, []float64{1, 2})
		b := mat.NewDense(1, 2, []float64{3, 4})
		assert.Equal(t, 0, Crossover(a, b, &scripted{ints: []int{0}}))
		assert.Equal(t, []float64{1, 2}, a.RawRowView(0))
		assert.Equal(t, []float64{3, 4}, b.RawRowView(0))
	})
}

func TestMutate(t *testing.T) {
	bounds := mat.NewDense(3, 2, []float64{
		0, 10,
		-5, 5,
		100, 100,
	})

	t.Run("scripted gene", func(t *testing.T) {
		chrom := mat.NewDense(2, 3, []float64{1, 1, 1, 1, 1, 1})
		row, col := Mutate(chrom, bounds, &scripted{ints: []int{1, 1}, floats: []float64{0.25}})
		assert.Equal(t, 1, row)
		assert.Equal(t, 1, col)
		assert.Equal(t, -2.5, chrom.At(1, 1))
	})

	t.Run("one gene within bounds", func(t *testing.T) {
		src := rng.New(7)
		for range 100 {
			chrom := mat.NewDense(2, 3, []float64{1, 1, 100, 1, 1, 100})
			orig := mat.DenseCopyOf(chrom)
			row, col := Mutate(chrom, bounds, src)

			changed := 0
			for i := range 2 {
				for j := range 3 {
					if chrom.At(i, j) != orig.At(i, j) {
						changed++
						assert.Equal(t, row, i)
						assert.Equal(t, col, j)
					}
				}
			}
			assert.LessOrEqual(t, changed, 1)
			v := chrom.At(row, col)
			assert.GreaterOrEqual(t, v, bounds.At(col, 0))
			assert.LessOrEqual(t, v, bounds.At(col, 1))
		}
	})
}

func TestRandom(t *testing.T) {
	bounds := mat.NewDense(2, 2, []float64{0, 1, 50, 60})
	chrom := mat.NewDense(4, 2, nil)
	Random(chrom, bounds, rng.New(5))
	for i := range 4 {
		assert.GreaterOrEqual(t, chrom.At(i, 0), 0.0)
		assert.Less(t, chrom.At(i, 0), 1.0)
		assert.GreaterOrEqual(t, chrom.At(i, 1), 50.0)
		assert.Less(t, chrom.At(i, 1), 60.0)
	}
}

func TestProbabilities(t *testing.T) {
	test := []struct {
		name       string
		fitness    []float64
		expected   []float64
		degenerate bool
	}{
		{"equal", []float64{1, 1, 1, 1}, []float64{0.25, 0.5, 0.75, 1}, false},
		{"weighted", []float64{1, 3}, []float64{0.25, 1}, false},
		{"zero total", []float64{0, 0, 0, 0}, []float64{0.25, 0.5, 0.75, 1}, true},
		{"one positive", []float64{0, 2, 0}, []float64{0, 1, 1}, false},
	}
	for _, tt := range test {
		t.Run(tt.name, func(t *testing.T) {
			got := Probabilities(tt.fitness, nil)
			assert.InDeltaSlice(t, tt.expected, got, 1e-12)
			assert.Equal(t, tt.degenerate, Degenerate(tt.fitness))
		})
	}

	t.Run("reuses dst", func(t *testing.T) {
		dst := make([]float64, 0, 8)
		got := Probabilities([]float64{1, 1}, dst)
		assert.Len(t, got, 2)
		assert.Equal(t, &dst[:1][0], &got[0])
	})
}

func TestSelectIndex(t *testing.T) {
	prob := []float64{0.25, 0.5, 0.75, 1}
	test := []struct {
		r        float64
		expected int
	}{
		{0, 0},
		{0.24, 0},
		{0.25, 1},
		{0.6, 2},
		{0.9, 3},
		{1, 0},
	}
	for _, tt := range test {
		assert.Equal(t, tt.expected, SelectIndex(prob, tt.r), "r=%v", tt.r)
	}

	t.Run("zero-fitness slot is never picked", func(t *testing.T) {
		prob := Probabilities([]float64{0, 2, 0}, nil)
		src := rng.New(9)
		for range 500 {
			assert.Equal(t, 1, SelectParent(prob, src))
		}
	})
}
