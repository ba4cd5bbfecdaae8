// Package ga holds the genetic operators applied to centroid matrices
// (chromosomes) and the roulette-wheel selection that picks their parents.
package ga

import "gonum.org/v1/gonum/mat"

// Rand is the random source the operators draw from.
type Rand interface {
	// IntN returns a uniform integer in [0, n).
	IntN(n int) int
	// Float64 returns a uniform float in [0, 1).
	Float64() float64
}

// Crossover performs single-point row crossover in place and returns the cut.
// A cut row is drawn from [1, K-1]; rows above the cut are copied from a into
// b and rows from the cut down are copied from b into a. Chromosomes with
// fewer than two rows are left untouched and the cut is 0.
func Crossover(a, b *mat.Dense, rng Rand) int {
	rows, _ := a.Dims()
	if rows < 2 {
		return 0
	}
	cut := rng.IntN(rows-1) + 1
	for i := range cut {
		b.SetRow(i, a.RawRowView(i))
	}
	for i := cut; i < rows; i++ {
		a.SetRow(i, b.RawRowView(i))
	}
	return cut
}

// Mutate replaces one uniformly chosen gene with a value drawn uniformly from
// that column's [min, max] bounds and returns the gene's position.
func Mutate(chromosome, bounds *mat.Dense, rng Rand) (row, col int) {
	rows, cols := chromosome.Dims()
	row = rng.IntN(rows)
	col = rng.IntN(cols)
	chromosome.Set(row, col, Uniform(bounds, col, rng))
	return row, col
}

// Uniform draws a value for column col within bounds. A zero-width column
// always yields its minimum.
func Uniform(bounds *mat.Dense, col int, rng Rand) float64 {
	lo, hi := bounds.At(col, 0), bounds.At(col, 1)
	return lo + rng.Float64()*(hi-lo)
}

// Random fills chromosome with values sampled uniformly within bounds.
func Random(chromosome, bounds *mat.Dense, rng Rand) {
	rows, cols := chromosome.Dims()
	for i := range rows {
		for j := range cols {
			chromosome.Set(i, j, Uniform(bounds, j, rng))
		}
	}
}
