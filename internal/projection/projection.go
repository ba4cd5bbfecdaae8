// Package projection maps points onto the principal axes of a dataset.
package projection

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type Projector struct {
	mean []float64
	// axes is cols × dims, one principal axis per column.
	axes *mat.Dense
}

// Fit factorizes the centered data and keeps the leading dims axes. dims is
// clamped to the number of available singular vectors.
func Fit(data *mat.Dense, dims int) (*Projector, error) {
	rows, cols := data.Dims()
	mean := make([]float64, cols)
	for j := range cols {
		mean[j] = stat.Mean(mat.Col(nil, j, data), nil)
	}
	centered := mat.NewDense(rows, cols, nil)
	for i := range rows {
		floats.SubTo(centered.RawRowView(i), data.RawRowView(i), mean)
	}

	var result mat.SVD
	if ok := result.Factorize(centered, mat.SVDThin); !ok {
		return nil, errors.New("projection: cannot factorize data")
	}
	var v mat.Dense
	result.VTo(&v)
	_, n := v.Dims()
	dims = min(dims, n)
	return &Projector{
		mean: mean,
		axes: mat.DenseCopyOf(v.Slice(0, cols, 0, dims)),
	}, nil
}

// Dims returns the number of output coordinates.
func (p *Projector) Dims() int {
	_, d := p.axes.Dims()
	return d
}

// Apply projects every row of m, which must have as many columns as the
// fitted data.
func (p *Projector) Apply(m *mat.Dense) *mat.Dense {
	rows, cols := m.Dims()
	centered := mat.NewDense(rows, cols, nil)
	for i := range rows {
		floats.SubTo(centered.RawRowView(i), m.RawRowView(i), p.mean)
	}
	var out mat.Dense
	out.Mul(centered, p.axes)
	return &out
}
