package dataset

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Bounds returns a C x 2 matrix holding the (min, max) of every column of data.
// data must have at least one row.
func Bounds(data *mat.Dense) *mat.Dense {
	rows, cols := data.Dims()
	bounds := mat.NewDense(cols, 2, nil)
	col := make([]float64, rows)
	for j := range cols {
		mat.Col(col, j, data)
		bounds.Set(j, 0, floats.Min(col))
		bounds.Set(j, 1, floats.Max(col))
	}
	return bounds
}
