// Package fitness scores clusterings. Higher is better.
package fitness

import (
	"errors"
	"fmt"
	"math"

	"github.com/yyyoichi/emeans/internal/kmeans"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateClustering reports a clustering whose Dunn Index is undefined.
var ErrDegenerateClustering = errors.New("degenerate clustering")

// Dunn holds the terms of a Dunn Index computation.
type Dunn struct {
	Index float64
	// MinSeparation is the smallest distance between two distinct centroids.
	MinSeparation float64
	// MaxSpread is the largest mean pairwise distance inside a non-empty cluster.
	MaxSpread float64
	// Spreads holds the mean pairwise distance per cluster; empty clusters are NaN.
	Spreads []float64
}

// DunnIndex divides the smallest centroid separation by the largest mean
// intra-cluster distance. Empty clusters take part in the separation term but
// not in the spread term; a single-point cluster has a spread of zero.
//
// It fails with ErrDegenerateClustering when K < 2, when fewer than two
// clusters hold points, or when every non-empty cluster has zero spread.
func DunnIndex(centroids *mat.Dense, clusters *kmeans.Clusters) (float64, error) {
	d, err := Compute(centroids, clusters)
	if err != nil {
		return 0, err
	}
	return d.Index, nil
}

// Compute is DunnIndex returning the intermediate terms.
func Compute(centroids *mat.Dense, clusters *kmeans.Clusters) (*Dunn, error) {
	k, _ := centroids.Dims()
	if k < 2 {
		return nil, fmt.Errorf("%w: %d clusters", ErrDegenerateClustering, k)
	}
	if n := clusters.NonEmpty(); n < 2 {
		return nil, fmt.Errorf("%w: %d of %d clusters hold points", ErrDegenerateClustering, n, k)
	}

	d := &Dunn{
		Spreads:       make([]float64, k),
		MinSeparation: math.Inf(1),
	}
	for c := range k {
		if clusters.Size(c) == 0 {
			d.Spreads[c] = math.NaN()
			continue
		}
		d.Spreads[c] = meanPairwise(clusters, c)
		d.MaxSpread = math.Max(d.MaxSpread, d.Spreads[c])
	}
	if d.MaxSpread == 0 {
		return nil, fmt.Errorf("%w: no cluster has spread", ErrDegenerateClustering)
	}

	for i := range k {
		for j := i + 1; j < k; j++ {
			dist := floats.Distance(centroids.RawRowView(i), centroids.RawRowView(j), 2)
			d.MinSeparation = math.Min(d.MinSeparation, dist)
		}
	}
	d.Index = d.MinSeparation / d.MaxSpread
	return d, nil
}

func meanPairwise(clusters *kmeans.Clusters, c int) float64 {
	n := clusters.Size(c)
	if n < 2 {
		return 0
	}
	var sum float64
	for i := range n {
		p := clusters.Point(c, i)
		for j := i + 1; j < n; j++ {
			sum += floats.Distance(p, clusters.Point(c, j), 2)
		}
	}
	return sum / float64(n*(n-1)/2)
}
