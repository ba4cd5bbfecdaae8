package kmeans

import "gonum.org/v1/gonum/floats"

// AverageStore accumulates points and yields their component-wise mean.
type AverageStore struct {
	sum   []float64
	count int
}

func newAverageStore(dim int) AverageStore {
	return AverageStore{sum: make([]float64, dim)}
}

func (s *AverageStore) Add(point []float64) {
	floats.Add(s.sum, point)
	s.count += 1
}

// Average writes the mean into dst. It reports false, leaving dst
// untouched, when nothing has been added.
func (s *AverageStore) Average(dst []float64) bool {
	if s.count == 0 {
		return false
	}
	floats.ScaleTo(dst, 1/float64(s.count), s.sum)
	return true
}

func (s *AverageStore) Reset() {
	for i := range s.sum {
		s.sum[i] = 0
	}
	s.count = 0
}
