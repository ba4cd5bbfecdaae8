package ga

import "math"

// Probabilities turns fitness values into a cumulative roulette table
// written to dst (reallocated when too short): entry i is the sum of
// fitness[0..i] divided by the total. Negative values are not normalized.
// When the total is zero or not finite every slot gets an equal share.
func Probabilities(fitness, dst []float64) []float64 {
	n := len(fitness)
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]

	total, ok := sum(fitness)
	if !ok {
		for i := range dst {
			dst[i] = float64(i+1) / float64(n)
		}
		return dst
	}

	for i, f := range fitness {
		if i == 0 {
			dst[i] = f / total
			continue
		}
		dst[i] = dst[i-1] + f/total
	}
	return dst
}

// Degenerate reports whether the fitness total forces the equal-share table.
func Degenerate(fitness []float64) bool {
	_, ok := sum(fitness)
	return !ok
}

func sum(fitness []float64) (float64, bool) {
	var total float64
	for _, f := range fitness {
		total += f
	}
	return total, total != 0 && !math.IsNaN(total) && !math.IsInf(total, 0)
}

// SelectParent spins the wheel once with a uniform draw in [0, 1).
func SelectParent(probability []float64, rng Rand) int {
	return SelectIndex(probability, rng.Float64())
}

// SelectIndex returns the first slot whose cumulative probability exceeds r.
// If rounding leaves r at or above the last entry, slot 0 is returned.
func SelectIndex(probability []float64, r float64) int {
	for i, p := range probability {
		if r < p {
			return i
		}
	}
	return 0
}
