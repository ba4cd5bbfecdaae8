package emeans

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"
)

type Option func(*EMeans) error

// WithClusters sets K, the number of centroids in each chromosome.
func WithClusters(k int) Option {
	return func(e *EMeans) error {
		if k < 1 {
			return fmt.Errorf("%w: clusters must be positive, got %d", ErrConfig, k)
		}
		e.cfg.Clusters = k
		return nil
	}
}

// WithPopulation sets the number of chromosomes per generation.
// Breeding works on pairs, so size must be even.
func WithPopulation(size int) Option {
	return func(e *EMeans) error {
		if size < 2 || size%2 != 0 {
			return fmt.Errorf("%w: population must be even and at least 2, got %d", ErrConfig, size)
		}
		e.cfg.PopulationSize = size
		return nil
	}
}

// WithGenerations sets the number of generations evaluated.
func WithGenerations(n int) Option {
	return func(e *EMeans) error {
		if n < 1 {
			return fmt.Errorf("%w: generations must be positive, got %d", ErrConfig, n)
		}
		e.cfg.MaxGenerations = n
		return nil
	}
}

// WithMaxIterations caps Lloyd's loop for each evaluation.
func WithMaxIterations(n int) Option {
	return func(e *EMeans) error {
		if n < 1 {
			return fmt.Errorf("%w: max iterations must be positive, got %d", ErrConfig, n)
		}
		e.cfg.MaxIterations = n
		return nil
	}
}

// WithRates sets the probability that a selected pair is crossed over and
// the probability that each offspring receives one mutation.
func WithRates(crossover, mutation float64) Option {
	return func(e *EMeans) error {
		if !(crossover >= 0 && crossover <= 1) || !(mutation >= 0 && mutation <= 1) {
			return fmt.Errorf("%w: rates must be within [0,1], got crossover=%v mutation=%v", ErrConfig, crossover, mutation)
		}
		e.cfg.CrossoverRate = crossover
		e.cfg.MutationRate = mutation
		return nil
	}
}

// WithTrials sets the random restarts used by Cluster without centroids.
func WithTrials(n int) Option {
	return func(e *EMeans) error {
		if n < 1 {
			return fmt.Errorf("%w: trials must be positive, got %d", ErrConfig, n)
		}
		e.trials = n
		return nil
	}
}

// WithParallelism evaluates up to n chromosomes at once. Results do not
// depend on n.
func WithParallelism(n int) Option {
	return func(e *EMeans) error {
		if n < 1 {
			return fmt.Errorf("%w: parallelism must be positive, got %d", ErrConfig, n)
		}
		e.cfg.Parallelism = n
		return nil
	}
}

// WithSeed fixes the random source. Zero draws a fresh seed, reported in
// Result.Seed.
func WithSeed(seed uint64) Option {
	return func(e *EMeans) error {
		e.cfg.Seed = seed
		return nil
	}
}

// WithDegeneratePolicy chooses between aborting the run (the default) and
// scoring zero when a chromosome's Dunn Index is undefined.
func WithDegeneratePolicy(p DegeneratePolicy) Option {
	return func(e *EMeans) error {
		if p != Abort && p != Zero {
			return fmt.Errorf("%w: unknown degenerate policy %d", ErrConfig, p)
		}
		e.cfg.Degenerate = p
		return nil
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *EMeans) error {
		if l != nil {
			e.logger = l
		}
		return nil
	}
}

func WithObserver(o Observer) Option {
	return func(e *EMeans) error {
		e.observer = o
		return nil
	}
}

// WithResultWriter adds a writer called whenever the best fitness improves.
func WithResultWriter(w ResultWriter) Option {
	return func(e *EMeans) error {
		e.writers = append(e.writers, w)
		return nil
	}
}

// WithStopSignal is checked after every generation.
func WithStopSignal(s StopSignal) Option {
	return func(e *EMeans) error {
		e.stop = s
		return nil
	}
}

// WithInitialPopulation seeds the first chromosomes of generation 0.
func WithInitialPopulation(centroids ...*mat.Dense) Option {
	return func(e *EMeans) error {
		e.seeds = append(e.seeds, centroids...)
		return nil
	}
}
