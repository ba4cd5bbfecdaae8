package evolution

import (
	"fmt"
	"log/slog"

	"github.com/yyyoichi/emeans/internal/ga"
	"github.com/yyyoichi/emeans/internal/logging"
	"gonum.org/v1/gonum/mat"
)

type Option func(*Driver) error

// WithLogger sets the logger for driver events. Records are tagged with
// the evolution, selection, crossover and mutate phases.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) error {
		if logger == nil {
			logger = logging.Discard()
		}
		d.logger = logger
		return nil
	}
}

// WithObserver reports per-generation statistics and evaluation timings.
func WithObserver(o Observer) Option {
	return func(d *Driver) error {
		d.observer = o
		return nil
	}
}

// WithResultWriter registers a writer invoked on every improvement of the
// best solution. Multiple calls add writers in order.
func WithResultWriter(w ResultWriter) Option {
	return func(d *Driver) error {
		if w != nil {
			d.writers = append(d.writers, w)
		}
		return nil
	}
}

// WithStopSignal sets the signal checked at the end of each generation.
func WithStopSignal(s StopSignal) Option {
	return func(d *Driver) error {
		if s == nil {
			s = never{}
		}
		d.stop = s
		return nil
	}
}

// WithInitialPopulation seeds the first slots of generation 0. Each matrix
// must be K×C; it is copied. Remaining slots are sampled within bounds.
func WithInitialPopulation(chromosomes ...*mat.Dense) Option {
	return func(d *Driver) error {
		for i, c := range chromosomes {
			r, cols := c.Dims()
			if r != d.cfg.Clusters || cols != d.cols {
				return fmt.Errorf("%w: seed chromosome %d is %dx%d, want %dx%d",
					ErrInvalidConfig, i, r, cols, d.cfg.Clusters, d.cols)
			}
		}
		if len(chromosomes) > d.cfg.PopulationSize {
			return fmt.Errorf("%w: %d seed chromosomes for population %d",
				ErrInvalidConfig, len(chromosomes), d.cfg.PopulationSize)
		}
		d.seeds = chromosomes
		return nil
	}
}

// WithRand replaces the seeded PCG source. The driver only draws from it
// in serial phases.
func WithRand(r ga.Rand) Option {
	return func(d *Driver) error {
		if r == nil {
			return fmt.Errorf("%w: nil random source", ErrInvalidConfig)
		}
		d.rng = r
		return nil
	}
}
