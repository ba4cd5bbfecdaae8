// Package evolution runs the genetic search over centroid sets. Each
// generation scores every chromosome with Lloyd's algorithm and the Dunn
// Index, builds a roulette table from the scores and breeds the next
// population by crossover and mutation.
package evolution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/yyyoichi/emeans/internal/config"
	"github.com/yyyoichi/emeans/internal/dataset"
	"github.com/yyyoichi/emeans/internal/fitness"
	"github.com/yyyoichi/emeans/internal/ga"
	"github.com/yyyoichi/emeans/internal/kmeans"
	"github.com/yyyoichi/emeans/internal/logging"
	"github.com/yyyoichi/emeans/internal/rng"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MaxCells bounds the float64 cells held by both population buffers.
const MaxCells = 1 << 28

var (
	ErrInvalidConfig = config.ErrConfig
	ErrAllocation    = errors.New("population exceeds allocation budget")
)

// DegeneratePolicy decides what a chromosome whose Dunn Index is undefined
// does to the run.
type DegeneratePolicy int

const (
	// Abort fails the generation and halts the run.
	Abort DegeneratePolicy = iota
	// Zero scores the chromosome 0 and continues.
	Zero
)

// ParseDegeneratePolicy accepts "abort" and "zero". Empty means Abort.
func ParseDegeneratePolicy(s string) (DegeneratePolicy, error) {
	switch s {
	case "", "abort":
		return Abort, nil
	case "zero":
		return Zero, nil
	}
	return Abort, fmt.Errorf("%w: unknown degenerate policy %q", ErrInvalidConfig, s)
}

func (p DegeneratePolicy) String() string {
	if p == Zero {
		return "zero"
	}
	return "abort"
}

// Config holds the parameters of one run.
type Config struct {
	Clusters       int
	PopulationSize int
	MaxGenerations int
	// MaxIterations caps Lloyd's loop per evaluation; 0 means kmeans.DefaultMaxIterations.
	MaxIterations int
	MutationRate  float64
	CrossoverRate float64
	// Parallelism is the number of chromosomes evaluated concurrently; values below 1 mean 1.
	Parallelism int
	// Seed feeds the PCG source; 0 draws a random seed.
	Seed       uint64
	Degenerate DegeneratePolicy
}

func (c Config) validate() error {
	switch {
	case c.Clusters < 1:
		return fmt.Errorf("%w: clusters must be positive, got %d", ErrInvalidConfig, c.Clusters)
	case c.PopulationSize < 2 || c.PopulationSize%2 != 0:
		return fmt.Errorf("%w: population must be even and at least 2, got %d", ErrInvalidConfig, c.PopulationSize)
	case c.MaxGenerations < 1:
		return fmt.Errorf("%w: max generations must be positive, got %d", ErrInvalidConfig, c.MaxGenerations)
	case c.MaxIterations < 0:
		return fmt.Errorf("%w: max iterations must not be negative, got %d", ErrInvalidConfig, c.MaxIterations)
	case !(c.MutationRate >= 0 && c.MutationRate <= 1):
		return fmt.Errorf("%w: mutation rate %v outside [0,1]", ErrInvalidConfig, c.MutationRate)
	case !(c.CrossoverRate >= 0 && c.CrossoverRate <= 1):
		return fmt.Errorf("%w: crossover rate %v outside [0,1]", ErrInvalidConfig, c.CrossoverRate)
	}
	return nil
}

// Best is the highest-fitness solution seen so far. It owns its matrices.
type Best struct {
	Generation int
	Index      int
	Fitness    float64
	Centroids  *mat.Dense
	Labels     []int
	Sizes      []int
}

// GenerationStats summarizes one evaluated generation.
type GenerationStats struct {
	Generation int
	Best       float64
	Worst      float64
	Mean       float64
	// Degenerate counts chromosomes scored 0 under the Zero policy.
	Degenerate int
	Improved   bool
	Elapsed    time.Duration
}

// ResultWriter persists the best solution. Write is called once per
// generation, and only when the best fitness strictly improved.
type ResultWriter interface {
	Write(*Best) error
}

// Observer receives run statistics.
type Observer interface {
	ObserveGeneration(GenerationStats)
	ObserveEvaluation(time.Duration)
}

// Driver runs the generational loop. It is not safe for concurrent use,
// except for State, which may be read from any goroutine.
type Driver struct {
	cfg    Config
	data   *mat.Dense
	bounds *mat.Dense
	cols   int

	rng       ga.Rand
	seed      uint64
	clusterer *kmeans.Clusterer

	logger   *slog.Logger
	observer Observer
	writers  []ResultWriter
	stop     StopSignal
	seeds    []*mat.Dense

	state atomic.Int32

	population []*mat.Dense
	next       []*mat.Dense
	results    []*kmeans.Result
	fitness    []float64
	degenerate []bool
	prob       []float64
	best       *Best
	history    []GenerationStats
}

// New validates cfg against data and allocates both population buffers.
// data must not be modified while the driver is in use.
func New(data *mat.Dense, cfg Config, opts ...Option) (*Driver, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if data == nil || data.IsEmpty() {
		return nil, fmt.Errorf("%w: empty dataset", ErrInvalidConfig)
	}
	rows, cols := data.Dims()
	if cfg.Clusters > rows {
		return nil, fmt.Errorf("%w: %d clusters for %d rows", ErrInvalidConfig, cfg.Clusters, rows)
	}
	if cells := cellCount(cfg.PopulationSize, cfg.Clusters, cols); cells > MaxCells {
		return nil, fmt.Errorf("%w: %d population cells, limit %d", ErrAllocation, cells, MaxCells)
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}

	d := &Driver{
		cfg:    cfg,
		data:   data,
		cols:   cols,
		logger: logging.Discard(),
		stop:   never{},
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if d.rng == nil {
		src := rng.New(cfg.Seed)
		d.rng = src
		d.seed = src.Seed()
	}
	d.clusterer = kmeans.New(
		kmeans.WithMaxIterations(cfg.MaxIterations),
		kmeans.WithLogger(d.logger),
	)

	d.population = make([]*mat.Dense, cfg.PopulationSize)
	d.next = make([]*mat.Dense, cfg.PopulationSize)
	for i := range d.population {
		d.population[i] = mat.NewDense(cfg.Clusters, cols, nil)
		d.next[i] = mat.NewDense(cfg.Clusters, cols, nil)
	}
	d.results = make([]*kmeans.Result, cfg.PopulationSize)
	d.fitness = make([]float64, cfg.PopulationSize)
	d.degenerate = make([]bool, cfg.PopulationSize)
	d.prob = make([]float64, cfg.PopulationSize)
	return d, nil
}

// cellCount returns size*k*cols for both buffers, saturating on overflow.
func cellCount(size, k, cols int) int {
	cells := 2
	for _, n := range []int{size, k, cols} {
		if cells > math.MaxInt/n {
			return math.MaxInt
		}
		cells *= n
	}
	return cells
}

// Seed returns the seed of the driver's own source, or 0 when WithRand
// replaced it.
func (d *Driver) Seed() uint64 { return d.seed }

func (d *Driver) State() State { return State(d.state.Load()) }

func (d *Driver) setState(s State) {
	d.state.Store(int32(s))
	d.logger.Debug("state", logging.Phase(logging.PhaseEvolution), "state", s)
}

// Best returns the best solution found so far, or nil before the first
// evaluation.
func (d *Driver) Best() *Best { return d.best }

// History returns statistics for every evaluated generation.
func (d *Driver) History() []GenerationStats { return d.history }

// Run executes generations until MaxGenerations is reached or the stop
// signal is raised. A cancelled ctx ends the run at the next generation
// boundary with ctx.Err(). On any error the best solution found so far is
// returned alongside it.
func (d *Driver) Run(ctx context.Context) (*Best, error) {
	log := d.logger.With(logging.Phase(logging.PhaseEvolution))
	d.best = nil
	d.history = d.history[:0]

	d.setState(Initializing)
	d.initialize()
	log.Info("population initialized",
		"size", d.cfg.PopulationSize,
		"clusters", d.cfg.Clusters,
		"seed", d.seed,
	)

	for gen := 0; ; gen++ {
		if err := ctx.Err(); err != nil {
			d.setState(Terminated)
			log.Warn("run cancelled", "generation", gen, "err", err)
			return d.best, err
		}

		d.setState(Evaluating)
		stats, err := d.evaluate(ctx, gen)
		if err != nil {
			d.setState(Terminated)
			log.Error("evaluation failed", "generation", gen, "err", err)
			return d.best, err
		}
		d.history = append(d.history, stats)
		if d.observer != nil {
			d.observer.ObserveGeneration(stats)
		}
		log.Info("generation evaluated",
			"generation", gen,
			"best", stats.Best,
			"mean", stats.Mean,
			"worst", stats.Worst,
			"degenerate", stats.Degenerate,
			"elapsed", stats.Elapsed,
		)
		if stats.Improved {
			if err := d.write(); err != nil {
				d.setState(Terminated)
				log.Error("writing best solution", "generation", gen, "err", err)
				return d.best, err
			}
		}

		d.setState(Selecting)
		d.prob = ga.Probabilities(d.fitness, d.prob)
		if ga.Degenerate(d.fitness) {
			d.logger.Warn("fitness total is zero, selecting uniformly",
				logging.Phase(logging.PhaseProbability), "generation", gen)
		}
		d.logger.Debug("probabilities",
			logging.Phase(logging.PhaseProbability), "fitness", d.fitness, "probability", d.prob)

		d.setState(Breeding)
		d.breed()

		d.setState(CheckStop)
		if gen+1 >= d.cfg.MaxGenerations {
			break
		}
		if d.stop.Stop() {
			log.Info("stop requested", "generation", gen)
			break
		}
	}
	d.setState(Terminated)
	return d.best, nil
}

func (d *Driver) initialize() {
	log := d.logger.With(logging.Phase(logging.PhaseBounds))
	if d.bounds == nil {
		d.bounds = dataset.Bounds(d.data)
	}
	log.Debug("bounds", "bounds", mat.Formatted(d.bounds, mat.Squeeze()))

	for i, c := range d.population {
		if i < len(d.seeds) {
			c.Copy(d.seeds[i])
			continue
		}
		ga.Random(c, d.bounds, d.rng)
	}
	d.logger.Debug("initial centroids",
		logging.Phase(logging.PhaseCentroids), "population", len(d.population), "seeded", len(d.seeds))
}

// evaluate scores every chromosome. Lloyd's final centroids replace the
// chromosome. Workers only touch their own slot, so the pool's Wait is the
// sole synchronization point.
func (d *Driver) evaluate(ctx context.Context, gen int) (GenerationStats, error) {
	start := time.Now()
	p := pool.New().
		WithMaxGoroutines(d.cfg.Parallelism).
		WithErrors().
		WithFirstError()
	for i := range d.population {
		p.Go(func() error {
			return d.evaluateSlot(ctx, gen, i)
		})
	}
	if err := p.Wait(); err != nil {
		return GenerationStats{}, err
	}

	stats := GenerationStats{
		Generation: gen,
		Best:       math.Inf(-1),
		Worst:      math.Inf(1),
		Mean:       stat.Mean(d.fitness, nil),
		Elapsed:    time.Since(start),
	}
	bestIdx := 0
	for i, f := range d.fitness {
		if d.degenerate[i] {
			stats.Degenerate++
		}
		if f > stats.Best {
			stats.Best = f
			bestIdx = i
		}
		stats.Worst = math.Min(stats.Worst, f)
	}
	if d.best == nil || stats.Best > d.best.Fitness {
		d.record(gen, bestIdx)
		stats.Improved = true
	}
	for i := range d.results {
		d.results[i] = nil
	}
	return stats, nil
}

func (d *Driver) evaluateSlot(ctx context.Context, gen, i int) error {
	start := time.Now()
	chrom := d.population[i]
	res := d.clusterer.Cluster(chrom, d.data)
	chrom.Copy(res.Centroids)
	d.results[i] = res
	d.degenerate[i] = false

	score, err := fitness.DunnIndex(res.Centroids, res.Clusters)
	if err != nil {
		if d.cfg.Degenerate != Zero || !errors.Is(err, fitness.ErrDegenerateClustering) {
			return fmt.Errorf("generation %d chromosome %d: %w", gen, i, err)
		}
		d.logger.DebugContext(ctx, "degenerate chromosome scored zero",
			logging.Phase(logging.PhaseDunn), "generation", gen, "index", i, "err", err)
		score = 0
		d.degenerate[i] = true
	}
	d.fitness[i] = score
	d.logger.DebugContext(ctx, "fitness",
		logging.Phase(logging.PhaseDunn),
		"generation", gen,
		"index", i,
		"fitness", score,
		"iterations", res.Iterations,
		"converged", res.Converged,
		"sizes", res.Clusters.Sizes(),
	)
	if d.observer != nil {
		d.observer.ObserveEvaluation(time.Since(start))
	}
	return nil
}

func (d *Driver) record(gen, i int) {
	res := d.results[i]
	labels := make([]int, len(res.Clusters.Labels()))
	copy(labels, res.Clusters.Labels())
	d.best = &Best{
		Generation: gen,
		Index:      i,
		Fitness:    d.fitness[i],
		Centroids:  mat.DenseCopyOf(res.Centroids),
		Labels:     labels,
		Sizes:      res.Clusters.Sizes(),
	}
}

func (d *Driver) write() error {
	for _, w := range d.writers {
		if err := w.Write(d.best); err != nil {
			return err
		}
	}
	return nil
}

// breed fills the next buffer pair by pair and swaps it in. Parents are
// copied out of the current population, so a chromosome picked twice is
// never modified through another slot.
func (d *Driver) breed() {
	for i := 0; i < len(d.next); i += 2 {
		a, b := d.next[i], d.next[i+1]
		pa := ga.SelectParent(d.prob, d.rng)
		pb := ga.SelectParent(d.prob, d.rng)
		a.Copy(d.population[pa])
		b.Copy(d.population[pb])
		d.logger.Debug("parents selected",
			logging.Phase(logging.PhaseSelection), "slot", i, "a", pa, "b", pb)

		if d.rng.Float64() < d.cfg.CrossoverRate {
			cut := ga.Crossover(a, b, d.rng)
			d.logger.Debug("crossover",
				logging.Phase(logging.PhaseCrossover), "slot", i, "cut", cut)
		}
		for j, c := range []*mat.Dense{a, b} {
			if d.rng.Float64() < d.cfg.MutationRate {
				row, col := ga.Mutate(c, d.bounds, d.rng)
				d.logger.Debug("mutation",
					logging.Phase(logging.PhaseMutate), "slot", i+j, "row", row, "col", col, "value", c.At(row, col))
			}
		}
	}
	d.population, d.next = d.next, d.population
}

// Population returns the current population. The matrices are owned by the
// driver and change on the next call to Run.
func (d *Driver) Population() []*mat.Dense { return d.population }
