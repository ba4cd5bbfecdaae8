// Package emeans searches for K-means clusterings with a genetic algorithm.
// Each chromosome is a set of K centroids refined by Lloyd's algorithm and
// scored by the Dunn Index; roulette-wheel selection, single-point row
// crossover and single-gene mutation breed the next generation.
package emeans

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yyyoichi/emeans/internal/config"
	"github.com/yyyoichi/emeans/internal/dataset"
	"github.com/yyyoichi/emeans/internal/evolution"
	"github.com/yyyoichi/emeans/internal/fitness"
	"github.com/yyyoichi/emeans/internal/kmeans"
	"github.com/yyyoichi/emeans/internal/logging"
	"github.com/yyyoichi/emeans/internal/rng"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrConfig               = config.ErrConfig
	ErrIO                   = dataset.ErrIO
	ErrFormat               = dataset.ErrFormat
	ErrDegenerateClustering = fitness.ErrDegenerateClustering
	ErrAllocation           = evolution.ErrAllocation
	ErrInvalidK             = kmeans.ErrInvalidK
)

type (
	Best             = evolution.Best
	GenerationStats  = evolution.GenerationStats
	ResultWriter     = evolution.ResultWriter
	Observer         = evolution.Observer
	StopSignal       = evolution.StopSignal
	StopFunc         = evolution.StopFunc
	StopFlag         = evolution.StopFlag
	DegeneratePolicy = evolution.DegeneratePolicy
)

const (
	Abort = evolution.Abort
	Zero  = evolution.Zero
)

// Load reads a rows×cols CSV dataset from a file path or an http(s) URL.
func Load(ctx context.Context, path string, rows, cols int) (*mat.Dense, error) {
	return dataset.Load(ctx, path, rows, cols)
}

// Fit is a convenience function that creates an EMeans instance and calls
// its Fit method.
func Fit(ctx context.Context, data *mat.Dense, opts ...Option) (*Result, error) {
	e, err := New(opts...)
	if err != nil {
		return nil, err
	}
	return e.Fit(ctx, data)
}

type EMeans struct {
	cfg    evolution.Config
	trials int
	logger *slog.Logger

	observer evolution.Observer
	writers  []evolution.ResultWriter
	stop     evolution.StopSignal
	seeds    []*mat.Dense
}

// New initializes a search. For default values, refer to the init function.
func New(opts ...Option) (*EMeans, error) {
	e := new(EMeans)
	if err := e.init(opts...); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *EMeans) init(opts ...Option) error {
	e.cfg = evolution.Config{
		Clusters:       2,
		PopulationSize: 20,
		MaxGenerations: 100,
		MaxIterations:  kmeans.DefaultMaxIterations,
		MutationRate:   0.01,
		CrossoverRate:  0.70,
		Parallelism:    1,
	}
	e.trials = 50
	e.logger = logging.Discard()
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return err
		}
	}
	return nil
}

// Result is the outcome of a Fit.
type Result struct {
	Best    *Best
	History []GenerationStats
	// Seed replays the run when passed to WithSeed.
	Seed uint64
}

// Fit evolves centroid sets over data until the generation limit or the
// stop signal. When the run fails part way, the best solution found so
// far is returned together with the error.
func (e *EMeans) Fit(ctx context.Context, data *mat.Dense) (*Result, error) {
	opts := []evolution.Option{
		evolution.WithLogger(e.logger),
		evolution.WithStopSignal(e.stop),
		evolution.WithInitialPopulation(e.seeds...),
	}
	if e.observer != nil {
		opts = append(opts, evolution.WithObserver(e.observer))
	}
	for _, w := range e.writers {
		opts = append(opts, evolution.WithResultWriter(w))
	}
	d, err := evolution.New(data, e.cfg, opts...)
	if err != nil {
		return nil, err
	}
	best, err := d.Run(ctx)
	return &Result{Best: best, History: d.History(), Seed: d.Seed()}, err
}

// Clustering is the outcome of a single Lloyd run.
type Clustering struct {
	Centroids  *mat.Dense
	Labels     []int
	Sizes      []int
	Iterations int
	Converged  bool
	// SSE is the within-cluster sum of squared distances.
	SSE float64
}

// Cluster runs Lloyd's algorithm on data. With centroids it starts from
// them; with nil it restarts from WithTrials random data rows and keeps
// the run with the lowest SSE.
func (e *EMeans) Cluster(data, centroids *mat.Dense) (*Clustering, error) {
	var (
		res *kmeans.Result
		err error
	)
	if centroids != nil {
		k, cols := centroids.Dims()
		if _, c := data.Dims(); c != cols {
			return nil, fmt.Errorf("%w: centroids have %d columns, data %d", ErrConfig, cols, c)
		}
		if k < 1 {
			return nil, ErrInvalidK
		}
		res = kmeans.New(
			kmeans.WithMaxIterations(e.cfg.MaxIterations),
			kmeans.WithLogger(e.logger),
		).Cluster(centroids, data)
	} else {
		res, err = kmeans.New(
			kmeans.WithMaxIterations(e.cfg.MaxIterations),
			kmeans.WithRandomInit(e.trials, rng.New(e.cfg.Seed)),
			kmeans.WithLogger(e.logger),
		).ClusterRandom(e.cfg.Clusters, data)
		if err != nil {
			return nil, err
		}
	}
	return &Clustering{
		Centroids:  res.Centroids,
		Labels:     res.Clusters.Labels(),
		Sizes:      res.Clusters.Sizes(),
		Iterations: res.Iterations,
		Converged:  res.Converged,
		SSE:        res.SSE(),
	}, nil
}

// DunnIndex scores centroids against data, assigning every row to its
// nearest centroid without moving them.
func DunnIndex(centroids, data *mat.Dense) (float64, error) {
	res := kmeans.New(kmeans.WithMaxIterations(1)).Cluster(centroids, data)
	return fitness.DunnIndex(centroids, res.Clusters)
}
