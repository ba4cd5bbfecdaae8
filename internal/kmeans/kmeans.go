package kmeans

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/yyyoichi/emeans/internal/logging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultMaxIterations caps Lloyd's loop when no limit is configured.
const DefaultMaxIterations = 10000

var ErrInvalidK = errors.New("kmeans: invalid cluster count")

// Rand draws bounded integers for random centroid initialization.
type Rand interface {
	IntN(n int) int
}

type (
	Option    func(*Clusterer)
	Clusterer struct {
		maxIterations int
		trials        int
		rng           Rand
		logger        *slog.Logger
	}
)

// WithMaxIterations caps the number of assign/recompute rounds.
func WithMaxIterations(n int) Option {
	return func(c *Clusterer) {
		c.maxIterations = n
	}
}

// WithRandomInit enables ClusterRandom with the given number of restarts.
func WithRandomInit(trials int, rng Rand) Option {
	return func(c *Clusterer) {
		c.trials = trials
		c.rng = rng
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Clusterer) {
		c.logger = l
	}
}

// New returns a Clusterer. Unset limits fall back to DefaultMaxIterations
// and a single trial.
func New(opts ...Option) *Clusterer {
	c := new(Clusterer)
	for _, opt := range opts {
		opt(c)
	}
	if c.maxIterations < 1 {
		c.maxIterations = DefaultMaxIterations
	}
	if c.trials < 1 {
		c.trials = 1
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}
	c.logger = c.logger.With(logging.Phase(logging.PhaseCluster))
	return c
}

// Result is the outcome of one Lloyd run.
type Result struct {
	Centroids  *mat.Dense
	Clusters   *Clusters
	Iterations int
	Converged  bool
}

// SSE returns the within-cluster sum of squared distances to the centroids.
func (r *Result) SSE() float64 {
	var sse float64
	for k := range r.Clusters.K() {
		centroid := r.Centroids.RawRowView(k)
		for i := range r.Clusters.Size(k) {
			d := floats.Distance(r.Clusters.Point(k, i), centroid, 2)
			sse += d * d
		}
	}
	return sse
}

// Cluster runs Lloyd's algorithm from the supplied centroids, which are not
// modified. Each round assigns every row to its nearest centroid (the lowest
// index wins ties), then moves each centroid to the mean of its rows; a
// centroid without rows keeps its position. The loop ends when a round leaves
// the centroids exactly unchanged or after the iteration cap.
func (c *Clusterer) Cluster(centroids, data *mat.Dense) *Result {
	k, cols := centroids.Dims()
	rows, _ := data.Dims()

	cur := mat.DenseCopyOf(centroids)
	next := mat.NewDense(k, cols, nil)
	clusters := newClusters(data, k)
	stores := make([]AverageStore, k)
	for i := range stores {
		stores[i] = newAverageStore(cols)
	}

	res := &Result{Clusters: clusters}
	for res.Iterations < c.maxIterations {
		res.Iterations++

		clusters.reset()
		for i := range rows {
			clusters.assign(i, nearest(cur, data.RawRowView(i)))
		}

		for i := range stores {
			stores[i].Reset()
		}
		for i, label := range clusters.labels {
			stores[label].Add(data.RawRowView(i))
		}
		for j := range k {
			row := next.RawRowView(j)
			if !stores[j].Average(row) {
				copy(row, cur.RawRowView(j))
			}
		}

		if mat.Equal(cur, next) {
			res.Converged = true
			break
		}
		cur, next = next, cur
	}
	res.Centroids = cur

	c.logger.Debug("lloyd finished",
		slog.Int("iterations", res.Iterations),
		slog.Bool("converged", res.Converged),
		slog.Any("sizes", clusters.Sizes()),
	)
	return res
}

// ClusterRandom runs the configured number of trials, each seeded with k
// distinct rows of data as centroids, and keeps the trial with the lowest SSE.
func (c *Clusterer) ClusterRandom(k int, data *mat.Dense) (*Result, error) {
	rows, cols := data.Dims()
	if k < 1 || k > rows {
		return nil, fmt.Errorf("%w: %d clusters for %d rows", ErrInvalidK, k, rows)
	}
	if c.rng == nil {
		return nil, errors.New("kmeans: random initialization requires a random source")
	}

	var (
		best    *Result
		bestSSE = math.Inf(1)
		perm    = make([]int, rows)
		init    = mat.NewDense(k, cols, nil)
	)
	for trial := range c.trials {
		for i := range perm {
			perm[i] = i
		}
		// partial Fisher-Yates: the first k entries are a uniform sample
		for i := range k {
			j := i + c.rng.IntN(rows-i)
			perm[i], perm[j] = perm[j], perm[i]
			init.SetRow(i, data.RawRowView(perm[i]))
		}
		c.logger.Debug("random centroids", slog.Int("trial", trial), slog.Any("rows", perm[:k]))

		res := c.Cluster(init, data)
		if sse := res.SSE(); sse < bestSSE || best == nil {
			best, bestSSE = res, sse
		}
	}
	return best, nil
}

func nearest(centroids *mat.Dense, point []float64) int {
	k, _ := centroids.Dims()
	best, bestDist := 0, math.Inf(1)
	for j := range k {
		if d := floats.Distance(point, centroids.RawRowView(j), 2); d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}
