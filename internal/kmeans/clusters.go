package kmeans

import "gonum.org/v1/gonum/mat"

// Clusters partitions the rows of a dataset by centroid index.
// Buckets hold row indices into the dataset, so no point is copied.
type Clusters struct {
	data    *mat.Dense
	labels  []int
	buckets [][]int
}

func newClusters(data *mat.Dense, k int) *Clusters {
	rows, _ := data.Dims()
	c := &Clusters{
		data:    data,
		labels:  make([]int, rows),
		buckets: make([][]int, k),
	}
	for i := range c.buckets {
		c.buckets[i] = make([]int, 0, rows/k+1)
	}
	return c
}

func (c *Clusters) reset() {
	for i := range c.buckets {
		c.buckets[i] = c.buckets[i][:0]
	}
}

func (c *Clusters) assign(row, cluster int) {
	c.labels[row] = cluster
	c.buckets[cluster] = append(c.buckets[cluster], row)
}

// K returns the number of clusters, empty ones included.
func (c *Clusters) K() int { return len(c.buckets) }

// Labels returns the cluster index of every dataset row.
func (c *Clusters) Labels() []int { return c.labels }

// Rows returns the dataset row indices assigned to cluster k.
func (c *Clusters) Rows(k int) []int { return c.buckets[k] }

// Size returns the number of rows assigned to cluster k.
func (c *Clusters) Size(k int) int { return len(c.buckets[k]) }

func (c *Clusters) Sizes() []int {
	sizes := make([]int, len(c.buckets))
	for i, b := range c.buckets {
		sizes[i] = len(b)
	}
	return sizes
}

// NonEmpty counts clusters with at least one row.
func (c *Clusters) NonEmpty() int {
	var n int
	for _, b := range c.buckets {
		if len(b) > 0 {
			n++
		}
	}
	return n
}

// Point returns a view of the i-th point of cluster k.
func (c *Clusters) Point(k, i int) []float64 {
	return c.data.RawRowView(c.buckets[k][i])
}

// Matrix copies the points of cluster k into a new matrix. It returns nil
// for an empty cluster.
func (c *Clusters) Matrix(k int) *mat.Dense {
	rows := c.buckets[k]
	if len(rows) == 0 {
		return nil
	}
	_, cols := c.data.Dims()
	m := mat.NewDense(len(rows), cols, nil)
	for i, r := range rows {
		m.SetRow(i, c.data.RawRowView(r))
	}
	return m
}
